package cst

import (
	"encoding/hex"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/sqlbc/internal/sqlerr"
)

var errUnterminated = errors.New("unterminated literal")

// Lexer tokenizes SQL input.
type Lexer struct {
	input string
	pos   int // current byte offset
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize lexes the whole input. The last token is always TokenEOF.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var toks []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks, nil
		}
	}
}

// peekByte returns the byte at offset n from the current position, or 0.
func (l *Lexer) peekByte(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) peekRune() (rune, int) {
	if l.pos >= len(l.input) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(l.input[l.pos:])
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() (Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}

	start := l.pos
	if start >= len(l.input) {
		return Token{Type: TokenEOF, Pos: start, End: start}, nil
	}

	ch := l.input[start]
	switch {
	case (ch == 'x' || ch == 'X') && l.peekByte(1) == '\'':
		return l.readBlob()
	case ch == '\'':
		return l.readString()
	case ch == '"' || ch == '`':
		return l.readQuotedIdentifier(ch, ch)
	case ch == '[':
		return l.readQuotedIdentifier('[', ']')
	case isDigit(ch) || (ch == '.' && isDigit(l.peekByte(1))):
		return l.readNumber()
	}

	r, size := l.peekRune()
	if r == '_' || unicode.IsLetter(r) {
		return l.readIdentifier(), nil
	}
	if r == utf8.RuneError && size == 1 {
		return Token{}, sqlerr.Syntax(start, l.input[start:start+1], "invalid UTF-8 in input")
	}

	l.pos += size
	return l.token(TokenPunct, start, l.input[start:l.pos]), nil
}

func (l *Lexer) token(typ TokenType, start int, value string) Token {
	return Token{Type: typ, Text: l.input[start:l.pos], Value: value, Pos: start, End: l.pos}
}

// skipWhitespaceAndComments skips whitespace, -- line comments and /* */ block comments.
func (l *Lexer) skipWhitespaceAndComments() error {
	for l.pos < len(l.input) {
		r, size := l.peekRune()
		switch {
		case unicode.IsSpace(r):
			l.pos += size
		case r == '-' && l.peekByte(1) == '-':
			end := strings.IndexByte(l.input[l.pos:], '\n')
			if end < 0 {
				l.pos = len(l.input)
			} else {
				l.pos += end + 1
			}
		case r == '/' && l.peekByte(1) == '*':
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				return sqlerr.Syntax(l.pos, "/*", "unterminated block comment")
			}
			l.pos += end + 4
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) readIdentifier() Token {
	start := l.pos
	for l.pos < len(l.input) {
		r, size := l.peekRune()
		if r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) {
			break
		}
		l.pos += size
	}
	text := l.input[start:l.pos]
	return l.token(TokenIdent, start, norm.NFC.String(text))
}

// readQuotedIdentifier reads an identifier delimited by open/close. A doubled
// close character inside "..." or `...` stands for itself.
func (l *Lexer) readQuotedIdentifier(open, close byte) (Token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			return Token{}, sqlerr.Syntax(start, l.input[start:], "unterminated quoted identifier")
		}
		c := l.input[l.pos]
		if c == close {
			if open != '[' && l.peekByte(1) == close {
				sb.WriteByte(close)
				l.pos += 2
				continue
			}
			l.pos++
			break
		}
		sb.WriteByte(c)
		l.pos++
	}
	if sb.Len() == 0 {
		return Token{}, sqlerr.Syntax(start, l.input[start:l.pos], "empty quoted identifier")
	}
	tok := l.token(TokenIdent, start, norm.NFC.String(sb.String()))
	tok.Quoted = true
	return tok, nil
}

// readString reads a '...' literal; '' stands for a single quote.
func (l *Lexer) readString() (Token, error) {
	start := l.pos
	value, err := l.readQuoted()
	if err != nil {
		return Token{}, sqlerr.Syntax(start, l.input[start:], "unterminated string literal")
	}
	return l.token(TokenString, start, value), nil
}

func (l *Lexer) readQuoted() (string, error) {
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '\'' {
			if l.peekByte(1) == '\'' {
				sb.WriteByte('\'')
				l.pos += 2
				continue
			}
			l.pos++
			return sb.String(), nil
		}
		sb.WriteByte(c)
		l.pos++
	}
	return "", errUnterminated
}

// readBlob reads X'hex'. The hex digit count must be even.
func (l *Lexer) readBlob() (Token, error) {
	start := l.pos
	l.pos++ // X
	digits, err := l.readQuoted()
	if err != nil {
		return Token{}, sqlerr.Syntax(start, l.input[start:], "unterminated blob literal")
	}
	data, err := hex.DecodeString(digits)
	if err != nil {
		return Token{}, sqlerr.Syntax(start, l.input[start:l.pos], "malformed blob literal")
	}
	return l.token(TokenBlob, start, string(data)), nil
}

// readNumber reads an integer, decimal, exponent or hex literal.
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	if l.input[l.pos] == '0' && (l.peekByte(1) == 'x' || l.peekByte(1) == 'X') && isHexDigit(l.peekByte(2)) {
		l.pos += 2
		for l.pos < len(l.input) && isHexDigit(l.input[l.pos]) {
			l.pos++
		}
	} else {
		l.skipDigits()
		if l.peekByte(0) == '.' {
			l.pos++
			l.skipDigits()
		}
		if c := l.peekByte(0); c == 'e' || c == 'E' {
			save := l.pos
			l.pos++
			if c := l.peekByte(0); c == '+' || c == '-' {
				l.pos++
			}
			if !isDigit(l.peekByte(0)) {
				l.pos = save
				return Token{}, sqlerr.Syntax(start, l.input[start:l.pos+1], "malformed number")
			}
			l.skipDigits()
		}
	}

	if r, size := l.peekRune(); r == '_' || unicode.IsLetter(r) {
		return Token{}, sqlerr.Syntax(start, l.input[start:l.pos+size], "unrecognized token")
	}
	return l.token(TokenNumber, start, l.input[start:l.pos]), nil
}

func (l *Lexer) skipDigits() {
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
