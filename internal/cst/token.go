// Package cst is the SQL front end: a lexer and a permissive recursive-descent
// parser producing a concrete syntax tree with one node per grammar production.
//
// The parser accepts some constructs the IR cannot represent (REPLACE with a
// conflict clause, column constraints, CREATE TABLE ... AS SELECT, statements
// other than SELECT/CREATE TABLE/INSERT) so that the builder can reject them
// with a precise error kind. Only genuine lexical or grammatical failures are
// reported here, as sqlerr SYNTAX_ERROR.
package cst

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenEOF    TokenType = iota // end of input
	TokenIdent                   // word or quoted identifier
	TokenNumber                  // 123, 4.5, 1e10, 0x1F
	TokenString                  // 'text'
	TokenBlob                    // X'CAFE'
	TokenPunct                   // single punctuation character
)

var tokenNames = map[TokenType]string{
	TokenEOF:    "EOF",
	TokenIdent:  "identifier",
	TokenNumber: "number",
	TokenString: "string",
	TokenBlob:   "blob",
	TokenPunct:  "punctuation",
}

// String returns a readable token type name.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a lexical token.
type Token struct {
	Type TokenType

	// Text is the exact source text of the token.
	Text string

	// Value is the decoded payload: the NFC-normalized name of an identifier,
	// the unescaped content of a string, or the decoded bytes of a blob.
	Value string

	// Quoted is true for "..." `...` and [...] identifiers. Quoted words are
	// never keywords.
	Quoted bool

	// Pos and End are byte offsets of the token in the input.
	Pos int
	End int
}

// isWord reports whether the token is the unquoted keyword kw (upper case).
func (t Token) isWord(kw string) bool {
	return t.Type == TokenIdent && !t.Quoted && upper(t.Text) == kw
}

// isPunct reports whether the token is the punctuation character c.
func (t Token) isPunct(c string) bool {
	return t.Type == TokenPunct && t.Text == c
}

// describe renders the token for error messages.
func (t Token) describe() string {
	if t.Type == TokenEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.Text)
}
