package cst

import (
	"fmt"

	"github.com/roach88/sqlbc/internal/sqlerr"
)

// Parser is a recursive-descent parser over a pre-lexed token slice.
type Parser struct {
	input   string
	toks    []Token
	i       int
	prevEnd int // end offset of the last consumed token
}

// Parse parses a program of one or more ';'-separated statements.
// Empty statements between semicolons are skipped.
func Parse(input string) (*Node, error) {
	toks, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &Parser{input: input, toks: toks}
	return p.parseProgram()
}

// ParseStatement parses input that must contain exactly one statement.
func ParseStatement(input string) (*Node, error) {
	prog, err := Parse(input)
	if err != nil {
		return nil, err
	}
	if len(prog.Children) != 1 {
		return nil, sqlerr.Syntax(0, "", "expected exactly one statement, found %d", len(prog.Children))
	}
	return prog.Children[0], nil
}

func (p *Parser) cur() Token {
	return p.toks[p.i]
}

func (p *Parser) peek(n int) Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *Parser) advance() Token {
	t := p.toks[p.i]
	if t.Type != TokenEOF {
		p.i++
		p.prevEnd = t.End
	}
	return t
}

func (p *Parser) open(kind Kind) *Node {
	return &Node{Kind: kind, Pos: p.cur().Pos, src: p.input}
}

func (p *Parser) close(n *Node) *Node {
	n.End = max(p.prevEnd, n.Pos)
	return n
}

// acceptWord consumes the keyword kw if it is next and records it on n.
func (p *Parser) acceptWord(n *Node, kw string) bool {
	if !p.cur().isWord(kw) {
		return false
	}
	p.advance()
	n.keywords = append(n.keywords, kw)
	return true
}

func (p *Parser) expectWord(n *Node, kw string) error {
	if !p.acceptWord(n, kw) {
		return p.expected(kw)
	}
	return nil
}

func (p *Parser) acceptPunct(c string) bool {
	if !p.cur().isPunct(c) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expectPunct(c string) error {
	if !p.acceptPunct(c) {
		return p.expected(fmt.Sprintf("'%s'", c))
	}
	return nil
}

func (p *Parser) expected(what string) error {
	t := p.cur()
	return sqlerr.Syntax(t.Pos, t.Text, "expected %s, found %s", what, t.describe())
}

// isIdent reports whether t can be used as an identifier.
func isIdent(t Token) bool {
	return t.Type == TokenIdent && (t.Quoted || !reserved[upper(t.Text)])
}

// isTypeWord reports whether t can continue a type name.
func isTypeWord(t Token) bool {
	if t.Type != TokenIdent {
		return false
	}
	if t.Quoted {
		return true
	}
	u := upper(t.Text)
	return !reserved[u] && !constraintStart[u]
}

func (p *Parser) parseName(kind Kind) (*Node, error) {
	if !isIdent(p.cur()) {
		return nil, p.expected(kind.String())
	}
	n := p.open(kind)
	tok := p.advance()
	n.Token = &tok
	return p.close(n), nil
}

// parseQualifiedName parses [schema_name '.'] table_name.
func (p *Parser) parseQualifiedName() ([]*Node, error) {
	first, err := p.parseName(KindTableName)
	if err != nil {
		return nil, err
	}
	if !p.acceptPunct(".") {
		return []*Node{first}, nil
	}
	first.Kind = KindSchemaName
	second, err := p.parseName(KindTableName)
	if err != nil {
		return nil, err
	}
	return []*Node{first, second}, nil
}

// parseNameList parses '(' name (',' name)* ')'.
func (p *Parser) parseNameList(kind Kind) ([]*Node, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var names []*Node
	for {
		name, err := p.parseName(kind)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if !p.acceptPunct(",") {
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return names, nil
}

func (p *Parser) parseProgram() (*Node, error) {
	prog := &Node{Kind: KindProgram, src: p.input, End: len(p.input)}
	for {
		for p.acceptPunct(";") {
		}
		if p.cur().Type == TokenEOF {
			break
		}
		stmt, err := p.parseSQLStmt()
		if err != nil {
			return nil, err
		}
		prog.Children = append(prog.Children, stmt)
		if t := p.cur(); t.Type != TokenEOF && !t.isPunct(";") {
			return nil, p.expected("';' or end of input")
		}
	}
	if len(prog.Children) == 0 {
		return nil, sqlerr.Syntax(0, "", "empty input")
	}
	return prog, nil
}

// parseSQLStmt dispatches on the first token. Statements of any other shape
// are consumed up to the next ';' and returned without a statement child.
func (p *Parser) parseSQLStmt() (*Node, error) {
	n := p.open(KindSQLStmt)

	var child *Node
	var err error
	switch t := p.cur(); {
	case t.isWord("SELECT"):
		child, err = p.parseSelect()
	case t.isWord("CREATE") && p.isCreateTable():
		child, err = p.parseCreateTable()
	case t.isWord("INSERT"), t.isWord("REPLACE"), t.isWord("WITH"):
		child, err = p.parseInsert()
	default:
		for t := p.cur(); t.Type != TokenEOF && !t.isPunct(";"); t = p.cur() {
			p.advance()
		}
		return p.close(n), nil
	}
	if err != nil {
		return nil, err
	}
	n.Children = append(n.Children, child)
	return p.close(n), nil
}

func (p *Parser) isCreateTable() bool {
	next := p.peek(1)
	if next.isWord("TABLE") {
		return true
	}
	return (next.isWord("TEMP") || next.isWord("TEMPORARY")) && p.peek(2).isWord("TABLE")
}

// parseSelect parses SELECT [DISTINCT|ALL] result_column, ... FROM table_or_subquery, ...
func (p *Parser) parseSelect() (*Node, error) {
	n := p.open(KindSelectStmt)
	if err := p.expectWord(n, "SELECT"); err != nil {
		return nil, err
	}
	if !p.acceptWord(n, "DISTINCT") {
		p.acceptWord(n, "ALL")
	}

	for {
		rc, err := p.parseResultColumn()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, rc)
		if !p.acceptPunct(",") {
			break
		}
	}

	if err := p.expectWord(n, "FROM"); err != nil {
		return nil, err
	}

	for {
		src, err := p.parseTableOrSubquery()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, src)
		if !p.acceptPunct(",") {
			break
		}
	}
	return p.close(n), nil
}

func (p *Parser) parseResultColumn() (*Node, error) {
	n := p.open(KindResultColumn)

	if p.acceptPunct("*") {
		n.keywords = append(n.keywords, "*")
		return p.close(n), nil
	}

	if isIdent(p.cur()) && p.peek(1).isPunct(".") {
		table, err := p.parseName(KindTableName)
		if err != nil {
			return nil, err
		}
		p.advance() // '.'
		if !p.acceptPunct("*") {
			return nil, p.expected(fmt.Sprintf("'*' after %q.", table.Name()))
		}
		n.Children = append(n.Children, table)
		n.keywords = append(n.keywords, "*")
		return p.close(n), nil
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	n.Children = append(n.Children, expr)

	if err := p.parseOptionalAlias(n, KindColumnAlias, true); err != nil {
		return nil, err
	}
	return p.close(n), nil
}

// parseOptionalAlias parses [AS] alias. A bare alias is allowed only when
// bare is true; otherwise AS is required.
func (p *Parser) parseOptionalAlias(n *Node, kind Kind, bare bool) error {
	if p.acceptWord(n, "AS") || (bare && isIdent(p.cur())) {
		alias, err := p.parseName(kind)
		if err != nil {
			return err
		}
		n.Children = append(n.Children, alias)
	}
	return nil
}

func (p *Parser) parseTableOrSubquery() (*Node, error) {
	n := p.open(KindTableOrSubquery)
	names, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	n.Children = append(n.Children, names...)
	if err := p.parseOptionalAlias(n, KindTableAlias, true); err != nil {
		return nil, err
	}
	return p.close(n), nil
}

// parseExpr parses identifier | [+|-] number | string | blob | NULL.
func (p *Parser) parseExpr() (*Node, error) {
	n := p.open(KindExpr)
	t := p.cur()
	switch {
	case t.isPunct("-") || t.isPunct("+"):
		if p.peek(1).Type != TokenNumber {
			p.advance()
			return nil, p.expected("number after sign")
		}
		p.advance()
		n.keywords = append(n.keywords, t.Text)
	case t.Type == TokenNumber, t.Type == TokenString, t.Type == TokenBlob:
	case t.isWord("NULL"):
		n.keywords = append(n.keywords, "NULL")
	case isIdent(t):
	default:
		return nil, p.expected("expression")
	}
	tok := p.advance()
	n.Token = &tok
	return p.close(n), nil
}

// parseCreateTable parses CREATE [TEMP] TABLE [IF NOT EXISTS] name (columns) [options]
// or CREATE [TEMP] TABLE [IF NOT EXISTS] name AS select_stmt.
func (p *Parser) parseCreateTable() (*Node, error) {
	n := p.open(KindCreateTableStmt)
	if err := p.expectWord(n, "CREATE"); err != nil {
		return nil, err
	}
	if !p.acceptWord(n, "TEMP") {
		p.acceptWord(n, "TEMPORARY")
	}
	if err := p.expectWord(n, "TABLE"); err != nil {
		return nil, err
	}
	if p.cur().isWord("IF") && p.peek(1).isWord("NOT") {
		p.acceptWord(n, "IF")
		p.acceptWord(n, "NOT")
		if err := p.expectWord(n, "EXISTS"); err != nil {
			return nil, err
		}
	}

	names, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	n.Children = append(n.Children, names...)

	if p.acceptWord(n, "AS") {
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, sel)
		return p.close(n), nil
	}

	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	for {
		def, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, def)
		if !p.acceptPunct(",") {
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}

	if p.cur().isWord("WITHOUT") || p.cur().isWord("STRICT") {
		for {
			opt, err := p.parseTableOption()
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, opt)
			if !p.acceptPunct(",") {
				break
			}
		}
	}
	return p.close(n), nil
}

func (p *Parser) parseColumnDef() (*Node, error) {
	n := p.open(KindColumnDef)
	name, err := p.parseName(KindColumnName)
	if err != nil {
		return nil, err
	}
	n.Children = append(n.Children, name)

	if isTypeWord(p.cur()) {
		typ, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, typ)
	}

	for {
		t := p.cur()
		if t.Type == TokenEOF || t.isPunct(",") || t.isPunct(")") {
			break
		}
		if t.Type != TokenIdent || t.Quoted || !constraintStart[upper(t.Text)] {
			return nil, p.expected("column constraint, ',' or ')'")
		}
		n.Children = append(n.Children, p.parseColumnConstraint())
	}
	return p.close(n), nil
}

// parseTypeName parses name+ ['(' signed_number [',' signed_number] ')'].
// The consumed tokens are kept as the node's terms.
func (p *Parser) parseTypeName() (*Node, error) {
	n := p.open(KindTypeName)
	for isTypeWord(p.cur()) {
		n.terms = append(n.terms, p.advance())
	}
	if p.cur().isPunct("(") {
		n.terms = append(n.terms, p.advance())
		if err := p.parseSignedNumber(n); err != nil {
			return nil, err
		}
		if p.cur().isPunct(",") {
			n.terms = append(n.terms, p.advance())
			if err := p.parseSignedNumber(n); err != nil {
				return nil, err
			}
		}
		if !p.cur().isPunct(")") {
			return nil, p.expected("')'")
		}
		n.terms = append(n.terms, p.advance())
	}
	return p.close(n), nil
}

func (p *Parser) parseSignedNumber(n *Node) error {
	if p.cur().isPunct("+") || p.cur().isPunct("-") {
		n.terms = append(n.terms, p.advance())
	}
	if p.cur().Type != TokenNumber {
		return p.expected("number")
	}
	n.terms = append(n.terms, p.advance())
	return nil
}

// parseColumnConstraint consumes an opaque constraint up to the next
// top-level ',' or ')'. Constraints are not modeled further.
func (p *Parser) parseColumnConstraint() *Node {
	n := p.open(KindColumnConstraint)
	depth := 0
	for {
		t := p.cur()
		if t.Type == TokenEOF || (depth == 0 && (t.isPunct(",") || t.isPunct(")") || t.isPunct(";"))) {
			break
		}
		switch {
		case t.isPunct("("):
			depth++
		case t.isPunct(")"):
			depth--
		case depth == 0 && t.Type == TokenIdent && !t.Quoted:
			n.keywords = append(n.keywords, upper(t.Text))
		}
		p.advance()
	}
	return p.close(n)
}

func (p *Parser) parseTableOption() (*Node, error) {
	n := p.open(KindTableOption)
	switch {
	case p.acceptWord(n, "WITHOUT"):
		if err := p.expectWord(n, "ROWID"); err != nil {
			return nil, err
		}
	case p.acceptWord(n, "STRICT"):
	default:
		return nil, p.expected("WITHOUT ROWID or STRICT")
	}
	return p.close(n), nil
}

// parseInsert parses [with_clause] (INSERT|REPLACE) [OR method] INTO name
// [AS alias] [(columns)] (VALUES (exprs) | select_stmt | DEFAULT VALUES).
func (p *Parser) parseInsert() (*Node, error) {
	n := p.open(KindInsertStmt)

	if p.cur().isWord("WITH") {
		with, err := p.parseWithClause()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, with)
	}

	if !p.acceptWord(n, "INSERT") && !p.acceptWord(n, "REPLACE") {
		return nil, p.expected("INSERT or REPLACE")
	}

	if p.acceptWord(n, "OR") {
		if p.cur().Type != TokenIdent {
			return nil, p.expected("conflict resolution method")
		}
		m := p.open(KindConflictResolutionMethod)
		tok := p.advance()
		m.Token = &tok
		n.Children = append(n.Children, p.close(m))
	}

	if err := p.expectWord(n, "INTO"); err != nil {
		return nil, err
	}
	names, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}
	n.Children = append(n.Children, names...)

	if err := p.parseOptionalAlias(n, KindTableAlias, false); err != nil {
		return nil, err
	}

	if p.cur().isPunct("(") {
		cols, err := p.parseNameList(KindColumnName)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, cols...)
	}

	switch {
	case p.cur().isWord("VALUES"):
		values, err := p.parseValuesClause()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, values)
	case p.cur().isWord("SELECT"):
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, sel)
	case p.acceptWord(n, "DEFAULT"):
		if err := p.expectWord(n, "VALUES"); err != nil {
			return nil, err
		}
	default:
		return nil, p.expected("VALUES, SELECT or DEFAULT VALUES")
	}
	return p.close(n), nil
}

// parseValuesClause parses VALUES '(' expr (',' expr)* ')'. Only one row is allowed.
func (p *Parser) parseValuesClause() (*Node, error) {
	n := p.open(KindValuesClause)
	if err := p.expectWord(n, "VALUES"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, expr)
		if !p.acceptPunct(",") {
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if t := p.cur(); t.isPunct(",") {
		return nil, sqlerr.Syntax(t.Pos, t.Text, "multi-row VALUES is not supported")
	}
	return p.close(n), nil
}

// parseWithClause parses WITH [RECURSIVE] cte (',' cte)*.
func (p *Parser) parseWithClause() (*Node, error) {
	n := p.open(KindWithClause)
	if err := p.expectWord(n, "WITH"); err != nil {
		return nil, err
	}
	p.acceptWord(n, "RECURSIVE")
	for {
		cte, err := p.parseCommonTableExpression()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, cte)
		if !p.acceptPunct(",") {
			break
		}
	}
	return p.close(n), nil
}

// parseCommonTableExpression parses name [(columns)] AS [[NOT] MATERIALIZED] (select_stmt).
func (p *Parser) parseCommonTableExpression() (*Node, error) {
	n := p.open(KindCommonTableExpression)
	name, err := p.parseName(KindTableName)
	if err != nil {
		return nil, err
	}
	n.Children = append(n.Children, name)

	if p.cur().isPunct("(") {
		cols, err := p.parseNameList(KindColumnName)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, cols...)
	}

	if err := p.expectWord(n, "AS"); err != nil {
		return nil, err
	}
	if p.acceptWord(n, "NOT") {
		if err := p.expectWord(n, "MATERIALIZED"); err != nil {
			return nil, err
		}
	} else {
		p.acceptWord(n, "MATERIALIZED")
	}

	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	sel, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	n.Children = append(n.Children, sel)
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return p.close(n), nil
}
