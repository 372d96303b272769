package cst

import "fmt"

// Kind identifies the grammar production a node was built from.
type Kind int

const (
	KindProgram Kind = iota
	KindSQLStmt
	KindSelectStmt
	KindCreateTableStmt
	KindInsertStmt
	KindResultColumn
	KindTableOrSubquery
	KindExpr
	KindSchemaName
	KindTableName
	KindColumnName
	KindColumnAlias
	KindTableAlias
	KindTypeName
	KindColumnDef
	KindColumnConstraint
	KindTableOption
	KindWithClause
	KindCommonTableExpression
	KindConflictResolutionMethod
	KindValuesClause
)

var kindNames = [...]string{
	KindProgram:                  "program",
	KindSQLStmt:                  "sql_stmt",
	KindSelectStmt:               "select_stmt",
	KindCreateTableStmt:          "create_table_stmt",
	KindInsertStmt:               "insert_stmt",
	KindResultColumn:             "result_column",
	KindTableOrSubquery:          "table_or_subquery",
	KindExpr:                     "expr",
	KindSchemaName:               "schema_name",
	KindTableName:                "table_name",
	KindColumnName:               "column_name",
	KindColumnAlias:              "column_alias",
	KindTableAlias:               "table_alias",
	KindTypeName:                 "type_name",
	KindColumnDef:                "column_def",
	KindColumnConstraint:         "column_constraint",
	KindTableOption:              "table_option",
	KindWithClause:               "with_clause",
	KindCommonTableExpression:    "common_table_expression",
	KindConflictResolutionMethod: "conflict_resolution_method",
	KindValuesClause:             "values_clause",
}

// String returns the production name.
func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is one concrete syntax tree node.
//
// Children are stored in source order. Accessors test for presence rather
// than type: Child returns nil when the production is absent.
type Node struct {
	Kind     Kind
	Pos, End int
	Children []*Node

	// Token is the leaf payload for names and expressions.
	Token *Token

	keywords []string
	terms    []Token
	src      string
}

// Text returns the exact source substring the node spans.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	return n.src[n.Pos:n.End]
}

// Name returns the decoded identifier of a name node (unquoted, NFC).
func (n *Node) Name() string {
	if n == nil || n.Token == nil {
		return ""
	}
	return n.Token.Value
}

// Has reports whether the keyword terminal kw (upper case) was consumed
// directly by this production.
func (n *Node) Has(kw string) bool {
	if n == nil {
		return false
	}
	for _, k := range n.keywords {
		if k == kw {
			return true
		}
	}
	return false
}

// Keywords returns the keyword terminals of this production in source order.
func (n *Node) Keywords() []string {
	if n == nil {
		return nil
	}
	return append([]string(nil), n.keywords...)
}

// Terms returns the tokens a type name is made of, in source order:
// words, then the punctuation and numbers of its size. Comments and
// whitespace between them are not terms.
func (n *Node) Terms() []Token {
	if n == nil {
		return nil
	}
	return append([]Token(nil), n.terms...)
}

// Child returns the first direct child of the given kind, or nil.
func (n *Node) Child(kind Kind) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// All returns every direct child of the given kind in source order.
func (n *Node) All(kind Kind) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// String renders the node for debugging.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s(%q)", n.Kind, n.Text())
}
