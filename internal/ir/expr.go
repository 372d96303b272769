package ir

// Expr is an expression appearing in a projection or a VALUES list.
//
// This is a sealed interface - only types in this package implement it.
//
// Expr types:
//   - ColumnRef: a bare identifier reference
//   - Literal: a constant of one of the Value kinds
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// ColumnRef is a bare identifier reference.
type ColumnRef struct {
	Name string
}

func (ColumnRef) exprNode() {}

// Literal is a constant expression.
type Literal struct {
	Value Value
}

func (Literal) exprNode() {}

// Value is the payload of a Literal.
//
// This is a sealed interface over the literal kinds the lowering can load
// into a register: Integer, Float, String, Blob and Null.
type Value interface {
	literalValue()
}

// Integer is a 64-bit signed integer literal.
type Integer int64

func (Integer) literalValue() {}

// Float is a floating-point literal.
type Float float64

func (Float) literalValue() {}

// String is a text literal with quotes and escapes removed.
type String string

func (String) literalValue() {}

// Blob is a binary literal (X'...').
type Blob []byte

func (Blob) literalValue() {}

// Null is the NULL literal.
type Null struct{}

func (Null) literalValue() {}

// Col is shorthand for a ColumnRef expression.
func Col(name string) ColumnRef {
	return ColumnRef{Name: name}
}

// Lit is shorthand for a Literal expression.
func Lit(v Value) Literal {
	return Literal{Value: v}
}
