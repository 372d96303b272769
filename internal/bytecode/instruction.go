package bytecode

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Operand is the typed P4 payload of an instruction.
//
// This is a sealed interface over IntOperand, FloatOperand, StringOperand
// and BlobOperand; an absent P4 is nil.
type Operand interface {
	operand()
	// Kind names the operand type for listings and JSON.
	Kind() string
	// Text renders the operand value for listings.
	Text() string
}

// IntOperand is an integer payload.
type IntOperand int64

func (IntOperand) operand()       {}
func (IntOperand) Kind() string   { return "int" }
func (o IntOperand) Text() string { return strconv.FormatInt(int64(o), 10) }

// FloatOperand is a floating-point payload.
type FloatOperand float64

func (FloatOperand) operand()     {}
func (FloatOperand) Kind() string { return "float" }
func (o FloatOperand) Text() string {
	return strconv.FormatFloat(float64(o), 'g', -1, 64)
}

// StringOperand is a text payload.
type StringOperand string

func (StringOperand) operand()       {}
func (StringOperand) Kind() string   { return "string" }
func (o StringOperand) Text() string { return string(o) }

// BlobOperand is a binary payload.
type BlobOperand []byte

func (BlobOperand) operand()     {}
func (BlobOperand) Kind() string { return "blob" }
func (o BlobOperand) Text() string {
	return "X'" + strings.ToUpper(hex.EncodeToString(o)) + "'"
}

// Instruction is one virtual machine instruction.
type Instruction struct {
	Opcode Opcode
	P1     int64
	P2     uint64
	P3     string
	P4     Operand // nil when absent
}

// Format renders the instruction as an EXPLAIN-style listing line:
// addr|Opcode|P1|P2|P3 with |P4 appended when present.
func (in Instruction) Format(addr int) string {
	line := fmt.Sprintf("%d|%s|%d|%d|%s", addr, in.Opcode, in.P1, in.P2, in.P3)
	if in.P4 != nil {
		line += "|" + in.P4.Text()
	}
	return line
}

type operandJSON struct {
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

type instructionJSON struct {
	Addr   int          `json:"addr"`
	Opcode string       `json:"opcode"`
	P1     int64        `json:"p1"`
	P2     uint64       `json:"p2"`
	P3     string       `json:"p3"`
	P4     *operandJSON `json:"p4,omitempty"`
}

func toJSON(addr int, in Instruction) instructionJSON {
	out := instructionJSON{
		Addr:   addr,
		Opcode: in.Opcode.String(),
		P1:     in.P1,
		P2:     in.P2,
		P3:     in.P3,
	}
	if in.P4 != nil {
		op := &operandJSON{Kind: in.P4.Kind()}
		switch v := in.P4.(type) {
		case IntOperand:
			op.Value = int64(v)
		case FloatOperand:
			op.Value = float64(v)
		case StringOperand:
			op.Value = string(v)
		case BlobOperand:
			op.Value = hex.EncodeToString(v)
		}
		out.P4 = op
	}
	return out
}

// MarshalJSON encodes the instruction without its address.
func (in Instruction) MarshalJSON() ([]byte, error) {
	j := toJSON(0, in)
	return json.Marshal(struct {
		Opcode string       `json:"opcode"`
		P1     int64        `json:"p1"`
		P2     uint64       `json:"p2"`
		P3     string       `json:"p3"`
		P4     *operandJSON `json:"p4,omitempty"`
	}{j.Opcode, j.P1, j.P2, j.P3, j.P4})
}
