package bytecode

import (
	"encoding/json"
	"strings"
)

// Program is an ordered instruction sequence for one statement.
type Program struct {
	Instructions []Instruction
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// Listing renders the program one instruction per line, each line
// terminated by a newline.
func (p *Program) Listing() string {
	var sb strings.Builder
	for addr, in := range p.Instructions {
		sb.WriteString(in.Format(addr))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Opcodes returns the opcode names in program order.
func (p *Program) Opcodes() []string {
	names := make([]string, len(p.Instructions))
	for i, in := range p.Instructions {
		names[i] = in.Opcode.String()
	}
	return names
}

// MarshalJSON encodes the program as an array of addressed instructions.
func (p *Program) MarshalJSON() ([]byte, error) {
	out := make([]instructionJSON, len(p.Instructions))
	for addr, in := range p.Instructions {
		out[addr] = toJSON(addr, in)
	}
	return json.Marshal(out)
}

// Builder assembles a Program, allocating registers and cursors.
type Builder struct {
	instructions []Instruction
	lastReg      int
	nextCursor   int64
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Emit appends an instruction and returns its address.
func (b *Builder) Emit(op Opcode, p1 int64, p2 uint64, p3 string, p4 Operand) int {
	b.instructions = append(b.instructions, Instruction{Opcode: op, P1: p1, P2: p2, P3: p3, P4: p4})
	return len(b.instructions) - 1
}

// Here returns the address the next emitted instruction will have.
func (b *Builder) Here() uint64 {
	return uint64(len(b.instructions))
}

// PatchP2 sets the P2 of an already emitted instruction, used to resolve
// forward jumps.
func (b *Builder) PatchP2(addr int, target uint64) {
	b.instructions[addr].P2 = target
}

// AllocRegs reserves n consecutive registers and returns the first.
func (b *Builder) AllocRegs(n int) int {
	first := b.lastReg + 1
	b.lastReg += n
	return first
}

// AllocCursor reserves a cursor number.
func (b *Builder) AllocCursor() int64 {
	c := b.nextCursor
	b.nextCursor++
	return c
}

// Program returns the assembled program.
func (b *Builder) Program() *Program {
	return &Program{Instructions: append([]Instruction(nil), b.instructions...)}
}
