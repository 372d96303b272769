package bytecode

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpcode_String(t *testing.T) {
	assert.Equal(t, "Transaction", OpTransaction.String())
	assert.Equal(t, "PutIntKey", OpPutIntKey.String())
	assert.Equal(t, "Commit", OpCommit.String())
	assert.Equal(t, "Opcode(200)", Opcode(200).String())
}

func TestParseOpcode(t *testing.T) {
	for op := OpNoop; op <= OpCommit; op++ {
		got, ok := ParseOpcode(op.String())
		require.True(t, ok, op.String())
		assert.Equal(t, op, got)
	}
	_, ok := ParseOpcode("Explode")
	assert.False(t, ok)
}

func TestInstruction_Format(t *testing.T) {
	tests := []struct {
		name string
		in   Instruction
		want string
	}{
		{"no payload", Instruction{Opcode: OpTransaction}, "0|Transaction|0|0|"},
		{"p3", Instruction{Opcode: OpOpenWrite, P2: 0, P3: "t"}, "0|OpenWrite|0|0|t"},
		{"negative p1", Instruction{Opcode: OpInteger, P1: -7, P2: 2}, "0|Integer|-7|2|"},
		{"int p4", Instruction{Opcode: OpMakeRecord, P1: 1, P2: 2, P4: IntOperand(3)}, "0|MakeRecord|1|2||3"},
		{"float p4", Instruction{Opcode: OpReal, P2: 1, P4: FloatOperand(2.5)}, "0|Real|0|1||2.5"},
		{"string p4", Instruction{Opcode: OpString, P2: 1, P4: StringOperand("hi")}, "0|String|0|1||hi"},
		{"blob p4", Instruction{Opcode: OpBlob, P2: 1, P4: BlobOperand{0xca, 0xfe}}, "0|Blob|0|1||X'CAFE'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Format(0))
		})
	}
}

func TestBuilder_AllocatesRegistersAndCursors(t *testing.T) {
	b := NewBuilder()
	assert.Equal(t, 1, b.AllocRegs(1))
	assert.Equal(t, 2, b.AllocRegs(3))
	assert.Equal(t, 5, b.AllocRegs(1))

	assert.Equal(t, int64(0), b.AllocCursor())
	assert.Equal(t, int64(1), b.AllocCursor())
}

func TestBuilder_PatchForwardJump(t *testing.T) {
	b := NewBuilder()
	rewind := b.Emit(OpRewind, 0, 0, "", nil)
	body := b.Here()
	b.Emit(OpNoop, 0, 0, "", nil)
	b.Emit(OpNext, 0, body, "", nil)
	b.PatchP2(rewind, b.Here())
	b.Emit(OpHalt, 0, 0, "", nil)

	prog := b.Program()
	want := "0|Rewind|0|3|\n" +
		"1|Noop|0|0|\n" +
		"2|Next|0|1|\n" +
		"3|Halt|0|0|\n"
	assert.Equal(t, want, prog.Listing())
	assert.Equal(t, []string{"Rewind", "Noop", "Next", "Halt"}, prog.Opcodes())
	assert.True(t, OpRewind.IsJump())
	assert.False(t, OpHalt.IsJump())
}

func TestBuilder_ProgramIsSnapshot(t *testing.T) {
	b := NewBuilder()
	b.Emit(OpNoop, 0, 0, "", nil)
	prog := b.Program()
	b.Emit(OpHalt, 0, 0, "", nil)
	assert.Equal(t, 1, prog.Len())
}

func TestProgram_MarshalJSON(t *testing.T) {
	prog := &Program{Instructions: []Instruction{
		{Opcode: OpOpenWrite, P3: "t"},
		{Opcode: OpBlob, P2: 1, P4: BlobOperand{0x01}},
	}}
	data, err := json.Marshal(prog)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"addr":0,"opcode":"OpenWrite","p1":0,"p2":0,"p3":"t"},
		{"addr":1,"opcode":"Blob","p1":0,"p2":1,"p3":"","p4":{"kind":"blob","value":"01"}}
	]`, string(data))
}

func TestInstruction_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Instruction{Opcode: OpInteger, P1: 5, P2: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"opcode":"Integer","p1":5,"p2":1,"p3":""}`, string(data))
}
