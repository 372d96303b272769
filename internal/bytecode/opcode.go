// Package bytecode defines the instruction format consumed by a register and
// cursor virtual machine, and a builder that assembles programs.
//
// Each instruction carries an opcode from a closed set, a signed P1, an
// unsigned P2, a string P3 and an optional typed P4 operand. Registers are
// numbered from 1 and cursors from 0. Jump targets in P2 are instruction
// addresses within the same program.
package bytecode

import "fmt"

// Opcode is a virtual machine operation.
type Opcode uint8

const (
	OpNoop Opcode = iota
	OpHalt
	OpTransaction
	OpVerifyCookie
	OpOpenWrite
	OpOpenRead
	OpNewRecno
	OpInteger
	OpReal
	OpString
	OpBlob
	OpNull
	OpColumn
	OpMakeRecord
	OpPutIntKey
	OpIdxInsert
	OpRewind
	OpNext
	OpResultRow
	OpOpenEphemeral
	OpFound
	OpCreateTable
	OpSetCookie
	OpClose
	OpCommit
)

var opcodeNames = [...]string{
	OpNoop:          "Noop",
	OpHalt:          "Halt",
	OpTransaction:   "Transaction",
	OpVerifyCookie:  "VerifyCookie",
	OpOpenWrite:     "OpenWrite",
	OpOpenRead:      "OpenRead",
	OpNewRecno:      "NewRecno",
	OpInteger:       "Integer",
	OpReal:          "Real",
	OpString:        "String",
	OpBlob:          "Blob",
	OpNull:          "Null",
	OpColumn:        "Column",
	OpMakeRecord:    "MakeRecord",
	OpPutIntKey:     "PutIntKey",
	OpIdxInsert:     "IdxInsert",
	OpRewind:        "Rewind",
	OpNext:          "Next",
	OpResultRow:     "ResultRow",
	OpOpenEphemeral: "OpenEphemeral",
	OpFound:         "Found",
	OpCreateTable:   "CreateTable",
	OpSetCookie:     "SetCookie",
	OpClose:         "Close",
	OpCommit:        "Commit",
}

// String returns the opcode name as it appears in listings.
func (o Opcode) String() string {
	if int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return fmt.Sprintf("Opcode(%d)", int(o))
}

// ParseOpcode resolves a listing name back to its opcode.
func ParseOpcode(name string) (Opcode, bool) {
	for i, n := range opcodeNames {
		if n == name {
			return Opcode(i), true
		}
	}
	return 0, false
}

// IsJump reports whether the opcode's P2 is an instruction address.
func (o Opcode) IsJump() bool {
	switch o {
	case OpRewind, OpNext, OpFound:
		return true
	}
	return false
}
