package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future encoding change.
const (
	DomainStatement = "sqlbc/statement/v1"
	DomainProgram   = "sqlbc/program/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StatementID computes the content-addressed ID of a statement.
// Structurally equal statements share an ID regardless of source spelling.
func StatementID(stmt Statement) (string, error) {
	canonical, err := MarshalCanonical(stmt)
	if err != nil {
		return "", fmt.Errorf("StatementID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainStatement, canonical), nil
}

// ProgramID computes the ID of a lowered program from its statement ID and
// its instruction listing.
func ProgramID(statementID, listing string) string {
	return hashWithDomain(DomainProgram, []byte(statementID+"\x00"+listing))
}

// MustStatementID is like StatementID but panics on error.
// Use only in tests or when the statement is known to be valid.
func MustStatementID(stmt Statement) string {
	id, err := StatementID(stmt)
	if err != nil {
		panic(err)
	}
	return id
}
