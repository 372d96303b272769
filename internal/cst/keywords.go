package cst

import "strings"

// reserved words cannot be used as bare identifiers; they must be quoted.
var reserved = map[string]bool{
	"ALL":        true,
	"AND":        true,
	"AS":         true,
	"CHECK":      true,
	"COLLATE":    true,
	"CONSTRAINT": true,
	"CREATE":     true,
	"DEFAULT":    true,
	"DELETE":     true,
	"DISTINCT":   true,
	"DROP":       true,
	"EXCEPT":     true,
	"EXISTS":     true,
	"FROM":       true,
	"GROUP":      true,
	"HAVING":     true,
	"IN":         true,
	"INSERT":     true,
	"INTERSECT":  true,
	"INTO":       true,
	"JOIN":       true,
	"LIMIT":      true,
	"NOT":        true,
	"NULL":       true,
	"ON":         true,
	"OR":         true,
	"ORDER":      true,
	"PRIMARY":    true,
	"RECURSIVE":  true,
	"REFERENCES": true,
	"SELECT":     true,
	"SET":        true,
	"TABLE":      true,
	"UNION":      true,
	"UNIQUE":     true,
	"UPDATE":     true,
	"VALUES":     true,
	"WHERE":      true,
	"WITH":       true,
}

// constraintStart words open a column constraint inside a column definition.
var constraintStart = map[string]bool{
	"AS":         true,
	"CHECK":      true,
	"COLLATE":    true,
	"CONSTRAINT": true,
	"DEFAULT":    true,
	"GENERATED":  true,
	"NOT":        true,
	"NULL":       true,
	"PRIMARY":    true,
	"REFERENCES": true,
	"UNIQUE":     true,
}

// IsKeyword reports whether word is reserved and must be quoted when used
// as an identifier. Case-insensitive.
func IsKeyword(word string) bool {
	return reserved[upper(word)]
}

func upper(s string) string {
	return strings.ToUpper(s)
}
