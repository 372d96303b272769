package ir

// Version constants for the IR schema and compiler.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// CompilerVersion is the sqlbc compiler version.
	CompilerVersion = "0.1.0"
)
