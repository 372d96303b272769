// Package sqlerr defines the structured error shared by the front end, the
// IR builder and bytecode lowering.
//
// Every failure is a *Error carrying a Kind from a closed set, the phase that
// detected it and the offending source text. There is no partial result: the
// first *Error aborts the statement being processed. Only the CLI boundary
// turns an *Error into a user-facing message.
package sqlerr

import (
	"errors"
	"fmt"
)

// Phase identifies which pipeline step produced an error.
type Phase string

const (
	// PhaseParse covers the front end and IR construction.
	PhaseParse Phase = "ParseError"

	// PhaseLower covers bytecode lowering.
	PhaseLower Phase = "LowerError"

	// PhasePrint covers canonical text rendering.
	PhasePrint Phase = "PrintError"
)

// Kind categorizes an error.
type Kind string

const (
	// KindSyntax indicates the front end could not tokenize or parse the input.
	KindSyntax Kind = "SYNTAX_ERROR"

	// KindInvalidStatement indicates a syntax node matches none of the known statement shapes.
	KindInvalidStatement Kind = "INVALID_STATEMENT"

	// KindUnsupportedFeature indicates the grammar accepted a construct the IR or lowering does not model.
	KindUnsupportedFeature Kind = "UNSUPPORTED_FEATURE"

	// KindConflictResolutionOnReplace indicates a conflict clause attached to REPLACE.
	KindConflictResolutionOnReplace Kind = "CONFLICT_RESOLUTION_ON_REPLACE"

	// KindArityMismatch indicates the value count differs from the target column count,
	// or that the column count could not be established.
	KindArityMismatch Kind = "ARITY_MISMATCH"

	// KindUnknownConflictResolutionMethod indicates an unrecognized resolution keyword.
	KindUnknownConflictResolutionMethod Kind = "UNKNOWN_CONFLICT_RESOLUTION_METHOD"

	// KindUnresolvedReference indicates a table or column the catalog does not know.
	KindUnresolvedReference Kind = "UNRESOLVED_REFERENCE"

	// KindDuplicateColumn indicates the same column named twice in one list.
	KindDuplicateColumn Kind = "DUPLICATE_COLUMN"

	// KindTableExists indicates CREATE TABLE on an existing table without IF NOT EXISTS.
	KindTableExists Kind = "TABLE_EXISTS"
)

// Error is the single error type of the compiler core.
type Error struct {
	// Phase is the pipeline step that failed.
	Phase Phase

	// Kind identifies the error category.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// Source is the offending source text, when known.
	Source string

	// Pos is the byte offset of Source in the input, or -1 when unknown.
	Pos int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s: %s (near %q)", e.Phase, e.Kind, e.Message, e.Source)
	}
	return fmt.Sprintf("%s: %s: %s", e.Phase, e.Kind, e.Message)
}

// Is reports whether err is an *Error of the given kind.
// Uses errors.As to handle wrapped errors.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Syntax creates a front-end error at byte offset pos.
func Syntax(pos int, near, format string, args ...any) *Error {
	return &Error{
		Phase:   PhaseParse,
		Kind:    KindSyntax,
		Message: fmt.Sprintf(format, args...),
		Source:  near,
		Pos:     pos,
	}
}

// Parse creates a builder error.
func Parse(kind Kind, source, format string, args ...any) *Error {
	return &Error{
		Phase:   PhaseParse,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Source:  source,
		Pos:     -1,
	}
}

// Lower creates a lowering error.
func Lower(kind Kind, format string, args ...any) *Error {
	return &Error{
		Phase:   PhaseLower,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Pos:     -1,
	}
}

// InvalidStatement reports source text that is not a SELECT, CREATE TABLE or INSERT.
func InvalidStatement(source string) *Error {
	return Parse(KindInvalidStatement, source, "invalid SQL statement %q", source)
}

// Unsupported reports a construct the grammar accepts but the core does not model.
// The message is the feature name, e.g. "column constraints".
func Unsupported(phase Phase, feature, source string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindUnsupportedFeature,
		Message: feature,
		Source:  source,
		Pos:     -1,
	}
}

var kinds = []Kind{
	KindSyntax,
	KindInvalidStatement,
	KindUnsupportedFeature,
	KindConflictResolutionOnReplace,
	KindArityMismatch,
	KindUnknownConflictResolutionMethod,
	KindUnresolvedReference,
	KindDuplicateColumn,
	KindTableExists,
}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, bool) {
	for _, k := range kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}
