// Package ir provides the typed intermediate representation of SQL statements.
//
// This package contains type definitions only, plus canonical encoding for
// identity. All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Every union is a sealed interface with a marker method
//   - Statements are value types; once built they are never mutated
//   - Ordered slices preserve source order and are never reordered downstream
//   - Optional strings use "" for absent, optional lists use nil
package ir
