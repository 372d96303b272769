// Package store provides SQLite-backed persistence for compiler sessions.
//
// A session spans several CLI invocations against one database file. The
// store keeps:
//   - Catalog tables: persistent table definitions in creation order
//   - Catalog meta: the schema cookie
//   - Programs: an append-only log of compiled statements with their
//     canonical text, listing and JSON instructions
//
// Temporary tables are never written; like SQLite temp tables they live
// only as long as the process that created them.
//
// # Deterministic Query Results
//
// All list queries order by seq ASC, id ASC COLLATE BINARY so repeated
// reads return identical results.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Program and statement IDs are computed in internal/ir/hash.go using
// canonical JSON and SHA-256 with domain separation.
package store
