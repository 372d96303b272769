// Package harness provides conformance testing for the SQL compiler.
//
// A scenario feeds a SQL program through the full pipeline against a
// declared catalog and checks the outcome: the canonical text of each
// statement, the lowered bytecode, the failing statement and its error
// kind, and the catalog left behind.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: insert_column_list
//	description: "What this scenario validates"
//	catalog:
//	  cookie: 3
//	  tables:
//	    - name: t
//	      columns: [a, "b INTEGER"]
//	      without_rowid: false
//	sql: |
//	  INSERT INTO t (b, a) VALUES (1, 2)
//	expect:
//	  case: Success
//	assertions:
//	  - type: canonical
//	    statement: 1
//	    text: "INSERT INTO t (b, a) VALUES(1, 2)"
//	  - type: opcodes
//	    statement: 1
//	    opcodes: [Transaction, VerifyCookie, OpenWrite, ...]
//
// Instead of an inline catalog a scenario may name a directory of CUE
// table definitions with catalog_dir, resolved relative to the scenario
// file.
//
// # Expect
//
// expect.case is "Success" (the default) or an error kind such as
// ARITY_MISMATCH. For an error case, statement names the 1-based index
// of the statement expected to fail and message, when set, must appear
// in the error message.
//
// # Assertion Types
//
//   - canonical: the printed text of a statement
//   - opcodes: the exact opcode sequence of a statement
//   - opcode_count: how many times an opcode appears in a statement
//   - instruction: one listing line of a statement, by address
//   - idempotent_print: printing, rebuilding and reprinting every statement is stable
//   - final_catalog: a table exists after the run with the given columns
//   - program_log: how many programs the run recorded
//
// # Golden Files
//
// A scenario with golden: true also compares its full listing against
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
//
// Every scenario runs against a fresh catalog and an in-memory store, so
// listings are reproducible.
package harness
