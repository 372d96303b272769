// Package pipeline drives a multi-statement SQL program through parsing,
// IR construction, lowering and canonical printing.
//
// Statements are processed in source order. Each one is lowered against
// the catalog as left by the statements before it: after a CREATE TABLE
// lowers successfully its table is applied to the catalog. The first
// failing statement stops the run; results for the statements before it
// are still returned.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sqlbc/internal/builder"
	"github.com/roach88/sqlbc/internal/bytecode"
	"github.com/roach88/sqlbc/internal/catalog"
	"github.com/roach88/sqlbc/internal/codegen"
	"github.com/roach88/sqlbc/internal/cst"
	"github.com/roach88/sqlbc/internal/ir"
	"github.com/roach88/sqlbc/internal/printer"
	"github.com/roach88/sqlbc/internal/store"
)

// Result is the outcome of one statement.
type Result struct {
	Index       int               `json:"index"`
	Source      string            `json:"source"`
	Statement   ir.Statement      `json:"-"`
	StatementID string            `json:"statement_id"`
	Canonical   string            `json:"canonical"`
	Program     *bytecode.Program `json:"program,omitempty"`
	ProgramID   string            `json:"program_id,omitempty"`
}

// StatementError reports which statement of a program failed.
type StatementError struct {
	Index  int
	Source string
	Err    error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d: %v", e.Index, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// Recorder persists compiled programs and schema changes.
// *store.Store implements it.
type Recorder interface {
	RecordProgram(ctx context.Context, rec store.ProgramRecord) (int64, error)
	SaveTable(ctx context.Context, t catalog.Table) error
	SetSchemaCookie(ctx context.Context, cookie int64) error
}

// Compiler runs statements against a catalog it owns for the run.
type Compiler struct {
	cat      *catalog.Memory
	codegen  *codegen.Compiler
	logger   *slog.Logger
	recorder Recorder
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger for per-statement events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder persists every compiled program and catalog change.
func WithRecorder(r Recorder) Option {
	return func(c *Compiler) {
		c.recorder = r
	}
}

// New creates a Compiler. A nil catalog starts empty.
func New(cat *catalog.Memory, opts ...Option) *Compiler {
	if cat == nil {
		cat = catalog.NewMemory()
	}
	c := &Compiler{
		cat:    cat,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	c.codegen = codegen.NewCompiler(cat)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog returns the catalog, including changes applied so far.
func (c *Compiler) Catalog() *catalog.Memory {
	return c.cat
}

// Print builds and prints every statement without lowering.
func (c *Compiler) Print(sql string) ([]Result, error) {
	return c.run(context.Background(), sql, false)
}

// Compile builds, prints and lowers every statement, applying schema
// changes and recording programs as it goes.
func (c *Compiler) Compile(ctx context.Context, sql string) ([]Result, error) {
	return c.run(ctx, sql, true)
}

func (c *Compiler) run(ctx context.Context, sql string, lower bool) ([]Result, error) {
	prog, err := cst.Parse(sql)
	if err != nil {
		return nil, err
	}

	var results []Result
	for i, node := range prog.All(cst.KindSQLStmt) {
		res, err := c.statement(ctx, i+1, node, lower)
		if err != nil {
			c.logger.Debug("statement failed", "index", i+1, "error", err)
			return results, &StatementError{Index: i + 1, Source: node.Text(), Err: err}
		}
		results = append(results, res)
	}
	return results, nil
}

func (c *Compiler) statement(ctx context.Context, index int, node *cst.Node, lower bool) (Result, error) {
	res := Result{Index: index, Source: node.Text()}

	stmt, err := builder.BuildStatement(node)
	if err != nil {
		return res, err
	}
	res.Statement = stmt

	if res.StatementID, err = ir.StatementID(stmt); err != nil {
		return res, err
	}
	if res.Canonical, err = printer.Print(stmt); err != nil {
		return res, err
	}
	c.logger.Debug("statement built", "index", index, "statement_id", res.StatementID)

	if !lower {
		return res, nil
	}

	if res.Program, err = c.codegen.Compile(stmt); err != nil {
		return res, err
	}
	listing := res.Program.Listing()
	res.ProgramID = ir.ProgramID(res.StatementID, listing)
	c.logger.Debug("statement lowered", "index", index, "program_id", res.ProgramID, "instructions", res.Program.Len())

	if err := c.apply(ctx, stmt); err != nil {
		return res, err
	}
	if err := c.record(ctx, res, listing); err != nil {
		return res, err
	}
	return res, nil
}

// apply updates the catalog after a successfully lowered CREATE TABLE.
func (c *Compiler) apply(ctx context.Context, stmt ir.Statement) error {
	ct, ok := stmt.(ir.CreateTableStmt)
	if !ok {
		return nil
	}
	before := c.cat.SchemaCookie()
	if err := c.cat.Apply(stmt); err != nil {
		return err
	}
	if c.cat.SchemaCookie() == before || c.recorder == nil {
		return nil
	}

	t := catalog.TableFromStatement(ct)
	if err := c.recorder.SaveTable(ctx, t); err != nil {
		return err
	}
	c.logger.Info("table created", "table", t.Qualified(), "cookie", c.cat.SchemaCookie())
	return c.recorder.SetSchemaCookie(ctx, c.cat.SchemaCookie())
}

func (c *Compiler) record(ctx context.Context, res Result, listing string) error {
	if c.recorder == nil {
		return nil
	}
	instructions, err := res.Program.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = c.recorder.RecordProgram(ctx, store.ProgramRecord{
		ID:              res.ProgramID,
		StatementID:     res.StatementID,
		Source:          res.Source,
		Canonical:       res.Canonical,
		Listing:         listing,
		Instructions:    string(instructions),
		CompilerVersion: ir.CompilerVersion,
		IRVersion:       ir.IRVersion,
	})
	return err
}
