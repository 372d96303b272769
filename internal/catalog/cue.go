package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/sqlbc/internal/ir"
)

// LoadError is a catalog definition error with source position.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadCUE builds a catalog from the CUE package in dir.
//
// Tables are declared under a top-level "table" struct:
//
//	cookie: 3
//	table: users: {
//		schema: "main"
//		columns: [{name: "id", type: "INTEGER"}, {name: "email"}]
//		without_rowid: false
//		strict: true
//	}
func LoadCUE(dir string) (*Memory, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	if inst := instances[0]; inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}
	v := ctx.BuildInstance(instances[0])
	return CompileCUE(v)
}

// CompileCUE builds a catalog from an evaluated CUE value.
func CompileCUE(v cue.Value) (*Memory, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := NewMemory()

	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if tablesVal.Exists() {
		iter, err := tablesVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			t, err := compileTable(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			if err := m.AddTable(t); err != nil {
				return nil, &LoadError{Field: "table." + iter.Label(), Message: err.Error(), Pos: iter.Value().Pos()}
			}
		}
	}

	// An explicit cookie replaces the count of added tables.
	if cookieVal := v.LookupPath(cue.ParsePath("cookie")); cookieVal.Exists() {
		c, err := cookieVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		m.SetSchemaCookie(c)
	}

	return m, nil
}

func compileTable(name string, v cue.Value) (Table, error) {
	t := Table{Name: name, Schema: SchemaMain}

	if s, ok, err := optionalString(v, "schema"); err != nil {
		return t, err
	} else if ok {
		t.Schema = s
	}

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return t, &LoadError{Field: "table." + name + ".columns", Message: "columns are required", Pos: v.Pos()}
	}
	iter, err := colsVal.List()
	if err != nil {
		return t, formatCUEError(err)
	}
	for iter.Next() {
		col, err := compileColumn(name, iter.Value())
		if err != nil {
			return t, err
		}
		t.Columns = append(t.Columns, col)
	}
	if len(t.Columns) == 0 {
		return t, &LoadError{Field: "table." + name + ".columns", Message: "at least one column is required", Pos: colsVal.Pos()}
	}

	for _, opt := range []struct {
		field string
		bit   ir.TableOptions
	}{
		{"without_rowid", ir.OptionWithoutRowID},
		{"strict", ir.OptionStrict},
	} {
		on, err := optionalBool(v, opt.field)
		if err != nil {
			return t, err
		}
		if on {
			t.Options |= opt.bit
		}
	}

	temp, err := optionalBool(v, "temporary")
	if err != nil {
		return t, err
	}
	if temp {
		t.Temporary = true
		if t.Schema == SchemaMain {
			t.Schema = SchemaTemp
		}
	}
	return t, nil
}

func compileColumn(table string, v cue.Value) (Column, error) {
	// Shorthand: a bare string is an untyped column.
	if s, err := v.String(); err == nil {
		return Column{Name: s}, nil
	}
	name, ok, err := optionalString(v, "name")
	if err != nil {
		return Column{}, err
	}
	if !ok || name == "" {
		return Column{}, &LoadError{Field: "table." + table + ".columns", Message: "column name is required", Pos: v.Pos()}
	}
	typ, _, err := optionalString(v, "type")
	if err != nil {
		return Column{}, err
	}
	return Column{Name: name, TypeName: typ}, nil
}

func optionalString(v cue.Value, field string) (string, bool, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", false, nil
	}
	s, err := f.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
