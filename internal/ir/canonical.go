package ir

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for a statement.
// This is the only serialization used for statement identity and for the
// program log, so two structurally equal statements always encode to the
// same bytes.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. Absent optional fields are omitted rather than encoded as null
func MarshalCanonical(stmt Statement) ([]byte, error) {
	v, err := encodeStatement(stmt)
	if err != nil {
		return nil, err
	}
	return marshalCanonical(v)
}

func encodeStatement(stmt Statement) (jsonObject, error) {
	switch s := stmt.(type) {
	case SelectStmt:
		return encodeSelect(s)
	case CreateTableStmt:
		return encodeCreateTable(s), nil
	case InsertStmt:
		return encodeInsert(s)
	case nil:
		return nil, fmt.Errorf("cannot encode nil statement")
	default:
		return nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

func encodeSelect(s SelectStmt) (jsonObject, error) {
	projections := make(jsonArray, len(s.Projections))
	for i, p := range s.Projections {
		v, err := encodeResultColumn(p)
		if err != nil {
			return nil, fmt.Errorf("projection[%d]: %w", i, err)
		}
		projections[i] = v
	}

	sources := make(jsonArray, len(s.Sources))
	for i, src := range s.Sources {
		at, ok := src.(AliasedTable)
		if !ok {
			return nil, fmt.Errorf("source[%d]: unsupported source type: %T", i, src)
		}
		sources[i] = encodeAliasedTable(at)
	}

	return jsonObject{
		"type":        jsonString("select"),
		"modifier":    jsonString(s.Modifier.String()),
		"projections": projections,
		"sources":     sources,
	}, nil
}

func encodeResultColumn(rc ResultColumn) (jsonValue, error) {
	switch c := rc.(type) {
	case StarColumn:
		return jsonObject{"type": jsonString("star")}, nil
	case TableStarColumn:
		return jsonObject{"type": jsonString("table_star"), "table": jsonString(c.Table)}, nil
	case ExprColumn:
		expr, err := encodeExpr(c.Expr)
		if err != nil {
			return nil, err
		}
		obj := jsonObject{"type": jsonString("expr"), "expr": expr}
		obj.setIf("alias", c.Alias)
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported result column type: %T", rc)
	}
}

func encodeExpr(e Expr) (jsonValue, error) {
	switch x := e.(type) {
	case ColumnRef:
		return jsonObject{"type": jsonString("column"), "name": jsonString(x.Name)}, nil
	case Literal:
		return encodeLiteral(x.Value)
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", e)
	}
}

func encodeLiteral(v Value) (jsonValue, error) {
	obj := jsonObject{"type": jsonString("literal")}
	switch val := v.(type) {
	case Integer:
		obj["kind"] = jsonString("integer")
		obj["value"] = jsonInt(val)
	case Float:
		obj["kind"] = jsonString("float")
		obj["value"] = jsonString(strconv.FormatFloat(float64(val), 'g', -1, 64))
	case String:
		obj["kind"] = jsonString("string")
		obj["value"] = jsonString(val)
	case Blob:
		obj["kind"] = jsonString("blob")
		obj["value"] = jsonString(hex.EncodeToString(val))
	case Null:
		obj["kind"] = jsonString("null")
	default:
		return nil, fmt.Errorf("unsupported literal type: %T", v)
	}
	return obj, nil
}

func encodeTable(t Table) jsonObject {
	obj := jsonObject{"name": jsonString(t.Name)}
	obj.setIf("schema", t.Schema)
	return obj
}

func encodeAliasedTable(at AliasedTable) jsonObject {
	obj := jsonObject{"type": jsonString("table"), "table": encodeTable(at.Table)}
	obj.setIf("alias", at.Alias)
	return obj
}

func encodeCreateTable(s CreateTableStmt) jsonObject {
	columns := make(jsonArray, len(s.Columns))
	for i, c := range s.Columns {
		col := jsonObject{"name": jsonString(c.Name)}
		col.setIf("type_name", c.TypeName)
		if len(c.Constraints) > 0 {
			col["constraints"] = jsonInt(len(c.Constraints))
		}
		columns[i] = col
	}
	return jsonObject{
		"type":          jsonString("create_table"),
		"temporary":     jsonBool(s.Temporary),
		"if_not_exists": jsonBool(s.IfNotExists),
		"table":         encodeTable(s.Table),
		"columns":       columns,
		"options":       stringsArray(s.Options.Names()),
	}
}

func encodeInsert(s InsertStmt) (jsonObject, error) {
	obj := jsonObject{
		"type":  jsonString("insert"),
		"table": encodeAliasedTable(s.Table),
	}

	switch op := s.Operation.(type) {
	case Replace:
		obj["operation"] = jsonObject{"type": jsonString("replace")}
	case Insert:
		o := jsonObject{"type": jsonString("insert")}
		o.setIf("conflict_resolution", op.Resolution.String())
		obj["operation"] = o
	default:
		return nil, fmt.Errorf("unsupported insert operation: %T", s.Operation)
	}

	if s.With != nil {
		with, err := encodeWith(*s.With)
		if err != nil {
			return nil, fmt.Errorf("with: %w", err)
		}
		obj["with"] = with
	}

	if s.ColumnNames != nil {
		obj["column_names"] = stringsArray(s.ColumnNames)
	}

	switch tuples := s.Tuples.(type) {
	case ValuesList:
		exprs := make(jsonArray, len(tuples.Exprs))
		for i, e := range tuples.Exprs {
			v, err := encodeExpr(e)
			if err != nil {
				return nil, fmt.Errorf("values[%d]: %w", i, err)
			}
			exprs[i] = v
		}
		obj["tuples"] = jsonObject{"type": jsonString("values"), "exprs": exprs}
	case SelectStmt:
		sel, err := encodeSelect(tuples)
		if err != nil {
			return nil, err
		}
		obj["tuples"] = sel
	case DefaultValues:
		obj["tuples"] = jsonObject{"type": jsonString("default_values")}
	default:
		return nil, fmt.Errorf("unsupported inserted tuples: %T", s.Tuples)
	}

	return obj, nil
}

func encodeWith(w WithClause) (jsonObject, error) {
	ctes := make(jsonArray, len(w.CTEs))
	for i, cte := range w.CTEs {
		body, err := encodeSelect(cte.Body)
		if err != nil {
			return nil, fmt.Errorf("cte[%d]: %w", i, err)
		}
		c := jsonObject{
			"name":         jsonString(cte.Name),
			"materialized": jsonString(cte.Materialized.String()),
			"body":         body,
		}
		if len(cte.ColumnNames) > 0 {
			c["column_names"] = stringsArray(cte.ColumnNames)
		}
		ctes[i] = c
	}
	return jsonObject{"recursive": jsonBool(w.Recursive), "ctes": ctes}, nil
}

func marshalCanonical(v jsonValue) ([]byte, error) {
	switch val := v.(type) {
	case jsonString:
		return marshalCanonicalString(string(val))
	case jsonInt:
		return []byte(strconv.FormatInt(int64(val), 10)), nil
	case jsonBool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case jsonArray:
		return marshalCanonicalArray(val)
	case jsonObject:
		return marshalCanonicalObject(val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString produces a canonical JSON string with NFC normalization.
// Only control characters, backslash and quote are escaped.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	result := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return unescapeU2028U2029(result), nil
}

// unescapeU2028U2029 turns the \u2028 and \u2029 escapes json.Encoder emits
// back into literal characters, leaving \\u2028 (escaped backslash) alone.
func unescapeU2028U2029(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+1 < len(data) && data[i+1] == '\\' {
			out = append(out, '\\', '\\')
			i++
			continue
		}
		if data[i] == '\\' && i+5 < len(data) && string(data[i+1:i+5]) == "u202" && (data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, data[i])
	}
	return out
}

func marshalCanonicalArray(arr jsonArray) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj jsonObject) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range obj.sortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
