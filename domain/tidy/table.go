package tidy

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Table is an ordered-column tabular structure, one row per observation.
// Cell values are float64, string, or nil (null, e.g. from an unmatched join).
// Attrs carries opaque attributes alongside the data, such as the fitted
// model a results table was derived from.
type Table struct {
	Columns []string
	Rows    []map[string]interface{}
	Attrs   map[string]interface{}
}

// New creates an empty table with the given column order
func New(columns ...string) *Table {
	return &Table{
		Columns: append([]string{}, columns...),
		Rows:    []map[string]interface{}{},
		Attrs:   map[string]interface{}{},
	}
}

// Append adds a row. Values for columns the table does not declare are
// ignored; declared columns missing from the row are filled with nil.
func (t *Table) Append(row map[string]interface{}) {
	r := make(map[string]interface{}, len(t.Columns))
	for _, col := range t.Columns {
		r[col] = row[col]
	}
	t.Rows = append(t.Rows, r)
}

// HasColumn reports whether the table declares the named column
func (t *Table) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the table (rows and column order; Attrs map
// is copied shallowly, attribute values are shared)
func (t *Table) Clone() *Table {
	out := New(t.Columns...)
	for _, row := range t.Rows {
		out.Append(row)
	}
	for k, v := range t.Attrs {
		out.Attrs[k] = v
	}
	return out
}

// Drop removes the named columns. Names not present are ignored, so a drop
// list can cover optional columns.
func (t *Table) Drop(names ...string) *Table {
	dropped := make(map[string]bool, len(names))
	for _, n := range names {
		dropped[n] = true
	}

	out := &Table{Attrs: t.Attrs, Rows: make([]map[string]interface{}, 0, len(t.Rows))}
	for _, col := range t.Columns {
		if !dropped[col] {
			out.Columns = append(out.Columns, col)
		}
	}
	for _, row := range t.Rows {
		r := make(map[string]interface{}, len(out.Columns))
		for _, col := range out.Columns {
			r[col] = row[col]
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

// RenameWithPrefix returns a copy of the table with every column name
// prefixed. Namespacing diagnostic columns this way lets multiple analyses
// coexist in one merged table.
func (t *Table) RenameWithPrefix(prefix string) *Table {
	out := &Table{Attrs: t.Attrs, Rows: make([]map[string]interface{}, 0, len(t.Rows))}
	for _, col := range t.Columns {
		out.Columns = append(out.Columns, prefix+col)
	}
	for _, row := range t.Rows {
		r := make(map[string]interface{}, len(row))
		for col, v := range row {
			r[prefix+col] = v
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

// ExpColumns applies math.Exp in place to the named numeric columns.
// Nil cells pass through untouched; a non-numeric cell is an error.
func (t *Table) ExpColumns(names ...string) error {
	for _, name := range names {
		if !t.HasColumn(name) {
			return fmt.Errorf("exp transform: unknown column %q", name)
		}
		for i, row := range t.Rows {
			v := row[name]
			if v == nil {
				continue
			}
			f, ok := AsFloat(v)
			if !ok {
				return fmt.Errorf("exp transform: column %q row %d is not numeric (%T)", name, i, v)
			}
			row[name] = math.Exp(f)
		}
	}
	return nil
}

// Stack appends the rows of other below t. The two column sets must match
// exactly; order follows t.
func (t *Table) Stack(other *Table) (*Table, error) {
	if len(t.Columns) != len(other.Columns) {
		return nil, fmt.Errorf("stack: column count mismatch (%d vs %d)", len(t.Columns), len(other.Columns))
	}
	for _, col := range other.Columns {
		if !t.HasColumn(col) {
			return nil, fmt.Errorf("stack: column %q missing from receiver", col)
		}
	}

	out := t.Clone()
	for _, row := range other.Rows {
		out.Append(row)
	}
	return out, nil
}

// LeftJoin joins right onto t, matching t's leftKey column against right's
// rightKey column. Left row order is preserved; left rows with no match get
// nil-filled right columns; right rows with no match are dropped. Attributes
// of the left table carry through.
func (t *Table) LeftJoin(right *Table, leftKey, rightKey string) (*Table, error) {
	if !t.HasColumn(leftKey) {
		return nil, fmt.Errorf("left join: left table has no column %q", leftKey)
	}
	if !right.HasColumn(rightKey) {
		return nil, fmt.Errorf("left join: right table has no column %q", rightKey)
	}

	out := &Table{Attrs: t.Attrs}
	out.Columns = append(out.Columns, t.Columns...)
	for _, col := range right.Columns {
		if t.HasColumn(col) {
			return nil, fmt.Errorf("left join: duplicate column %q", col)
		}
		out.Columns = append(out.Columns, col)
	}

	// Index right rows by key; preserve duplicates in order
	index := make(map[string][]map[string]interface{}, len(right.Rows))
	for _, row := range right.Rows {
		key := cellKey(row[rightKey])
		index[key] = append(index[key], row)
	}

	for _, lrow := range t.Rows {
		matches := index[cellKey(lrow[leftKey])]
		if len(matches) == 0 {
			merged := make(map[string]interface{}, len(out.Columns))
			for _, col := range t.Columns {
				merged[col] = lrow[col]
			}
			for _, col := range right.Columns {
				merged[col] = nil
			}
			out.Rows = append(out.Rows, merged)
			continue
		}
		for _, rrow := range matches {
			merged := make(map[string]interface{}, len(out.Columns))
			for _, col := range t.Columns {
				merged[col] = lrow[col]
			}
			for _, col := range right.Columns {
				merged[col] = rrow[col]
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	return out, nil
}

// SortStableBy re-orders rows ascending by the named column, preserving the
// relative order of equal keys. Nil cells sort last.
func (t *Table) SortStableBy(column string) *Table {
	out := t.Clone()
	sort.SliceStable(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i][column], out.Rows[j][column]
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		af, aok := AsFloat(a)
		bf, bok := AsFloat(b)
		if aok && bok {
			return af < bf
		}
		return cellKey(a) < cellKey(b)
	})
	return out
}

// Filter returns the rows for which keep returns true, in order
func (t *Table) Filter(keep func(row map[string]interface{}) bool) *Table {
	out := &Table{Columns: t.Columns, Attrs: t.Attrs}
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// AsFloat converts a numeric cell value to float64
func AsFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// AsString converts a cell value to its string form
func AsString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// cellKey normalizes a cell value for key matching and ordering
func cellKey(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", x), "0"), ".")
	default:
		return fmt.Sprintf("%v", x)
	}
}
