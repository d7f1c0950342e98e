package pipeline

import (
	"sort"

	"github.com/IshaanNene/carharvest/internal/types"
)

// Row is one record of a Table. Key identifies the source listing even after
// its url column has been dropped.
type Row struct {
	Key    string
	Source int
	Values map[string]any
}

// Get returns a cell value and whether the row has the column.
func (r Row) Get(column string) (any, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// clone returns a copy of r that can be modified freely.
func (r Row) clone() Row {
	values := make(map[string]any, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return Row{Key: r.Key, Source: r.Source, Values: values}
}

// Table is an immutable snapshot of rows with an ordered column set. Steps
// never modify a Table; they return a new one.
type Table struct {
	columns []string
	rows    []Row
}

// NewTable builds a Table. Columns and rows are copied.
func NewTable(columns []string, rows []Row) *Table {
	t := &Table{
		columns: append([]string(nil), columns...),
		rows:    make([]Row, len(rows)),
	}
	for i, r := range rows {
		t.rows[i] = r.clone()
	}
	return t
}

// FromListings builds the raw table of a store snapshot. The column set is
// the union of every listing's fields, sorted.
func FromListings(listings []*types.Listing) *Table {
	seen := make(map[string]struct{})
	rows := make([]Row, 0, len(listings))

	for i, l := range listings {
		doc := l.Document()
		for k := range doc {
			seen[k] = struct{}{}
		}
		rows = append(rows, Row{Key: l.URL, Source: i, Values: doc})
	}

	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	return &Table{columns: columns, rows: rows}
}

// Header returns the column names in order.
func (t *Table) Header() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of row i.
func (t *Table) Row(i int) Row {
	return t.rows[i].clone()
}

// Cell returns the value of column in row i, or nil when the row lacks it.
func (t *Table) Cell(i int, column string) any {
	return t.rows[i].Values[column]
}

// HasColumn reports whether the table has the column.
func (t *Table) HasColumn(column string) bool {
	for _, c := range t.columns {
		if c == column {
			return true
		}
	}
	return false
}

// Column returns every value of a column, top to bottom.
func (t *Table) Column(column string) []any {
	values := make([]any, len(t.rows))
	for i, r := range t.rows {
		values[i] = r.Values[column]
	}
	return values
}

// mapRows applies fn to a copy of every row. Rows for which fn returns
// keep=false are left out of the result.
func (t *Table) mapRows(columns []string, fn func(Row) (Row, bool)) *Table {
	out := &Table{
		columns: columns,
		rows:    make([]Row, 0, len(t.rows)),
	}
	for _, r := range t.rows {
		if nr, keep := fn(r.clone()); keep {
			out.rows = append(out.rows, nr)
		}
	}
	return out
}

// withColumns returns the column list plus name, appended when missing.
func (t *Table) withColumns(names ...string) []string {
	cols := t.Header()
	for _, name := range names {
		if !t.HasColumn(name) {
			cols = append(cols, name)
		}
	}
	return cols
}
