package sqlpage

import (
	"github.com/syssam/vellum/dialect/sql"
)

// Row is one fetched row. Values hold what the driver returned.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of the named column, matched case-insensitively.
func (r Row) Get(column string) (any, bool) {
	if i := r.index(column); i >= 0 {
		return r.Values[i], true
	}
	return nil, false
}

// Map returns the row as a column to value map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}

func (r Row) index(column string) int {
	for i, c := range r.Columns {
		if sql.EqualFold(c, column) {
			return i
		}
	}
	return -1
}

func scanRows(rows sql.ColumnScanner) (Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return Row{}, err
	}
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return Row{}, err
	}
	for i, v := range values {
		// Drivers may reuse byte slices between rows.
		if b, ok := v.([]byte); ok {
			values[i] = append([]byte(nil), b...)
		}
	}
	return Row{Columns: columns, Values: values}, nil
}

func reverse(rows []Row) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
