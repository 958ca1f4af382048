package materialize

import (
	"fmt"
)

// Frame is a columnar query result: named columns in a stable order, each
// holding one value per row. Values are dynamically typed since table
// schemas are only known at runtime.
type Frame struct {
	cols  []string
	data  map[string][]any
	nrows int
}

// NewFrame builds a frame from columns in order. All columns must have the
// same length.
func NewFrame(cols []string, data map[string][]any) (*Frame, error) {
	nrows := -1
	for _, col := range cols {
		values, ok := data[col]
		if !ok {
			return nil, fmt.Errorf("column %q has no data", col)
		}
		if nrows == -1 {
			nrows = len(values)
		} else if len(values) != nrows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", col, len(values), nrows)
		}
	}
	if nrows == -1 {
		nrows = 0
	}

	return &Frame{cols: cols, data: data, nrows: nrows}, nil
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	return f.nrows
}

// Column returns the values of one column.
func (f *Frame) Column(name string) ([]any, bool) {
	values, ok := f.data[name]
	return values, ok
}

// Row materializes one row as a column -> value map.
func (f *Frame) Row(i int) map[string]any {
	row := make(map[string]any, len(f.cols))
	for _, col := range f.cols {
		row[col] = f.data[col][i]
	}
	return row
}

// Rows materializes all rows in order.
func (f *Frame) Rows() []map[string]any {
	rows := make([]map[string]any, f.nrows)
	for i := range rows {
		rows[i] = f.Row(i)
	}
	return rows
}

// RenameColumns renames columns in place. Renames for columns that do not
// exist are ignored.
func (f *Frame) RenameColumns(renames map[string]string) {
	for i, col := range f.cols {
		newName, ok := renames[col]
		if !ok {
			continue
		}
		f.cols[i] = newName
		f.data[newName] = f.data[col]
		delete(f.data, col)
	}
}
