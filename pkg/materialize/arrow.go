package materialize

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
)

// decodeFrame reads an Arrow IPC stream and collects all record batches
// into a single Frame.
func decodeFrame(r io.Reader) (*Frame, error) {
	rdr, err := ipc.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow stream: %w", err)
	}
	defer rdr.Release()

	schema := rdr.Schema()
	cols := make([]string, schema.NumFields())
	data := make(map[string][]any, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		cols[i] = schema.Field(i).Name
		data[cols[i]] = []any{}
	}

	for rdr.Next() {
		rec := rdr.Record()
		for i := 0; i < int(rec.NumCols()); i++ {
			values, err := columnValues(rec.Column(i))
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", cols[i], err)
			}
			data[cols[i]] = append(data[cols[i]], values...)
		}
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read arrow stream: %w", err)
	}

	return NewFrame(cols, data)
}

// columnValues converts one Arrow array into Go values. Nulls become nil.
func columnValues(col arrow.Array) ([]any, error) {
	out := make([]any, col.Len())

	value := func(i int) (any, error) {
		switch arr := col.(type) {
		case *array.Boolean:
			return arr.Value(i), nil
		case *array.Int8:
			return int64(arr.Value(i)), nil
		case *array.Int16:
			return int64(arr.Value(i)), nil
		case *array.Int32:
			return int64(arr.Value(i)), nil
		case *array.Int64:
			return arr.Value(i), nil
		case *array.Uint8:
			return uint64(arr.Value(i)), nil
		case *array.Uint16:
			return uint64(arr.Value(i)), nil
		case *array.Uint32:
			return uint64(arr.Value(i)), nil
		case *array.Uint64:
			return arr.Value(i), nil
		case *array.Float32:
			return float64(arr.Value(i)), nil
		case *array.Float64:
			return arr.Value(i), nil
		case *array.String:
			return arr.Value(i), nil
		case *array.LargeString:
			return arr.Value(i), nil
		case *array.Binary:
			return arr.Value(i), nil
		case *array.Timestamp:
			unit := arr.DataType().(*arrow.TimestampType).Unit
			return arr.Value(i).ToTime(unit), nil
		case *array.List:
			start, end := arr.ValueOffsets(i)
			inner, err := columnValues(array.NewSlice(arr.ListValues(), start, end))
			if err != nil {
				return nil, err
			}
			return inner, nil
		default:
			return nil, fmt.Errorf("unsupported arrow type %s", col.DataType())
		}
	}

	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			out[i] = nil
			continue
		}
		v, err := value(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	return out, nil
}
