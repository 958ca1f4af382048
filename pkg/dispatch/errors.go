package dispatch

import (
	"fmt"
)

// TaskError reports the failure of a single batch task. It carries the item
// whose task failed so that concurrent-mode failures remain attributable.
type TaskError struct {
	Item any
	Err  error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("batch task for item %v: %v", e.Item, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// DuplicateKeyError is returned by Map when the input items are not unique.
// A map output would silently lose all but one result per duplicate, so the
// batch is rejected before any task runs.
type DuplicateKeyError struct {
	Item any
}

// Error implements the error interface.
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate batch item %v: map output requires unique items", e.Item)
}

// InvalidResultShapeError is returned by TableAny when a per-item result is
// not a slice or array and therefore cannot be exploded into table rows.
type InvalidResultShapeError struct {
	Item   any
	Result any
}

// Error implements the error interface.
func (e *InvalidResultShapeError) Error() string {
	return fmt.Sprintf("table output for item %v: result of type %T is not a sequence of records", e.Item, e.Result)
}
