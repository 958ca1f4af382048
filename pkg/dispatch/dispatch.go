package dispatch

import (
	"context"
	"reflect"
	"time"

	"golang.org/x/sync/errgroup"
)

// Op is a single-item operation: a pure function of the item (and whatever
// options the caller bound into the closure). The dispatcher invokes it once
// per input item, possibly from multiple goroutines.
type Op[K comparable, R any] func(ctx context.Context, item K) (R, error)

// Config controls how a batch is executed. It is passed explicitly into
// every batch call rather than read from ambient client state.
type Config struct {
	// Workers is the number of concurrent tasks. 1 (or less) executes the
	// batch sequentially on the calling goroutine with fail-fast semantics.
	// Above 1, tasks run on a bounded pool; the first failure cancels the
	// remaining queue, in-flight tasks run to completion, and the first
	// error is returned.
	Workers int

	// Progress enables progress reporting. When false no sink is touched.
	Progress bool

	// Sink receives progress events when Progress is true. Nil selects a
	// zerolog-backed sink.
	Sink ProgressSink
}

// DefaultConfig returns a sequential configuration without progress output.
func DefaultConfig() Config {
	return Config{Workers: 1}
}

func (c Config) mode() string {
	if c.Workers <= 1 {
		return "sequential"
	}
	return "concurrent"
}

func (c Config) sink() ProgressSink {
	if !c.Progress {
		return nopSink{}
	}
	if c.Sink != nil {
		return c.Sink
	}
	return NewLogSink("batch")
}

// Row is one table-shaped output row: a record tagged with the input item
// that produced it.
type Row[K comparable, R any] struct {
	Item   K
	Record R
}

// List runs op over items and returns the results in input order, one per
// item.
func List[K comparable, R any](ctx context.Context, cfg Config, items []K, op Op[K, R]) ([]R, error) {
	return observe("list", cfg, len(items), func() ([]R, error) {
		return run(ctx, cfg, items, op)
	})
}

// Map runs op over items and returns item -> result. Items must be unique;
// duplicates are rejected with *DuplicateKeyError before any task runs.
func Map[K comparable, R any](ctx context.Context, cfg Config, items []K, op Op[K, R]) (map[K]R, error) {
	return observe("map", cfg, len(items), func() (map[K]R, error) {
		seen := make(map[K]struct{}, len(items))
		for _, item := range items {
			if _, dup := seen[item]; dup {
				return nil, &DuplicateKeyError{Item: item}
			}
			seen[item] = struct{}{}
		}

		results, err := run(ctx, cfg, items, op)
		if err != nil {
			return nil, err
		}

		out := make(map[K]R, len(items))
		for i, item := range items {
			out[item] = results[i]
		}
		return out, nil
	})
}

// Table runs op over items, where each result is a block of records, and
// flattens the blocks into rows tagged with their originating item. Row
// order is block order: all records for items[0], then all for items[1],
// and so on, regardless of execution mode.
func Table[K comparable, R any](ctx context.Context, cfg Config, items []K, op Op[K, []R]) ([]Row[K, R], error) {
	return observe("table", cfg, len(items), func() ([]Row[K, R], error) {
		blocks, err := run(ctx, cfg, items, op)
		if err != nil {
			return nil, err
		}
		return flatten(items, blocks), nil
	})
}

// TableAny is Table for operations with dynamically typed results, such as
// decoded JSON. A per-item result that is not a slice or array fails the
// batch with *InvalidResultShapeError.
func TableAny[K comparable](ctx context.Context, cfg Config, items []K, op Op[K, any]) ([]Row[K, any], error) {
	return observe("table", cfg, len(items), func() ([]Row[K, any], error) {
		results, err := run(ctx, cfg, items, op)
		if err != nil {
			return nil, err
		}

		blocks := make([][]any, len(items))
		for i, item := range items {
			block, err := records(item, results[i])
			if err != nil {
				return nil, err
			}
			blocks[i] = block
		}
		return flatten(items, blocks), nil
	})
}

// run executes one task per item and collects results in input order. This
// is the whole dispatch mechanism; the shape functions above only assemble
// its output differently.
func run[K comparable, R any](ctx context.Context, cfg Config, items []K, op Op[K, R]) ([]R, error) {
	results := make([]R, len(items))

	sink := cfg.sink()
	sink.Start(len(items))
	defer sink.Finish()

	if cfg.Workers <= 1 {
		for i, item := range items {
			r, err := op(ctx, item)
			if err != nil {
				return nil, &TaskError{Item: item, Err: err}
			}
			results[i] = r
			sink.Advance()
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, item := range items {
		g.Go(func() error {
			// Skip queued tasks once a failure has cancelled the batch.
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := op(gctx, item)
			if err != nil {
				return &TaskError{Item: item, Err: err}
			}
			// Each task writes its own index; no two tasks share a slot.
			results[i] = r
			sink.Advance()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// flatten explodes per-item record blocks into tagged rows in block order.
func flatten[K comparable, R any](items []K, blocks [][]R) []Row[K, R] {
	rows := make([]Row[K, R], 0, len(items))
	for i, item := range items {
		for _, rec := range blocks[i] {
			rows = append(rows, Row[K, R]{Item: item, Record: rec})
		}
	}
	return rows
}

// records explodes a dynamically typed result into table records. Only
// slices and arrays qualify; strings, maps, and scalars are single values,
// not record sequences.
func records(item any, result any) ([]any, error) {
	v := reflect.ValueOf(result)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			out[i] = v.Index(i).Interface()
		}
		return out, nil
	default:
		return nil, &InvalidResultShapeError{Item: item, Result: result}
	}
}

// observe wraps a batch call with the dispatch metrics.
func observe[T any](shape string, cfg Config, n int, fn func() (T, error)) (T, error) {
	start := time.Now()
	batchesTotal.WithLabelValues(shape, cfg.mode()).Inc()

	out, err := fn()
	batchDuration.WithLabelValues(shape).Observe(time.Since(start).Seconds())
	if err != nil {
		batchFailuresTotal.WithLabelValues(shape).Inc()
		var zero T
		return zero, err
	}

	batchItemsTotal.WithLabelValues(shape).Add(float64(n))
	return out, nil
}
