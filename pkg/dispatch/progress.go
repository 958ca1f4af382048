package dispatch

import (
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ProgressSink receives batch progress events. Advance is called once per
// completed task and must be safe to call from multiple workers.
type ProgressSink interface {
	// Start announces the total number of tasks in the batch.
	Start(total int)

	// Advance records one completed task.
	Advance()

	// Finish closes the sink. It is called exactly once, on success and on
	// failure, so a progress display is never left hanging.
	Finish()
}

// nopSink discards all progress events.
type nopSink struct{}

func (nopSink) Start(int) {}
func (nopSink) Advance()  {}
func (nopSink) Finish()   {}

// logInterval is how many completed tasks pass between progress log lines.
const logInterval = 50

// LogSink reports batch progress through zerolog, one line per logInterval
// completed tasks plus a final line on Finish.
type LogSink struct {
	Label  string
	Logger zerolog.Logger

	total int64
	done  atomic.Int64
}

// NewLogSink creates a progress sink that logs under the given label,
// typically the name of the batched operation.
func NewLogSink(label string) *LogSink {
	return &LogSink{
		Label:  label,
		Logger: log.With().Str("component", "dispatch").Logger(),
	}
}

// Start implements ProgressSink.
func (s *LogSink) Start(total int) {
	s.total = int64(total)
	s.done.Store(0)
	s.Logger.Info().
		Str("batch", s.Label).
		Int("total", total).
		Msg("Batch started")
}

// Advance implements ProgressSink.
func (s *LogSink) Advance() {
	done := s.done.Add(1)
	if done%logInterval != 0 {
		return
	}
	s.Logger.Info().
		Str("batch", s.Label).
		Int64("done", done).
		Int64("total", s.total).
		Float64("progress_pct", float64(done)/float64(s.total)*100).
		Msg("Batch progress")
}

// Finish implements ProgressSink.
func (s *LogSink) Finish() {
	s.Logger.Info().
		Str("batch", s.Label).
		Int64("done", s.done.Load()).
		Int64("total", s.total).
		Msg("Batch finished")
}
