// Package budget implements request-budget tracking and gating for the
// backing data services. It monitors the X-RateLimit-Remaining and
// X-RateLimit-Reset response headers so a batch run never exhausts the
// account's request quota and gets the token suspended.
package budget

import (
	"time"
)

// Redis keys for budget state storage. State is shared across processes so
// parallel batch workers draw from one quota view.
const (
	RedisKeyRemaining = "grotto:budget:remaining"
	RedisKeyResetAt   = "grotto:budget:reset_timestamp"
	RedisKeyUpdatedAt = "grotto:budget:last_update"
)

// Thresholds for budget decisions.
const (
	// ThresholdCritical blocks all requests when the remaining quota falls
	// below this value, leaving headroom for in-flight work.
	ThresholdCritical = 5

	// ThresholdWarning applies throttling when the remaining quota falls
	// below this value.
	ThresholdWarning = 20

	// ThresholdHealthy indicates normal operation. At or above this value
	// no restrictions apply.
	ThresholdHealthy = 50
)

// State represents the current request-budget state, shared across all
// client instances via Redis.
type State struct {
	// Remaining is the number of requests left in the current quota window,
	// from the X-RateLimit-Remaining header.
	Remaining int `json:"remaining"`

	// ResetAt is when the quota window resets, from the X-RateLimit-Reset
	// header (seconds until reset).
	ResetAt time.Time `json:"reset_at"`

	// UpdatedAt is when this state was last refreshed from headers.
	UpdatedAt time.Time `json:"updated_at"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.UpdatedAt) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *State) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical
}

// NeedsThrottling returns true if requests should be throttled.
func (s *State) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the quota window resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field from the current Remaining value.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
