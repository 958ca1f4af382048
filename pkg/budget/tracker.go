package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for budget tracking.
var (
	budgetRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grotto_budget_remaining",
		Help: "Number of requests remaining in the current quota window",
	})

	budgetBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grotto_budget_blocks_total",
		Help: "Total number of requests blocked due to critical quota",
	})

	budgetThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grotto_budget_throttles_total",
		Help: "Total number of requests throttled due to low quota",
	})
)

// Tracker monitors the request quota and gates requests.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new budget tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState retrieves the current budget state from Redis.
// Returns a default healthy state if no data exists yet.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get remaining quota: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, RedisKeyResetAt).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	updatedAtStr, err := t.redis.Get(ctx, RedisKeyUpdatedAt).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	// No state in Redis yet: assume healthy until headers say otherwise.
	if err == redis.Nil {
		t.logger.Debug().Msg("No budget state in Redis, returning default healthy state")
		return &State{
			Remaining: 100,
			ResetAt:   time.Now().Add(60 * time.Second),
			UpdatedAt: time.Now(),
			IsHealthy: true,
		}, nil
	}

	var updatedAt time.Time
	if updatedAtStr != "" {
		if err := json.Unmarshal([]byte(updatedAtStr), &updatedAt); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &State{
		Remaining: remaining,
		ResetAt:   time.Unix(resetTimestamp, 0),
		UpdatedAt: updatedAt,
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders parses quota headers from a service response and updates
// the shared Redis state. Responses without quota headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get("X-RateLimit-Remaining")
	if remainStr == "" {
		// Header not present - not all services report quota
		return nil
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
	}

	resetStr := headers.Get("X-RateLimit-Reset")
	if resetStr == "" {
		return fmt.Errorf("X-RateLimit-Reset header missing")
	}

	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
	}

	now := time.Now()
	state := &State{
		Remaining: remaining,
		ResetAt:   now.Add(time.Duration(resetSeconds) * time.Second),
		UpdatedAt: now,
	}
	state.UpdateHealth()

	// Store in Redis atomically
	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyRemaining, remaining, 0)
	pipe.Set(ctx, RedisKeyResetAt, state.ResetAt.Unix(), 0)

	updatedAtJSON, err := json.Marshal(state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}
	pipe.Set(ctx, RedisKeyUpdatedAt, updatedAtJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store budget state in redis: %w", err)
	}

	budgetRemaining.Set(float64(remaining))

	logEvent := t.logger.Info().
		Int("remaining", remaining).
		Time("reset_at", state.ResetAt).
		Bool("is_healthy", state.IsHealthy)

	if state.NeedsCriticalBlock() {
		logEvent = t.logger.Error().Int("remaining", remaining)
		logEvent.Msg("Request quota CRITICAL - requests will be blocked")
	} else if state.NeedsThrottling() {
		logEvent = t.logger.Warn().Int("remaining", remaining)
		logEvent.Msg("Request quota LOW - requests will be throttled")
	} else {
		logEvent.Msg("Request quota state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed under the current
// quota. Returns false if the request must be blocked; in the warning band
// it sleeps briefly to slow the drain and then allows the request.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get budget state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		waitDuration := state.TimeUntilReset()

		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", waitDuration).
			Msg("Request quota critical - blocking request")

		budgetBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Request quota low - throttling request")

		budgetThrottlesTotal.Inc()
		time.Sleep(1 * time.Second)
	}

	return true, nil
}
