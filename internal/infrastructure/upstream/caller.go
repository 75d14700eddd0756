package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/yourusername/llm-relay-bot/internal/domain/entity"
	"github.com/yourusername/llm-relay-bot/internal/metrics"
)

// Config tunes retries and pacing for one backend.
type Config struct {
	Provider       string
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
	MaxConcurrency int
	MinInterval    time.Duration
}

// AttemptFunc performs exactly one upstream call.
type AttemptFunc func(ctx context.Context) Outcome

// Caller runs attempts with bounded retries and linear backoff.
// It holds no per-call state and is safe for concurrent use.
type Caller struct {
	cfg     Config
	sem     *semaphore.Weighted
	pace    *rate.Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCaller creates a Caller. A nil logger or metrics disables them.
func NewCaller(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Caller {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Caller{
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		pace:    rate.NewLimiter(limit, 1),
		logger:  logger.With(zap.String("provider", cfg.Provider)),
		metrics: m,
	}
}

// Do runs attempt until it succeeds, fails terminally, or MaxAttempts is reached.
// Cancelling ctx abandons the in-flight attempt and any pending backoff.
func (c *Caller) Do(ctx context.Context, attempt AttemptFunc) entity.CompletionResult {
	var (
		last     Outcome
		attempts int
	)

	op := func() error {
		release, err := c.acquire(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		attempts++
		last = c.runAttempt(ctx, attempt, attempts)
		release()

		switch {
		case last.OK():
			return nil
		case last.ShouldRetry():
			return last.Err
		default:
			return backoff.Permanent(last.Err)
		}
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("retrying completion",
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", c.cfg.MaxAttempts),
			zap.Duration("delay", wait),
			zap.Error(err),
		)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&LinearBackOff{Base: c.cfg.BaseDelay}, uint64(c.cfg.MaxAttempts-1)),
		ctx,
	)
	err := backoff.RetryNotify(op, policy, notify)

	if err == nil && last.OK() {
		return entity.Succeeded(last.Text, attempts)
	}
	if cerr := ctx.Err(); cerr != nil {
		return entity.Failed(entity.KindUnknown, fmt.Sprintf("abandoned after %d attempts: %v", attempts, cerr), attempts)
	}
	if attempts == 0 {
		return entity.Failed(entity.KindUnknown, fmt.Sprintf("no attempt started: %v", err), 0)
	}

	detail := last.Err.Error()
	if last.ShouldRetry() {
		detail = fmt.Sprintf("gave up after %d attempts: %s", attempts, detail)
	}
	return entity.Failed(last.Kind, detail, attempts)
}

func (c *Caller) runAttempt(ctx context.Context, attempt AttemptFunc, n int) Outcome {
	actx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	start := time.Now()
	out := attempt(actx)
	elapsed := time.Since(start)
	c.metrics.ObserveAttempt(c.cfg.Provider, out.String(), elapsed)

	if out.OK() {
		return out
	}
	if out.Err == nil {
		out.Err = errors.New("attempt failed without detail")
	}
	c.logger.Debug("completion attempt failed",
		zap.Int("attempt", n),
		zap.String("outcome", out.String()),
		zap.Stringer("kind", out.Kind),
		zap.Duration("elapsed", elapsed),
		zap.Error(out.Err),
	)
	return out
}

// acquire waits for a concurrency slot and for the pacing interval.
func (c *Caller) acquire(ctx context.Context) (func(), error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := c.pace.Wait(ctx); err != nil {
		c.sem.Release(1)
		return nil, err
	}
	return func() { c.sem.Release(1) }, nil
}
