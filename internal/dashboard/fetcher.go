package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

type FetchFunc[T any] func(ctx context.Context, params url.Values) (T, error)

// Result is the outcome of the request that was latest when it completed.
type Result[T any] struct {
	ID    uint64
	Value T
	Err   error
}

type FetcherConfig struct {
	// Debounce is how long input must settle before a request is sent.
	Debounce time.Duration
	// MinInterval separates consecutive requests, retries included.
	MinInterval time.Duration
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	MaxRetries  int
}

func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Debounce:    300 * time.Millisecond,
		MinInterval: 500 * time.Millisecond,
		BaseBackoff: time.Second,
		MaxBackoff:  10 * time.Second,
		MaxRetries:  3,
	}
}

// Backoff is the wait before retry number attempt (starting at 0). A server
// supplied retryAfter wins over the exponential schedule.
func Backoff(attempt int, retryAfter, base, ceiling time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	if attempt < 0 {
		attempt = 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	if d > ceiling {
		return ceiling
	}
	return d
}

// Fetcher issues debounced requests. Only the most recently submitted
// request produces a Result; responses to superseded requests are dropped.
type Fetcher[T any] struct {
	fetch   FetchFunc[T]
	cfg     FetcherConfig
	logger  *slog.Logger
	results chan Result[T]
	ctx     context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	timer    *time.Timer
	latest   uint64
	nextSend time.Time
	attempt  int
}

func NewFetcher[T any](fetch FetchFunc[T], cfg FetcherConfig, logger *slog.Logger) *Fetcher[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Fetcher[T]{
		fetch:   fetch,
		cfg:     cfg,
		logger:  logger,
		results: make(chan Result[T], 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (f *Fetcher[T]) Results() <-chan Result[T] {
	return f.results
}

// Submit schedules a request for params and returns its id. A pending
// request that has not been sent yet is replaced.
func (f *Fetcher[T]) Submit(params url.Values) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.latest++
	id := f.latest
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.cfg.Debounce, func() { f.run(id, params) })
	return id
}

func (f *Fetcher[T]) Close() {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.mu.Unlock()
	f.cancel()
}

func (f *Fetcher[T]) run(id uint64, params url.Values) {
	for {
		if !f.isLatest(id) {
			return
		}
		if err := f.waitTurn(); err != nil {
			return
		}

		value, err := f.fetch(f.ctx, params)

		var limited *RateLimitedError
		if errors.As(err, &limited) {
			attempt, exhausted := f.recordRateLimit()
			if exhausted {
				f.deliver(Result[T]{ID: id, Err: fmt.Errorf("%w: gave up after %d attempts", ErrRateLimited, attempt)})
				return
			}
			delay := Backoff(attempt-1, limited.RetryAfter, f.cfg.BaseBackoff, f.cfg.MaxBackoff)
			f.logger.Warn("analytics request rate limited", "request_id", id, "attempt", attempt, "retry_in", delay)
			if err := sleep(f.ctx, delay); err != nil {
				return
			}
			continue
		}

		if err == nil {
			f.resetAttempts()
		}
		f.deliver(Result[T]{ID: id, Value: value, Err: err})
		return
	}
}

func (f *Fetcher[T]) isLatest(id uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return id == f.latest
}

// waitTurn reserves the next send slot and sleeps until it opens.
func (f *Fetcher[T]) waitTurn() error {
	f.mu.Lock()
	now := time.Now()
	slot := now
	if f.nextSend.After(now) {
		slot = f.nextSend
	}
	f.nextSend = slot.Add(f.cfg.MinInterval)
	f.mu.Unlock()

	return sleep(f.ctx, slot.Sub(now))
}

// recordRateLimit counts a 429. Exhausting the retries resets the counter so
// the next request starts fresh.
func (f *Fetcher[T]) recordRateLimit() (attempt int, exhausted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempt++
	attempt = f.attempt
	if attempt > f.cfg.MaxRetries {
		f.attempt = 0
		return attempt, true
	}
	return attempt, false
}

func (f *Fetcher[T]) resetAttempts() {
	f.mu.Lock()
	f.attempt = 0
	f.mu.Unlock()
}

func (f *Fetcher[T]) deliver(r Result[T]) {
	if !f.isLatest(r.ID) {
		f.logger.Debug("discarding stale response", "request_id", r.ID)
		return
	}
	select {
	case f.results <- r:
	case <-f.ctx.Done():
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
