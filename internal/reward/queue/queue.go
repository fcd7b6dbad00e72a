// Package queue serializes outbound GET requests so that at most one is in
// flight, retrying failures at the tail of the queue and halting for good once
// a provider signals that it will not serve more requests.
package queue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/clock"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

const (
	defaultRetryLimit = 3
	defaultMaxJitter  = time.Second
)

// Config configures a queue.
type Config struct {
	// Name labels metrics and log lines and is shown in ban messages.
	Name   string
	Policy Policy
	// RetryLimit is the number of failures tolerated per URL (default 3).
	RetryLimit int
	// RPS paces dispatches; zero or less means unlimited.
	RPS int
	// MaxJitter bounds the random wait after a throttled answer without Retry-After (default 1s).
	MaxJitter time.Duration
}

// Queue dispatches entries one at a time from a single goroutine.
type Queue struct {
	name       string
	policy     Policy
	retryLimit int
	maxJitter  time.Duration
	fetcher    Fetcher
	metrics    Metrics
	limiter    ratelimit.Limiter
	status     StatusFunc
	logger     *zap.Logger
	sleep      func(context.Context, time.Duration) error
	jitter     func(time.Duration) time.Duration

	mu      sync.Mutex
	pending []Entry
	tally   map[string]int
	state   State
	haltErr error
	changed chan struct{}

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New constructs an idle queue. Start must be called before entries are dispatched.
func New(cfg Config, fetcher Fetcher, metrics Metrics, status StatusFunc, logger *zap.Logger) (*Queue, error) {
	if fetcher == nil {
		return nil, errors.New("queue fetcher is required")
	}
	if metrics == nil {
		return nil, errors.New("queue metrics is required")
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = defaultRetryLimit
	}
	if cfg.MaxJitter <= 0 {
		cfg.MaxJitter = defaultMaxJitter
	}
	limiter := ratelimit.NewUnlimited()
	if cfg.RPS > 0 {
		limiter = ratelimit.New(cfg.RPS)
	}
	if status == nil {
		status = func(string) {}
	}

	return &Queue{
		name:       cfg.Name,
		policy:     cfg.Policy,
		retryLimit: cfg.RetryLimit,
		maxJitter:  cfg.MaxJitter,
		fetcher:    fetcher,
		metrics:    metrics,
		limiter:    limiter,
		status:     status,
		logger:     logger.With(zap.String("queue", cfg.Name)),
		sleep:      clock.SleepWithContext,
		jitter:     clock.Jitter,
		tally:      make(map[string]int),
		state:      StateIdle,
		changed:    make(chan struct{}),
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}, nil
}

// Start launches the consumer goroutine. Canceling ctx halts the queue.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go q.run(ctx)
}

// Stop halts the queue and waits for the consumer goroutine to exit.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stop)
	})
	q.wg.Wait()
}

// Push enqueues an entry. It reports false when the queue is halted and the
// entry was dropped.
func (q *Queue) Push(entry Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state == StateHalted {
		q.logger.Debug("push ignored on halted queue", zap.String("url", entry.URL))
		return false
	}
	q.pending = append(q.pending, entry)
	if q.state == StateIdle {
		q.setStateLocked(StateProcessing)
	}
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// State returns the current queue state.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Len returns the number of entries waiting for dispatch.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Err returns the reason the queue halted, or nil.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.haltErr
}

// Wait blocks until the queue is idle (nil), halted (the halt reason) or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	for {
		q.mu.Lock()
		state, haltErr, changed := q.state, q.haltErr, q.changed
		q.mu.Unlock()

		switch state {
		case StateIdle:
			return nil
		case StateHalted:
			return haltErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (q *Queue) run(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			q.halt(fmt.Errorf("%w: %w", ErrHalted, ctx.Err()), haltCanceled)
			return
		case <-q.stop:
			q.halt(fmt.Errorf("%w: %w", ErrHalted, ErrStopped), haltStopped)
			return
		case <-q.wake:
		}
		q.drain(ctx)
	}
}

func (q *Queue) drain(ctx context.Context) {
	for {
		select {
		case <-q.stop:
			return
		default:
		}
		if ctx.Err() != nil {
			return
		}

		entry, ok := q.next()
		if !ok {
			return
		}
		q.dispatch(ctx, entry)
	}
}

func (q *Queue) next() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state == StateHalted {
		return Entry{}, false
	}
	if len(q.pending) == 0 {
		q.setStateLocked(StateIdle)
		return Entry{}, false
	}
	entry := q.pending[0]
	q.pending[0] = Entry{}
	q.pending = q.pending[1:]
	return entry, true
}

func (q *Queue) dispatch(ctx context.Context, entry Entry) {
	q.limiter.Take()

	started := time.Now()
	resp, err := q.fetcher.Fetch(ctx, entry.URL)
	if ctxErr := ctx.Err(); ctxErr != nil {
		q.requeue(entry)
		q.halt(fmt.Errorf("%w: %w", ErrHalted, ctxErr), haltCanceled)
		return
	}
	if err != nil {
		q.metrics.ObserveRequest(outcomeError, started)
		q.fail(entry, fmt.Errorf("fetch: %w", err))
		return
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if resp.URL != "" && resp.URL != entry.URL {
			q.logger.Debug("request redirected", zap.String("url", entry.URL), zap.String("effective_url", resp.URL))
		}
		if cbErr := entry.OnComplete(resp.Body, entry.URL); cbErr != nil {
			q.metrics.ObserveRequest(outcomeInvalid, started)
			q.fail(entry, fmt.Errorf("handle response: %w", cbErr))
			return
		}
		q.metrics.ObserveRequest(outcomeSuccess, started)

	case resp.StatusCode == http.StatusTooManyRequests:
		q.metrics.ObserveRequest(outcomeThrottled, started)
		q.requeue(entry)
		delay := resp.RetryAfter
		if delay <= 0 {
			delay = q.jitter(q.maxJitter)
		}
		q.logger.Debug("throttled, backing off", zap.String("url", entry.URL), zap.Duration("delay", delay))
		if err := q.sleep(ctx, delay); err != nil {
			q.halt(fmt.Errorf("%w: %w", ErrHalted, err), haltCanceled)
		}

	case resp.StatusCode == http.StatusTeapot && q.policy == PolicyStrict:
		q.metrics.ObserveRequest(outcomeBanned, started)
		q.requeue(entry)
		q.halt(&BannedError{Provider: q.name, URL: entry.URL, RetryAfter: resp.RetryAfter}, haltBanned)
		q.status(banMessage(q.name, resp.RetryAfter))

	default:
		q.metrics.ObserveRequest(outcomeError, started)
		q.fail(entry, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

func (q *Queue) requeue(entry Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, entry)
}

func (q *Queue) fail(entry Entry, cause error) {
	q.mu.Lock()
	q.tally[entry.URL]++
	attempts := q.tally[entry.URL]
	q.pending = append(q.pending, entry)
	q.mu.Unlock()

	if attempts > q.retryLimit {
		q.halt(&RetryLimitError{URL: entry.URL, Attempts: attempts, Err: cause}, haltRetryLimit)
		q.status("Retry limit exceeded attempting to retrieve url: " + entry.URL)
		return
	}
	q.logger.Warn("request failed, requeued",
		zap.String("url", entry.URL),
		zap.Int("attempt", attempts),
		zap.Error(cause),
	)
}

func (q *Queue) halt(err error, reason string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state == StateHalted {
		return
	}
	q.haltErr = err
	q.setStateLocked(StateHalted)
	q.metrics.ObserveHalt(reason)
	fields := []zap.Field{zap.String("reason", reason), zap.Int("pending", len(q.pending)), zap.Error(err)}
	if reason == haltStopped || reason == haltCanceled {
		q.logger.Debug("queue halted", fields...)
		return
	}
	q.logger.Error("queue halted", fields...)
}

func (q *Queue) setStateLocked(state State) {
	if q.state == state {
		return
	}
	q.state = state
	close(q.changed)
	q.changed = make(chan struct{})
}

func banMessage(provider string, retryAfter time.Duration) string {
	if secs := int64(retryAfter / time.Second); secs > 0 {
		return fmt.Sprintf(
			"IP has been banned from the %s API for too many requests. Please wait %d seconds before trying again.",
			provider, secs,
		)
	}
	return fmt.Sprintf("IP has been banned from the %s API for too many requests. Please wait before trying again.", provider)
}
