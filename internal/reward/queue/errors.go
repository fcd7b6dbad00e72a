package queue

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrHalted is matched by every error a halted queue reports.
	ErrHalted = errors.New("queue halted")
	// ErrStopped is reported when the queue was stopped by its owner.
	ErrStopped = errors.New("queue stopped")
)

// RetryLimitError reports a URL that kept failing past the retry limit.
type RetryLimitError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *RetryLimitError) Error() string {
	return fmt.Sprintf("retry limit exceeded attempting to retrieve url %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *RetryLimitError) Unwrap() []error {
	return []error{ErrHalted, e.Err}
}

// BannedError reports a provider ban answer (HTTP 418).
type BannedError struct {
	Provider   string
	URL        string
	RetryAfter time.Duration
}

func (e *BannedError) Error() string {
	return fmt.Sprintf("banned by %s for %s while retrieving url %s", e.Provider, e.RetryAfter, e.URL)
}

func (e *BannedError) Unwrap() error {
	return ErrHalted
}
