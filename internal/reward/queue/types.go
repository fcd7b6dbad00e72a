package queue

import (
	"context"
	"time"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Fetcher performs a single GET and classifies nothing: non-200 answers are
	// returned as a Response, only transport failures are errors.
	Fetcher interface {
		Fetch(ctx context.Context, url string) (*Response, error)
	}
	// Metrics records queue activity.
	Metrics interface {
		ObserveRequest(outcome string, started time.Time)
		ObserveHalt(reason string)
	}
)

// Response is what the transport exposes about an answered request.
type Response struct {
	StatusCode int
	Body       []byte
	// URL is the effective URL after redirects. It is only logged; callbacks
	// receive the pushed URL since keys are parsed from what was requested.
	URL string
	// RetryAfter is zero when the server did not send a usable Retry-After.
	RetryAfter time.Duration
}

// Entry is a queued request. OnComplete runs on the queue goroutine before the
// next request is dispatched; a returned error is handled like a failed request.
type Entry struct {
	URL        string
	RunID      uint64
	OnComplete func(body []byte, url string) error
}

// StatusFunc receives human readable progress and error messages.
type StatusFunc func(message string)

// State is the lifecycle state of a queue.
type State int

const (
	StateIdle State = iota
	StateProcessing
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// Policy selects how provider throttling signals are interpreted.
type Policy int

const (
	// PolicyGeneric treats every non-200, non-429 answer as a transient failure.
	PolicyGeneric Policy = iota
	// PolicyStrict additionally halts on a 418 ban answer.
	PolicyStrict
)

const (
	outcomeSuccess   = "success"
	outcomeThrottled = "throttled"
	outcomeBanned    = "banned"
	outcomeError     = "error"
	outcomeInvalid   = "invalid_response"
)

const (
	haltRetryLimit = "retry_limit"
	haltBanned     = "banned"
	haltCanceled   = "canceled"
	haltStopped    = "stopped"
)
