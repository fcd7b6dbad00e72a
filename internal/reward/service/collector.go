// Package service collects a reward ledger for an account and joins each
// reward with its gateway name and historical price.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/price"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/queue"
	"go.uber.org/zap"
)

const genericQueueName = "ledger"

// Config configures a collector.
type Config struct {
	// LedgerURL is the ledger API base URL; empty means ledger.DefaultBaseURL.
	LedgerURL string
	Price     price.Config
	// Precision is the number of decimals prices and values are rounded to.
	Precision int32
	// RetryLimit is the per-URL failure budget of both queues.
	RetryLimit int
	// RPS paces the ledger queue, StrictRPS the rate limited price queue. Zero is unlimited.
	RPS       int
	StrictRPS int
}

// Request selects the account and the time window to collect.
type Request struct {
	Address string
	Start   time.Time
	End     time.Time
}

// Collector runs reward collections. A new Collect cancels the one in flight.
type Collector struct {
	cfg      Config
	provider price.Provider
	fetcher  queue.Fetcher
	metrics  Metrics
	status   queue.StatusFunc
	logger   *zap.Logger

	mu      sync.Mutex
	current uint64
	cancel  context.CancelFunc
}

// NewCollector validates cfg and builds a collector.
func NewCollector(cfg Config, fetcher queue.Fetcher, metrics Metrics, status queue.StatusFunc, logger *zap.Logger) (*Collector, error) {
	if fetcher == nil {
		return nil, errors.New("collector fetcher is required")
	}
	if metrics == nil {
		return nil, errors.New("collector metrics is required")
	}
	if cfg.Precision < 0 {
		return nil, fmt.Errorf("precision must not be negative, got %d", cfg.Precision)
	}
	provider, err := price.NewProvider(cfg.Price)
	if err != nil {
		return nil, err
	}
	if status == nil {
		status = func(string) {}
	}
	return &Collector{
		cfg:      cfg,
		provider: provider,
		fetcher:  fetcher,
		metrics:  metrics,
		status:   status,
		logger:   logger.Named("collector"),
	}, nil
}

// Provider returns the price provider the collector was configured with.
func (c *Collector) Provider() price.Provider {
	return c.provider
}

// Collect fetches every reward of req.Address in [req.Start, req.End) and
// returns them joined with gateway names and prices, in ledger order.
func (c *Collector) Collect(ctx context.Context, req Request) (rows []model.JoinedRow, err error) {
	started := time.Now()
	defer func() {
		c.metrics.ObserveCollect(string(c.provider.Source()), len(rows), err, started)
	}()

	if err := req.validate(); err != nil {
		return nil, err
	}

	runCtx, id := c.begin(ctx)
	r, err := c.newRun(id, req)
	if err != nil {
		c.end(id)
		return nil, err
	}
	r.start(runCtx)
	defer func() {
		c.end(id)
		r.stop()
	}()

	rows, err = r.execute(runCtx)
	if !c.isCurrent(id) {
		return nil, ErrRunSuperseded
	}
	if err != nil {
		return nil, err
	}
	c.status(fmt.Sprintf("Processed %d rewards", len(rows)))
	return rows, nil
}

func (c *Collector) begin(ctx context.Context) (context.Context, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.current++
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	return runCtx, c.current
}

func (c *Collector) end(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == id && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Collector) isCurrent(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == id
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Address) == "" {
		return errors.New("address is required")
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.New("start and end are required")
	}
	if !r.End.After(r.Start) {
		return fmt.Errorf("end %s must be after start %s", r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}
	return nil
}
