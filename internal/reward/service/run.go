package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/ledger"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/price"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/queue"
	"go.uber.org/zap"
)

// run owns everything one collection mutates. Callbacks run on the queue
// goroutines, so shared collections are guarded by mu.
type run struct {
	id        uint64
	req       Request
	ledgerURL string
	precision int32
	status    queue.StatusFunc
	logger    *zap.Logger

	generic *queue.Queue
	strict  *queue.Queue
	ledgerQ *runPusher
	lookup  *price.Lookup

	mu        sync.Mutex
	records   []model.RewardRecord
	gateways  map[string]string
	pages     int
	paginated bool
}

func (c *Collector) newRun(id uint64, req Request) (*run, error) {
	logger := c.logger.With(zap.Uint64("run", id), zap.String("address", req.Address))

	generic, err := queue.New(queue.Config{
		Name:       genericQueueName,
		Policy:     queue.PolicyGeneric,
		RetryLimit: c.cfg.RetryLimit,
		RPS:        c.cfg.RPS,
	}, c.fetcher, c.metrics.Queue(genericQueueName), c.status, logger)
	if err != nil {
		return nil, fmt.Errorf("create ledger queue: %w", err)
	}
	strictName := string(c.provider.Source())
	strict, err := queue.New(queue.Config{
		Name:       strictName,
		Policy:     queue.PolicyStrict,
		RetryLimit: c.cfg.RetryLimit,
		RPS:        c.cfg.StrictRPS,
	}, c.fetcher, c.metrics.Queue(strictName), c.status, logger)
	if err != nil {
		return nil, fmt.Errorf("create %s queue: %w", strictName, err)
	}

	r := &run{
		id:        id,
		req:       req,
		ledgerURL: c.cfg.LedgerURL,
		precision: c.cfg.Precision,
		status:    c.status,
		logger:    logger,
		generic:   generic,
		strict:    strict,
		gateways:  make(map[string]string),
	}
	r.ledgerQ = &runPusher{id: id, queue: generic, current: c.isCurrent, logger: logger}
	strictQ := &runPusher{id: id, queue: strict, current: c.isCurrent, logger: logger}
	r.lookup = price.NewLookup(c.provider, price.NewStore(), r.ledgerQ, strictQ, logger)
	return r, nil
}

func (r *run) start(ctx context.Context) {
	r.generic.Start(ctx)
	r.strict.Start(ctx)
}

func (r *run) stop() {
	r.generic.Stop()
	r.strict.Stop()
}

func (r *run) execute(ctx context.Context) ([]model.JoinedRow, error) {
	first := ledger.RewardsURL(r.ledgerURL, r.req.Address, r.req.Start, r.req.End)
	if !r.ledgerQ.Push(queue.Entry{URL: first, OnComplete: r.onPage}) {
		return nil, fmt.Errorf("%w: ledger queue rejected first page", ErrRunHalted)
	}
	if err := r.join(ctx); err != nil {
		return nil, err
	}
	return r.rows(), nil
}

func (r *run) onPage(body []byte, url string) error {
	page, err := ledger.ParsePage(body)
	if err != nil {
		return err
	}
	next := ""
	if page.Cursor != "" {
		if next, err = ledger.NextPageURL(url, page.Cursor); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.records = append(r.records, page.Data...)
	r.pages++
	pages, total := r.pages, len(r.records)
	var unseen []string
	for _, rec := range page.Data {
		if _, ok := r.gateways[rec.Gateway]; !ok {
			r.gateways[rec.Gateway] = model.UnknownGatewayName
			unseen = append(unseen, rec.Gateway)
		}
	}
	if next == "" {
		r.paginated = true
	}
	r.mu.Unlock()

	for _, gw := range unseen {
		r.ledgerQ.Push(queue.Entry{URL: ledger.HotspotURL(r.ledgerURL, gw), OnComplete: r.onGateway})
	}
	for _, rec := range page.Data {
		r.lookup.Request(rec)
	}
	r.status(fmt.Sprintf("Fetched page %d (%d rewards so far)", pages, total))

	if next != "" {
		r.ledgerQ.Push(queue.Entry{URL: next, OnComplete: r.onPage})
	}
	return nil
}

func (r *run) onGateway(body []byte, _ string) error {
	gw, err := ledger.ParseGateway(body)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[gw.Address] = gw.Name
	return nil
}

// join blocks until both queues drained. Price lookups reach the strict queue
// only from ledger callbacks, so once the ledger queue is idle the strict
// queue can only shrink.
func (r *run) join(ctx context.Context) error {
	for {
		if err := r.wait(ctx, r.generic); err != nil {
			return err
		}
		if err := r.wait(ctx, r.strict); err != nil {
			return err
		}
		if r.generic.State() == queue.StateIdle && r.strict.State() == queue.StateIdle {
			break
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.paginated {
		return fmt.Errorf("%w: pagination did not complete", ErrRunHalted)
	}
	return nil
}

func (r *run) wait(ctx context.Context, q *queue.Queue) error {
	err := q.Wait(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, queue.ErrHalted) {
		return fmt.Errorf("%w: %w", ErrRunHalted, err)
	}
	return err
}

func (r *run) rows() []model.JoinedRow {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]model.JoinedRow, 0, len(r.records))
	for _, rec := range r.records {
		amount := rec.DisplayAmount()
		row := model.JoinedRow{
			RewardRecord: rec,
			GatewayName:  r.gateways[rec.Gateway],
			Amount:       amount,
		}
		if p, ok := r.lookup.Price(rec); ok {
			row.Price = price.Round(p, r.precision)
			row.Value = price.Round(amount.Mul(p), r.precision)
			row.PriceAvailable = true
		}
		if row.GatewayName == "" {
			row.GatewayName = model.UnknownGatewayName
		}
		rows = append(rows, row)
	}
	return rows
}

// runPusher tags entries with the run id and drops completions that arrive
// after the run was superseded.
type runPusher struct {
	id      uint64
	queue   price.Pusher
	current func(uint64) bool
	logger  *zap.Logger
}

func (p *runPusher) Push(entry queue.Entry) bool {
	if !p.current(p.id) {
		return false
	}
	entry.RunID = p.id
	complete := entry.OnComplete
	entry.OnComplete = func(body []byte, url string) error {
		if !p.current(entry.RunID) {
			p.logger.Debug("discarding completion of superseded run", zap.String("url", url))
			return nil
		}
		return complete(body, url)
	}
	return p.queue.Push(entry)
}
