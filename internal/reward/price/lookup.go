package price

import (
	"errors"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/queue"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Lookup dispatches price lookups for reward records through the queue the
// provider asks for and records the answers in a store.
type Lookup struct {
	provider Provider
	store    *Store
	generic  Pusher
	strict   Pusher
	logger   *zap.Logger
}

// NewLookup wires a provider to its store and queues.
func NewLookup(provider Provider, store *Store, generic, strict Pusher, logger *zap.Logger) *Lookup {
	return &Lookup{
		provider: provider,
		store:    store,
		generic:  generic,
		strict:   strict,
		logger:   logger.With(zap.String("source", string(provider.Source()))),
	}
}

// Request dispatches a lookup for the record's price key unless one was
// already dispatched. It reports whether a request was queued.
func (l *Lookup) Request(rec model.RewardRecord) bool {
	key := l.provider.KeyFor(rec)
	if !l.store.Reserve(key) {
		return false
	}

	target := l.generic
	if l.provider.Policy() == queue.PolicyStrict {
		target = l.strict
	}
	if !target.Push(queue.Entry{URL: l.provider.LookupURL(key), OnComplete: l.handle}) {
		l.logger.Debug("price lookup dropped by halted queue", zap.Stringer("key", key))
	}
	return true
}

// Price returns the price for the record: the exact key for daily sources, the
// nearest previous published block for the oracle.
func (l *Lookup) Price(rec model.RewardRecord) (decimal.Decimal, bool) {
	key := l.provider.KeyFor(rec)
	if l.provider.Backfill() {
		return l.store.NearestPrevious(key)
	}
	return l.store.Get(key)
}

func (l *Lookup) handle(body []byte, url string) error {
	key, price, err := l.provider.Parse(body, url)
	if errors.Is(err, ErrNoPrice) && !key.IsZero() {
		l.logger.Warn("source has no price", zap.Stringer("key", key), zap.String("url", url))
		l.store.MarkUnavailable(key)
		return nil
	}
	if err != nil {
		return err
	}
	l.store.Resolve(key, price)
	return nil
}
