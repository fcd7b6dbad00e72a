// Package price resolves historical prices for reward records from one of
// several interchangeable sources and keeps them in a per-run store.
package price

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/queue"
	"github.com/shopspring/decimal"
)

// ErrNoPrice is returned by Parse for well-formed answers that carry no price.
var ErrNoPrice = errors.New("no price published")

// Provider is one price source. The key granularity it produces is used for
// the whole run.
type Provider interface {
	Source() model.PriceSource
	Currency() string
	// Policy selects the queue discipline lookups go through.
	Policy() queue.Policy
	// Backfill reports whether a missing key falls back to the nearest previous price.
	Backfill() bool
	KeyFor(rec model.RewardRecord) Key
	LookupURL(key Key) string
	// Parse extracts the key the answer is for and its price. The key comes from
	// the answer, not the request, and may differ from the requested one.
	Parse(body []byte, url string) (Key, decimal.Decimal, error)
}

// Config selects and configures a provider.
type Config struct {
	Source   model.PriceSource
	Currency string
	// BaseURL overrides the provider default endpoint.
	BaseURL string
	// CoinID is the CoinGecko coin id (default "helium").
	CoinID string
	// Symbol is the Binance base asset (default "HNT").
	Symbol string
}

// NewProvider builds the provider for cfg.Source. Unsupported currencies fall back to usd.
func NewProvider(cfg Config) (Provider, error) {
	currency, _ := cfg.Source.ResolveCurrency(cfg.Currency)
	base := strings.TrimRight(cfg.BaseURL, "/")

	switch cfg.Source {
	case model.SourceOracle:
		if base == "" {
			base = DefaultOracleURL
		}
		return &Oracle{baseURL: base}, nil
	case model.SourceCoinGecko:
		if base == "" {
			base = DefaultCoinGeckoURL
		}
		coinID := cfg.CoinID
		if coinID == "" {
			coinID = defaultCoinGeckoID
		}
		return &CoinGecko{baseURL: base, coinID: coinID, currency: currency}, nil
	case model.SourceBinance:
		if base == "" {
			base = DefaultBinanceURL
		}
		symbol := cfg.Symbol
		if symbol == "" {
			symbol = defaultBinanceSymbol
		}
		return &Binance{baseURL: base, symbol: strings.ToUpper(symbol) + strings.ToUpper(currency), currency: currency}, nil
	default:
		return nil, fmt.Errorf("unsupported price source %q", cfg.Source)
	}
}

// Round rounds x to places decimals, halves away from zero.
func Round(x decimal.Decimal, places int32) decimal.Decimal {
	return x.Round(places)
}
