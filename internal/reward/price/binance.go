package price

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/queue"
	"github.com/shopspring/decimal"
)

// DefaultBinanceURL is the Binance.US market data API.
const DefaultBinanceURL = "https://api.binance.us"

const (
	defaultBinanceSymbol = "HNT"
	millisPerDay         = secondsPerDay * 1000
)

// Binance reads the close of the daily candle. It fronts an API with strict,
// documented throttling, so its lookups go through the strict queue.
type Binance struct {
	baseURL  string
	symbol   string
	currency string
}

func (b *Binance) Source() model.PriceSource { return model.SourceBinance }

func (b *Binance) Currency() string { return b.currency }

func (b *Binance) Policy() queue.Policy { return queue.PolicyStrict }

func (b *Binance) Backfill() bool { return false }

func (b *Binance) KeyFor(rec model.RewardRecord) Key {
	return DayKey(rec.Timestamp)
}

func (b *Binance) LookupURL(key Key) string {
	day, _ := key.Day()
	start := day * 1000
	params := url.Values{}
	params.Set("symbol", b.symbol)
	params.Set("interval", "1d")
	params.Set("limit", "1")
	params.Set("startTime", strconv.FormatInt(start, 10))
	params.Set("endTime", strconv.FormatInt(start+millisPerDay, 10))
	return b.baseURL + "/api/v3/klines?" + params.Encode()
}

// Parse reads [[openTime, open, high, low, close, ...]].
func (b *Binance) Parse(body []byte, rawURL string) (Key, decimal.Decimal, error) {
	var candles [][]json.RawMessage
	if err := json.Unmarshal(body, &candles); err != nil {
		return Key{}, decimal.Zero, fmt.Errorf("decode binance klines: %w", err)
	}
	if len(candles) == 0 {
		key, err := b.requestedKey(rawURL)
		if err != nil {
			return Key{}, decimal.Zero, err
		}
		return key, decimal.Zero, fmt.Errorf("binance %s: %w", key, ErrNoPrice)
	}

	candle := candles[0]
	if len(candle) < 5 {
		return Key{}, decimal.Zero, fmt.Errorf("decode binance klines: candle has %d fields", len(candle))
	}
	var openTime int64
	if err := json.Unmarshal(candle[0], &openTime); err != nil {
		return Key{}, decimal.Zero, fmt.Errorf("decode binance open time: %w", err)
	}
	var closePrice string
	if err := json.Unmarshal(candle[4], &closePrice); err != nil {
		return Key{}, decimal.Zero, fmt.Errorf("decode binance close: %w", err)
	}
	price, err := decimal.NewFromString(closePrice)
	if err != nil {
		return Key{}, decimal.Zero, fmt.Errorf("decode binance close: %w", err)
	}
	return DayKeyFromEpoch(openTime / 1000), price, nil
}

func (b *Binance) requestedKey(rawURL string) (Key, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Key{}, fmt.Errorf("parse binance url: %w", err)
	}
	start, err := strconv.ParseInt(u.Query().Get("startTime"), 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("parse binance start time: %w", err)
	}
	return DayKeyFromEpoch(start / 1000), nil
}
