package price

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/queue"
	"github.com/shopspring/decimal"
)

// DefaultCoinGeckoURL is the public CoinGecko API.
const DefaultCoinGeckoURL = "https://api.coingecko.com"

const defaultCoinGeckoID = "helium"

// CoinGecko reads the daily historical price of a coin by UTC date.
// https://docs.coingecko.com/reference/coins-id-history
type CoinGecko struct {
	baseURL  string
	coinID   string
	currency string
}

type coinGeckoHistoryResponse struct {
	ID         string `json:"id"`
	MarketData *struct {
		CurrentPrice map[string]decimal.Decimal `json:"current_price"`
	} `json:"market_data"`
}

func (c *CoinGecko) Source() model.PriceSource { return model.SourceCoinGecko }

func (c *CoinGecko) Currency() string { return c.currency }

func (c *CoinGecko) Policy() queue.Policy { return queue.PolicyGeneric }

func (c *CoinGecko) Backfill() bool { return false }

func (c *CoinGecko) KeyFor(rec model.RewardRecord) Key {
	return DateKey(rec.Timestamp)
}

func (c *CoinGecko) LookupURL(key Key) string {
	date, _ := key.Date()
	params := url.Values{}
	params.Set("date", date)
	return c.baseURL + "/api/v3/coins/" + url.PathEscape(c.coinID) + "/history?" + params.Encode()
}

func (c *CoinGecko) Parse(body []byte, rawURL string) (Key, decimal.Decimal, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Key{}, decimal.Zero, fmt.Errorf("parse coingecko url: %w", err)
	}
	key, err := ParseDateKey(u.Query().Get("date"))
	if err != nil {
		return Key{}, decimal.Zero, err
	}

	var resp coinGeckoHistoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Key{}, decimal.Zero, fmt.Errorf("decode coingecko history: %w", err)
	}
	if resp.MarketData == nil {
		return key, decimal.Zero, fmt.Errorf("coingecko %s: %w", key, ErrNoPrice)
	}
	price, ok := resp.MarketData.CurrentPrice[c.currency]
	if !ok {
		return key, decimal.Zero, fmt.Errorf("coingecko %s in %s: %w", key, c.currency, ErrNoPrice)
	}
	return key, price, nil
}
