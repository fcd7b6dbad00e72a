package price

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/queue"
	"github.com/shopspring/decimal"
)

// DefaultOracleURL is the ledger API serving oracle prices.
const DefaultOracleURL = "https://api.helium.io"

// Oracle reads prices published on chain at block heights. Prices are sparse,
// so lookups fall back to the nearest previous published block.
type Oracle struct {
	baseURL string
}

type oracleResponse struct {
	Data struct {
		Block uint64 `json:"block"`
		// Price is quoted in 1e-8 USD.
		Price int64 `json:"price"`
	} `json:"data"`
}

func (o *Oracle) Source() model.PriceSource { return model.SourceOracle }

func (o *Oracle) Currency() string { return model.DefaultCurrency }

func (o *Oracle) Policy() queue.Policy { return queue.PolicyGeneric }

func (o *Oracle) Backfill() bool { return true }

func (o *Oracle) KeyFor(rec model.RewardRecord) Key {
	return HeightKey(rec.Block)
}

func (o *Oracle) LookupURL(key Key) string {
	height, _ := key.Height()
	return o.baseURL + "/v1/oracle/prices/" + strconv.FormatUint(height, 10)
}

func (o *Oracle) Parse(body []byte, _ string) (Key, decimal.Decimal, error) {
	var resp oracleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Key{}, decimal.Zero, fmt.Errorf("decode oracle price: %w", err)
	}
	if resp.Data.Block == 0 {
		return Key{}, decimal.Zero, errors.New("decode oracle price: missing block")
	}
	return HeightKey(resp.Data.Block), model.BonesToTokens(resp.Data.Price), nil
}
