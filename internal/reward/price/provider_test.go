package price

import (
	"testing"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustProvider(t *testing.T, cfg Config) Provider {
	t.Helper()
	p, err := NewProvider(cfg)
	require.NoError(t, err)
	return p
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		wantSource   model.PriceSource
		wantCurrency string
		wantPolicy   queue.Policy
		wantBackfill bool
		wantErr      bool
	}{
		{
			name:         "oracle",
			cfg:          Config{Source: model.SourceOracle, Currency: "eur"},
			wantSource:   model.SourceOracle,
			wantCurrency: "usd",
			wantPolicy:   queue.PolicyGeneric,
			wantBackfill: true,
		},
		{
			name:         "coingecko keeps supported currency",
			cfg:          Config{Source: model.SourceCoinGecko, Currency: "EUR"},
			wantSource:   model.SourceCoinGecko,
			wantCurrency: "eur",
			wantPolicy:   queue.PolicyGeneric,
		},
		{
			name:         "binance falls back to usd",
			cfg:          Config{Source: model.SourceBinance, Currency: "eur"},
			wantSource:   model.SourceBinance,
			wantCurrency: "usd",
			wantPolicy:   queue.PolicyStrict,
		},
		{
			name:    "unknown source",
			cfg:     Config{Source: "kraken"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, p.Source())
			assert.Equal(t, tt.wantCurrency, p.Currency())
			assert.Equal(t, tt.wantPolicy, p.Policy())
			assert.Equal(t, tt.wantBackfill, p.Backfill())
		})
	}
}

func TestOracle(t *testing.T) {
	p := mustProvider(t, Config{Source: model.SourceOracle, BaseURL: "http://ledger.test/"})

	key := p.KeyFor(model.RewardRecord{Block: 100})
	assert.Equal(t, HeightKey(100), key)
	assert.Equal(t, "http://ledger.test/v1/oracle/prices/100", p.LookupURL(key))

	gotKey, price, err := p.Parse([]byte(`{"data":{"block":95,"price":1000000000}}`), "")
	require.NoError(t, err)
	assert.Equal(t, HeightKey(95), gotKey)
	assert.Equal(t, "10", price.String())

	_, _, err = p.Parse([]byte(`{"data":{}}`), "")
	require.Error(t, err)

	_, _, err = p.Parse([]byte(`<html>`), "")
	require.Error(t, err)
}

func TestCoinGecko(t *testing.T) {
	p := mustProvider(t, Config{Source: model.SourceCoinGecko, Currency: "eur", BaseURL: "http://cg.test"})

	key := p.KeyFor(model.RewardRecord{Timestamp: time.Date(2021, 2, 3, 23, 59, 59, 0, time.UTC)})
	lookupURL := p.LookupURL(key)
	assert.Equal(t, "http://cg.test/api/v3/coins/helium/history?date=3-2-2021", lookupURL)

	gotKey, price, err := p.Parse([]byte(`{"id":"helium","market_data":{"current_price":{"usd":1.2345,"eur":1.01}}}`), lookupURL)
	require.NoError(t, err)
	assert.Equal(t, key, gotKey)
	assert.Equal(t, "1.01", price.String())

	gotKey, _, err = p.Parse([]byte(`{"id":"helium"}`), lookupURL)
	require.ErrorIs(t, err, ErrNoPrice)
	assert.Equal(t, key, gotKey)

	_, _, err = p.Parse([]byte(`{"market_data":{"current_price":{"usd":1}}}`), lookupURL)
	require.ErrorIs(t, err, ErrNoPrice)

	_, _, err = p.Parse([]byte(`{}`), "http://cg.test/api/v3/coins/helium/history")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoPrice)
}

func TestBinance(t *testing.T) {
	p := mustProvider(t, Config{Source: model.SourceBinance, Currency: "usdt", BaseURL: "http://bn.test"})

	key := p.KeyFor(model.RewardRecord{Timestamp: time.Date(2020, 9, 24, 9, 25, 47, 0, time.UTC)})
	assert.Equal(t, DayKeyFromEpoch(1600905600), key)

	lookupURL := p.LookupURL(key)
	assert.Equal(t,
		"http://bn.test/api/v3/klines?endTime=1600992000000&interval=1d&limit=1&startTime=1600905600000&symbol=HNTUSDT",
		lookupURL,
	)

	body := `[[1600905600000,"1.0000","1.2000","0.9000","1.1500","1000.0",1600991999999,"1150.0",12,"500.0","575.0","0"]]`
	gotKey, price, err := p.Parse([]byte(body), lookupURL)
	require.NoError(t, err)
	assert.Equal(t, key, gotKey)
	assert.Equal(t, "1.15", price.String())

	gotKey, _, err = p.Parse([]byte(`[]`), lookupURL)
	require.ErrorIs(t, err, ErrNoPrice)
	assert.Equal(t, key, gotKey)

	_, _, err = p.Parse([]byte(`[[1600905600000,"1.0"]]`), lookupURL)
	require.Error(t, err)

	_, _, err = p.Parse([]byte(`{"code":-1121,"msg":"Invalid symbol."}`), lookupURL)
	require.Error(t, err)
}
