package model

import (
	"fmt"
	"slices"
	"strings"
)

// PriceSource selects where historical prices come from for a run.
type PriceSource string

var (
	// SourceOracle uses the on-chain oracle price published at block heights.
	SourceOracle PriceSource = "oracle"
	// SourceCoinGecko uses the CoinGecko daily historical price.
	SourceCoinGecko PriceSource = "coingecko"
	// SourceBinance uses the Binance.US daily candle close.
	SourceBinance PriceSource = "binance.us"
)

// DefaultCurrency is the quote currency every source supports.
const DefaultCurrency = "usd"

var sourceCurrencies = map[PriceSource][]string{
	SourceBinance: {"usd", "usdt"},
	SourceCoinGecko: {"aed", "ars", "aud", "bch", "bdt", "bhd", "bmd", "bnb", "brl", "btc", "cad", "chf", "clp", "cny",
		"czk", "dkk", "dot", "eos", "eth", "eur", "gbp", "hkd", "huf", "idr", "ils", "inr", "jpy", "krw", "kwd",
		"lkr", "ltc", "mmk", "mxn", "myr", "ngn", "nok", "nzd", "php", "pkr", "pln", "rub", "sar", "sek", "sgd",
		"thb", "try", "twd", "uah", "usd", "vef", "vnd", "xag", "xau", "xdr", "xlm", "xrp", "yfi", "zar", "link"},
	SourceOracle: {"usd"},
}

// ParsePriceSource maps a user supplied name to a PriceSource.
func ParsePriceSource(name string) (PriceSource, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(SourceOracle):
		return SourceOracle, nil
	case string(SourceCoinGecko):
		return SourceCoinGecko, nil
	case string(SourceBinance), "binance":
		return SourceBinance, nil
	default:
		return "", fmt.Errorf("unknown price source %q", name)
	}
}

// Label is the display name of the source.
func (s PriceSource) Label() string {
	switch s {
	case SourceOracle:
		return "Oracle"
	case SourceCoinGecko:
		return "CoinGecko"
	case SourceBinance:
		return "Binance.US"
	default:
		return string(s)
	}
}

// Currencies lists the quote currencies a source can price in.
func (s PriceSource) Currencies() []string {
	return slices.Clone(sourceCurrencies[s])
}

// Supports reports whether the source quotes in the currency.
func (s PriceSource) Supports(currency string) bool {
	return slices.Contains(sourceCurrencies[s], strings.ToLower(currency))
}

// ResolveCurrency returns the currency normalized to lower case, falling back
// to DefaultCurrency when the source does not quote in it.
func (s PriceSource) ResolveCurrency(currency string) (string, bool) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return DefaultCurrency, false
	}
	if s.Supports(currency) {
		return currency, true
	}
	return DefaultCurrency, false
}
