// Package model defines domain models for reward ledger exports.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BonesPerToken is the number of indivisible units ("bones") in one token.
const BonesPerToken = 100_000_000

// UnknownGatewayName is shown for gateways whose name was not resolved.
const UnknownGatewayName = "unknown"

var bonesPerToken = decimal.NewFromInt(BonesPerToken)

// RewardRecord is a single ledger reward entry.
type RewardRecord struct {
	Account   string    `json:"account"`
	Gateway   string    `json:"gateway"`
	Block     uint64    `json:"block"`
	Amount    int64     `json:"amount"`
	Type      string    `json:"type"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
}

// DisplayAmount converts the bones amount into whole tokens.
func (r RewardRecord) DisplayAmount() decimal.Decimal {
	return BonesToTokens(r.Amount)
}

// BonesToTokens converts an amount of bones into whole tokens.
func BonesToTokens(bones int64) decimal.Decimal {
	return decimal.NewFromInt(bones).Div(bonesPerToken)
}

// RewardPage is one page of the ledger rewards listing.
type RewardPage struct {
	Data   []RewardRecord `json:"data"`
	Cursor string         `json:"cursor,omitempty"`
}

// Gateway is a hotspot as returned by the ledger.
type Gateway struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// JoinedRow is a reward enriched with its gateway name and price.
type JoinedRow struct {
	RewardRecord
	GatewayName    string
	Amount         decimal.Decimal
	Price          decimal.Decimal
	Value          decimal.Decimal
	PriceAvailable bool
}

// ExportedRow is a joined row tagged with the source and currency it was priced in.
type ExportedRow struct {
	JoinedRow
	Source   PriceSource
	Currency string
}

// Tag tags rows with the source and currency they were priced in.
func Tag(rows []JoinedRow, source PriceSource, currency string) []ExportedRow {
	out := make([]ExportedRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, ExportedRow{JoinedRow: row, Source: source, Currency: currency})
	}
	return out
}
