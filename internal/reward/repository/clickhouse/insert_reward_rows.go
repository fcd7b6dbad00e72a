package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
)

const insertRewardRowsQuery = `
INSERT INTO reward_rows (
	account,
	gateway,
	gateway_name,
	block,
	timestamp,
	type,
	hash,
	amount,
	price_source,
	currency,
	price,
	value,
	price_available
) VALUES`

// InsertRewardRows stores exported rows in ClickHouse.
func (r *Repository) InsertRewardRows(ctx context.Context, rows []model.ExportedRow) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_reward_rows", err, start)
	}()

	if len(rows) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertRewardRowsQuery)
	if err != nil {
		return fmt.Errorf("prepare reward rows batch: %w", err)
	}

	for _, row := range rows {
		if err = batch.Append(
			row.Account,
			row.Gateway,
			row.GatewayName,
			row.Block,
			row.Timestamp.UTC(),
			row.Type,
			row.Hash,
			row.Amount,
			string(row.Source),
			row.Currency,
			row.Price,
			row.Value,
			row.PriceAvailable,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append reward row: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert reward rows: %w", err)
	}
	return nil
}
