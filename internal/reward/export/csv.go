// Package export renders joined reward rows for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
)

// AddressPlaceholder is replaced by the account address in output paths.
const AddressPlaceholder = "{address}"

// Options control the rendered columns.
type Options struct {
	Source    model.PriceSource
	Currency  string
	Precision int32
}

// Header returns the CSV column names.
func Header(opts Options) []string {
	return []string{
		"Timestamp",
		"Device",
		"Block",
		"Reward",
		opts.Source.Label() + " Price",
		strings.ToUpper(opts.Currency) + " Value",
		"Type",
		"Hash",
	}
}

// Record renders one row in column order.
func Record(row model.JoinedRow, opts Options) []string {
	return []string{
		row.Timestamp.UTC().Format(time.RFC3339),
		row.GatewayName,
		strconv.FormatUint(row.Block, 10),
		row.Amount.String(),
		row.Price.StringFixed(opts.Precision),
		row.Value.StringFixed(opts.Precision),
		row.Type,
		row.Hash,
	}
}

// WriteCSV writes the header and all rows.
func WriteCSV(w io.Writer, rows []model.JoinedRow, opts Options) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header(opts)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(Record(row, opts)); err != nil {
			return fmt.Errorf("write csv row %d: %w", row.Block, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// OutputPath expands the address placeholder. Without a placeholder and with
// more than one address, the address is inserted before the extension.
func OutputPath(template, address string, multiple bool) string {
	if strings.Contains(template, AddressPlaceholder) {
		return strings.ReplaceAll(template, AddressPlaceholder, address)
	}
	if !multiple {
		return template
	}
	if dot := strings.LastIndex(template, "."); dot > strings.LastIndex(template, "/") {
		return template[:dot] + "-" + address + template[dot:]
	}
	return template + "-" + address
}
