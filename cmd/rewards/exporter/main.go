package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/metrics"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/export"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/httpclient"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/price"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/repository/clickhouse"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/service"
	"github.com/goodnatureofminers/blockinsight7000-rewards/pkg/batcher"
	"github.com/goodnatureofminers/blockinsight7000-rewards/pkg/workerpool"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type config struct {
	Addresses     []string      `long:"address" env:"REWARDS_EXPORTER_ADDRESSES" env-delim:"," required:"true" description:"account address to export (repeatable)"`
	Start         string        `long:"start" env:"REWARDS_EXPORTER_START" required:"true" description:"window start (RFC3339 or YYYY-MM-DD)"`
	End           string        `long:"end" env:"REWARDS_EXPORTER_END" required:"true" description:"window end (RFC3339 or YYYY-MM-DD)"`
	PriceSource   string        `long:"price-source" env:"REWARDS_EXPORTER_PRICE_SOURCE" default:"oracle" description:"price source: oracle, coingecko or binance.us"`
	Currency      string        `long:"currency" env:"REWARDS_EXPORTER_CURRENCY" default:"usd" description:"quote currency"`
	Precision     int32         `long:"precision" env:"REWARDS_EXPORTER_PRECISION" default:"2" description:"decimals for price and value"`
	RetryLimit    int           `long:"retry-limit" env:"REWARDS_EXPORTER_RETRY_LIMIT" default:"3" description:"failures tolerated per url"`
	RPS           int           `long:"rps" env:"REWARDS_EXPORTER_RPS" default:"0" description:"ledger requests per second, 0 is unlimited"`
	StrictRPS     int           `long:"strict-rps" env:"REWARDS_EXPORTER_STRICT_RPS" default:"5" description:"price requests per second for rate limited sources"`
	LedgerURL     string        `long:"ledger-url" env:"REWARDS_EXPORTER_LEDGER_URL" description:"ledger api base url"`
	OracleURL     string        `long:"oracle-url" env:"REWARDS_EXPORTER_ORACLE_URL" description:"oracle price api base url"`
	CoinGeckoURL  string        `long:"coingecko-url" env:"REWARDS_EXPORTER_COINGECKO_URL" description:"coingecko api base url"`
	BinanceURL    string        `long:"binance-url" env:"REWARDS_EXPORTER_BINANCE_URL" description:"binance.us api base url"`
	HTTPTimeout   time.Duration `long:"http-timeout" env:"REWARDS_EXPORTER_HTTP_TIMEOUT" default:"30s" description:"per request timeout"`
	Output        string        `long:"output" env:"REWARDS_EXPORTER_OUTPUT" default:"rewards-{address}.csv" description:"csv output path, {address} is replaced by the account"`
	Concurrency   int           `long:"concurrency" env:"REWARDS_EXPORTER_CONCURRENCY" default:"2" description:"accounts exported in parallel"`
	ClickhouseDSN string        `long:"clickhouse-dsn" env:"REWARDS_EXPORTER_CLICKHOUSE_DSN" description:"optional clickhouse dsn to store exported rows"`
	MetricsAddr   string        `long:"metrics-addr" env:"REWARDS_EXPORTER_METRICS_ADDR" description:"address to serve /metrics on"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg := config{}
	if _, err := flags.ParseArgs(&cfg, os.Args[1:]); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("Failed to parse arguments", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Export failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	req, err := cfg.window()
	if err != nil {
		return err
	}
	source, err := model.ParsePriceSource(cfg.PriceSource)
	if err != nil {
		return err
	}
	currency, ok := source.ResolveCurrency(cfg.Currency)
	if !ok {
		logger.Warn("Currency not supported by price source, using default",
			zap.String("currency", cfg.Currency),
			zap.String("source", string(source)),
			zap.String("default", currency),
		)
	}

	if cfg.MetricsAddr != "" {
		startMetricsServer(ctx, cfg.MetricsAddr, logger)
	}

	var sink *batcher.Batcher[model.ExportedRow]
	if cfg.ClickhouseDSN != "" {
		repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository())
		if err != nil {
			return fmt.Errorf("open clickhouse: %w", err)
		}
		defer func() {
			if err := repo.Close(); err != nil {
				logger.Error("Failed to close clickhouse", zap.Error(err))
			}
		}()
		sink = batcher.New(logger.Named("reward_rows_batcher"), repo.InsertRewardRows, batcher.Config{
			FlushSize:     1000,
			FlushInterval: time.Second,
		})
		sink.Start(ctx)
	}

	fetcher := httpclient.New(httpclient.Config{Timeout: cfg.HTTPTimeout}, metrics.NewHTTPClient())
	collectorMetrics := metrics.NewCollector()
	svcCfg := service.Config{
		LedgerURL: cfg.LedgerURL,
		Price: price.Config{
			Source:   source,
			Currency: currency,
			BaseURL:  cfg.priceURL(source),
		},
		Precision:  cfg.Precision,
		RetryLimit: cfg.RetryLimit,
		RPS:        cfg.RPS,
		StrictRPS:  cfg.StrictRPS,
	}
	opts := export.Options{Source: source, Currency: currency, Precision: cfg.Precision}
	multiple := len(cfg.Addresses) > 1

	exportErr := workerpool.Process(ctx, cfg.Concurrency, cfg.Addresses, func(ctx context.Context, address string) error {
		log := logger.With(zap.String("address", address))
		collector, err := service.NewCollector(svcCfg, fetcher, collectorMetrics, func(msg string) {
			log.Info(msg)
		}, log)
		if err != nil {
			return err
		}

		r := req
		r.Address = address
		rows, err := collector.Collect(ctx, r)
		if err != nil {
			return fmt.Errorf("collect %s: %w", address, err)
		}

		path := export.OutputPath(cfg.Output, address, multiple)
		if err := writeFile(path, rows, opts); err != nil {
			return err
		}
		log.Info("Wrote rewards", zap.String("path", path), zap.Int("rows", len(rows)))

		if sink != nil {
			if err := sink.AddAll(ctx, model.Tag(rows, source, currency)); err != nil {
				return fmt.Errorf("queue rows for %s: %w", address, err)
			}
		}
		return nil
	})

	if sink != nil {
		if err := sink.Stop(); err != nil {
			exportErr = errors.Join(exportErr, fmt.Errorf("store rows: %w", err))
		} else {
			logger.Info("Stored rows in clickhouse", zap.Int("rows", sink.Flushed()))
		}
	}
	return exportErr
}

func (c config) window() (service.Request, error) {
	start, err := parseTime(c.Start)
	if err != nil {
		return service.Request{}, fmt.Errorf("parse start: %w", err)
	}
	end, err := parseTime(c.End)
	if err != nil {
		return service.Request{}, fmt.Errorf("parse end: %w", err)
	}
	return service.Request{Start: start, End: end}, nil
}

func (c config) priceURL(source model.PriceSource) string {
	switch source {
	case model.SourceCoinGecko:
		return c.CoinGeckoURL
	case model.SourceBinance:
		return c.BinanceURL
	default:
		return c.OracleURL
	}
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func writeFile(path string, rows []model.JoinedRow, opts export.Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return export.WriteCSV(f, rows, opts)
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		if err := s.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shutdown metrics server", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("Starting metrics server", zap.String("addr", addr))
		if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
}
