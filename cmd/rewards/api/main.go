package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/metrics"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/httpclient"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/service"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/transport"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var config struct {
	Addr          string        `long:"addr" env:"REWARDS_API_ADDR" description:"addr" default:":8001"`
	Precision     int32         `long:"precision" env:"REWARDS_API_PRECISION" default:"2" description:"default decimals for price and value"`
	RetryLimit    int           `long:"retry-limit" env:"REWARDS_API_RETRY_LIMIT" default:"3" description:"failures tolerated per url"`
	RPS           int           `long:"rps" env:"REWARDS_API_RPS" default:"0" description:"ledger requests per second, 0 is unlimited"`
	StrictRPS     int           `long:"strict-rps" env:"REWARDS_API_STRICT_RPS" default:"5" description:"price requests per second for rate limited sources"`
	LedgerURL     string        `long:"ledger-url" env:"REWARDS_API_LEDGER_URL" description:"ledger api base url"`
	OracleURL     string        `long:"oracle-url" env:"REWARDS_API_ORACLE_URL" description:"oracle price api base url"`
	CoinGeckoURL  string        `long:"coingecko-url" env:"REWARDS_API_COINGECKO_URL" description:"coingecko api base url"`
	BinanceURL    string        `long:"binance-url" env:"REWARDS_API_BINANCE_URL" description:"binance.us api base url"`
	HTTPTimeout   time.Duration `long:"http-timeout" env:"REWARDS_API_HTTP_TIMEOUT" default:"30s" description:"outbound request timeout"`
	RequestTimeout time.Duration `long:"request-timeout" env:"REWARDS_API_REQUEST_TIMEOUT" default:"10m" description:"upper bound for one export request"`
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
	if _, err := flags.ParseArgs(&config, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("Failed to parse arguments", zap.Error(err))
	}

	fetcher := httpclient.New(httpclient.Config{Timeout: config.HTTPTimeout}, metrics.NewHTTPClient())
	collectorMetrics := metrics.NewCollector()
	newCollector := func(cfg service.Config) (transport.Collector, error) {
		cfg.Price.BaseURL = priceURL(cfg.Price.Source)
		return service.NewCollector(cfg, fetcher, collectorMetrics, nil, logger.Named("collector"))
	}
	defaults := service.Config{
		LedgerURL:  config.LedgerURL,
		Precision:  config.Precision,
		RetryLimit: config.RetryLimit,
		RPS:        config.RPS,
		StrictRPS:  config.StrictRPS,
	}

	mux := http.NewServeMux()
	transport.NewRewardsHandler(newCollector, defaults, metrics.NewHTTPHandler(), logger).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	s := &http.Server{
		Addr:              config.Addr,
		Handler:           http.TimeoutHandler(cors.Default().Handler(mux), config.RequestTimeout, "request timed out"),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", config.Addr))
		if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down the http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("HTTP server stopped with error", zap.Error(err))
	}
}

func priceURL(source model.PriceSource) string {
	switch source {
	case model.SourceCoinGecko:
		return config.CoinGeckoURL
	case model.SourceBinance:
		return config.BinanceURL
	default:
		return config.OracleURL
	}
}
