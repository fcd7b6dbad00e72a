package transport

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/model"
	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/service"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Collector interface {
		Collect(ctx context.Context, req service.Request) ([]model.JoinedRow, error)
	}
	Metrics interface {
		Observe(route string, statusCode int, started time.Time)
	}
)

// CollectorFactory builds a collector for one request.
type CollectorFactory func(cfg service.Config) (Collector, error)
