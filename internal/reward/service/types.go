package service

import (
	"time"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/queue"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Metrics records collector activity and hands out per-queue metrics.
	Metrics interface {
		ObserveCollect(source string, rows int, err error, started time.Time)
		Queue(name string) queue.Metrics
	}
)
