package price

import "github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/queue"

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Pusher accepts queue entries.
	Pusher interface {
		Push(entry queue.Entry) bool
	}
)
