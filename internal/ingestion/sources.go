package ingestion

import (
	"context"

	"straddle-lab/internal/domain"
)

// TickSource provides live LTP ticks.
type TickSource interface {
	// Subscribe returns a channel of ticks. Ticks of one instrument arrive in
	// feed order, which may repeat or go backwards after a reconnect; Runner
	// drops those. The channel is closed when the source stops.
	Subscribe(ctx context.Context) (<-chan *domain.Tick, error)
}
