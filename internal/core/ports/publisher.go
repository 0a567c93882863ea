package ports

import "github.com/pricepulse-network/pricepulse-daemon/internal/core/domain"

// TickPublisher delivers finalized price ticks to every currently connected
// listener, best effort, with no retry or acknowledgment.
type TickPublisher interface {
	PublishTick(tick domain.PriceTick)
}
