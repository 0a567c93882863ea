package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceSource answers one-off instantaneous price lookups from an external
// reference, independently of the broadcast stream.
type PriceSource interface {
	SpotPrice(ctx context.Context) (decimal.Decimal, error)
}
