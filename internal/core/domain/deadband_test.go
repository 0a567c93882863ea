package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDeadbandFirstValueAlwaysEmitted(t *testing.T) {
	deadband := NewDeadband(decimal.NewFromFloat(0.5))
	require.True(t, deadband.Observe(decimal.NewFromInt(50000)))
}

func TestDeadbandEmittedMovesAreAtLeastOneTick(t *testing.T) {
	tickSize := decimal.NewFromFloat(0.5)
	deadband := NewDeadband(tickSize)

	prices := []float64{
		50000, 50000.1, 50000.4, 50000.5, 50000.7, 50000.2, 49999.8, 50002,
	}
	emitted := make([]decimal.Decimal, 0, len(prices))
	for _, p := range prices {
		v := decimal.NewFromFloat(p)
		if deadband.Observe(v) {
			emitted = append(emitted, v)
		}
	}

	require.NotEmpty(t, emitted)
	require.True(t, emitted[0].Equal(decimal.NewFromInt(50000)))
	for i := 1; i < len(emitted); i++ {
		move := emitted[i].Sub(emitted[i-1]).Abs()
		require.True(
			t, move.GreaterThanOrEqual(tickSize),
			"emitted move %s smaller than tick %s", move, tickSize,
		)
	}
}

func TestDeadbandSuppressesSmallMoves(t *testing.T) {
	deadband := NewDeadband(decimal.NewFromInt(1))

	require.True(t, deadband.Observe(decimal.NewFromInt(100)))
	require.False(t, deadband.Observe(decimal.NewFromFloat(100.5)))
	// Reference did not advance on the suppressed value.
	require.True(t, deadband.Observe(decimal.NewFromInt(101)))
}

func TestDeadbandReset(t *testing.T) {
	deadband := NewDeadband(decimal.NewFromInt(1))

	require.True(t, deadband.Observe(decimal.NewFromInt(100)))
	require.False(t, deadband.Observe(decimal.NewFromInt(100)))

	deadband.Reset()
	require.True(t, deadband.Observe(decimal.NewFromInt(100)))
}
