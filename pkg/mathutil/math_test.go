package mathutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	values := []decimal.Decimal{
		decimal.NewFromInt(100),
		decimal.NewFromInt(102),
		decimal.NewFromFloat(101.5),
	}
	mean := Mean(values)
	require.True(t, mean.Equal(decimal.NewFromFloat(101.16666667)), "got %s", mean)

	require.True(t, Mean(nil).IsZero())
	single := Mean([]decimal.Decimal{decimal.NewFromFloat(50000.5)})
	require.True(t, single.Equal(decimal.NewFromFloat(50000.5)))
}

func TestImbalance(t *testing.T) {
	ratio, ok := Imbalance(decimal.NewFromInt(5), decimal.NewFromInt(1))
	require.True(t, ok)
	require.True(t, ratio.Equal(decimal.NewFromFloat(0.83333333)), "got %s", ratio)

	ratio, ok = Imbalance(decimal.Zero, decimal.NewFromInt(3))
	require.True(t, ok)
	require.True(t, ratio.IsZero())

	_, ok = Imbalance(decimal.Zero, decimal.Zero)
	require.False(t, ok)
}
