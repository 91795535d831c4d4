package domain

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBreakdownWorkedExample(t *testing.T) {
	b, err := ComputeBreakdown(10000, NewCommissionRatePercent(10))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), b.CommissionAmount)
	assert.Equal(t, int64(9000), b.NetAmount)
	assert.Equal(t, int64(2700), b.AdvanceAmount)
	assert.Equal(t, int64(6300), b.FinalAmount)
}

func TestComputeBreakdownRounding(t *testing.T) {
	cases := []struct {
		name       string
		total      int64
		bps        int64
		commission int64
		advance    int64
		final      int64
	}{
		{name: "half rounds up", total: 5, bps: 1000, commission: 1, advance: 1, final: 3},
		{name: "fractional rate", total: 9999, bps: 1250, commission: 1250, advance: 2624, final: 6125},
		{name: "zero rate", total: 101, bps: 0, commission: 0, advance: 30, final: 71},
		{name: "full rate", total: 777, bps: 10000, commission: 777, advance: 0, final: 0},
		{name: "single unit", total: 1, bps: 1000, commission: 0, advance: 0, final: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := ComputeBreakdown(tc.total, CommissionRate{BasisPoints: tc.bps})
			require.NoError(t, err)
			assert.Equal(t, tc.commission, b.CommissionAmount)
			assert.Equal(t, tc.advance, b.AdvanceAmount)
			assert.Equal(t, tc.final, b.FinalAmount)
			assert.True(t, b.Reconciles())
		})
	}
}

func TestComputeBreakdownAlwaysReconciles(t *testing.T) {
	rng := rand.New(rand.NewSource(46))
	for i := 0; i < 20000; i++ {
		total := rng.Int63n(1_000_000_000_000) + 1
		rate := CommissionRate{BasisPoints: rng.Int63n(maxRateBasisPoints + 1)}
		b, err := ComputeBreakdown(total, rate)
		require.NoError(t, err)
		require.Truef(t, b.Reconciles(), "total=%d rate=%d breakdown=%+v", total, rate.BasisPoints, b)
		require.GreaterOrEqual(t, b.CommissionAmount, int64(0))
		require.GreaterOrEqual(t, b.AdvanceAmount, int64(0))
		require.GreaterOrEqual(t, b.FinalAmount, int64(0))
	}
}

func TestComputeBreakdownRejectsOutOfRange(t *testing.T) {
	_, err := ComputeBreakdown(0, NewCommissionRatePercent(10))
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = ComputeBreakdown(MaxTotalAmount+1, NewCommissionRatePercent(10))
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = ComputeBreakdown(100, CommissionRate{BasisPoints: 10001})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestParseCommissionRate(t *testing.T) {
	rate, err := ParseCommissionRate("12.5")
	require.NoError(t, err)
	assert.Equal(t, int64(1250), rate.BasisPoints)
	assert.Equal(t, "12.5", rate.String())

	for _, raw := range []string{"", "abc", "-1", "100.01", "1.005"} {
		_, err := ParseCommissionRate(raw)
		assert.ErrorIsf(t, err, ErrInvalidInput, "raw=%q", raw)
	}
}

func TestFormatMinor(t *testing.T) {
	assert.Equal(t, "INR 27.00", FormatMinor(2700, "INR"))
	assert.Equal(t, "JPY 2700", FormatMinor(2700, "jpy"))
	assert.Equal(t, "KWD 2.700", FormatMinor(2700, "KWD"))
	assert.Equal(t, "0.05", FormatMinor(5, ""))
	assert.Equal(t, "", NormalizeCurrency("rupees"))
	assert.Equal(t, "USD", NormalizeCurrency(" usd "))
}
