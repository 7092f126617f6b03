package forecast

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// weeklyPattern sums to zero over one cycle, so the additive decomposition
// can recover it exactly from a clean trend + seasonality series.
var weeklyPattern = [7]float64{3, -2, 1, 0, -1, 2, -3}

func seasonalSeries(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = 10 + float64(i) + weeklyPattern[i%7]
	}
	return values
}

func TestSeasonal_MinimumHistory(t *testing.T) {
	svc := NewService(zerolog.Nop())

	_, err := svc.Forecast(series(seasonalSeries(29)...), 7, MethodSeasonal)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSeasonal_RecoversTrendAndPattern(t *testing.T) {
	svc := NewService(zerolog.Nop())

	// 35 points of y = 10 + i + pattern(i%7). The centered moving average
	// spans one full cycle, so the trend is exact on the interior and the
	// seasonal averages reproduce the pattern.
	result, err := svc.Forecast(series(seasonalSeries(35)...), 14, MethodSeasonal)
	require.NoError(t, err)

	assert.Equal(t, MethodSeasonal, result.Method)

	// The trend line is fit to the interior only (indices 3..31), so its
	// extrapolation restarts the index at the interior's length.
	interior := 35 - 2*(SeasonalPeriod/2)
	require.Len(t, result.Forecast, 14)
	for k, v := range result.Forecast {
		wantTrend := 13 + float64(interior+k)
		assert.InDelta(t, wantTrend+weeklyPattern[k%7], v, 1e-6, "forecast[%d]", k)
	}
}

func TestSeasonal_FitCoversTrimmedInterior(t *testing.T) {
	svc := NewService(zerolog.Nop())

	input := series(seasonalSeries(35)...)
	result, err := svc.Forecast(input, 7, MethodSeasonal)
	require.NoError(t, err)

	half := SeasonalPeriod / 2
	require.Len(t, result.FitDates, 35-2*half)
	require.Len(t, result.Fitted, 35-2*half)

	assert.Equal(t, input[half].Date, result.FitDates[0])
	assert.Equal(t, input[35-1-half].Date, result.FitDates[len(result.FitDates)-1])

	for i, v := range result.Fitted {
		orig := half + i
		assert.InDelta(t, 10+float64(orig)+weeklyPattern[orig%7], v, 1e-6, "fitted[%d]", i)
	}
}

func TestDecomposeAdditive(t *testing.T) {
	ys := seasonalSeries(35)
	trend, seasonal := decomposeAdditive(ys, 7)

	require.Len(t, trend, 35)
	require.Len(t, seasonal, 35)

	// Interior trend is the clean line; edges are undefined.
	for i := 3; i < 32; i++ {
		assert.InDelta(t, 10+float64(i), trend[i], 1e-9, "trend[%d]", i)
	}

	var cycleSum float64
	for p := 0; p < 7; p++ {
		cycleSum += seasonal[p]
		assert.InDelta(t, weeklyPattern[p], seasonal[p], 1e-9, "seasonal[%d]", p)
	}
	assert.InDelta(t, 0, cycleSum, 1e-9, "seasonal component sums to zero")
}

func TestSeasonal_LastCycleTiles(t *testing.T) {
	svc := NewService(zerolog.Nop())

	result, err := svc.Forecast(series(seasonalSeries(35)...), 14, MethodSeasonal)
	require.NoError(t, err)

	// Day k and day k+7 differ only by seven days of trend.
	for k := 0; k < 7; k++ {
		assert.InDelta(t, 7, result.Forecast[k+7]-result.Forecast[k], 1e-6)
	}
}
