package forecast

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmoothing_MinimumHistory(t *testing.T) {
	svc := NewService(zerolog.Nop())

	_, err := svc.Forecast(linearSeries(9, 0, 1), 7, MethodSmoothing)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSmoothing_ConstantSeries(t *testing.T) {
	svc := NewService(zerolog.Nop())

	// Level 40, no trend: every parameter pair fits this exactly, so the
	// forecast is flat at 40.
	result, err := svc.Forecast(linearSeries(12, 40, 0), 5, MethodSmoothing)
	require.NoError(t, err)

	assert.Equal(t, MethodSmoothing, result.Method)
	require.Len(t, result.Forecast, 5)
	for _, v := range result.Forecast {
		assert.InDelta(t, 40, v, 1e-9)
	}
	for _, v := range result.Fitted {
		assert.InDelta(t, 40, v, 1e-9)
	}
}

func TestSmoothing_TrendingSeries(t *testing.T) {
	svc := NewService(zerolog.Nop())

	// y = 10 + 3i. The additive-trend model tracks a clean linear series
	// closely; the horizon keeps climbing by roughly the slope.
	result, err := svc.Forecast(linearSeries(20, 10, 3), 4, MethodSmoothing)
	require.NoError(t, err)

	require.Len(t, result.Forecast, 4)
	assert.InDelta(t, 10+3*20, result.Forecast[0], 1.5)

	step := result.Forecast[1] - result.Forecast[0]
	assert.InDelta(t, 3, step, 0.5)
	for i := 1; i < len(result.Forecast); i++ {
		assert.Greater(t, result.Forecast[i], result.Forecast[i-1])
		assert.InDelta(t, step, result.Forecast[i]-result.Forecast[i-1], 1e-9,
			"horizon climbs by the fitted trend each day")
	}
}

func TestHoltPass_OneStepAheadFitted(t *testing.T) {
	ys := []float64{10, 12, 14, 16}
	fit := holtPass(ys, 0.5, 0.5)

	// First prediction uses level=y0 and trend=y1-y0 before any update.
	assert.InDelta(t, 12, fit.fitted[0], 1e-9)
	require.Len(t, fit.fitted, 4)
	assert.True(t, fit.sse >= 0)
}
