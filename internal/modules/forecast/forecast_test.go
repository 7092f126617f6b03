package forecast

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgalanis/beacon/internal/domain"
)

func series(values ...float64) []domain.SeriesPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.SeriesPoint, len(values))
	for i, v := range values {
		out[i] = domain.SeriesPoint{Date: start.AddDate(0, 0, i), Value: v}
	}
	return out
}

func linearSeries(n int, intercept, slope float64) []domain.SeriesPoint {
	values := make([]float64, n)
	for i := range values {
		values[i] = intercept + slope*float64(i)
	}
	return series(values...)
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"linear_regression", MethodLinear, false},
		{"exponential_smoothing", MethodSmoothing, false},
		{"seasonal_decomposition", MethodSeasonal, false},
		{"", MethodLinear, false},
		{"arima", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownMethod, "ParseMethod(%q)", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestForecast_UnknownMethod(t *testing.T) {
	svc := NewService(zerolog.Nop())

	_, err := svc.Forecast(linearSeries(20, 0, 1), 7, Method("prophet"))
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestForecast_InvalidPeriods(t *testing.T) {
	svc := NewService(zerolog.Nop())

	_, err := svc.Forecast(linearSeries(20, 0, 1), 0, MethodLinear)
	assert.Error(t, err)
}

func TestLinear_PerfectFit(t *testing.T) {
	svc := NewService(zerolog.Nop())

	// y = i+1 for i in 0..19; the line continues at 21, 22, ...
	result, err := svc.Forecast(linearSeries(20, 1, 1), 5, MethodLinear)
	require.NoError(t, err)

	assert.Equal(t, MethodLinear, result.Method)
	require.Len(t, result.Forecast, 5)
	for k, v := range result.Forecast {
		assert.InDelta(t, float64(21+k), v, 1e-9)
	}
	for i, v := range result.Fitted {
		assert.InDelta(t, float64(i+1), v, 1e-9)
	}
}

func TestLinear_StepSeries(t *testing.T) {
	svc := NewService(zerolog.Nop())

	result, err := svc.Forecast(linearSeries(10, 100, 10), 3, MethodLinear)
	require.NoError(t, err)

	require.Len(t, result.Forecast, 3)
	assert.InDelta(t, 200, result.Forecast[0], 1e-9)
	assert.InDelta(t, 210, result.Forecast[1], 1e-9)
	assert.InDelta(t, 220, result.Forecast[2], 1e-9)
}

func TestLinear_MinimumHistory(t *testing.T) {
	svc := NewService(zerolog.Nop())

	_, err := svc.Forecast(linearSeries(9, 0, 1), 7, MethodLinear)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = svc.Forecast(linearSeries(10, 0, 1), 7, MethodLinear)
	assert.NoError(t, err)
}

func TestForecast_FutureDatesAreContiguous(t *testing.T) {
	svc := NewService(zerolog.Nop())

	input := linearSeries(15, 50, 2)
	last := input[len(input)-1].Date

	for _, method := range []Method{MethodLinear, MethodSmoothing} {
		result, err := svc.Forecast(input, 10, method)
		require.NoError(t, err, "method %s", method)

		require.Len(t, result.FutureDates, 10)
		assert.Equal(t, last.AddDate(0, 0, 1), result.FutureDates[0])
		for i := 1; i < len(result.FutureDates); i++ {
			assert.Equal(t, result.FutureDates[i-1].AddDate(0, 0, 1), result.FutureDates[i],
				"dates must advance one day at a time, weekends included")
		}
	}
}
