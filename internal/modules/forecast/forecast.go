// Package forecast fits one of three statistical models to a daily sales
// series and projects future values.
//
// All failures are soft: insufficient history and model-fit problems come
// back as typed errors with readable reasons, never as panics. The fixed
// ±10% uncertainty band around a forecast is the caller's concern, not the
// engine's (see the dashboard module).
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/mgalanis/beacon/internal/domain"
)

// Method selects the forecasting strategy.
type Method string

const (
	MethodLinear    Method = "linear_regression"
	MethodSmoothing Method = "exponential_smoothing"
	MethodSeasonal  Method = "seasonal_decomposition"
)

// Minimum history per strategy. The seasonal decomposition needs enough
// data for several full weekly cycles around the trimmed edges.
const (
	MinPointsRegression = 10
	MinPointsSeasonal   = 30

	// SeasonalPeriod is the weekly cycle length of the decomposition.
	SeasonalPeriod = 7
)

// Soft failure conditions. Callers match with errors.Is and surface the
// message as an informational note, keeping the rest of the dashboard up.
var (
	ErrInsufficientData = errors.New("not enough data points for reliable forecasting")
	ErrModelFit         = errors.New("model fitting failed")
	ErrUnknownMethod    = errors.New("unknown forecasting method")
)

// ParseMethod converts a wire string into a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodLinear, MethodSmoothing, MethodSeasonal:
		return Method(s), nil
	case "":
		return MethodLinear, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Result is a successful forecast.
//
// FutureDates always holds exactly `periods` consecutive calendar days
// starting the day after the last historical date - no gaps, weekends
// included. Fitted/FitDates carry the in-sample model fit; for the seasonal
// method they cover a symmetric-trimmed interior of the input (the centered
// moving average drops SeasonalPeriod/2 points at each end), so FitDates is
// the authoritative alignment, not the input's date slice.
type Result struct {
	Method      Method      `json:"method"`
	FutureDates []time.Time `json:"future_dates"`
	Forecast    []float64   `json:"forecast"`
	FitDates    []time.Time `json:"fit_dates,omitempty"`
	Fitted      []float64   `json:"fitted,omitempty"`
}

// Service runs forecasts. It holds no state between calls.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new forecast service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "forecast").Logger(),
	}
}

// Forecast fits the selected model to the series and projects `periods`
// days past the last historical date. The series must be ascending by date
// with one point per day present in the data.
func (s *Service) Forecast(series []domain.SeriesPoint, periods int, method Method) (*Result, error) {
	if periods < 1 {
		return nil, fmt.Errorf("%w: periods must be positive, got %d", ErrModelFit, periods)
	}

	switch method {
	case MethodLinear:
		return s.forecastLinear(series, periods)
	case MethodSmoothing:
		return s.forecastSmoothing(series, periods)
	case MethodSeasonal:
		return s.forecastSeasonal(series, periods)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// forecastLinear fits an ordinary least-squares line against the zero-based
// sequence index and extrapolates it. Pure trend, no seasonality.
func (s *Service) forecastLinear(series []domain.SeriesPoint, periods int) (*Result, error) {
	n := len(series)
	if n < MinPointsRegression {
		return nil, fmt.Errorf("%w: linear regression needs at least %d points, got %d", ErrInsufficientData, MinPointsRegression, n)
	}

	xs, ys, dates := split(series)

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if !isFinite(alpha) || !isFinite(beta) {
		return nil, fmt.Errorf("%w: degenerate regression coefficients", ErrModelFit)
	}

	fitted := make([]float64, n)
	for i := range fitted {
		fitted[i] = alpha + beta*float64(i)
	}

	forecast := make([]float64, periods)
	for k := range forecast {
		forecast[k] = alpha + beta*float64(n+k)
	}

	return &Result{
		Method:      MethodLinear,
		FutureDates: futureDates(dates[n-1], periods),
		Forecast:    forecast,
		FitDates:    dates,
		Fitted:      fitted,
	}, nil
}

// futureDates generates `periods` consecutive calendar days starting the
// day after last.
func futureDates(last time.Time, periods int) []time.Time {
	out := make([]time.Time, periods)
	for i := range out {
		out[i] = last.AddDate(0, 0, i+1)
	}
	return out
}

// split separates a series into index, value and date slices.
func split(series []domain.SeriesPoint) (xs, ys []float64, dates []time.Time) {
	xs = make([]float64, len(series))
	ys = make([]float64, len(series))
	dates = make([]time.Time, len(series))
	for i, p := range series {
		xs[i] = float64(i)
		ys[i] = p.Value
		dates[i] = p.Date
	}
	return xs, ys, dates
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
