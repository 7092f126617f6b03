package forecast

import (
	"fmt"
	"math"

	"github.com/mgalanis/beacon/internal/domain"
)

// forecastSmoothing fits a Holt additive-trend exponential smoothing model
// (no seasonal component). Smoothing parameters are chosen by minimizing
// the in-sample sum of squared one-step-ahead errors over a parameter grid.
func (s *Service) forecastSmoothing(series []domain.SeriesPoint, periods int) (*Result, error) {
	n := len(series)
	if n < MinPointsRegression {
		return nil, fmt.Errorf("%w: exponential smoothing needs at least %d points, got %d", ErrInsufficientData, MinPointsRegression, n)
	}

	_, ys, dates := split(series)
	for _, v := range ys {
		if !isFinite(v) {
			return nil, fmt.Errorf("%w: series contains non-finite values", ErrModelFit)
		}
	}

	fit, err := fitHolt(ys)
	if err != nil {
		return nil, err
	}

	forecast := make([]float64, periods)
	for h := range forecast {
		forecast[h] = fit.level + float64(h+1)*fit.trend
	}

	return &Result{
		Method:      MethodSmoothing,
		FutureDates: futureDates(dates[n-1], periods),
		Forecast:    forecast,
		FitDates:    dates,
		Fitted:      fit.fitted,
	}, nil
}

// holtFit is the outcome of one Holt pass: one-step-ahead fitted values,
// final level/trend state, and the sum of squared errors.
type holtFit struct {
	fitted []float64
	level  float64
	trend  float64
	sse    float64
}

// fitHolt grid-searches the (alpha, beta) smoothing parameters and returns
// the pass with the lowest SSE. A degenerate series where no parameter pair
// yields a finite error is a model-fit failure.
func fitHolt(ys []float64) (*holtFit, error) {
	var best *holtFit
	bestSSE := math.Inf(1)

	for alpha := 0.05; alpha <= 0.951; alpha += 0.05 {
		for beta := 0.05; beta <= 0.951; beta += 0.05 {
			fit := holtPass(ys, alpha, beta)
			if !isFinite(fit.sse) {
				continue
			}
			if fit.sse < bestSSE {
				bestSSE = fit.sse
				best = fit
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: exponential smoothing did not converge on this series", ErrModelFit)
	}
	return best, nil
}

// holtPass runs Holt's linear method once with fixed parameters.
// Initialization: level = y[0], trend = y[1] - y[0]. The fitted value at
// each step is the one-step-ahead forecast from the previous state.
func holtPass(ys []float64, alpha, beta float64) *holtFit {
	level := ys[0]
	trend := ys[1] - ys[0]

	fitted := make([]float64, len(ys))
	var sse float64

	for t, y := range ys {
		pred := level + trend
		fitted[t] = pred

		err := y - pred
		sse += err * err

		prevLevel := level
		level = alpha*y + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}

	return &holtFit{
		fitted: fitted,
		level:  level,
		trend:  trend,
		sse:    sse,
	}
}
