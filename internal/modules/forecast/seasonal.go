package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/mgalanis/beacon/internal/domain"
)

// forecastSeasonal decomposes the series additively into trend + weekly
// seasonal + residual, extrapolates the trend with OLS, and tiles the last
// complete seasonal cycle over the horizon.
//
// The centered moving average leaves SeasonalPeriod/2 undefined points at
// each end (symmetric trim), so the in-sample fit covers only the interior
// of the input and carries its own aligned FitDates.
func (s *Service) forecastSeasonal(series []domain.SeriesPoint, periods int) (*Result, error) {
	n := len(series)
	if n < MinPointsSeasonal {
		return nil, fmt.Errorf("%w: seasonal decomposition needs at least %d points, got %d", ErrInsufficientData, MinPointsSeasonal, n)
	}

	_, ys, dates := split(series)
	for _, v := range ys {
		if !isFinite(v) {
			return nil, fmt.Errorf("%w: series contains non-finite values", ErrModelFit)
		}
	}

	trend, seasonal := decomposeAdditive(ys, SeasonalPeriod)

	// Defined trend values: indices [half, n-1-half].
	half := SeasonalPeriod / 2
	trendVals := trend[half : n-half]
	m := len(trendVals)

	// Fit a line to the trend component only (matching the linear strategy).
	xs := make([]float64, m)
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, trendVals, nil, false)
	if !isFinite(alpha) || !isFinite(beta) {
		return nil, fmt.Errorf("%w: degenerate trend regression", ErrModelFit)
	}

	// Seasonal forecast: repeat the last complete cycle, truncated to the
	// horizon. The cycle is re-used as-is, not re-estimated.
	lastCycle := seasonal[n-SeasonalPeriod:]

	forecast := make([]float64, periods)
	for k := range forecast {
		forecast[k] = alpha + beta*float64(m+k) + lastCycle[k%SeasonalPeriod]
	}

	// In-sample comparison: trend + seasonal on the defined interior.
	fitted := make([]float64, m)
	for i := range fitted {
		fitted[i] = trendVals[i] + seasonal[half+i]
	}

	return &Result{
		Method:      MethodSeasonal,
		FutureDates: futureDates(dates[n-1], periods),
		Forecast:    forecast,
		FitDates:    dates[half : n-half],
		Fitted:      fitted,
	}, nil
}

// decomposeAdditive splits ys into a centered-moving-average trend (NaN at
// the trimmed edges) and a periodic seasonal component. The seasonal values
// are the de-meaned averages of the detrended series per cycle position,
// repeated across the full length.
func decomposeAdditive(ys []float64, period int) (trend, seasonal []float64) {
	n := len(ys)
	half := period / 2

	trend = make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}
	for i := half; i < n-half; i++ {
		var sum float64
		for j := i - half; j <= i+half; j++ {
			sum += ys[j]
		}
		trend[i] = sum / float64(period)
	}

	// Average the detrended series per cycle position.
	sums := make([]float64, period)
	counts := make([]int, period)
	for i := half; i < n-half; i++ {
		pos := i % period
		sums[pos] += ys[i] - trend[i]
		counts[pos]++
	}

	avgs := make([]float64, period)
	var total float64
	for p := range avgs {
		if counts[p] > 0 {
			avgs[p] = sums[p] / float64(counts[p])
		}
		total += avgs[p]
	}

	// De-mean so the seasonal component sums to zero over one cycle.
	mean := total / float64(period)
	for p := range avgs {
		avgs[p] -= mean
	}

	seasonal = make([]float64, n)
	for i := range seasonal {
		seasonal[i] = avgs[i%period]
	}

	return trend, seasonal
}
