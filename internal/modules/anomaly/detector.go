// Package anomaly flags unusual points in a daily series using a rolling
// z-score scan.
package anomaly

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/mgalanis/beacon/internal/domain"
)

// Default detection parameters, matching the dashboard's initial controls.
const (
	DefaultWindow    = 7
	DefaultThreshold = 2.0
)

// Detector scans daily series for anomalies.
type Detector struct {
	log zerolog.Logger
}

// NewDetector creates a new anomaly detector
func NewDetector(log zerolog.Logger) *Detector {
	return &Detector{
		log: log.With().Str("service", "anomaly").Logger(),
	}
}

// Detect returns the points whose rolling z-score magnitude exceeds
// threshold. The statistic is computed over the trailing window including
// the current point, using the sample standard deviation. The first
// window-1 points have no defined statistic and are never flagged, and a
// constant window (zero deviation) never flags its point.
func (d *Detector) Detect(series []domain.SeriesPoint, window int, threshold float64) []domain.SeriesPoint {
	if window <= 0 {
		window = DefaultWindow
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	var anomalies []domain.SeriesPoint
	if len(series) < window {
		return anomalies
	}

	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}

	for i := window - 1; i < len(values); i++ {
		mean, std := stat.MeanStdDev(values[i-window+1:i+1], nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		z := (values[i] - mean) / std
		if math.Abs(z) > threshold {
			anomalies = append(anomalies, series[i])
		}
	}

	return anomalies
}
