// Package dashboard composes the analysis pipeline: filter the datasets,
// then compute KPIs, chart aggregates, anomalies, a forecast and customer
// insights in one pass. Compute is pure with respect to its inputs; the
// same dataset and options always produce the same view.
package dashboard

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mgalanis/beacon/internal/config"
	"github.com/mgalanis/beacon/internal/dataset"
	"github.com/mgalanis/beacon/internal/domain"
	"github.com/mgalanis/beacon/internal/modules/analytics"
	"github.com/mgalanis/beacon/internal/modules/anomaly"
	"github.com/mgalanis/beacon/internal/modules/filtering"
	"github.com/mgalanis/beacon/internal/modules/forecast"
	"github.com/mgalanis/beacon/internal/modules/insights"
	"github.com/mgalanis/beacon/internal/modules/kpi"
)

// Options are the user-tunable analysis parameters. Zero values fall back
// to the defaults; out-of-range values are clamped to the control bounds.
type Options struct {
	ComparisonDays   int             `json:"comparison_days"`
	AnomalyWindow    int             `json:"anomaly_window"`
	AnomalyThreshold float64         `json:"anomaly_threshold"`
	ForecastPeriods  int             `json:"forecast_periods"`
	ForecastMethod   forecast.Method `json:"forecast_method"`
}

// Clamp normalizes the options into their allowed ranges.
func (o Options) Clamp() Options {
	if o.ComparisonDays <= 0 {
		o.ComparisonDays = kpi.DefaultComparisonDays
	}

	if o.AnomalyWindow == 0 {
		o.AnomalyWindow = anomaly.DefaultWindow
	}
	o.AnomalyWindow = clampInt(o.AnomalyWindow, config.MinAnomalyWindow, config.MaxAnomalyWindow)

	if o.AnomalyThreshold == 0 {
		o.AnomalyThreshold = anomaly.DefaultThreshold
	}
	o.AnomalyThreshold = clampFloat(o.AnomalyThreshold, config.MinAnomalyThreshold, config.MaxAnomalyThreshold)

	if o.ForecastPeriods == 0 {
		o.ForecastPeriods = config.MinForecastPeriods
	}
	o.ForecastPeriods = clampInt(o.ForecastPeriods, config.MinForecastPeriods, config.MaxForecastPeriods)

	if o.ForecastMethod == "" {
		o.ForecastMethod = forecast.MethodLinear
	}

	return o
}

// ForecastView is a forecast with its fixed ±10% uncertainty band.
type ForecastView struct {
	Method      forecast.Method `json:"method"`
	FutureDates []time.Time     `json:"future_dates"`
	Forecast    []float64       `json:"forecast"`
	Lower       []float64       `json:"lower"`
	Upper       []float64       `json:"upper"`
	FitDates    []time.Time     `json:"fit_dates,omitempty"`
	Fitted      []float64       `json:"fitted,omitempty"`
}

// View is one complete dashboard computation.
//
// Soft failures (not enough history for the forecast, missing optional
// columns) land in the Notes map keyed by section instead of failing the
// whole view.
type View struct {
	GeneratedAt   time.Time                 `json:"generated_at"`
	DataLoadedAt  time.Time                 `json:"data_loaded_at"`
	Options       Options                   `json:"options"`
	FilteredRows  int                       `json:"filtered_rows"`
	KPIs          kpi.KpiSet                `json:"kpis"`
	DailySales    []domain.SeriesPoint      `json:"daily_sales"`
	MovingAverage []domain.SeriesPoint      `json:"moving_average,omitempty"`
	ByProduct     []analytics.CategoryTotal `json:"by_product"`
	ByRegion      []analytics.CategoryTotal `json:"by_region"`
	RegionMix     []analytics.MixEntry      `json:"region_mix"`
	Monthly       []analytics.CategoryTotal `json:"monthly"`
	Anomalies     []domain.SeriesPoint      `json:"anomalies"`
	Forecast      *ForecastView             `json:"forecast,omitempty"`
	Segments      []insights.SegmentCount   `json:"segments"`
	SalesPerCust  []insights.SegmentRatio   `json:"sales_per_customer"`
	Notes         map[string]string         `json:"notes,omitempty"`
}

// Service runs the dashboard pipeline.
type Service struct {
	filters   *filtering.Service
	kpis      *kpi.Service
	analytics *analytics.Service
	anomalies *anomaly.Detector
	forecasts *forecast.Service
	insights  *insights.Service
	log       zerolog.Logger
}

// NewService creates a new dashboard service
func NewService(
	filters *filtering.Service,
	kpis *kpi.Service,
	analyticsSvc *analytics.Service,
	anomalies *anomaly.Detector,
	forecasts *forecast.Service,
	insightsSvc *insights.Service,
	log zerolog.Logger,
) *Service {
	return &Service{
		filters:   filters,
		kpis:      kpis,
		analytics: analyticsSvc,
		anomalies: anomalies,
		forecasts: forecasts,
		insights:  insightsSvc,
		log:       log.With().Str("service", "dashboard").Logger(),
	}
}

// Compute filters the dataset and runs every analysis section.
func (s *Service) Compute(ds dataset.Dataset, sel domain.FilterSelection, opts Options) View {
	opts = opts.Clamp()

	sales, customers := s.filters.Apply(ds.Sales, ds.Customers, sel)

	view := View{
		GeneratedAt:  time.Now().UTC(),
		DataLoadedAt: ds.LoadedAt,
		Options:      opts,
		FilteredRows: len(sales.Records),
		KPIs:         s.kpis.Compute(sales, opts.ComparisonDays),
		ByProduct:    s.analytics.ProductTotals(sales),
		ByRegion:     s.analytics.RegionTotals(sales),
		RegionMix:    s.analytics.RegionProductMix(sales),
		Monthly:      s.analytics.MonthlySales(sales),
		Segments:     s.insights.SegmentCounts(customers),
		SalesPerCust: s.insights.SalesPerCustomer(sales, customers),
		Notes:        make(map[string]string),
	}

	daily := s.analytics.DailySeries(sales)
	view.DailySales = daily
	view.MovingAverage = s.analytics.MovingAverage(daily, analytics.MovingAverageWindow)
	view.Anomalies = s.anomalies.Detect(daily, opts.AnomalyWindow, opts.AnomalyThreshold)

	result, err := s.forecasts.Forecast(daily, opts.ForecastPeriods, opts.ForecastMethod)
	if err != nil {
		view.Notes["forecast"] = err.Error()
		s.log.Debug().Err(err).Str("method", string(opts.ForecastMethod)).Msg("Forecast unavailable")
	} else {
		view.Forecast = WithBand(result)
	}

	if len(view.Notes) == 0 {
		view.Notes = nil
	}

	return view
}

// WithBand wraps a forecast result with the fixed ±10% uncertainty band:
// upper = 1.1 x forecast, lower = 0.9 x forecast, point for point.
func WithBand(r *forecast.Result) *ForecastView {
	lower := make([]float64, len(r.Forecast))
	upper := make([]float64, len(r.Forecast))
	for i, v := range r.Forecast {
		lower[i] = v * 0.9
		upper[i] = v * 1.1
	}

	return &ForecastView{
		Method:      r.Method,
		FutureDates: r.FutureDates,
		Forecast:    r.Forecast,
		Lower:       lower,
		Upper:       upper,
		FitDates:    r.FitDates,
		Fitted:      r.Fitted,
	}
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
