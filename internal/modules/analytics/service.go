// Package analytics computes the derived aggregates behind the sales
// charts: daily series, category totals, monthly buckets, heatmaps and
// column correlations.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/mgalanis/beacon/internal/domain"
)

// MovingAverageWindow is the smoothing window of the daily chart overlay.
const MovingAverageWindow = 7

// CategoryTotal is one (label, total) aggregate row.
type CategoryTotal struct {
	Label string  `json:"label"`
	Total float64 `json:"total"`
}

// MixEntry is one cell of a two-dimension aggregate (e.g. region x product).
type MixEntry struct {
	Region  string  `json:"region"`
	Product string  `json:"product"`
	Total   float64 `json:"total"`
}

// HeatmapCell is one Region x Hour sales sum.
type HeatmapCell struct {
	Region string  `json:"region"`
	Hour   int     `json:"hour"`
	Total  float64 `json:"total"`
}

// Correlation is a pair of numeric columns whose Pearson r magnitude
// exceeds the requested threshold.
type Correlation struct {
	Column1 string  `json:"col1"`
	Column2 string  `json:"col2"`
	R       float64 `json:"corr"`
}

// Service computes aggregates over a filtered sales view.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new analytics service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "analytics").Logger(),
	}
}

// DailySeries sums sales per calendar day, ascending by date. This is the
// input series for forecasting and anomaly detection.
func (s *Service) DailySeries(view domain.SalesTable) []domain.SeriesPoint {
	byDay := make(map[time.Time]float64)
	for _, rec := range view.Records {
		byDay[domain.Day(rec.Date)] += rec.Sales
	}

	series := make([]domain.SeriesPoint, 0, len(byDay))
	for day, total := range byDay {
		series = append(series, domain.SeriesPoint{Date: day, Value: total})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	return series
}

// MovingAverage returns the SMA overlay for a daily series, aligned to the
// input. The first window-1 points have no defined average and are omitted;
// the returned series starts at index window-1 of the input.
func (s *Service) MovingAverage(series []domain.SeriesPoint, window int) []domain.SeriesPoint {
	if window <= 0 {
		window = MovingAverageWindow
	}
	if len(series) < window {
		return nil
	}

	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}

	sma := talib.Sma(values, window)

	overlay := make([]domain.SeriesPoint, 0, len(series)-window+1)
	for i := window - 1; i < len(series); i++ {
		overlay = append(overlay, domain.SeriesPoint{Date: series[i].Date, Value: sma[i]})
	}
	return overlay
}

// ProductTotals sums sales per product, sorted descending by total.
func (s *Service) ProductTotals(view domain.SalesTable) []CategoryTotal {
	return sortedTotals(view, func(r domain.SalesRecord) string { return r.Product })
}

// RegionTotals sums sales per region, sorted descending by total.
func (s *Service) RegionTotals(view domain.SalesTable) []CategoryTotal {
	return sortedTotals(view, func(r domain.SalesRecord) string { return r.Region })
}

func sortedTotals(view domain.SalesTable, key func(domain.SalesRecord) string) []CategoryTotal {
	byKey := make(map[string]float64)
	for _, rec := range view.Records {
		byKey[key(rec)] += rec.Sales
	}

	totals := make([]CategoryTotal, 0, len(byKey))
	for label, total := range byKey {
		totals = append(totals, CategoryTotal{Label: label, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total != totals[j].Total {
			return totals[i].Total > totals[j].Total
		}
		return totals[i].Label < totals[j].Label
	})

	return totals
}

// RegionProductMix sums sales per (region, product) pair, sorted by region
// then product for stable output.
func (s *Service) RegionProductMix(view domain.SalesTable) []MixEntry {
	type pair struct{ region, product string }
	byPair := make(map[pair]float64)
	for _, rec := range view.Records {
		byPair[pair{rec.Region, rec.Product}] += rec.Sales
	}

	mix := make([]MixEntry, 0, len(byPair))
	for p, total := range byPair {
		mix = append(mix, MixEntry{Region: p.region, Product: p.product, Total: total})
	}
	sort.Slice(mix, func(i, j int) bool {
		if mix[i].Region != mix[j].Region {
			return mix[i].Region < mix[j].Region
		}
		return mix[i].Product < mix[j].Product
	})

	return mix
}

// MonthlySales sums sales per YYYY-MM bucket, ascending.
func (s *Service) MonthlySales(view domain.SalesTable) []CategoryTotal {
	byMonth := make(map[string]float64)
	for _, rec := range view.Records {
		byMonth[rec.Date.Format("2006-01")] += rec.Sales
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]CategoryTotal, 0, len(months))
	for _, m := range months {
		out = append(out, CategoryTotal{Label: m, Total: byMonth[m]})
	}
	return out
}

// HourlyHeatmap sums sales per (region, hour) cell. Returns an error when
// the view has no Hour column.
func (s *Service) HourlyHeatmap(view domain.SalesTable) ([]HeatmapCell, error) {
	if !view.HasHour {
		return nil, fmt.Errorf("sales data has no Hour column")
	}

	type cell struct {
		region string
		hour   int
	}
	byCell := make(map[cell]float64)
	for _, rec := range view.Records {
		if rec.Hour == nil {
			continue
		}
		byCell[cell{rec.Region, *rec.Hour}] += rec.Sales
	}

	cells := make([]HeatmapCell, 0, len(byCell))
	for c, total := range byCell {
		cells = append(cells, HeatmapCell{Region: c.region, Hour: c.hour, Total: total})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Region != cells[j].Region {
			return cells[i].Region < cells[j].Region
		}
		return cells[i].Hour < cells[j].Hour
	})

	return cells, nil
}

// FindCorrelations computes pairwise Pearson correlations over the numeric
// sales columns (Units, Sales, and Hour when present) and returns the pairs
// with |r| above the threshold. Fewer than two rows yields no results.
func (s *Service) FindCorrelations(view domain.SalesTable, threshold float64) []Correlation {
	if len(view.Records) < 2 {
		return nil
	}

	columns := map[string][]float64{
		"Units": make([]float64, 0, len(view.Records)),
		"Sales": make([]float64, 0, len(view.Records)),
	}
	names := []string{"Units", "Sales"}

	includeHour := view.HasHour
	if includeHour {
		for _, rec := range view.Records {
			if rec.Hour == nil {
				includeHour = false // incomplete column, leave it out
				break
			}
		}
	}
	if includeHour {
		columns["Hour"] = make([]float64, 0, len(view.Records))
		names = append(names, "Hour")
	}

	for _, rec := range view.Records {
		columns["Units"] = append(columns["Units"], float64(rec.Units))
		columns["Sales"] = append(columns["Sales"], rec.Sales)
		if includeHour {
			columns["Hour"] = append(columns["Hour"], float64(*rec.Hour))
		}
	}

	var out []Correlation
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			r := stat.Correlation(columns[names[i]], columns[names[j]], nil)
			if abs(r) > threshold && abs(r) <= 1 {
				out = append(out, Correlation{Column1: names[i], Column2: names[j], R: r})
			}
		}
	}

	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
