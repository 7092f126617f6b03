// Package kpi computes summary metrics and period-over-period trends from
// a filtered sales view.
package kpi

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mgalanis/beacon/internal/domain"
)

// DefaultComparisonDays is the default period length for trend comparison.
const DefaultComparisonDays = 30

// KpiSet holds the four headline metrics plus trend indicators.
// HasTrends distinguishes "no trend computable" from "0% change" - the
// presentation layer must not render a false zero when trends are absent.
type KpiSet struct {
	TotalSales     float64 `json:"total_sales"`
	TotalUnits     int     `json:"total_units"`
	TotalCustomers int     `json:"total_customers"`
	AvgSale        float64 `json:"avg_sale"`

	HasTrends      bool `json:"has_trends"`
	SalesTrend     int  `json:"sales_trend"`
	UnitsTrend     int  `json:"units_trend"`
	CustomersTrend int  `json:"customers_trend"`
	AvgSaleTrend   int  `json:"avg_sale_trend"`
}

// Service computes KPI sets.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new KPI service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "kpi").Logger(),
	}
}

// Compute calculates the KPI set for a filtered sales view. Trends compare
// the last comparisonDays against the comparisonDays immediately before
// them, and are only attempted when the view spans at least twice that.
func (s *Service) Compute(view domain.SalesTable, comparisonDays int) KpiSet {
	if comparisonDays <= 0 {
		comparisonDays = DefaultComparisonDays
	}

	set := KpiSet{}
	set.TotalSales, set.TotalUnits, set.TotalCustomers = totals(view.Records, view.HasCustomerID)
	set.AvgSale = safeRatio(set.TotalSales, float64(set.TotalUnits))

	if len(view.Records) == 0 {
		return set
	}

	minDate, maxDate := dateBounds(view.Records)
	spanDays := int(maxDate.Sub(minDate).Hours() / 24)
	if spanDays < 2*comparisonDays {
		return set
	}

	set.HasTrends = true

	// Current period: the trailing comparisonDays of the range.
	// Previous period: the comparisonDays immediately before it.
	cutoff := maxDate.AddDate(0, 0, -comparisonDays)
	prevStart := cutoff.AddDate(0, 0, -comparisonDays)

	var current, previous []domain.SalesRecord
	for _, rec := range view.Records {
		switch {
		case !rec.Date.Before(cutoff):
			current = append(current, rec)
		case !rec.Date.Before(prevStart):
			previous = append(previous, rec)
		}
	}

	curSales, curUnits, curCustomers := totals(current, view.HasCustomerID)
	prevSales, prevUnits, prevCustomers := totals(previous, view.HasCustomerID)

	curAvg := safeRatio(curSales, float64(curUnits))
	prevAvg := safeRatio(prevSales, float64(prevUnits))

	set.SalesTrend = percentChange(curSales, prevSales)
	set.UnitsTrend = percentChange(float64(curUnits), float64(prevUnits))
	set.CustomersTrend = percentChange(float64(curCustomers), float64(prevCustomers))
	set.AvgSaleTrend = percentChange(curAvg, prevAvg)

	return set
}

// totals sums sales and units, and counts distinct customer IDs when the
// column exists (0 otherwise).
func totals(records []domain.SalesRecord, hasCustomerID bool) (sales float64, units int, customers int) {
	var ids map[string]bool
	if hasCustomerID {
		ids = make(map[string]bool)
	}

	for _, rec := range records {
		sales += rec.Sales
		units += rec.Units
		if hasCustomerID && rec.CustomerID != "" {
			ids[rec.CustomerID] = true
		}
	}

	return sales, units, len(ids)
}

func dateBounds(records []domain.SalesRecord) (min, max time.Time) {
	min, max = records[0].Date, records[0].Date
	for _, rec := range records[1:] {
		if rec.Date.Before(min) {
			min = rec.Date
		}
		if rec.Date.After(max) {
			max = rec.Date
		}
	}
	return min, max
}

// safeRatio divides with a defined zero result on zero denominator.
func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// percentChange returns the integer-truncated percentage change. A zero
// previous value yields 0, which hides genuine new-from-zero growth - a
// known limitation carried over from the contract.
func percentChange(current, previous float64) int {
	if previous == 0 {
		return 0
	}
	return int((current - previous) / previous * 100)
}
