// Package filtering produces filtered views of the sales and customer
// tables from a filter selection.
package filtering

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mgalanis/beacon/internal/domain"
)

// Service applies filter selections to the loaded tables.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new filtering service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "filtering").Logger(),
	}
}

// Apply returns filtered copies of both tables. An empty category set means
// "all included". Sales rows are filtered by date range, region and product;
// customer rows only by segment (customer counts are not time-indexed).
// Inputs are never mutated.
func (s *Service) Apply(sales domain.SalesTable, customers domain.CustomerTable, sel domain.FilterSelection) (domain.SalesTable, domain.CustomerTable) {
	regions := toSet(sel.Regions)
	products := toSet(sel.Products)
	segments := toSet(sel.Segments)

	salesView := domain.SalesTable{
		HasCustomerID: sales.HasCustomerID,
		HasHour:       sales.HasHour,
		HasChannel:    sales.HasChannel,
	}
	for _, rec := range sales.Records {
		if !inDateRange(rec.Date, sel.StartDate, sel.EndDate) {
			continue
		}
		if regions != nil && !regions[rec.Region] {
			continue
		}
		if products != nil && !products[rec.Product] {
			continue
		}
		salesView.Records = append(salesView.Records, rec)
	}

	customersView := domain.CustomerTable{
		HasSatisfaction:  customers.HasSatisfaction,
		HasLifetimeValue: customers.HasLifetimeValue,
		HasChannel:       customers.HasChannel,
		HasGeo:           customers.HasGeo,
	}
	for _, rec := range customers.Records {
		if segments != nil && !segments[rec.Segment] {
			continue
		}
		customersView.Records = append(customersView.Records, rec)
	}

	return salesView, customersView
}

// toSet returns nil for an empty selection, which Apply treats as "all".
func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// inDateRange checks start <= date <= end. Zero bounds are open-ended.
func inDateRange(date, start, end time.Time) bool {
	if !start.IsZero() && date.Before(domain.Day(start)) {
		return false
	}
	if !end.IsZero() && date.After(domain.Day(end)) {
		return false
	}
	return true
}
