// Package export renders analysis results as downloadable CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/mgalanis/beacon/internal/domain"
	"github.com/mgalanis/beacon/internal/modules/analytics"
	"github.com/mgalanis/beacon/internal/modules/dashboard"
)

// Service writes CSV exports.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new export service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "export").Logger(),
	}
}

// WriteProductTotals writes a (product, total_sales) table.
func (s *Service) WriteProductTotals(w io.Writer, totals []analytics.CategoryTotal) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"product", "total_sales"}); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, t := range totals {
		row := []string{t.Label, formatFloat(t.Total)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteForecast writes a (date, forecast, lower, upper) table, one row per
// forecast day.
func (s *Service) WriteForecast(w io.Writer, fc *dashboard.ForecastView) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"date", "forecast", "lower", "upper"}); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for i, d := range fc.FutureDates {
		row := []string{
			d.Format(domain.DateLayout),
			formatFloat(fc.Forecast[i]),
			formatFloat(fc.Lower[i]),
			formatFloat(fc.Upper[i]),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
