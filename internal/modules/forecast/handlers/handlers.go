// Package handlers exposes the forecast engine over HTTP, including the
// per-product and comparative variants.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mgalanis/beacon/internal/dataset"
	"github.com/mgalanis/beacon/internal/domain"
	"github.com/mgalanis/beacon/internal/modules/analytics"
	"github.com/mgalanis/beacon/internal/modules/dashboard"
	"github.com/mgalanis/beacon/internal/modules/filtering"
	"github.com/mgalanis/beacon/internal/modules/forecast"
)

// MaxCompareDimensions caps how many regions or products the comparative
// forecast runs the pipeline for.
const MaxCompareDimensions = 5

// ComparativeForecast is one dimension's entry in a comparative forecast.
// Dimensions whose history cannot support a model carry a note instead of
// a forecast.
type ComparativeForecast struct {
	Dimension string                  `json:"dimension"`
	Forecast  *dashboard.ForecastView `json:"forecast,omitempty"`
	Note      string                  `json:"note,omitempty"`
}

// Handlers handles forecast HTTP requests
type Handlers struct {
	data      *dataset.Service
	filters   *filtering.Service
	analytics *analytics.Service
	forecasts *forecast.Service
	log       zerolog.Logger
}

// NewHandlers creates new forecast handlers
func NewHandlers(
	data *dataset.Service,
	filters *filtering.Service,
	analyticsSvc *analytics.Service,
	forecasts *forecast.Service,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		data:      data,
		filters:   filters,
		analytics: analyticsSvc,
		forecasts: forecasts,
		log:       log.With().Str("handler", "forecast").Logger(),
	}
}

// RegisterRoutes registers all forecast routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/forecast", func(r chi.Router) {
		r.Get("/", h.HandleForecast)
		r.Get("/product/{product}", h.HandleProductForecast)
		r.Get("/compare", h.HandleCompare)
	})
}

// HandleForecast forecasts the filtered daily sales series.
func (h *Handlers) HandleForecast(w http.ResponseWriter, r *http.Request) {
	sales, opts, ok := h.request(w, r)
	if !ok {
		return
	}

	daily := h.analytics.DailySeries(sales)
	result, err := h.forecasts.Forecast(daily, opts.ForecastPeriods, opts.ForecastMethod)
	if err != nil {
		h.writeForecastError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, dashboard.WithBand(result))
}

// HandleProductForecast forecasts a single product's daily sales.
func (h *Handlers) HandleProductForecast(w http.ResponseWriter, r *http.Request) {
	sales, opts, ok := h.request(w, r)
	if !ok {
		return
	}

	product := chi.URLParam(r, "product")
	subset := restrict(sales, func(rec domain.SalesRecord) bool { return rec.Product == product })
	if len(subset.Records) == 0 {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("no sales data for product %q", product))
		return
	}

	daily := h.analytics.DailySeries(subset)
	result, err := h.forecasts.Forecast(daily, opts.ForecastPeriods, opts.ForecastMethod)
	if err != nil {
		h.writeForecastError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"product":  product,
		"forecast": dashboard.WithBand(result),
	})
}

// HandleCompare runs the forecast pipeline per region or per product
// (query param "by", default product), for the top dimensions by total
// sales. Dimensions without enough history are reported with a note, not
// dropped silently.
func (h *Handlers) HandleCompare(w http.ResponseWriter, r *http.Request) {
	sales, opts, ok := h.request(w, r)
	if !ok {
		return
	}

	by := r.URL.Query().Get("by")
	if by == "" {
		by = "product"
	}

	var totals []analytics.CategoryTotal
	var match func(domain.SalesRecord, string) bool
	switch by {
	case "product":
		totals = h.analytics.ProductTotals(sales)
		match = func(rec domain.SalesRecord, dim string) bool { return rec.Product == dim }
	case "region":
		totals = h.analytics.RegionTotals(sales)
		match = func(rec domain.SalesRecord, dim string) bool { return rec.Region == dim }
	default:
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("compare dimension must be region or product, got %q", by))
		return
	}

	if len(totals) > MaxCompareDimensions {
		totals = totals[:MaxCompareDimensions]
	}

	out := make([]ComparativeForecast, 0, len(totals))
	for _, t := range totals {
		dim := t.Label
		subset := restrict(sales, func(rec domain.SalesRecord) bool { return match(rec, dim) })
		daily := h.analytics.DailySeries(subset)

		result, err := h.forecasts.Forecast(daily, opts.ForecastPeriods, opts.ForecastMethod)
		if err != nil {
			out = append(out, ComparativeForecast{Dimension: dim, Note: err.Error()})
			continue
		}
		out = append(out, ComparativeForecast{Dimension: dim, Forecast: dashboard.WithBand(result)})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"by":      by,
		"results": out,
	})
}

// request parses the common filter + options query surface and returns the
// filtered sales table.
func (h *Handlers) request(w http.ResponseWriter, r *http.Request) (domain.SalesTable, dashboard.Options, bool) {
	sel, err := filtering.SelectionFromQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return domain.SalesTable{}, dashboard.Options{}, false
	}
	opts, err := dashboard.OptionsFromQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return domain.SalesTable{}, dashboard.Options{}, false
	}
	opts = opts.Clamp()

	ds := h.data.Dataset(r.Context())
	sales, _ := h.filters.Apply(ds.Sales, ds.Customers, sel)

	return sales, opts, true
}

func restrict(sales domain.SalesTable, keep func(domain.SalesRecord) bool) domain.SalesTable {
	out := domain.SalesTable{
		HasCustomerID: sales.HasCustomerID,
		HasHour:       sales.HasHour,
		HasChannel:    sales.HasChannel,
	}
	for _, rec := range sales.Records {
		if keep(rec) {
			out.Records = append(out.Records, rec)
		}
	}
	return out
}

// writeForecastError maps engine failures onto HTTP statuses: soft data and
// fit problems come back as 422, unknown methods as 400.
func (h *Handlers) writeForecastError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, forecast.ErrUnknownMethod):
		status = http.StatusBadRequest
	case errors.Is(err, forecast.ErrInsufficientData), errors.Is(err, forecast.ErrModelFit):
		status = http.StatusUnprocessableEntity
	}
	h.writeError(w, status, err.Error())
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
