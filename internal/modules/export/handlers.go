package export

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mgalanis/beacon/internal/dataset"
	"github.com/mgalanis/beacon/internal/modules/analytics"
	"github.com/mgalanis/beacon/internal/modules/dashboard"
	"github.com/mgalanis/beacon/internal/modules/filtering"
	"github.com/mgalanis/beacon/internal/modules/forecast"
)

// Handlers handles CSV export HTTP requests
type Handlers struct {
	data      *dataset.Service
	filters   *filtering.Service
	analytics *analytics.Service
	forecasts *forecast.Service
	service   *Service
	log       zerolog.Logger
}

// NewHandlers creates new export handlers
func NewHandlers(
	data *dataset.Service,
	filters *filtering.Service,
	analyticsSvc *analytics.Service,
	forecasts *forecast.Service,
	service *Service,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		data:      data,
		filters:   filters,
		analytics: analyticsSvc,
		forecasts: forecasts,
		service:   service,
		log:       log.With().Str("handler", "export").Logger(),
	}
}

// RegisterRoutes registers all export routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/export", func(r chi.Router) {
		r.Get("/products.csv", h.HandleProductsCSV)
		r.Get("/forecast.csv", h.HandleForecastCSV)
	})
}

// HandleProductsCSV downloads the per-product totals of the filtered view.
func (h *Handlers) HandleProductsCSV(w http.ResponseWriter, r *http.Request) {
	sel, err := filtering.SelectionFromQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ds := h.data.Dataset(r.Context())
	sales, _ := h.filters.Apply(ds.Sales, ds.Customers, sel)
	totals := h.analytics.ProductTotals(sales)

	attachmentHeaders(w, "products.csv")
	if err := h.service.WriteProductTotals(w, totals); err != nil {
		h.log.Error().Err(err).Msg("Failed to stream product export")
	}
}

// HandleForecastCSV downloads the forecast table for the filtered view.
func (h *Handlers) HandleForecastCSV(w http.ResponseWriter, r *http.Request) {
	sel, err := filtering.SelectionFromQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts, err := dashboard.OptionsFromQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts = opts.Clamp()

	ds := h.data.Dataset(r.Context())
	sales, _ := h.filters.Apply(ds.Sales, ds.Customers, sel)
	daily := h.analytics.DailySeries(sales)

	result, err := h.forecasts.Forecast(daily, opts.ForecastPeriods, opts.ForecastMethod)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	attachmentHeaders(w, "forecast.csv")
	if err := h.service.WriteForecast(w, dashboard.WithBand(result)); err != nil {
		h.log.Error().Err(err).Msg("Failed to stream forecast export")
	}
}

func attachmentHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
