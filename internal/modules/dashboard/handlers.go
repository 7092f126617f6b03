package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mgalanis/beacon/internal/dataset"
	"github.com/mgalanis/beacon/internal/domain"
	"github.com/mgalanis/beacon/internal/modules/filtering"
	"github.com/mgalanis/beacon/internal/modules/forecast"
)

// DefaultCorrelationThreshold is the minimum |r| reported by the
// correlations endpoint when the caller does not override it.
const DefaultCorrelationThreshold = 0.7

// Handlers handles dashboard and chart HTTP requests
type Handlers struct {
	data    *dataset.Service
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates new dashboard handlers
func NewHandlers(data *dataset.Service, service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		data:    data,
		service: service,
		log:     log.With().Str("handler", "dashboard").Logger(),
	}
}

// RegisterRoutes registers dashboard, sales and customer routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.HandleDashboard)

	r.Route("/sales", func(r chi.Router) {
		r.Get("/daily", h.HandleDailySales)
		r.Get("/products", h.HandleProductTotals)
		r.Get("/regions", h.HandleRegionTotals)
		r.Get("/mix", h.HandleRegionMix)
		r.Get("/monthly", h.HandleMonthlySales)
		r.Get("/heatmap", h.HandleHeatmap)
		r.Get("/correlations", h.HandleCorrelations)
		r.Get("/anomalies", h.HandleAnomalies)
	})

	r.Route("/customers", func(r chi.Router) {
		r.Get("/segments", h.HandleSegments)
		r.Get("/satisfaction", h.HandleSatisfaction)
		r.Get("/lifetime-value", h.HandleLifetimeValue)
		r.Get("/channels", h.HandleChannels)
		r.Get("/sales-per-customer", h.HandleSalesPerCustomer)
	})
}

// HandleDashboard recomputes the full dashboard view for the requested
// filter selection and options.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sel, err := filtering.SelectionFromQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts, err := OptionsFromQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ds := h.data.Dataset(r.Context())
	view := h.service.Compute(*ds, sel, opts)

	h.writeJSON(w, http.StatusOK, view)
}

// HandleDailySales returns the filtered daily sales series with its moving
// average overlay.
func (h *Handlers) HandleDailySales(w http.ResponseWriter, r *http.Request) {
	sales, ok := h.filteredSales(w, r)
	if !ok {
		return
	}

	daily := h.service.analytics.DailySeries(sales)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"daily":          daily,
		"moving_average": h.service.analytics.MovingAverage(daily, 0),
	})
}

// HandleProductTotals returns per-product sales totals.
func (h *Handlers) HandleProductTotals(w http.ResponseWriter, r *http.Request) {
	sales, ok := h.filteredSales(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.analytics.ProductTotals(sales))
}

// HandleRegionTotals returns per-region sales totals.
func (h *Handlers) HandleRegionTotals(w http.ResponseWriter, r *http.Request) {
	sales, ok := h.filteredSales(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.analytics.RegionTotals(sales))
}

// HandleRegionMix returns the region x product breakdown.
func (h *Handlers) HandleRegionMix(w http.ResponseWriter, r *http.Request) {
	sales, ok := h.filteredSales(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.analytics.RegionProductMix(sales))
}

// HandleMonthlySales returns per-month sales totals.
func (h *Handlers) HandleMonthlySales(w http.ResponseWriter, r *http.Request) {
	sales, ok := h.filteredSales(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.analytics.MonthlySales(sales))
}

// HandleHeatmap returns the region x hour heatmap, when the dataset has an
// Hour column.
func (h *Handlers) HandleHeatmap(w http.ResponseWriter, r *http.Request) {
	sales, ok := h.filteredSales(w, r)
	if !ok {
		return
	}

	cells, err := h.service.analytics.HourlyHeatmap(sales)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, cells)
}

// HandleCorrelations returns numeric column pairs correlated above the
// threshold (query param "threshold", default 0.7).
func (h *Handlers) HandleCorrelations(w http.ResponseWriter, r *http.Request) {
	sales, ok := h.filteredSales(w, r)
	if !ok {
		return
	}

	threshold := DefaultCorrelationThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed >= 1 {
			h.writeError(w, http.StatusBadRequest, "threshold must be a number in [0, 1)")
			return
		}
		threshold = parsed
	}

	h.writeJSON(w, http.StatusOK, h.service.analytics.FindCorrelations(sales, threshold))
}

// HandleAnomalies returns the anomalous points of the filtered daily series.
func (h *Handlers) HandleAnomalies(w http.ResponseWriter, r *http.Request) {
	sales, ok := h.filteredSales(w, r)
	if !ok {
		return
	}
	opts, err := OptionsFromQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts = opts.Clamp()

	daily := h.service.analytics.DailySeries(sales)
	anomalies := h.service.anomalies.Detect(daily, opts.AnomalyWindow, opts.AnomalyThreshold)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"window":    opts.AnomalyWindow,
		"threshold": opts.AnomalyThreshold,
		"anomalies": anomalies,
	})
}

// HandleSegments returns customer counts per segment.
func (h *Handlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	_, customers, ok := h.filtered(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.insights.SegmentCounts(customers))
}

// HandleSatisfaction returns mean satisfaction per segment.
func (h *Handlers) HandleSatisfaction(w http.ResponseWriter, r *http.Request) {
	_, customers, ok := h.filtered(w, r)
	if !ok {
		return
	}

	avgs, err := h.service.insights.SatisfactionBySegment(customers)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, avgs)
}

// HandleLifetimeValue returns mean lifetime value per segment.
func (h *Handlers) HandleLifetimeValue(w http.ResponseWriter, r *http.Request) {
	_, customers, ok := h.filtered(w, r)
	if !ok {
		return
	}

	avgs, err := h.service.insights.LifetimeValueBySegment(customers)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, avgs)
}

// HandleChannels returns customer counts per channel and segment.
func (h *Handlers) HandleChannels(w http.ResponseWriter, r *http.Request) {
	_, customers, ok := h.filtered(w, r)
	if !ok {
		return
	}

	cells, err := h.service.insights.ChannelSegmentCounts(customers)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, cells)
}

// HandleSalesPerCustomer relates filtered sales totals to segment sizes.
func (h *Handlers) HandleSalesPerCustomer(w http.ResponseWriter, r *http.Request) {
	sales, customers, ok := h.filtered(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.insights.SalesPerCustomer(sales, customers))
}

// OptionsFromQuery parses analysis options from query parameters. Absent
// parameters stay zero and fall back to defaults when clamped.
func OptionsFromQuery(q url.Values) (Options, error) {
	var opts Options
	var err error

	if opts.ComparisonDays, err = intParam(q, "comparison_days"); err != nil {
		return opts, err
	}
	if opts.AnomalyWindow, err = intParam(q, "anomaly_window"); err != nil {
		return opts, err
	}
	if opts.ForecastPeriods, err = intParam(q, "periods"); err != nil {
		return opts, err
	}

	if raw := q.Get("anomaly_threshold"); raw != "" {
		opts.AnomalyThreshold, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid anomaly_threshold %q", raw)
		}
	}

	method, err := forecast.ParseMethod(q.Get("method"))
	if err != nil {
		return opts, err
	}
	opts.ForecastMethod = method

	return opts, nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

// Helper methods

func (h *Handlers) filtered(w http.ResponseWriter, r *http.Request) (domain.SalesTable, domain.CustomerTable, bool) {
	sel, err := filtering.SelectionFromQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return domain.SalesTable{}, domain.CustomerTable{}, false
	}

	ds := h.data.Dataset(r.Context())
	sales, customers := h.service.filters.Apply(ds.Sales, ds.Customers, sel)
	return sales, customers, true
}

func (h *Handlers) filteredSales(w http.ResponseWriter, r *http.Request) (domain.SalesTable, bool) {
	sales, _, ok := h.filtered(w, r)
	return sales, ok
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
