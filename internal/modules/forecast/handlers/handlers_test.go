package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgalanis/beacon/internal/dataset"
	"github.com/mgalanis/beacon/internal/events"
	"github.com/mgalanis/beacon/internal/modules/analytics"
	"github.com/mgalanis/beacon/internal/modules/filtering"
	"github.com/mgalanis/beacon/internal/modules/forecast"
)

// testRouter serves 40 days of clean daily history for two products, which
// is enough for every forecasting method's minimum.
func testRouter(t *testing.T) *chi.Mux {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("Date,Region,Product,Units,Sales\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		fmt.Fprintf(&sb, "%s,North,Widget,1,%d\n", date, 100+i)
		fmt.Fprintf(&sb, "%s,South,Gadget,1,%d\n", date, 200+2*i)
	}

	dir := t.TempDir()
	salesPath := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(salesPath, []byte(sb.String()), 0o644))
	customersPath := filepath.Join(dir, "customers.csv")
	require.NoError(t, os.WriteFile(customersPath, []byte("Segment,Customer Count\nPremium,10\n"), 0o644))

	log := zerolog.Nop()
	loader := dataset.NewLoader(salesPath, customersPath, log)
	data := dataset.NewService(loader, dataset.NewCache(time.Hour), nil, events.NewBus(log), log)
	_, err := data.Refresh(context.Background(), "startup")
	require.NoError(t, err)

	h := NewHandlers(data, filtering.NewService(log), analytics.NewService(log), forecast.NewService(log), log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.RegisterRoutes(r)
	})
	return r
}

func get(router *chi.Mux, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleForecast(t *testing.T) {
	router := testRouter(t)

	w := get(router, "/api/forecast/?periods=7")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Method   string    `json:"method"`
		Forecast []float64 `json:"forecast"`
		Lower    []float64 `json:"lower"`
		Upper    []float64 `json:"upper"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "linear_regression", resp.Method)
	require.Len(t, resp.Forecast, 7)
	for i, v := range resp.Forecast {
		assert.InDelta(t, v*1.1, resp.Upper[i], 1e-9)
		assert.InDelta(t, v*0.9, resp.Lower[i], 1e-9)
	}
}

func TestHandleForecast_BadMethod(t *testing.T) {
	router := testRouter(t)

	w := get(router, "/api/forecast/?method=prophet")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleProductForecast(t *testing.T) {
	router := testRouter(t)

	w := get(router, "/api/forecast/product/Widget?periods=7")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Product  string `json:"product"`
		Forecast struct {
			Forecast []float64 `json:"forecast"`
		} `json:"forecast"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Widget", resp.Product)
	require.Len(t, resp.Forecast.Forecast, 7)
	// Widget sells 100 + i per day; the line continues at day 40.
	assert.InDelta(t, 140, resp.Forecast.Forecast[0], 1e-6)
}

func TestHandleProductForecast_Unknown(t *testing.T) {
	router := testRouter(t)

	w := get(router, "/api/forecast/product/Nothing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCompare(t *testing.T) {
	router := testRouter(t)

	w := get(router, "/api/forecast/compare?by=product&periods=7")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		By      string                `json:"by"`
		Results []ComparativeForecast `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "product", resp.By)
	require.Len(t, resp.Results, 2)
	// Ordered by total sales: Gadget outsells Widget.
	assert.Equal(t, "Gadget", resp.Results[0].Dimension)
	assert.Equal(t, "Widget", resp.Results[1].Dimension)
	for _, res := range resp.Results {
		assert.NotNil(t, res.Forecast, "both products have enough history")
		assert.Empty(t, res.Note)
	}
}

func TestHandleCompare_BadDimension(t *testing.T) {
	router := testRouter(t)

	w := get(router, "/api/forecast/compare?by=channel")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
