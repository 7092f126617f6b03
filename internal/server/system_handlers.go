package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mgalanis/beacon/internal/domain"
)

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// handleSystemStatus reports memory/CPU usage and dataset freshness.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := s.getSystemStats()

	ds := s.deps.Data.Dataset(r.Context())

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cpu_percent":    cpuPercent,
		"memory_percent": memPercent,
		"data_loaded_at": ds.LoadedAt,
		"sales_rows":     len(ds.Sales.Records),
		"customer_rows":  len(ds.Customers.Records),
	})
}

// getSystemStats returns CPU and memory usage percentages. Failures fall
// back to zero rather than failing the status endpoint.
func (s *Server) getSystemStats() (float64, float64) {
	var cpuUsage, memUsage float64

	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err == nil && len(cpuPercent) > 0 {
		cpuUsage = cpuPercent[0]
	} else if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read CPU usage")
	}

	memStat, err := mem.VirtualMemory()
	if err == nil {
		memUsage = memStat.UsedPercent
	} else {
		s.log.Warn().Err(err).Msg("Failed to read memory usage")
	}

	return cpuUsage, memUsage
}

// handleMeta returns the filterable dimension values and date bounds of
// the loaded dataset, for populating filter controls.
func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	ds := s.deps.Data.Dataset(r.Context())

	regions := make(map[string]bool)
	products := make(map[string]bool)
	var minDate, maxDate time.Time
	for _, rec := range ds.Sales.Records {
		regions[rec.Region] = true
		products[rec.Product] = true
		if minDate.IsZero() || rec.Date.Before(minDate) {
			minDate = rec.Date
		}
		if rec.Date.After(maxDate) {
			maxDate = rec.Date
		}
	}

	segments := make(map[string]bool)
	for _, rec := range ds.Customers.Records {
		segments[rec.Segment] = true
	}

	meta := map[string]interface{}{
		"regions":  sortedKeys(regions),
		"products": sortedKeys(products),
		"segments": sortedKeys(segments),
	}
	if !minDate.IsZero() {
		meta["start_date"] = minDate.Format(domain.DateLayout)
		meta["end_date"] = maxDate.Format(domain.DateLayout)
	}

	s.writeJSON(w, http.StatusOK, meta)
}

// handleRefresh reloads the dataset on demand.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ds, err := s.deps.Data.Refresh(r.Context(), "manual")
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"loaded_at":     ds.LoadedAt,
		"sales_rows":    len(ds.Sales.Records),
		"customer_rows": len(ds.Customers.Records),
	})
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
