package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/quantfold/sectorscope/internal/correlation"
	"github.com/quantfold/sectorscope/internal/domain"
	"github.com/quantfold/sectorscope/internal/labels"
	"github.com/quantfold/sectorscope/internal/reports"
	"github.com/quantfold/sectorscope/internal/store"
)

type handlers struct {
	store   *store.CSVStore
	refresh RefreshFunc
	views   []string
	topN    int
	startup time.Time
	log     zerolog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// health reports uptime and host resource usage.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startup).Seconds()),
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp["memory_used_percent"] = vm.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		resp["cpu_percent"] = percents[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

// listViews reports the configured views and whether their artifacts exist.
func (h *handlers) listViews(w http.ResponseWriter, r *http.Request) {
	type viewInfo struct {
		Name      string `json:"name"`
		Title     string `json:"title"`
		Available bool   `json:"available"`
	}
	out := make([]viewInfo, 0, len(h.views))
	for _, v := range h.views {
		name := store.CorrelationName(v)
		_, err := os.Stat(h.store.Path(name))
		out = append(out, viewInfo{
			Name:      v,
			Title:     reports.DeriveTitle(name),
			Available: err == nil,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// matrixResponse is the JSON shape of a correlation matrix. NaN is not
// representable in JSON, so undefined cells are nulls.
type matrixResponse struct {
	Symbols []string     `json:"symbols"`
	Labels  []string     `json:"labels"`
	Values  [][]*float64 `json:"values"`
}

func toMatrixResponse(m *correlation.Matrix) matrixResponse {
	values := make([][]*float64, m.Size())
	for i := range m.Values {
		values[i] = make([]*float64, m.Size())
		for j, v := range m.Values[i] {
			if !math.IsNaN(v) {
				val := v
				values[i][j] = &val
			}
		}
	}
	return matrixResponse{
		Symbols: m.Symbols,
		Labels:  labels.Sectors(m.Symbols),
		Values:  values,
	}
}

func (h *handlers) loadMatrix(w http.ResponseWriter, view string) (*correlation.Matrix, bool) {
	m, err := h.store.LoadMatrix(store.CorrelationName(view))
	if err != nil {
		var shapeErr *domain.ShapeMismatchError
		if errors.As(err, &shapeErr) {
			writeError(w, http.StatusInternalServerError, err.Error())
		} else {
			writeError(w, http.StatusNotFound, "no artifact for view "+view)
		}
		return nil, false
	}
	return m, true
}

func (h *handlers) matrix(w http.ResponseWriter, r *http.Request) {
	view := chi.URLParam(r, "view")
	m, ok := h.loadMatrix(w, view)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toMatrixResponse(m))
}

func (h *handlers) pairs(w http.ResponseWriter, r *http.Request) {
	view := chi.URLParam(r, "view")
	m, ok := h.loadMatrix(w, view)
	if !ok {
		return
	}

	topN := h.topN
	if q := r.URL.Query().Get("top"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			topN = n
		}
	}

	least, most := correlation.RankPairs(m, topN)
	writeJSON(w, http.StatusOK, map[string]any{
		"view":  view,
		"least": labels.LabelPairs(least),
		"most":  labels.LabelPairs(most),
	})
}

func (h *handlers) heatmap(w http.ResponseWriter, r *http.Request) {
	view := chi.URLParam(r, "view")
	path := h.store.Path(store.CorrelationName(view))
	path = path[:len(path)-len(".csv")] + ".png"
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "no heatmap for view "+view)
		return
	}
	http.ServeFile(w, r, path)
}

// triggerRefresh runs the pipeline in the background. A second trigger
// while one is in flight still starts a run; the scheduler-level guard only
// applies to cron refreshes.
func (h *handlers) triggerRefresh(w http.ResponseWriter, r *http.Request) {
	if h.refresh == nil {
		writeError(w, http.StatusNotImplemented, "refresh disabled")
		return
	}
	go func() {
		if err := h.refresh(context.Background()); err != nil {
			h.log.Error().Err(err).Msg("Manual refresh failed")
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}
