package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sony/gobreaker"

	"github.com/guppyfunds/consumer/internal/transaction"
)

const checkTimeout = 5 * time.Second

// Store is the part of the repository health and stats need.
type Store interface {
	Ping(ctx context.Context) error
	Count(ctx context.Context, bank transaction.Bank) (int64, error)
	Stats(ctx context.Context, bank transaction.Bank) (*transaction.TableStats, error)
}

// Circuit reports the state of the breaker guarding the store.
type Circuit interface {
	State() gobreaker.State
}

// Tables names the table behind each bank, for reporting.
type Tables map[transaction.Bank]string

type Handler struct {
	store   Store
	tables  Tables
	version string
	circuit Circuit
}

func NewHandler(store Store, tables Tables, version string) *Handler {
	return &Handler{store: store, tables: tables, version: version}
}

// WithCircuit adds the breaker state to health responses. An open circuit
// caps the status at degraded.
func (h *Handler) WithCircuit(c Circuit) *Handler {
	h.circuit = c
	return h
}

// HealthRoutes mounts the liveness endpoint.
func (h *Handler) HealthRoutes(r chi.Router) {
	r.Get("/", h.health)
}

// StatsRoutes mounts the statistics endpoint.
func (h *Handler) StatsRoutes(r chi.Router) {
	r.Get("/", h.stats)
}

type healthResponse struct {
	Status            string `json:"status"`
	DatabaseConnected bool   `json:"database_connected"`
	TablesAccessible  bool   `json:"tables_accessible"`
	CircuitState      string `json:"circuit_state,omitempty"`
	Version           string `json:"version"`
}

// health is "healthy" when the database answers and every table is
// readable, "degraded" when only the connection works or the circuit is
// open, and "unhealthy" when the database does not answer.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := healthResponse{Status: "unhealthy", Version: h.version}

	if err := h.store.Ping(ctx); err != nil {
		slog.Warn("health check: database unreachable", "error", err)
	} else {
		resp.DatabaseConnected = true
		resp.Status = "degraded"
	}

	if resp.DatabaseConnected {
		if _, err := h.counts(ctx); err != nil {
			slog.Warn("health check: tables not accessible", "error", err)
		} else {
			resp.TablesAccessible = true
			resp.Status = "healthy"
		}
	}

	if h.circuit != nil {
		state := h.circuit.State()
		resp.CircuitState = state.String()

		if state == gobreaker.StateOpen && resp.Status == "healthy" {
			resp.Status = "degraded"
		}
	}

	code := http.StatusOK
	if resp.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, resp)
}

type tableStats struct {
	Table           string  `json:"table_name"`
	TotalDocuments  int64   `json:"total_documents"`
	StorageSizeMB   float64 `json:"storage_size_mb"`
	IndexCount      int64   `json:"index_count"`
	AvgDocumentSize int64   `json:"avg_document_size"`
}

func newTableStats(table string, st *transaction.TableStats) tableStats {
	return tableStats{
		Table:           table,
		TotalDocuments:  st.Rows,
		StorageSizeMB:   math.Round(float64(st.TotalBytes)/(1<<20)*100) / 100,
		IndexCount:      st.IndexCount,
		AvgDocumentSize: st.AvgRowBytes,
	}
}

type statsResponse struct {
	Status     string                          `json:"status"`
	Statistics map[transaction.Bank]tableStats `json:"statistics,omitempty"`
	Healthy    bool                            `json:"database_healthy"`
	Error      string                          `json:"error,omitempty"`
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := statsResponse{
		Status:     "success",
		Statistics: make(map[transaction.Bank]tableStats, len(h.tables)),
	}

	for bank, table := range h.tables {
		st, err := h.store.Stats(ctx, bank)
		if err != nil {
			slog.Error("failed to collect stats", "bank", bank, "error", err)
			writeJSON(w, http.StatusInternalServerError, statsResponse{Status: "error", Error: err.Error()})

			return
		}

		resp.Statistics[bank] = newTableStats(table, st)
	}

	resp.Healthy = h.store.Ping(ctx) == nil

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) counts(ctx context.Context) (map[transaction.Bank]int64, error) {
	counts := make(map[transaction.Bank]int64, len(h.tables))

	for bank := range h.tables {
		n, err := h.store.Count(ctx, bank)
		if err != nil {
			return nil, err
		}

		counts[bank] = n
	}

	return counts, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
