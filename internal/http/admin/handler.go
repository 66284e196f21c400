// Package admin serves operational endpoints: index listing, schema repair
// and process information.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/guppyfunds/consumer/internal/transaction"
)

// Catalog lists the indexes on a bank's table.
type Catalog interface {
	Indexes(ctx context.Context, bank transaction.Bank) ([]transaction.Index, error)
}

// Reindexer recreates any missing tables and indexes.
type Reindexer func(ctx context.Context) error

// Tables names the table behind each bank.
type Tables map[transaction.Bank]string

// Info describes the running application.
type Info struct {
	Name        string
	Version     string
	Environment string
	LogLevel    string
	Tables      Tables
}

type Handler struct {
	catalog Catalog
	reindex Reindexer
	info    Info
	started time.Time
}

func NewHandler(catalog Catalog, reindex Reindexer, info Info) *Handler {
	return &Handler{catalog: catalog, reindex: reindex, info: info, started: time.Now()}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/database/indexes", h.indexes)
	r.Post("/database/reindex", h.reindexAll)
	r.Get("/system/info", h.systemInfo)
}

type indexResponse struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

type tableIndexes struct {
	Bank       transaction.Bank `json:"bank"`
	IndexCount int              `json:"index_count"`
	Indexes    []indexResponse  `json:"indexes"`
}

type indexesResponse struct {
	Status string                  `json:"status"`
	Tables map[string]tableIndexes `json:"tables,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

func (h *Handler) indexes(w http.ResponseWriter, r *http.Request) {
	resp := indexesResponse{
		Status: "success",
		Tables: make(map[string]tableIndexes, len(h.info.Tables)),
	}

	for bank, table := range h.info.Tables {
		found, err := h.catalog.Indexes(r.Context(), bank)
		if err != nil {
			slog.Error("failed to list indexes", "bank", bank, "error", err)
			writeJSON(w, http.StatusInternalServerError, indexesResponse{Status: "error", Error: err.Error()})

			return
		}

		ti := tableIndexes{Bank: bank, IndexCount: len(found), Indexes: make([]indexResponse, 0, len(found))}
		for _, idx := range found {
			ti.Indexes = append(ti.Indexes, indexResponse{Name: idx.Name, Definition: idx.Definition})
		}

		resp.Tables[table] = ti
	}

	writeJSON(w, http.StatusOK, resp)
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) reindexAll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := h.reindex(r.Context()); err != nil {
		slog.Error("failed to rebuild indexes", "error", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Status: "error", Error: err.Error()})

		return
	}

	slog.Info("database indexes rebuilt", "elapsed", time.Since(start))

	writeJSON(w, http.StatusOK, messageResponse{Status: "success", Message: "Database indexes rebuilt successfully"})
}

type runtimeInfo struct {
	GoVersion      string `json:"go_version"`
	OS             string `json:"os"`
	Arch           string `json:"arch"`
	NumCPU         int    `json:"cpu_count"`
	Goroutines     int    `json:"goroutines"`
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	SysBytes       uint64 `json:"sys_bytes"`
	NumGC          uint32 `json:"gc_cycles"`
}

type applicationInfo struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	LogLevel      string `json:"log_level"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type systemInfoResponse struct {
	Status      string          `json:"status"`
	Runtime     runtimeInfo     `json:"runtime"`
	Application applicationInfo `json:"application"`
	Tables      Tables          `json:"tables"`
}

func (h *Handler) systemInfo(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, systemInfoResponse{
		Status: "success",
		Runtime: runtimeInfo{
			GoVersion:      runtime.Version(),
			OS:             runtime.GOOS,
			Arch:           runtime.GOARCH,
			NumCPU:         runtime.NumCPU(),
			Goroutines:     runtime.NumGoroutine(),
			HeapAllocBytes: mem.HeapAlloc,
			SysBytes:       mem.Sys,
			NumGC:          mem.NumGC,
		},
		Application: applicationInfo{
			Name:          h.info.Name,
			Version:       h.info.Version,
			Environment:   h.info.Environment,
			LogLevel:      h.info.LogLevel,
			UptimeSeconds: int64(time.Since(h.started) / time.Second),
		},
		Tables: h.info.Tables,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
