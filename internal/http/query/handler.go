package query

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/guppyfunds/consumer/internal/transaction"
)

const (
	defaultLimit = 3
	maxLimit     = 10
)

// Sampler reads stored records back.
type Sampler interface {
	Sample(ctx context.Context, bank transaction.Bank, limit int) ([]*transaction.Record, error)
}

// ExistenceChecker answers single-hash lookups.
type ExistenceChecker interface {
	ExistsSingle(ctx context.Context, hash string, bank transaction.Bank) (bool, error)
}

type Handler struct {
	sampler Sampler
	checker ExistenceChecker
}

func NewHandler(sampler Sampler, checker ExistenceChecker) *Handler {
	return &Handler{sampler: sampler, checker: checker}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/{bank}/sample", h.sample)
	r.Get("/{bank}/exists/{hash}", h.exists)
}

type sampleResponse struct {
	Status  string           `json:"status"`
	Count   int              `json:"count"`
	Records []recordResponse `json:"sample_transactions"`
}

type existsResponse struct {
	Bank   transaction.Bank `json:"bank"`
	Hash   string           `json:"hash"`
	Exists bool             `json:"exists"`
}

func (h *Handler) sample(w http.ResponseWriter, r *http.Request) {
	bank, err := bankParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	limit := defaultLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxLimit {
			http.Error(w, "limit must be between 1 and 10", http.StatusBadRequest)
			return
		}
	}

	records, err := h.sampler.Sample(r.Context(), bank, limit)
	if err != nil {
		slog.Error("failed to sample records", "bank", bank, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	writeJSON(w, sampleResponse{
		Status:  "success",
		Count:   len(records),
		Records: toResponseList(records),
	})
}

func (h *Handler) exists(w http.ResponseWriter, r *http.Request) {
	bank, err := bankParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	hash := chi.URLParam(r, "hash")

	ok, err := h.checker.ExistsSingle(r.Context(), hash, bank)
	if err != nil {
		slog.Error("failed to check hash", "bank", bank, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	writeJSON(w, existsResponse{Bank: bank, Hash: hash, Exists: ok})
}

// bankParam accepts the bank tag, plus "wells" as a short alias.
func bankParam(r *http.Request) (transaction.Bank, error) {
	raw := chi.URLParam(r, "bank")
	if raw == "wells" {
		return transaction.BankWellsFargo, nil
	}

	bank, err := transaction.ParseBank(raw)
	if err != nil {
		return "", errors.New("unknown bank: " + raw)
	}

	return bank, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
