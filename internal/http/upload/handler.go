package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/guppyfunds/consumer/internal/ingest"
	"github.com/guppyfunds/consumer/internal/table"
)

// multipartOverhead is allowed on top of the file limit for form framing.
const multipartOverhead = 1 << 20

// Processor runs the ingestion pipeline on a decoded upload.
type Processor interface {
	Process(ctx context.Context, t *table.Table) ingest.ProcessingResult
}

type Handler struct {
	processor Processor
	maxBytes  int64
}

func NewHandler(processor Processor, maxBytes int64) *Handler {
	return &Handler{processor: processor, maxBytes: maxBytes}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.upload)
}

type processingDetails struct {
	RowsInCSV          int                  `json:"rows_in_csv"`
	TransactionsParsed int                  `json:"transactions_parsed"`
	Inserted           int                  `json:"new_transactions_inserted"`
	DuplicatesSkipped  int                  `json:"duplicates_skipped"`
	Errors             int                  `json:"errors"`
	ErrorDetails       []ingest.ErrorDetail `json:"error_details,omitempty"`
	SkippedRows        []string             `json:"skipped_rows,omitempty"`
}

type uploadResponse struct {
	Status            string            `json:"status"`
	Message           string            `json:"message"`
	BankType          string            `json:"bank_type"`
	ProcessingDetails processingDetails `json:"processing_details"`
	ProcessingTimeMs  int64             `json:"processing_time_ms"`
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, h.tooLargeMessage(), http.StatusRequestEntityTooLarge)
			return
		}

		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)

		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		http.Error(w, "Only CSV files are supported", http.StatusBadRequest)
		return
	}

	if header.Size > h.maxBytes {
		http.Error(w, h.tooLargeMessage(), http.StatusRequestEntityTooLarge)
		return
	}

	slog.Info("processing csv upload", "file", header.Filename, "bytes", header.Size)

	t, err := table.Decode(file)
	if err != nil {
		if errors.Is(err, table.ErrEmpty) {
			http.Error(w, "CSV file is empty", http.StatusBadRequest)
			return
		}

		http.Error(w, "Invalid CSV format: "+err.Error(), http.StatusBadRequest)

		return
	}

	result := h.processor.Process(r.Context(), t)

	status, resp := respond(result)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respond maps a pipeline result to an HTTP status and body.
func respond(res ingest.ProcessingResult) (int, uploadResponse) {
	ins := res.InsertionResult

	resp := uploadResponse{
		BankType: string(res.BankType),
		ProcessingDetails: processingDetails{
			RowsInCSV:          res.TotalRowsProcessed,
			TransactionsParsed: ins.TotalSubmitted,
			Inserted:           ins.TotalInserted,
			DuplicatesSkipped:  ins.TotalDuplicates,
			Errors:             ins.TotalErrors,
			ErrorDetails:       ins.ErrorDetails,
			SkippedRows:        res.SkippedRows,
		},
		ProcessingTimeMs: ins.ProcessingTimeMs,
	}

	switch {
	case !res.BankDetected:
		resp.Status = "error"
		resp.Message = "Unsupported CSV format: " + res.Error

		return http.StatusUnprocessableEntity, resp
	case !res.ParsingSuccessful:
		resp.Status = "error"
		resp.Message = "CSV parsing failed: " + res.Error

		return http.StatusUnprocessableEntity, resp
	case ins.TotalInserted > 0:
		resp.Status = "success"
		resp.Message = fmt.Sprintf("Successfully processed %d new transactions", ins.TotalInserted)

		return http.StatusOK, resp
	case ins.TotalErrors > 0:
		resp.Status = "error"
		resp.Message = fmt.Sprintf("No transactions inserted: %d failed to store", ins.TotalErrors)

		return http.StatusInternalServerError, resp
	default:
		resp.Status = "success"
		resp.Message = "No new transactions to insert - all were duplicates"

		return http.StatusOK, resp
	}
}

func (h *Handler) tooLargeMessage() string {
	return fmt.Sprintf("File too large. Maximum size is %dMB", h.maxBytes>>20)
}
