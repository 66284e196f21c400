package status_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/guppyfunds/consumer/internal/http/status"
	"github.com/guppyfunds/consumer/internal/transaction"
)

func newRouter(store status.Store) http.Handler {
	return mount(newHandler(store))
}

func newHandler(store status.Store) *status.Handler {
	return status.NewHandler(store, status.Tables{
		transaction.BankAmex:       "amex_raw",
		transaction.BankWellsFargo: "wells_raw",
	}, "1.2.3")
}

func mount(h *status.Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/health", h.HealthRoutes)
	r.Route("/api/v1/stats", h.StatsRoutes)

	return r
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

func TestHandler_Health(t *testing.T) {
	type testCase struct {
		name          string
		setupMock     func(m *transaction.MockRepository)
		wantCode      int
		wantStatus    string
		wantConnected bool
		wantTables    bool
	}

	tests := []testCase{
		{
			name: "Healthy",
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().Ping(gomock.Any()).Return(nil)
				m.EXPECT().Count(gomock.Any(), gomock.Any()).Return(int64(3), nil).Times(2)
			},
			wantCode:      http.StatusOK,
			wantStatus:    "healthy",
			wantConnected: true,
			wantTables:    true,
		},
		{
			name: "Tables Missing",
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().Ping(gomock.Any()).Return(nil)
				m.EXPECT().Count(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("relation does not exist")).MinTimes(1)
			},
			wantCode:      http.StatusOK,
			wantStatus:    "degraded",
			wantConnected: true,
		},
		{
			name: "Database Down",
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			tt.setupMock(repo)

			rec := get(newRouter(repo), "/api/health")
			require.Equal(t, tt.wantCode, rec.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp["status"])
			assert.Equal(t, tt.wantConnected, resp["database_connected"])
			assert.Equal(t, tt.wantTables, resp["tables_accessible"])
			assert.Equal(t, "1.2.3", resp["version"])
		})
	}
}

type fixedCircuit gobreaker.State

func (c fixedCircuit) State() gobreaker.State { return gobreaker.State(c) }

func TestHandler_HealthCircuit(t *testing.T) {
	tests := []struct {
		name       string
		state      gobreaker.State
		wantStatus string
		wantState  string
	}{
		{name: "Closed", state: gobreaker.StateClosed, wantStatus: "healthy", wantState: "closed"},
		{name: "Half Open", state: gobreaker.StateHalfOpen, wantStatus: "healthy", wantState: "half-open"},
		{name: "Open", state: gobreaker.StateOpen, wantStatus: "degraded", wantState: "open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			repo.EXPECT().Ping(gomock.Any()).Return(nil)
			repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(int64(1), nil).Times(2)

			rec := get(mount(newHandler(repo).WithCircuit(fixedCircuit(tt.state))), "/api/health")
			require.Equal(t, http.StatusOK, rec.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp["status"])
			assert.Equal(t, tt.wantState, resp["circuit_state"])
		})
	}
}

func TestHandler_HealthWithoutCircuit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().Ping(gomock.Any()).Return(nil)
	repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(int64(1), nil).Times(2)

	rec := get(newRouter(repo), "/api/health")

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotContains(t, resp, "circuit_state")
}

func TestHandler_Stats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().Stats(gomock.Any(), transaction.BankAmex).Return(&transaction.TableStats{
		Rows:        12,
		TotalBytes:  3 << 20,
		IndexCount:  5,
		AvgRowBytes: 210,
	}, nil)
	repo.EXPECT().Stats(gomock.Any(), transaction.BankWellsFargo).Return(&transaction.TableStats{
		Rows:        4,
		TotalBytes:  1 << 19,
		IndexCount:  3,
		AvgRowBytes: 96,
	}, nil)
	repo.EXPECT().Ping(gomock.Any()).Return(nil)

	rec := get(newRouter(repo), "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status     string `json:"status"`
		Healthy    bool   `json:"database_healthy"`
		Statistics map[string]struct {
			Table   string  `json:"table_name"`
			Total   int64   `json:"total_documents"`
			SizeMB  float64 `json:"storage_size_mb"`
			Indexes int64   `json:"index_count"`
			AvgSize int64   `json:"avg_document_size"`
		} `json:"statistics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "success", resp.Status)
	assert.True(t, resp.Healthy)
	assert.EqualValues(t, 12, resp.Statistics["amex"].Total)
	assert.Equal(t, "amex_raw", resp.Statistics["amex"].Table)
	assert.InDelta(t, 3.0, resp.Statistics["amex"].SizeMB, 0.001)
	assert.EqualValues(t, 5, resp.Statistics["amex"].Indexes)
	assert.EqualValues(t, 210, resp.Statistics["amex"].AvgSize)
	assert.EqualValues(t, 4, resp.Statistics["wells_fargo"].Total)
	assert.InDelta(t, 0.5, resp.Statistics["wells_fargo"].SizeMB, 0.001)
	assert.EqualValues(t, 3, resp.Statistics["wells_fargo"].Indexes)
}

func TestHandler_StatsError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().Stats(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout")).MinTimes(1)

	rec := get(newRouter(repo), "/api/v1/stats")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "timeout")
}
