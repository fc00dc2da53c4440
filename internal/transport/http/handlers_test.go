package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"volexplorer/internal/config"
	apierrors "volexplorer/internal/errors"
	"volexplorer/internal/infrastructure"
	"volexplorer/internal/panel"
	"volexplorer/internal/portfolio"
	"volexplorer/internal/screener"
	"volexplorer/internal/services"
	"volexplorer/internal/timeseries"
)

type mockScreener struct{ mock.Mock }

func (m *mockScreener) DefaultQuery() screener.Query {
	return screener.Query{Start: 5, End: 16, TopN: 10, Order: screener.MostVolatile}
}

func (m *mockScreener) Screen(ctx context.Context, q screener.Query) (screener.Result, error) {
	args := m.Called(ctx, q)
	res, _ := args.Get(0).(screener.Result)
	return res, args.Error(1)
}

type mockInstruments struct{ mock.Mock }

func (m *mockInstruments) List(ctx context.Context) []panel.InstrumentID {
	return m.Called(ctx).Get(0).([]panel.InstrumentID)
}

func (m *mockInstruments) Series(ctx context.Context, id panel.InstrumentID) (*services.SeriesView, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*services.SeriesView)
	return v, args.Error(1)
}

type mockPortfolio struct{ mock.Mock }

func (m *mockPortfolio) Add(ctx context.Context, sessionID string, id panel.InstrumentID, volume, price float64) (*services.PortfolioView, error) {
	args := m.Called(ctx, sessionID, id, volume, price)
	v, _ := args.Get(0).(*services.PortfolioView)
	return v, args.Error(1)
}

func (m *mockPortfolio) Clear(ctx context.Context, sessionID string) (*services.PortfolioView, error) {
	args := m.Called(ctx, sessionID)
	v, _ := args.Get(0).(*services.PortfolioView)
	return v, args.Error(1)
}

func (m *mockPortfolio) Valuation(ctx context.Context, sessionID string) (*services.PortfolioView, error) {
	args := m.Called(ctx, sessionID)
	v, _ := args.Get(0).(*services.PortfolioView)
	return v, args.Error(1)
}

type stubHealth struct{ ready bool }

func (s stubHealth) HealthCheck(context.Context) services.HealthStatus {
	return services.HealthStatus{Status: "ok"}
}

func (s stubHealth) ReadinessCheck(context.Context) services.HealthStatus {
	if s.ready {
		return services.HealthStatus{Status: "ready"}
	}
	return services.HealthStatus{Status: "not_ready"}
}

func (s stubHealth) LivenessCheck(context.Context) services.HealthStatus {
	return services.HealthStatus{Status: "alive"}
}

func (s stubHealth) Version() map[string]interface{} {
	return map[string]interface{}{"version": "test"}
}

type stubPanel struct{}

func (stubPanel) Summary() services.PanelSummary {
	return services.PanelSummary{Source: "vol.csv", StartTimeID: 5, EndTimeID: 16, TimeIDs: 3, Instruments: []panel.InstrumentID{"0", "1", "2"}, Observations: 8, DefaultTopN: 10}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func errorHandler() *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(quietLogger(), false)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// withSession stands in for the Session middleware
func withSession(id string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(infrastructure.WithSessionID(r.Context(), id)))
	})
}

func sampleResult() screener.Result {
	return screener.Result{
		{InstrumentID: "1", MeanVolatility: 0.015, Observations: 2},
		{InstrumentID: "0", MeanVolatility: 0.006, Observations: 3},
	}
}

func TestScreenerHandler_Screen(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantQuery screener.Query
	}{
		{"defaults", "", screener.Query{Start: 5, End: 16, TopN: 10, Order: screener.MostVolatile}},
		{"window and top n", "?start=11&end=16&top_n=2", screener.Query{Start: 11, End: 16, TopN: 2, Order: screener.MostVolatile}},
		{"bottom order", "?order=bottom", screener.Query{Start: 5, End: 16, TopN: 10, Order: screener.LeastVolatile}},
		{"asc alias", "?order=ASC&top_n=0", screener.Query{Start: 5, End: 16, TopN: 0, Order: screener.LeastVolatile}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockScreener{}
			svc.On("Screen", mock.Anything, tt.wantQuery).Return(sampleResult(), nil).Once()
			h := NewScreenerHandler(svc, quietLogger(), errorHandler())

			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, "success", body["status"])
			assert.EqualValues(t, 2, body["count"])
			q := body["query"].(map[string]interface{})
			assert.Equal(t, tt.wantQuery.Order.String(), q["order"])
			svc.AssertExpectations(t)
		})
	}
}

func TestScreenerHandler_InvalidParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"non numeric start", "?start=abc"},
		{"non numeric end", "?end=1.5"},
		{"negative top n", "?top_n=-1"},
		{"unknown order", "?order=sideways"},
		{"unknown export format", "/export?format=pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockScreener{}
			h := NewScreenerHandler(svc, quietLogger(), errorHandler())

			target := tt.query
			if !strings.HasPrefix(target, "/") {
				target = "/" + target
			}
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			svc.AssertNotCalled(t, "Screen", mock.Anything, mock.Anything)
		})
	}
}

func TestScreenerHandler_ServiceError(t *testing.T) {
	svc := &mockScreener{}
	svc.On("Screen", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)
	h := NewScreenerHandler(svc, quietLogger(), errorHandler())

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestScreenerHandler_ExportCSV(t *testing.T) {
	svc := &mockScreener{}
	svc.On("Screen", mock.Anything, mock.Anything).Return(sampleResult(), nil)
	h := NewScreenerHandler(svc, quietLogger(), errorHandler())

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="screener.csv"`)

	body := strings.TrimPrefix(rec.Body.String(), "\ufeff")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Stock ID,Avg Realized Volatility", strings.TrimSpace(lines[0]))
	assert.Equal(t, "1,0.015", strings.TrimSpace(lines[1]))
}

func TestScreenerHandler_ExportXLSX(t *testing.T) {
	svc := &mockScreener{}
	svc.On("Screen", mock.Anything, mock.Anything).Return(sampleResult(), nil)
	h := NewScreenerHandler(svc, quietLogger(), errorHandler())

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export?format=xlsx", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="screener.xlsx"`)
	// xlsx is a zip container
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestInstrumentHandler(t *testing.T) {
	svc := &mockInstruments{}
	svc.On("List", mock.Anything).Return([]panel.InstrumentID{"0", "1", "2"})
	svc.On("Series", mock.Anything, panel.InstrumentID("1")).Return(&services.SeriesView{
		InstrumentID: "1",
		Points:       []timeseries.Point{{TimeID: 5, Volatility: 0.01}, {TimeID: 16, Volatility: 0.02}},
		Ticks:        []int64{5, 16},
	}, nil)
	svc.On("Series", mock.Anything, panel.InstrumentID("99")).Return(nil, &timeseries.UnknownInstrumentError{InstrumentID: "99"})
	h := NewInstrumentHandler(svc, quietLogger(), errorHandler())
	router := h.Routes()

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.EqualValues(t, 3, body["count"])
		assert.Equal(t, []interface{}{"0", "1", "2"}, body["data"])
	})

	t.Run("series", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/1/series", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"].(map[string]interface{})
		assert.Equal(t, "1", data["instrument_id"])
		assert.Len(t, data["points"], 2)
	})

	t.Run("unknown instrument", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/99/series", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, apierrors.TypeUnknownInstrument, decodeBody(t, rec)["type"])
	})

	t.Run("id too long", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+strings.Repeat("9", 65)+"/series", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func portfolioView(sessionID string, rows ...portfolio.Row) *services.PortfolioView {
	v := portfolio.Valuation{Rows: rows}
	for _, r := range rows {
		v.Total += r.Value
	}
	return &services.PortfolioView{SessionID: sessionID, Empty: len(rows) == 0, Valuation: v}
}

func TestPortfolioHandler_AddHolding(t *testing.T) {
	const sid = "5f1b3c1e-8f6a-4d1e-9a39-3c8f1d2e4b7a"

	tests := []struct {
		name       string
		body       string
		setup      func(m *mockPortfolio)
		wantStatus int
		wantType   string
	}{
		{
			name: "string id",
			body: `{"instrument_id":"0","volume":8,"price":4}`,
			setup: func(m *mockPortfolio) {
				m.On("Add", mock.Anything, sid, panel.InstrumentID("0"), 8.0, 4.0).
					Return(portfolioView(sid, portfolio.Row{InstrumentID: "0", Volume: 8, Price: 4, Value: 32, Proportion: 1}), nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "numeric id",
			body: `{"instrument_id":2,"volume":1.5,"price":0}`,
			setup: func(m *mockPortfolio) {
				m.On("Add", mock.Anything, sid, panel.InstrumentID("2"), 1.5, 0.0).
					Return(portfolioView(sid, portfolio.Row{InstrumentID: "2", Volume: 1.5}), nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing price",
			body:       `{"instrument_id":"0","volume":8}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative volume",
			body:       `{"instrument_id":"0","volume":-1,"price":4}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			body:       `{"instrument_id":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty body",
			body:       ``,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown instrument",
			body: `{"instrument_id":"42","volume":1,"price":1}`,
			setup: func(m *mockPortfolio) {
				m.On("Add", mock.Anything, sid, panel.InstrumentID("42"), 1.0, 1.0).
					Return(nil, &timeseries.UnknownInstrumentError{InstrumentID: "42"})
			},
			wantStatus: http.StatusNotFound,
			wantType:   apierrors.TypeUnknownInstrument,
		},
		{
			name: "ledger rejection",
			body: `{"instrument_id":"0","volume":1,"price":1}`,
			setup: func(m *mockPortfolio) {
				m.On("Add", mock.Anything, sid, panel.InstrumentID("0"), 1.0, 1.0).
					Return(nil, &portfolio.InvalidHoldingError{InstrumentID: "0", Field: "volume", Value: -1})
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeInvalidHolding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPortfolio{}
			if tt.setup != nil {
				tt.setup(svc)
			}
			h := NewPortfolioHandler(svc, nil, quietLogger(), errorHandler())

			req := httptest.NewRequest(http.MethodPost, "/holdings", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			withSession(sid, h.Routes()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, decodeBody(t, rec)["type"])
			}
			if tt.setup == nil {
				svc.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestPortfolioHandler_GetAndClear(t *testing.T) {
	const sid = "session-a"
	svc := &mockPortfolio{}
	svc.On("Valuation", mock.Anything, sid).
		Return(portfolioView(sid, portfolio.Row{InstrumentID: "0", Volume: 2, Price: 3, Value: 6, Proportion: 1}), nil)
	svc.On("Clear", mock.Anything, sid).Return(portfolioView(sid), nil)
	router := withSession(sid, NewPortfolioHandler(svc, nil, quietLogger(), errorHandler()).Routes())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, false, data["empty"])
	assert.Equal(t, sid, data["session_id"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, true, data["empty"])
	svc.AssertExpectations(t)
}

func TestPortfolioHandler_Export(t *testing.T) {
	const sid = "session-b"
	svc := &mockPortfolio{}
	svc.On("Valuation", mock.Anything, sid).Return(portfolioView(sid,
		portfolio.Row{InstrumentID: "0", Volume: 8, Price: 4, Value: 32, Proportion: 0.8},
		portfolio.Row{InstrumentID: "1", Volume: 2, Price: 4, Value: 8, Proportion: 0.2},
	), nil)
	router := withSession(sid, NewPortfolioHandler(svc, nil, quietLogger(), errorHandler()).Routes())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export?format=csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="portfolio.csv"`)
	body := strings.TrimPrefix(rec.Body.String(), "\ufeff")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Stock ID,Volume,Price,Value,Proportion", strings.TrimSpace(lines[0]))
	assert.True(t, strings.HasPrefix(lines[3], "Total,"))
}

func TestPortfolioHandler_MissingSession(t *testing.T) {
	svc := &mockPortfolio{}
	svc.On("Valuation", mock.Anything, "").Return(nil, services.ErrSessionRequired)
	router := NewPortfolioHandler(svc, nil, quietLogger(), errorHandler()).Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.TypeWebSocketUpgrade, decodeBody(t, rec)["type"])
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		path       string
		wantStatus int
		wantBody   string
	}{
		{"health", true, "/health", http.StatusOK, "ok"},
		{"live", true, "/health/live", http.StatusOK, "alive"},
		{"ready", true, "/health/ready", http.StatusOK, "ready"},
		{"not ready", false, "/health/ready", http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(stubHealth{ready: tt.ready}, quietLogger())
			r := chi.NewRouter()
			r.Get("/health", h.HealthCheck)
			r.Get("/health/ready", h.ReadinessCheck)
			r.Get("/health/live", h.LivenessCheck)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, decodeBody(t, rec)["status"])
		})
	}
}

func TestPanelHandler_Summary(t *testing.T) {
	h := NewPanelHandler(stubPanel{})
	rec := httptest.NewRecorder()
	h.Summary(rec, httptest.NewRequest(http.MethodGet, "/api/panel", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.EqualValues(t, 8, data["observations"])
	assert.EqualValues(t, 16, data["end_time_id"])
}

func TestWebSocketHandler_RejectsPlainRequest(t *testing.T) {
	h := NewWebSocketHandler(nil, nil, config.WebSocketConfig{}, quietLogger(), errorHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
