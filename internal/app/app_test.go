package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volexplorer/internal/config"
	"volexplorer/internal/panel"
	"volexplorer/internal/services"
	"volexplorer/internal/shared/testutil"
	ws "volexplorer/internal/websocket"
)

// createTestLogger creates a logger that discards output for testing
func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Dataset.Path = testutil.WritePanelFile(t, "vol_df.csv", testutil.SamplePanelCSV)
	cfg.Security.RateLimit.Enabled = false
	cfg.Telemetry.TraceExporter = "none"
	cfg.Server.ShutdownTimeout = 2 * time.Second
	return cfg
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	a, err := NewApplication(testConfig(t), createTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.OTelProviders.Shutdown(context.Background()) })
	return a
}

type apiClient struct {
	t    *testing.T
	base string
}

func (c apiClient) do(method, path, sessionID, body string) (*http.Response, map[string]interface{}) {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(config.SessionHeader, sessionID)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	var decoded map[string]interface{}
	_ = json.Unmarshal(raw, &decoded)
	return resp, decoded
}

func TestNewApplication(t *testing.T) {
	a := newTestApp(t)

	assert.NotNil(t, a.Router)
	assert.NotNil(t, a.Server)
	assert.NotNil(t, a.Sessions)
	assert.NotNil(t, a.WebSocketHub)
	assert.NotNil(t, a.Metrics)
	require.NotNil(t, a.Services)
	assert.NotNil(t, a.Services.Screener)
	assert.NotNil(t, a.Services.Portfolio)
	assert.Equal(t, 8, a.Dataset.Len())
	assert.Equal(t, ":8080", a.Server.Addr)
}

func TestNewApplication_DatasetFailures(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return t.TempDir() + "/absent.csv" }},
		{"unsupported extension", func(t *testing.T) string { return testutil.WritePanelFile(t, "vol.json", "{}") }},
		{"no time column", func(t *testing.T) string { return testutil.WritePanelFile(t, "vol.csv", "a,b\n1,2\n") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Dataset.Path = tt.path(t)

			a, err := NewApplication(cfg, createTestLogger())
			require.Error(t, err)
			assert.Nil(t, a)
			assert.True(t, errors.Is(err, panel.ErrDataLoad))

			var loadErr *panel.DataLoadError
			assert.True(t, errors.As(err, &loadErr))
		})
	}
}

func TestRouter_ReadOnlyEndpoints(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()
	c := apiClient{t: t, base: srv.URL}

	tests := []struct {
		name       string
		path       string
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{"health", "/api/health", http.StatusOK, func(t *testing.T, body map[string]interface{}) {
			assert.Equal(t, "ok", body["status"])
		}},
		{"readiness", "/api/health/ready", http.StatusOK, func(t *testing.T, body map[string]interface{}) {
			assert.Equal(t, "ready", body["status"])
		}},
		{"panel", "/api/panel", http.StatusOK, func(t *testing.T, body map[string]interface{}) {
			data := body["data"].(map[string]interface{})
			assert.EqualValues(t, 5, data["start_time_id"])
			assert.EqualValues(t, 8, data["observations"])
		}},
		{"screener top 2", "/api/screener?top_n=2", http.StatusOK, func(t *testing.T, body map[string]interface{}) {
			rows := body["data"].([]interface{})
			require.Len(t, rows, 2)
			assert.Equal(t, "1", rows[0].(map[string]interface{})["instrument_id"])
			assert.Equal(t, "0", rows[1].(map[string]interface{})["instrument_id"])
		}},
		{"screener empty window", "/api/screener?start=16&end=5", http.StatusOK, func(t *testing.T, body map[string]interface{}) {
			assert.EqualValues(t, 0, body["count"])
		}},
		{"screener bad start", "/api/screener?start=x", http.StatusBadRequest, nil},
		{"instruments", "/api/instruments", http.StatusOK, func(t *testing.T, body map[string]interface{}) {
			assert.Equal(t, []interface{}{"0", "1", "2"}, body["data"])
		}},
		{"series", "/api/instruments/1/series", http.StatusOK, func(t *testing.T, body map[string]interface{}) {
			data := body["data"].(map[string]interface{})
			assert.Len(t, data["points"], 2)
		}},
		{"unknown series", "/api/instruments/9/series", http.StatusNotFound, func(t *testing.T, body map[string]interface{}) {
			assert.Equal(t, "/errors/instrument/not-found", body["type"])
		}},
		{"unknown route", "/api/nope", http.StatusNotFound, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := c.do(http.MethodGet, tt.path, "", "")
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(config.RequestIDHeader))
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_PortfolioSessions(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()
	c := apiClient{t: t, base: srv.URL}

	resp, body := c.do(http.MethodPost, "/api/portfolio/holdings", "", `{"instrument_id":"0","volume":5,"price":2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sid := resp.Header.Get(config.SessionHeader)
	require.NotEmpty(t, sid)
	assert.Equal(t, sid, body["data"].(map[string]interface{})["session_id"])

	resp, body = c.do(http.MethodPost, "/api/portfolio/holdings", sid, `{"instrument_id":0,"volume":3,"price":4}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, sid, resp.Header.Get(config.SessionHeader))

	valuation := body["data"].(map[string]interface{})["valuation"].(map[string]interface{})
	rows := valuation["rows"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.EqualValues(t, 8, row["volume"])
	assert.EqualValues(t, 4, row["price"])
	assert.EqualValues(t, 32, row["value"])
	assert.EqualValues(t, 1, row["proportion"])

	// a fresh session sees nothing
	resp, body = c.do(http.MethodGet, "/api/portfolio", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, sid, resp.Header.Get(config.SessionHeader))
	assert.Equal(t, true, body["data"].(map[string]interface{})["empty"])

	resp, _ = c.do(http.MethodPost, "/api/portfolio/holdings", sid, `{"instrument_id":"77","volume":1,"price":1}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = c.do(http.MethodGet, "/api/portfolio/export?format=csv", sid, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "portfolio.csv")

	resp, body = c.do(http.MethodDelete, "/api/portfolio", sid, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["data"].(map[string]interface{})["empty"])
	assert.Equal(t, 2, a.Sessions.Len())
}

func TestRouter_WebSocketValuationStream(t *testing.T) {
	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.WebSocketHub.Run(ctx) }()

	srv := httptest.NewServer(a.Router)
	defer srv.Close()
	c := apiClient{t: t, base: srv.URL}

	resp, _ := c.do(http.MethodGet, "/api/portfolio", "", "")
	sid := resp.Header.Get(config.SessionHeader)
	require.NotEmpty(t, sid)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=" + sid
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeConnection, msg.Type)
	assert.Equal(t, sid, msg.SessionID)

	resp, _ = c.do(http.MethodPost, "/api/portfolio/holdings", sid, `{"instrument_id":"2","volume":10,"price":1.5}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, services.MessageTypeValuation, msg.Type)
	data := msg.Data.(map[string]interface{})
	valuation := data["valuation"].(map[string]interface{})
	assert.EqualValues(t, 15, valuation["total"])
}

func TestApplication_ServeAndShutdown(t *testing.T) {
	a := newTestApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/health/live")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestApplication_CORSConfig(t *testing.T) {
	a := newTestApp(t)
	cfg := a.corsConfig()

	assert.Equal(t, a.Config.Security.AllowedOrigins, cfg.AllowedOrigins)
	assert.Contains(t, cfg.AllowedHeaders, config.SessionHeader)
	assert.Contains(t, cfg.ExposedHeaders, config.SessionHeader)
	assert.True(t, cfg.AllowCredentials)
}
