package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-index-lab/internal/broadcast"
	"whale-index-lab/internal/cache"
	"whale-index-lab/internal/config"
	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/pipeline"
	"whale-index-lab/internal/service"
	"whale-index-lab/internal/storage/memory"
)

type fixture struct {
	server *Server
	svc    *service.Service
	store  *cache.MemoryStore
	series domain.Series
}

func testHTTPConfig() config.HTTPConfig {
	return config.HTTPConfig{RateLimitRPS: 1000, RateBurst: 1000, CORSOrigins: []string{"http://localhost:3000"}}
}

func clock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newFixture(t *testing.T, days int, httpCfg config.HTTPConfig, pub service.Publisher) fixture {
	t.Helper()
	ctx := context.Background()

	metrics := memory.NewDailyMetricStore()
	series, err := pipeline.LoadFixtures(ctx, metrics, nil, days, 11)
	require.NoError(t, err)

	engine, err := pipeline.New(pipeline.Default(), pipeline.Options{Clock: clock()})
	require.NoError(t, err)
	svc, err := service.New(service.Options{Engine: engine, Metrics: metrics, Publisher: pub})
	require.NoError(t, err)

	store := cache.NewMemoryStore()
	srv, err := NewServer(Options{
		Service: svc,
		Cache:   cache.New(store, cache.Options{Prefix: "test:"}),
		HTTP:    httpCfg,
		Now:     func() time.Time { return time.Date(2025, time.March, 2, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return fixture{server: srv, svc: svc, store: store, series: series}
}

func (f fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestNewServer_RequiresService(t *testing.T) {
	_, err := NewServer(Options{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, 250, testHTTPConfig(), nil)

	rec := f.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthDTO
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "whale-index-lab", body.Service)
	assert.Equal(t, "2025-03-02T12:00:00Z", body.Timestamp)
	assert.Equal(t, 250, body.Days)
	assert.Len(t, body.DataVersion, 64)
	require.NotNil(t, body.Sufficiency)
	assert.NotEmpty(t, body.Sufficiency.Checks)
}

func TestHealth_NoData(t *testing.T) {
	engine, err := pipeline.New(pipeline.Default(), pipeline.Options{})
	require.NoError(t, err)
	svc, err := service.New(service.Options{Engine: engine, Metrics: memory.NewDailyMetricStore()})
	require.NoError(t, err)
	srv, err := NewServer(Options{Service: svc, HTTP: testHTTPConfig()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wai/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActivityLatest(t *testing.T) {
	f := newFixture(t, 250, testHTTPConfig(), nil)

	rec := f.get(t, "/api/wai/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var day dayDTO
	decode(t, rec, &day)
	_, last := f.series.DateRange()
	assert.Equal(t, domain.FormatDate(last), day.Date)
	assert.GreaterOrEqual(t, day.WAI, 0)
	assert.LessOrEqual(t, day.WAI, 100)
	assert.InDelta(t, 1.0, day.WeightTx+day.WeightVolume, 1e-3)
	assert.NotEmpty(t, day.WIISignal)
	assert.NotEmpty(t, day.ConfidenceLevel)
}

func TestActivityHistory_LimitNewestFirst(t *testing.T) {
	f := newFixture(t, 250, testHTTPConfig(), nil)

	rec := f.get(t, "/api/wai/history?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var body historyDTO
	decode(t, rec, &body)
	require.Equal(t, 5, body.Count)
	require.Len(t, body.Data, 5)
	for i := 1; i < len(body.Data); i++ {
		assert.Greater(t, body.Data[i-1].Date, body.Data[i].Date)
	}
	_, last := f.series.DateRange()
	assert.Equal(t, domain.FormatDate(last), body.Data[0].Date)
}

func TestActivityHistory_DateRange(t *testing.T) {
	f := newFixture(t, 250, testHTTPConfig(), nil)

	rec := f.get(t, "/api/wai/history?start_date=2024-02-01&end_date=2024-02-10")
	require.Equal(t, http.StatusOK, rec.Code)

	var body historyDTO
	decode(t, rec, &body)
	require.Equal(t, 10, body.Count)
	assert.Equal(t, "2024-02-10", body.Data[0].Date)
	assert.Equal(t, "2024-02-01", body.Data[9].Date)
}

func TestValidation(t *testing.T) {
	f := newFixture(t, 120, testHTTPConfig(), nil)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"bad start date", "/api/wai/history?start_date=2024-13-01", http.StatusBadRequest},
		{"bad end date", "/api/wii/history?end_date=yesterday", http.StatusBadRequest},
		{"inverted range", "/api/wai/statistics?start_date=2024-03-01&end_date=2024-02-01", http.StatusBadRequest},
		{"limit zero", "/api/wai/history?limit=0", http.StatusBadRequest},
		{"limit too large", "/api/wai/history?limit=1001", http.StatusBadRequest},
		{"limit not a number", "/api/signals/momentum?limit=ten", http.StatusBadRequest},
		{"max lag too large", "/api/analysis/lead-lag?max_lag=31", http.StatusBadRequest},
		{"horizon too large", "/api/backtest?horizon=91", http.StatusBadRequest},
		{"horizon zero", "/api/backtest?horizon=0", http.StatusBadRequest},
		{"empty range", "/api/wai/history?start_date=2030-01-01", http.StatusNotFound},
		{"max limit ok", "/api/wai/history?limit=1000", http.StatusOK},
		{"max lag ok", "/api/analysis/lead-lag?max_lag=30", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get(t, tt.target)
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want != http.StatusOK {
				var body errorDTO
				decode(t, rec, &body)
				assert.NotEmpty(t, body.Error)
			}
		})
	}
}

func TestEndpoints(t *testing.T) {
	f := newFixture(t, 250, testHTTPConfig(), nil)

	paths := []string{
		"/api/wai/statistics",
		"/api/wai/comparison",
		"/api/wai/comparison?start_date=2024-03-01",
		"/api/wii/latest",
		"/api/wii/history?limit=10",
		"/api/signals/momentum?limit=10",
		"/api/signals/confidence?limit=10",
		"/api/backtest",
		"/api/backtest?horizon=3&start_date=2024-02-01",
		"/api/analysis/lead-lag",
		"/api/analysis/regime-detection",
		"/api/analysis/conditional-volatility",
		"/api/analysis/scientific-summary",
		"/api/analysis/scientific-summary?end_date=2024-08-01",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			rec := f.get(t, p)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var body map[string]any
			decode(t, rec, &body)
			assert.NotEmpty(t, body)
		})
	}
}

func TestIndex_ListsRoutes(t *testing.T) {
	f := newFixture(t, 30, testHTTPConfig(), nil)

	rec := f.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body indexDTO
	decode(t, rec, &body)
	assert.Equal(t, "whale-index-lab", body.Name)
	assert.Equal(t, pipeline.GeneratorVersion, body.Version)
	for _, p := range []string{"/", "/health", "/api/wai/latest", "/api/wai/formula", "/api/wii/history", "/api/analysis/lead-lag"} {
		assert.Contains(t, body.Endpoints, p)
	}
	assert.NotContains(t, body.Endpoints, "/api")
	assert.IsIncreasing(t, body.Endpoints)
}

func TestFormula_ReflectsEngineConfig(t *testing.T) {
	f := newFixture(t, 30, testHTTPConfig(), nil)

	rec := f.get(t, "/api/wai/formula")
	require.Equal(t, http.StatusOK, rec.Code)

	var body formulaDTO
	decode(t, rec, &body)
	def := pipeline.Default()
	assert.Equal(t, string(def.Activity.BaselineKind), body.Parameters.BaselineKind)
	assert.Equal(t, def.Activity.BaselineWindow, body.Parameters.BaselineWindow)
	assert.Equal(t, def.Activity.BaselineWindow, body.Parameters.VolatilityWindow, "zero volatility window falls back to the baseline")
	assert.Equal(t, def.Activity.HistoryWindow, body.Parameters.HistoryWindow)
	assert.Equal(t, def.ActivityV1.ClipMax, body.Static.ClipMax)
	require.Len(t, body.Steps, 6)
	assert.Equal(t, "N_tx(d) = tx(d) / median_50(tx); N_vol(d) = vol(d) / median_50(vol)", body.Steps[0].Formula)
	assert.Equal(t, "scaled(d) = round(100 * PR_180(raw)(d))", body.Steps[4].Formula)
	assert.Contains(t, body.Static.Formula, "mean_30")
	assert.Len(t, body.Intent, 3)
}

func TestNewFormula_CustomWindows(t *testing.T) {
	cfg := pipeline.Default()
	cfg.Activity.BaselineKind = "exponential"
	cfg.Activity.BaselineWindow = 20
	cfg.Activity.VolatilityWindow = 14
	cfg.Activity.SmoothingSpan = 3

	got := newFormula(cfg)
	assert.Equal(t, 14, got.Parameters.VolatilityWindow)
	assert.Equal(t, "sigma(d) = stddev_14(N_vol)", got.Steps[1].Formula)
	assert.Equal(t, "WAI(d) = round(EMA_3(scaled)(d))", got.Steps[5].Formula)
	assert.Contains(t, got.Steps[0].Formula, "exponential_20(tx)")
}

func TestStatistics(t *testing.T) {
	f := newFixture(t, 250, testHTTPConfig(), nil)

	rec := f.get(t, "/api/wai/statistics?start_date=2024-01-01&end_date=2024-01-31")
	require.Equal(t, http.StatusOK, rec.Code)

	var body statisticsDTO
	decode(t, rec, &body)
	assert.Equal(t, 31, body.TotalDays)
	assert.Equal(t, "2024-01-01", body.Range.Start)
	assert.Equal(t, "2024-01-31", body.Range.End)
	assert.LessOrEqual(t, body.WAI.Min, body.WAI.Median)
	assert.LessOrEqual(t, body.WAI.Median, body.WAI.Max)
	assert.Equal(t, "2024-01-31", body.Latest.Date)
}

func TestBacktest(t *testing.T) {
	f := newFixture(t, 250, testHTTPConfig(), nil)

	rec := f.get(t, "/api/backtest?horizon=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var body backtestDTO
	decode(t, rec, &body)
	assert.Equal(t, 5, body.Horizon)
	assert.NotEmpty(t, body.Signals)
	assert.Len(t, body.Profile, 3)
	for _, s := range body.Signals {
		if s.Metrics != nil {
			assert.GreaterOrEqual(t, s.Metrics.WinRate, 0.0)
			assert.LessOrEqual(t, s.Metrics.WinRate, 100.0)
		}
	}
}

func TestLeadLag_MaxLag(t *testing.T) {
	f := newFixture(t, 250, testHTTPConfig(), nil)

	rec := f.get(t, "/api/analysis/lead-lag?max_lag=3")
	require.Equal(t, http.StatusOK, rec.Code)

	var body leadLagDTO
	decode(t, rec, &body)
	assert.Equal(t, 3, body.MaxLag)
	require.NotEmpty(t, body.Series)
	assert.Len(t, body.Series[0].Lags, 4)
}

func TestResponsesAreCached(t *testing.T) {
	f := newFixture(t, 200, testHTTPConfig(), nil)

	first := f.get(t, "/api/wai/history?limit=3")
	require.Equal(t, http.StatusOK, first.Code)
	entries := f.store.Len()
	assert.Positive(t, entries)

	second := f.get(t, "/api/wai/history?limit=3")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, entries, f.store.Len())

	// A refresh changes the run key, so the next request computes again.
	_, err := f.svc.Refresh(context.Background())
	require.NoError(t, err)
	third := f.get(t, "/api/wai/history?limit=3")
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, entries+1, f.store.Len())
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, 100, testHTTPConfig(), nil)

	rec := f.get(t, "/api/wai/latest")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/api/wai/latest", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	f := newFixture(t, 100, testHTTPConfig(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/wai/latest", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/wai/latest", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	cfg := testHTTPConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateBurst = 1
	f := newFixture(t, 100, cfg, nil)

	assert.Equal(t, http.StatusOK, f.get(t, "/api/wai/latest").Code)
	rec := f.get(t, "/api/wai/latest")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Health is outside the limited subrouter.
	assert.Equal(t, http.StatusOK, f.get(t, "/health").Code)
}

func TestNotFound(t *testing.T) {
	f := newFixture(t, 100, testHTTPConfig(), nil)

	rec := f.get(t, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body errorDTO
	decode(t, rec, &body)
	assert.Contains(t, body.Error, "/api/nope")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, 100, testHTTPConfig(), nil)
	f.get(t, "/api/wai/latest")

	rec := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "whale_index_lab_http_requests_total")
}

func TestWebSocketStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := broadcast.NewHub(nil)
	go hub.Run(ctx)

	f := newFixture(t, 150, testHTTPConfig(), hub)
	srv, err := NewServer(Options{Service: f.svc, Stream: hub, HTTP: testHTTPConfig()})
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/latest"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg broadcast.Message
	require.NoError(t, conn.ReadJSON(&msg))
	_, last := f.series.DateRange()
	assert.Equal(t, domain.FormatDate(last), msg.Date)
}
