package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/forecast-history/internal/aggregator"
	"github.com/vzahanych/forecast-history/internal/chart"
	"github.com/vzahanych/forecast-history/internal/config"
	"github.com/vzahanych/forecast-history/internal/export"
	"github.com/vzahanych/forecast-history/internal/forecast"
	"github.com/vzahanych/forecast-history/internal/observability"
	"github.com/vzahanych/forecast-history/internal/server/handlers"
	"github.com/vzahanych/forecast-history/internal/station"
	"go.uber.org/zap/zaptest"
)

type fakeService struct {
	table   *forecast.Table
	err     error
	segment string
}

func (f *fakeService) Name() string { return "fake" }

func (f *fakeService) FetchForecasts(_ context.Context, segment string, _ time.Time) (*forecast.Table, error) {
	f.segment = segment
	if f.err != nil {
		return nil, f.err
	}
	return f.table, nil
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := forecast.ParseDate(s)
	require.NoError(t, err)
	return d
}

func sampleTable(t *testing.T) *forecast.Table {
	obs := mustDate(t, "2024-05-10")
	return forecast.NewTable(
		forecast.Record{ObservationDate: obs, IssueDate: mustDate(t, "2024-05-09"), Weather: "雨のち曇", Precipitation: "60/80%", HighTemp: "18℃", LowTemp: "13℃"},
		forecast.Record{ObservationDate: obs, IssueDate: mustDate(t, "2024-05-05"), Weather: "晴", Precipitation: "10%", HighTemp: "23.5℃", LowTemp: "12℃"},
	)
}

type testServer struct {
	handler http.Handler
	svc     *fakeService
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, svc *fakeService, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.NewDefaultConfig()
	cfg.Chart = config.ChartConfig{Width: 640, Height: 400}
	for _, m := range mutate {
		m(cfg)
	}

	logger := zaptest.NewLogger(t)
	metrics := observability.NewMetricsForTesting()
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.HTTPRequests, metrics.PipelineRuns)

	// 2024-05-09 23:30 UTC is already 2024-05-10 in Japan.
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 9, 23, 30, 0, 0, time.UTC))

	agg := aggregator.NewAggregator(svc, chart.Options{Width: 640, Height: 400}, logger, nil, metrics)
	srv, err := NewServer(cfg, Dependencies{
		Aggregator: agg,
		Logger:     logger,
		Metrics:    metrics,
		Clock:      clock,
		Gatherer:   registry,
	})
	require.NoError(t, err)

	return &testServer{handler: srv.Handler(), svc: svc, metrics: metrics}
}

func (ts *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func forecastQuery(region, name, date string) string {
	q := url.Values{}
	if region != "" {
		q.Set("region", region)
	}
	q.Set("station", name)
	q.Set("date", date)
	return q.Encode()
}

func TestIndex_DefaultsToTodayInJapan(t *testing.T) {
	ts := newTestServer(t, &fakeService{table: forecast.NewTable()})

	rec := ts.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `value="2024-05-10"`)
	assert.Contains(t, body, `<optgroup label="関東甲信">`)
	assert.Contains(t, body, "東京")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestForecastPage_RendersTableCSVAndCharts(t *testing.T) {
	ts := newTestServer(t, &fakeService{table: sampleTable(t)})

	rec := ts.get(t, "/forecast?"+forecastQuery("関東甲信", "東京", "2024-05-10"))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Equal(t, "気象庁", ts.svc.segment)
	assert.Contains(t, body, "<td>雨のち曇</td>")
	assert.Contains(t, body, "<td>60/80%</td>")
	assert.Contains(t, body, `download="weather_東京_20240510.csv"`)
	assert.Contains(t, body, "data:text/csv;charset=shift_jis;base64,")
	assert.Equal(t, 3, strings.Count(body, `<img src="data:image/png;base64,`))
	assert.Contains(t, body, `download="overall_東京_20240510.png"`)
	assert.Contains(t, body, `download="temperature_東京_20240510.png"`)
	assert.Contains(t, body, `download="chanceofrain_東京_20240510.png"`)
}

func TestForecastPage_NoData(t *testing.T) {
	ts := newTestServer(t, &fakeService{table: forecast.NewTable()})

	rec := ts.get(t, "/forecast?"+forecastQuery("関東甲信", "東京", "2024-05-10"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "該当するデータが見つかりませんでした")
	assert.NotContains(t, rec.Body.String(), "<img")
}

func TestForecastPage_MalformedValueOnlyBreaksItsCharts(t *testing.T) {
	obs := mustDate(t, "2024-05-10")
	table := forecast.NewTable(
		forecast.Record{ObservationDate: obs, IssueDate: mustDate(t, "2024-05-09"), Weather: "晴", Precipitation: "--", HighTemp: "20℃", LowTemp: "10℃"},
	)
	ts := newTestServer(t, &fakeService{table: table})

	rec := ts.get(t, "/forecast?"+forecastQuery("関東甲信", "東京", "2024-05-10"))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<td>--</td>")
	assert.Contains(t, body, `download="weather_東京_20240510.csv"`)
	assert.Equal(t, 1, strings.Count(body, `<img src="data:image/png;base64,`))
	assert.Equal(t, 2, strings.Count(body, "グラフを描画できませんでした"))
}

func TestForecastPage_TransportFault(t *testing.T) {
	ts := newTestServer(t, &fakeService{err: errors.New("dial tcp: connection refused")})

	rec := ts.get(t, "/forecast?"+forecastQuery("関東甲信", "東京", "2024-05-10"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "予報の取得に失敗しました")
	assert.NotContains(t, rec.Body.String(), "<table>")
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.PipelineRuns.WithLabelValues("error")))
}

func TestForecastPage_InvalidDate(t *testing.T) {
	ts := newTestServer(t, &fakeService{table: sampleTable(t)})

	rec := ts.get(t, "/forecast?"+forecastQuery("関東甲信", "東京", "10/05/2024"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "date must be a date in format YYYY-MM-DD")
	assert.Empty(t, ts.svc.segment)
}

func TestAPIStations(t *testing.T) {
	ts := newTestServer(t, &fakeService{})

	rec := ts.get(t, "/api/stations")
	require.Equal(t, http.StatusOK, rec.Code)

	var regions []station.Region
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regions))
	assert.Equal(t, station.Regions(), regions)
}

func TestAPIForecast(t *testing.T) {
	ts := newTestServer(t, &fakeService{table: sampleTable(t)})

	rec := ts.get(t, "/api/forecast?"+forecastQuery("", "東京", "2024-05-10"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.ForecastResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "関東甲信", resp.Region)
	assert.Equal(t, "気象庁", resp.Segment)
	assert.Equal(t, "2024-05-10", resp.ObservationDate)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "2024-05-05", resp.Records[0].IssueDate)
	assert.Equal(t, "23.5℃", resp.Records[0].HighTemp)
	assert.Equal(t, "2024-05-09", resp.Records[1].IssueDate)
}

func TestAPIForecast_Errors(t *testing.T) {
	tests := []struct {
		name   string
		svc    *fakeService
		query  string
		status int
		code   string
	}{
		{"missing station", &fakeService{}, "date=2024-05-10", http.StatusBadRequest, "INVALID_PARAMS"},
		{"unknown station", &fakeService{}, forecastQuery("", "ロンドン", "2024-05-10"), http.StatusBadRequest, "UNKNOWN_STATION"},
		{"station in wrong region", &fakeService{}, forecastQuery("北海道", "東京", "2024-05-10"), http.StatusBadRequest, "UNKNOWN_STATION"},
		{"fetch failure", &fakeService{err: errors.New("boom")}, forecastQuery("", "東京", "2024-05-10"), http.StatusBadGateway, "FETCH_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.svc)

			rec := ts.get(t, "/api/forecast?"+tt.query)
			assert.Equal(t, tt.status, rec.Code)

			var resp handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestAPIForecastCSV(t *testing.T) {
	ts := newTestServer(t, &fakeService{table: sampleTable(t)}, func(cfg *config.Config) {
		cfg.Export.CSVEncoding = "utf-8"
	})

	rec := ts.get(t, "/api/forecast/csv?"+forecastQuery("関東甲信", "東京", "2024-05-10"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	table, err := export.ReadCSV(rec.Body, export.EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, sampleTable(t).Records(), table.Records())
}

func TestAPIForecastChart(t *testing.T) {
	ts := newTestServer(t, &fakeService{table: sampleTable(t)})

	for _, kind := range chart.Kinds {
		rec := ts.get(t, "/api/forecast/chart/"+string(kind)+"?"+forecastQuery("関東甲信", "東京", "2024-05-10"))
		require.Equal(t, http.StatusOK, rec.Code, kind)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
	}
}

func TestAPIForecastChart_Errors(t *testing.T) {
	ts := newTestServer(t, &fakeService{table: forecast.NewTable()})

	rec := ts.get(t, "/api/forecast/chart/pie?"+forecastQuery("関東甲信", "東京", "2024-05-10"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.get(t, "/api/forecast/chart/combined?"+forecastQuery("関東甲信", "東京", "2024-05-10"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	obs := mustDate(t, "2024-05-10")
	ts = newTestServer(t, &fakeService{table: forecast.NewTable(
		forecast.Record{ObservationDate: obs, IssueDate: mustDate(t, "2024-05-09"), Weather: "晴", Precipitation: "10%", HighTemp: "暑い", LowTemp: "10℃"},
	)})
	rec = ts.get(t, "/api/forecast/chart/temperature?"+forecastQuery("関東甲信", "東京", "2024-05-10"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, &fakeService{})

	for path, status := range map[string]string{"/health": "ok", "/health/live": "alive", "/health/ready": "ready"} {
		rec := ts.get(t, path)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var resp handlers.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, status, resp.Status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeService{table: forecast.NewTable()})

	ts.get(t, "/api/forecast?"+forecastQuery("関東甲信", "東京", "2024-05-10"))

	rec := ts.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `forecast_history_pipeline_runs_total{outcome="empty"} 1`)
	assert.Contains(t, body, `forecast_history_http_requests_total{method="GET",route="/api/forecast",status="200"} 1`)
}

func TestRequestIDIsPropagated(t *testing.T) {
	ts := newTestServer(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
