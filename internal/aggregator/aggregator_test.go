package aggregator

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/forecast-history/internal/chart"
	"github.com/vzahanych/forecast-history/internal/forecast"
	"github.com/vzahanych/forecast-history/internal/observability"
	"github.com/vzahanych/forecast-history/internal/station"
	"go.uber.org/zap/zaptest"
)

type fakeService struct {
	table *forecast.Table
	err   error

	calls       int
	segment     string
	observation time.Time
}

func (f *fakeService) Name() string { return "fake" }

func (f *fakeService) FetchForecasts(_ context.Context, segment string, observation time.Time) (*forecast.Table, error) {
	f.calls++
	f.segment = segment
	f.observation = observation
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
		forecast.Record{ObservationDate: obs, IssueDate: mustDate(t, "2024-05-07"), Weather: "晴", Precipitation: "10%", HighTemp: "23.5℃", LowTemp: "12℃"},
	)
}

func newTestAggregator(t *testing.T, svc *fakeService) (*Aggregator, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	agg := NewAggregator(svc, chart.Options{Width: 640, Height: 400}, zaptest.NewLogger(t), nil, metrics)
	return agg, metrics
}

func TestRun_PassesSegmentAndDate(t *testing.T) {
	svc := &fakeService{table: sampleTable(t)}
	agg, metrics := newTestAggregator(t, svc)

	table, err := agg.Run(context.Background(), "気象庁", "2024-05-10")
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "気象庁", svc.segment)
	assert.True(t, svc.observation.Equal(mustDate(t, "2024-05-10")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PipelineRuns.WithLabelValues("success")))
}

func TestRun_InvalidDate(t *testing.T) {
	svc := &fakeService{table: sampleTable(t)}
	agg, _ := newTestAggregator(t, svc)

	_, err := agg.Run(context.Background(), "気象庁", "2024/05/10")
	assert.Error(t, err)
	assert.Zero(t, svc.calls)
}

func TestRun_EmptyTableIsNotAnError(t *testing.T) {
	svc := &fakeService{table: forecast.NewTable()}
	agg, metrics := newTestAggregator(t, svc)

	table, err := agg.Run(context.Background(), "気象庁", "2024-05-10")
	require.NoError(t, err)
	assert.True(t, table.Empty())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PipelineRuns.WithLabelValues("empty")))
}

func TestRun_FaultReturnsNoPartialResult(t *testing.T) {
	fault := errors.New("connection reset")
	svc := &fakeService{err: fault}
	agg, metrics := newTestAggregator(t, svc)

	table, err := agg.Run(WithRequestID(context.Background(), "req-1"), "気象庁", "2024-05-10")
	assert.ErrorIs(t, err, fault)
	assert.Nil(t, table)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PipelineRuns.WithLabelValues("error")))
}

func TestReport(t *testing.T) {
	st, err := station.Lookup("関東甲信", "東京")
	require.NoError(t, err)

	svc := &fakeService{table: sampleTable(t)}
	agg, _ := newTestAggregator(t, svc)

	report, err := agg.Report(context.Background(), st, mustDate(t, "2024-05-10"))
	require.NoError(t, err)

	assert.Equal(t, st, report.Station)
	assert.Equal(t, st.Segment, svc.segment)
	assert.False(t, report.Empty())
	assert.Equal(t, "2024-05-10", report.ObservationDate.Format(forecast.DateLayout))
}

func TestCharts_RendersEveryKind(t *testing.T) {
	svc := &fakeService{table: sampleTable(t)}
	agg, metrics := newTestAggregator(t, svc)

	report, err := agg.Report(context.Background(), station.Station{Name: "東京", Segment: "気象庁"}, mustDate(t, "2024-05-10"))
	require.NoError(t, err)

	results := agg.Charts(context.Background(), report)
	require.Len(t, results, len(chart.Kinds))
	for i, res := range results {
		assert.Equal(t, chart.Kinds[i], res.Kind)
		require.NoError(t, res.Err)
		assert.True(t, bytes.HasPrefix(res.PNG, []byte("\x89PNG")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ChartRenders.WithLabelValues(string(res.Kind), "success")))
	}
}

func TestCharts_MalformedPrecipitationOnlyFailsItsCharts(t *testing.T) {
	obs := mustDate(t, "2024-05-10")
	svc := &fakeService{table: forecast.NewTable(
		forecast.Record{ObservationDate: obs, IssueDate: mustDate(t, "2024-05-09"), Weather: "晴", Precipitation: "--", HighTemp: "20℃", LowTemp: "10℃"},
		forecast.Record{ObservationDate: obs, IssueDate: mustDate(t, "2024-05-08"), Weather: "曇", Precipitation: "--", HighTemp: "21℃", LowTemp: "11℃"},
	)}
	agg, metrics := newTestAggregator(t, svc)

	report, err := agg.Report(context.Background(), station.Station{Name: "東京", Segment: "気象庁"}, obs)
	require.NoError(t, err)

	for _, res := range agg.Charts(context.Background(), report) {
		if res.Kind == chart.KindTemperature {
			assert.NoError(t, res.Err)
			continue
		}
		assert.ErrorIs(t, res.Err, forecast.ErrMalformedNumeric, res.Kind)
		assert.Nil(t, res.PNG)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ChartRenders.WithLabelValues(string(chart.KindCombined), "error")))
}

func TestRenderChart_EmptyReport(t *testing.T) {
	svc := &fakeService{table: forecast.NewTable()}
	agg, _ := newTestAggregator(t, svc)

	report, err := agg.Report(context.Background(), station.Station{Name: "東京", Segment: "気象庁"}, mustDate(t, "2024-05-10"))
	require.NoError(t, err)
	assert.True(t, report.Empty())

	_, err = agg.RenderChart(context.Background(), report, chart.KindCombined)
	assert.ErrorIs(t, err, chart.ErrNoData)
}
