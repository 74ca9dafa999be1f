// Package aggregator runs the forecast history pipeline for one station and one
// observation date: fetch, extract, build the table, then render charts on demand.
package aggregator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vzahanych/forecast-history/internal/chart"
	"github.com/vzahanych/forecast-history/internal/forecast"
	"github.com/vzahanych/forecast-history/internal/observability"
	"github.com/vzahanych/forecast-history/internal/service"
	"github.com/vzahanych/forecast-history/internal/station"
	"github.com/vzahanych/forecast-history/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type requestIDKey struct{}

// WithRequestID returns a context whose pipeline logs carry the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Report is the outcome of one pipeline run. It is call scoped; nothing is kept
// between runs.
type Report struct {
	Station         station.Station
	ObservationDate time.Time
	Table           *forecast.Table
}

// Empty reports whether no forecast was found for any candidate issue date.
func (r *Report) Empty() bool {
	return r == nil || r.Table.Empty()
}

// ChartResult holds one rendered chart or the reason it could not be drawn.
type ChartResult struct {
	Kind chart.Kind
	PNG  []byte
	Err  error
}

type Aggregator struct {
	service   service.ForecastService
	chartOpts chart.Options
	logger    *zap.Logger
	tele      *telemetry.Telemetry
	metrics   *observability.Metrics
}

func NewAggregator(svc service.ForecastService, chartOpts chart.Options, logger *zap.Logger, tele *telemetry.Telemetry, metrics *observability.Metrics) *Aggregator {
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &Aggregator{
		service:   svc,
		chartOpts: chartOpts,
		logger:    logger,
		tele:      tele,
		metrics:   metrics,
	}
}

// Run fetches every forecast published for date (YYYY-MM-DD, JST) at the station
// with the given URL segment. An empty table is a normal result.
func (a *Aggregator) Run(ctx context.Context, stationSegment, date string) (*forecast.Table, error) {
	observation, err := forecast.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("observation date: %w", err)
	}
	return a.run(ctx, stationSegment, observation)
}

// Report runs the pipeline for a resolved station.
func (a *Aggregator) Report(ctx context.Context, st station.Station, observation time.Time) (*Report, error) {
	table, err := a.run(ctx, st.Segment, observation)
	if err != nil {
		return nil, err
	}
	return &Report{
		Station:         st,
		ObservationDate: forecast.Date(observation),
		Table:           table,
	}, nil
}

func (a *Aggregator) run(ctx context.Context, stationSegment string, observation time.Time) (*forecast.Table, error) {
	ctx, span := a.tele.GetTracer().Start(ctx, "aggregator.Run")
	defer span.End()

	log := a.requestLogger(ctx).With(
		zap.String("station", stationSegment),
		zap.String("observation_date", observation.Format(forecast.DateLayout)),
		zap.String("service", a.service.Name()),
	)
	span.SetAttributes(
		attribute.String("station", stationSegment),
		attribute.String("observation_date", observation.Format(forecast.DateLayout)),
	)

	start := time.Now()
	table, err := a.service.FetchForecasts(ctx, stationSegment, observation)
	a.metrics.PipelineDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		a.metrics.PipelineRuns.WithLabelValues("error").Inc()
		a.tele.RecordError(ctx, err)
		log.Error("Forecast pipeline failed", zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int("records", table.Len()))
	if table.Empty() {
		a.metrics.PipelineRuns.WithLabelValues("empty").Inc()
		log.Info("No forecast found for observation date")
		return table, nil
	}

	a.metrics.PipelineRuns.WithLabelValues("success").Inc()
	log.Info("Forecast pipeline completed", zap.Int("records", table.Len()))
	return table, nil
}

// RenderChart draws one chart of the report as PNG.
func (a *Aggregator) RenderChart(ctx context.Context, report *Report, kind chart.Kind) ([]byte, error) {
	ctx, span := a.tele.GetTracer().Start(ctx, "aggregator.RenderChart")
	defer span.End()
	span.SetAttributes(attribute.String("chart.kind", string(kind)))

	png, err := a.renderChart(report, kind)
	if err != nil {
		a.metrics.ChartRenders.WithLabelValues(string(kind), "error").Inc()
		if !errors.Is(err, chart.ErrNoData) {
			a.tele.RecordError(ctx, err)
			a.requestLogger(ctx).Warn("Chart could not be rendered",
				zap.String("kind", string(kind)),
				zap.Error(err))
		}
		return nil, err
	}

	a.metrics.ChartRenders.WithLabelValues(string(kind), "success").Inc()
	return png, nil
}

func (a *Aggregator) renderChart(report *Report, kind chart.Kind) ([]byte, error) {
	if report == nil {
		return nil, chart.ErrNoData
	}
	c, err := chart.FromTable(kind, report.Table, a.chartOpts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return nil, fmt.Errorf("render %s chart: %w", kind, err)
	}
	return buf.Bytes(), nil
}

// Charts renders every chart kind. A failing chart does not affect the others.
func (a *Aggregator) Charts(ctx context.Context, report *Report) []ChartResult {
	results := make([]ChartResult, 0, len(chart.Kinds))
	for _, kind := range chart.Kinds {
		png, err := a.RenderChart(ctx, report, kind)
		results = append(results, ChartResult{Kind: kind, PNG: png, Err: err})
	}
	return results
}

func (a *Aggregator) requestLogger(ctx context.Context) *zap.Logger {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return a.logger.With(zap.String("request_id", id))
	}
	return a.logger
}
