package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/vzahanych/forecast-history/internal/config"
	"github.com/vzahanych/forecast-history/internal/forecast"
	"github.com/vzahanych/forecast-history/internal/observability"
	"github.com/vzahanych/forecast-history/internal/station"
	"github.com/vzahanych/forecast-history/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// TenmadoService scrapes the tenmado.app forecast archive. Every candidate issue
// date costs one listing GET and, when the listing links to a detail page, a
// second GET. Requests run one after another.
type TenmadoService struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
	tele      *telemetry.Telemetry
	metrics   *observability.Metrics
}

func NewTenmadoServiceWithConfig(cfg config.ScraperConfig, logger *zap.Logger, tele *telemetry.Telemetry, metrics *observability.Metrics) *TenmadoService {
	baseURL := cfg.BaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}

	return &TenmadoService{
		baseURL:   baseURL,
		userAgent: cfg.UserAgent,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger:  logger,
		tele:    tele,
		metrics: metrics,
	}
}

func (s *TenmadoService) Name() string {
	return "tenmado"
}

// StationURL is the listing root for a station segment.
func (s *TenmadoService) StationURL(stationSegment string) string {
	return station.Station{Segment: stationSegment}.URL(s.baseURL)
}

// FetchForecasts walks the seven issue dates before observation and collects the
// matching forecasts. Dates without a detail page, and detail pages whose matched
// block is incomplete, contribute nothing. Transport failures and unexpected
// statuses abort the run.
func (s *TenmadoService) FetchForecasts(ctx context.Context, stationSegment string, observation time.Time) (*forecast.Table, error) {
	tracer := s.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "tenmado.FetchForecasts")
	defer span.End()

	span.SetAttributes(
		attribute.String("station", stationSegment),
		attribute.String("observation_date", observation.Format(forecast.DateLayout)),
	)

	stationURL := s.StationURL(stationSegment)
	base, err := url.Parse(stationURL)
	if err != nil {
		return nil, fmt.Errorf("invalid station url %q: %w", stationURL, err)
	}

	table := forecast.NewTable()
	for _, issued := range IssueDates(observation) {
		records, err := s.fetchIssueDate(ctx, base, observation, issued)
		if err != nil {
			s.tele.RecordError(ctx, err, attribute.String("issue_date", issued.Format(forecast.DateLayout)))
			return nil, err
		}
		for _, r := range records {
			table.Insert(r)
		}
	}

	span.SetAttributes(attribute.Int("records", table.Len()))

	s.logger.Info("Tenmado forecasts collected",
		zap.String("station", stationSegment),
		zap.String("observation_date", observation.Format(forecast.DateLayout)),
		zap.Int("records", table.Len()))

	return table, nil
}

func (s *TenmadoService) fetchIssueDate(ctx context.Context, base *url.URL, observation, issued time.Time) ([]forecast.Record, error) {
	tracer := s.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "tenmado.fetchIssueDate")
	defer span.End()

	issuedStr := issued.Format(forecast.DateLayout)
	span.SetAttributes(attribute.String("issue_date", issuedStr))
	log := s.logger.With(zap.String("issue_date", issuedStr))

	listingURL := base.String() + fmt.Sprintf("%s/%d/", issued.Format("200601"), issued.Day())
	listing, err := s.getDocument(ctx, listingURL, observability.PageListing)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		s.skip(log, observability.SkipNotFound, listingURL)
		return nil, nil
	}

	href, ok := NextPageLink(listing)
	if !ok {
		s.skip(log, observability.SkipNoLink, listingURL)
		return nil, nil
	}

	detailURL, err := base.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("invalid detail link %q: %w", href, err)
	}

	detail, err := s.getDocument(ctx, detailURL.String(), observability.PageDetail)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		s.skip(log, observability.SkipNotFound, detailURL.String())
		return nil, nil
	}

	records, err := Extract(detail, observation, issued)
	if err != nil {
		if errors.Is(err, ErrMissingField) {
			log.Warn("Skipping issue date with incomplete forecast block",
				zap.String("url", detailURL.String()),
				zap.Error(err))
			s.metrics.DatesSkipped.WithLabelValues(observability.SkipMissingField).Inc()
			return nil, nil
		}
		return nil, err
	}

	if len(records) == 0 {
		s.skip(log, observability.SkipNoMatch, detailURL.String())
		return nil, nil
	}

	s.metrics.RecordsExtracted.Add(float64(len(records)))
	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

func (s *TenmadoService) skip(log *zap.Logger, reason, pageURL string) {
	log.Debug("No forecast for issue date", zap.String("reason", reason), zap.String("url", pageURL))
	s.metrics.DatesSkipped.WithLabelValues(reason).Inc()
}

// getDocument fetches and parses a page. A 404 yields a nil document and no error.
func (s *TenmadoService) getDocument(ctx context.Context, pageURL, page string) (*goquery.Document, error) {
	tracer := s.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "tenmado.getDocument")
	defer span.End()

	span.SetAttributes(
		attribute.String("url", pageURL),
		attribute.String("page", page),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", page, err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s page: %w", page, err)
	}
	defer resp.Body.Close()

	s.metrics.PagesFetched.WithLabelValues(page).Inc()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %s page %s returned %d", ErrUnexpectedStatus, page, pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s page: %w", page, err)
	}
	return doc, nil
}
