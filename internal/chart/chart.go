// Package chart renders the three forecast history charts as PNG images.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/vzahanych/forecast-history/internal/forecast"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var ErrNoData = errors.New("no forecast data to chart")

type Kind string

const (
	KindCombined      Kind = "combined"
	KindTemperature   Kind = "temperature"
	KindPrecipitation Kind = "precipitation"
)

// Kinds lists every chart in display order.
var Kinds = []Kind{KindCombined, KindTemperature, KindPrecipitation}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown chart kind %q", s)
}

// Fields are the numeric columns the chart needs normalized.
func (k Kind) Fields() forecast.Fields {
	if k == KindTemperature {
		return forecast.FieldTemperature
	}
	return forecast.AllFields
}

// FilePrefix is the download file name prefix for the chart.
func (k Kind) FilePrefix() string {
	switch k {
	case KindCombined:
		return "overall"
	case KindTemperature:
		return "temperature"
	case KindPrecipitation:
		return "chanceofrain"
	default:
		return string(k)
	}
}

type Options struct {
	Width  int
	Height int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1000
	}
	if o.Height <= 0 {
		o.Height = 600
	}
	return o
}

// Chart is one rendered-on-demand chart together with the series feeding it.
type Chart struct {
	Kind   Kind
	Title  string
	Series forecast.Series

	graph chart.Chart
}

// Render writes the chart as PNG.
func (c *Chart) Render(w io.Writer) error {
	if err := c.graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s chart: %w", c.Kind, err)
	}
	return nil
}

// FromTable normalizes the columns the chart needs and builds it.
func FromTable(kind Kind, table *forecast.Table, opts Options) (*Chart, error) {
	if table.Empty() {
		return nil, ErrNoData
	}
	s, err := forecast.Normalize(table, kind.Fields())
	if err != nil {
		return nil, fmt.Errorf("%s chart: %w", kind, err)
	}
	return New(kind, s, opts)
}

func New(kind Kind, s forecast.Series, opts Options) (*Chart, error) {
	switch kind {
	case KindCombined:
		return Combined(s, opts)
	case KindTemperature:
		return Temperature(s, opts)
	case KindPrecipitation:
		return Precipitation(s, opts)
	default:
		return nil, fmt.Errorf("unknown chart kind %q", kind)
	}
}

var (
	colorHigh   = drawing.ColorFromHex("d62728")
	colorLow    = drawing.ColorFromHex("1f77b4")
	colorPopBar = drawing.Color{R: 0, G: 0, B: 255, A: 77}
)

const (
	probabilityMin = 0
	probabilityMax = 100
	// iconValue is where icons sit on the probability axis.
	iconValue = 8
	dayPad    = 12 * time.Hour
)

// Combined draws high/low temperature lines on the left axis, precipitation
// probability bars on a 0-100 right axis, and a weather icon per issue date.
func Combined(s forecast.Series, opts Options) (*Chart, error) {
	if len(s.Points) == 0 {
		return nil, ErrNoData
	}
	opts = opts.withDefaults()

	title := fmt.Sprintf("Forecasts for %s: high/low temperature, precipitation, weather", s.ObservationDate.Format(forecast.DateLayout))
	series := []chart.Series{
		temperatureSeries("High", s.IssueDates(), s.HighTemps(), colorHigh),
		temperatureSeries("Low", s.IssueDates(), s.LowTemps(), colorLow),
		precipitationSeries(s, chart.YAxisSecondary),
	}

	graph := chart.Chart{
		Title:  title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: issueDateAxis(s),
		YAxis: chart.YAxis{
			Name:           "Temperature (°C)",
			Range:          temperatureRange(s),
			ValueFormatter: floatFormatter,
			GridMajorStyle: gridStyle(),
		},
		YAxisSecondary: probabilityAxis(),
		Series:         series,
	}
	withLegendAndIcons(&graph, s, chart.YAxisSecondary)

	return &Chart{Kind: KindCombined, Title: title, Series: s, graph: graph}, nil
}

// Temperature draws the high/low temperature lines only.
func Temperature(s forecast.Series, opts Options) (*Chart, error) {
	if len(s.Points) == 0 {
		return nil, ErrNoData
	}
	opts = opts.withDefaults()

	title := fmt.Sprintf("Forecasts for %s: high/low temperature", s.ObservationDate.Format(forecast.DateLayout))
	graph := chart.Chart{
		Title:  title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: issueDateAxis(s),
		YAxis: chart.YAxis{
			Name:           "Temperature (°C)",
			Range:          temperatureRange(s),
			ValueFormatter: floatFormatter,
			GridMajorStyle: gridStyle(),
		},
		Series: []chart.Series{
			temperatureSeries("High", s.IssueDates(), s.HighTemps(), colorHigh),
			temperatureSeries("Low", s.IssueDates(), s.LowTemps(), colorLow),
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return &Chart{Kind: KindTemperature, Title: title, Series: s, graph: graph}, nil
}

// Precipitation draws probability bars on a 0-100 axis with weather icons.
func Precipitation(s forecast.Series, opts Options) (*Chart, error) {
	if len(s.Points) == 0 {
		return nil, ErrNoData
	}
	opts = opts.withDefaults()

	title := fmt.Sprintf("Forecasts for %s: precipitation probability and weather", s.ObservationDate.Format(forecast.DateLayout))
	graph := chart.Chart{
		Title:  title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis:  issueDateAxis(s),
		YAxis:  probabilityAxis(),
		Series: []chart.Series{precipitationSeries(s, chart.YAxisPrimary)},
	}
	withLegendAndIcons(&graph, s, chart.YAxisPrimary)

	return &Chart{Kind: KindPrecipitation, Title: title, Series: s, graph: graph}, nil
}

// withLegendAndIcons attaches a legend for the data series and appends the icon
// overlay after them so the legend does not list it.
func withLegendAndIcons(graph *chart.Chart, s forecast.Series, axis chart.YAxisType) {
	legend := *graph
	legend.Series = append([]chart.Series(nil), graph.Series...)

	graph.Series = append(graph.Series, IconSeries{
		Name:   "Weather",
		YAxis:  axis,
		Marks:  iconMarks(s),
		YValue: iconValue,
	})
	graph.Elements = []chart.Renderable{chart.Legend(&legend)}
}

func temperatureSeries(name string, x []time.Time, y []float64, color drawing.Color) chart.TimeSeries {
	return chart.TimeSeries{
		Name: name,
		Style: chart.Style{
			StrokeColor: color,
			StrokeWidth: 2,
			DotColor:    color,
			DotWidth:    5,
		},
		XValues: x,
		YValues: y,
	}
}

func precipitationSeries(s forecast.Series, axis chart.YAxisType) chart.HistogramSeries {
	return chart.HistogramSeries{
		Name:  "Precipitation",
		YAxis: axis,
		Style: chart.Style{
			FillColor:   colorPopBar,
			StrokeColor: colorPopBar,
			StrokeWidth: 1,
		},
		InnerSeries: chart.TimeSeries{
			XValues: s.IssueDates(),
			YValues: s.Precipitation(),
		},
	}
}

func probabilityAxis() chart.YAxis {
	return chart.YAxis{
		Name:           "Precipitation (%)",
		Range:          &chart.ContinuousRange{Min: probabilityMin, Max: probabilityMax},
		ValueFormatter: floatFormatter,
	}
}

// issueDateAxis ticks once per issue date and pads the range by half a day so a
// single date still has a non-zero domain.
func issueDateAxis(s forecast.Series) chart.XAxis {
	dates := s.IssueDates()
	first, last := dates[0], dates[0]
	ticks := make([]chart.Tick, 0, len(dates))
	for _, d := range dates {
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
		ticks = append(ticks, chart.Tick{Value: chart.TimeToFloat64(d), Label: d.Format("01/02")})
	}

	return chart.XAxis{
		Name: "Issue date",
		Range: &chart.ContinuousRange{
			Min: chart.TimeToFloat64(first.Add(-dayPad)),
			Max: chart.TimeToFloat64(last.Add(dayPad)),
		},
		Ticks: ticks,
	}
}

// temperatureRange spans both series with a two degree margin.
func temperatureRange(s forecast.Series) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range s.Points {
		lo = math.Min(lo, math.Min(p.HighTemp, p.LowTemp))
		hi = math.Max(hi, math.Max(p.HighTemp, p.LowTemp))
	}
	return &chart.ContinuousRange{Min: math.Floor(lo) - 2, Max: math.Ceil(hi) + 2}
}

func gridStyle() chart.Style {
	return chart.Style{
		StrokeColor: drawing.ColorFromHex("e0e0e0"),
		StrokeWidth: 1,
	}
}

func floatFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return ""
}
