package chart

import (
	"math"
	"time"

	"github.com/vzahanych/forecast-history/internal/forecast"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// IconMark places one weather icon at an issue date.
type IconMark struct {
	Date time.Time
	Icon forecast.Icon
}

func iconMarks(s forecast.Series) []IconMark {
	marks := make([]IconMark, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Icon == forecast.IconNone {
			continue
		}
		marks = append(marks, IconMark{Date: p.IssueDate, Icon: p.Icon})
	}
	return marks
}

// IconSeries draws vector weather icons at a fixed value on its axis. It does not
// provide values, so it never widens the chart ranges.
type IconSeries struct {
	Name   string
	Style  chart.Style
	YAxis  chart.YAxisType
	Marks  []IconMark
	YValue float64
}

func (is IconSeries) GetName() string           { return is.Name }
func (is IconSeries) GetStyle() chart.Style     { return is.Style }
func (is IconSeries) GetYAxis() chart.YAxisType { return is.YAxis }
func (is IconSeries) Validate() error           { return nil }

func (is IconSeries) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, _ chart.Style) {
	y := canvasBox.Bottom - yrange.Translate(is.YValue)
	for _, m := range is.Marks {
		x := canvasBox.Left + xrange.Translate(chart.TimeToFloat64(m.Date))
		drawIcon(r, m.Icon, x, y)
	}
}

var (
	sunColor   = drawing.ColorFromHex("f5a623")
	cloudColor = drawing.ColorFromHex("9b9b9b")
	rainColor  = drawing.ColorFromHex("2f6fd6")
	snowColor  = drawing.ColorFromHex("7fc8f8")
)

// drawIcon draws an icon of roughly 24px centred on (x, y).
func drawIcon(r chart.Renderer, icon forecast.Icon, x, y int) {
	switch icon {
	case forecast.IconClear:
		drawSun(r, x, y)
	case forecast.IconCloudy:
		drawCloud(r, x, y)
	case forecast.IconRain:
		drawCloud(r, x, y-4)
		for i := -1; i <= 1; i++ {
			line(r, rainColor, x+i*6, y+6, x+i*6-3, y+12)
		}
	case forecast.IconSnow:
		drawCloud(r, x, y-4)
		for i := -1; i <= 1; i++ {
			dot(r, snowColor, x+i*6, y+9, 2)
		}
	}
}

func drawSun(r chart.Renderer, x, y int) {
	dot(r, sunColor, x, y, 6)
	for i := 0; i < 8; i++ {
		a := float64(i) * math.Pi / 4
		x0 := x + int(math.Round(9*math.Cos(a)))
		y0 := y + int(math.Round(9*math.Sin(a)))
		x1 := x + int(math.Round(12*math.Cos(a)))
		y1 := y + int(math.Round(12*math.Sin(a)))
		line(r, sunColor, x0, y0, x1, y1)
	}
}

func drawCloud(r chart.Renderer, x, y int) {
	dot(r, cloudColor, x-6, y+1, 5)
	dot(r, cloudColor, x+1, y-3, 7)
	dot(r, cloudColor, x+7, y+1, 5)

	r.SetFillColor(cloudColor)
	r.SetStrokeColor(cloudColor)
	r.SetStrokeWidth(1)
	r.MoveTo(x-6, y+1)
	r.LineTo(x+7, y+1)
	r.LineTo(x+7, y+6)
	r.LineTo(x-6, y+6)
	r.Close()
	r.FillStroke()
}

func dot(r chart.Renderer, color drawing.Color, x, y int, radius float64) {
	r.SetFillColor(color)
	r.SetStrokeColor(color)
	r.SetStrokeWidth(1)
	r.Circle(radius, x, y)
	r.FillStroke()
}

func line(r chart.Renderer, color drawing.Color, x0, y0, x1, y1 int) {
	r.SetStrokeColor(color)
	r.SetStrokeWidth(2)
	r.MoveTo(x0, y0)
	r.LineTo(x1, y1)
	r.Stroke()
}
