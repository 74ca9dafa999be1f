package forecast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	celsiusSuffix = "℃"
	percentSuffix = "%"
	rangeSep      = "/"
)

var ErrMalformedNumeric = errors.New("malformed numeric value")

// FieldError reports which column failed to normalize.
type FieldError struct {
	Field string
	Raw   string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Raw, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Fields selects which numeric columns Normalize derives.
type Fields uint8

const (
	FieldTemperature Fields = 1 << iota
	FieldPrecipitation

	AllFields = FieldTemperature | FieldPrecipitation
)

// Point is one normalized row feeding a chart.
type Point struct {
	IssueDate     time.Time
	Weather       string
	HighTemp      float64
	LowTemp       float64
	Precipitation float64
	Icon          Icon
}

// Series is the normalized view of a table, in table order.
type Series struct {
	ObservationDate time.Time
	Points          []Point
}

func (s Series) IssueDates() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.IssueDate
	}
	return out
}

func (s Series) HighTemps() []float64 {
	return s.values(func(p Point) float64 { return p.HighTemp })
}

func (s Series) LowTemps() []float64 {
	return s.values(func(p Point) float64 { return p.LowTemp })
}

func (s Series) Precipitation() []float64 {
	return s.values(func(p Point) float64 { return p.Precipitation })
}

func (s Series) values(get func(Point) float64) []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = get(p)
	}
	return out
}

// Normalize derives numeric columns from the raw table. The table is not modified.
func Normalize(t *Table, fields Fields) (Series, error) {
	records := t.Records()

	var s Series
	if len(records) > 0 {
		s.ObservationDate = Date(records[0].ObservationDate)
	}

	s.Points = make([]Point, 0, len(records))
	for _, r := range records {
		p := Point{
			IssueDate: Date(r.IssueDate),
			Weather:   r.Weather,
			Icon:      IconFor(r.Weather),
		}

		if fields&FieldTemperature != 0 {
			high, err := NormalizeTemperature(r.HighTemp)
			if err != nil {
				return Series{}, &FieldError{Field: "temp_high", Raw: r.HighTemp, Err: err}
			}
			low, err := NormalizeTemperature(r.LowTemp)
			if err != nil {
				return Series{}, &FieldError{Field: "temp_low", Raw: r.LowTemp, Err: err}
			}
			p.HighTemp, p.LowTemp = high, low
		}

		if fields&FieldPrecipitation != 0 {
			pop, err := NormalizePrecipitation(r.Precipitation)
			if err != nil {
				return Series{}, &FieldError{Field: "precipitation_probability", Raw: r.Precipitation, Err: err}
			}
			p.Precipitation = pop
		}

		s.Points = append(s.Points, p)
	}

	return s, nil
}

// NormalizeTemperature parses "23.5℃" into 23.5. The unit suffix is required.
func NormalizeTemperature(raw string) (float64, error) {
	v := strings.TrimSpace(raw)
	if !strings.HasSuffix(v, celsiusSuffix) {
		return 0, fmt.Errorf("%w: missing %s suffix", ErrMalformedNumeric, celsiusSuffix)
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v, celsiusSuffix)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedNumeric, err)
	}
	return f, nil
}

// NormalizePrecipitation parses "30%" into 30 and a range such as "10/20%" into
// the mean of its endpoints.
func NormalizePrecipitation(raw string) (float64, error) {
	v := strings.ReplaceAll(strings.TrimSpace(raw), percentSuffix, "")

	if !strings.Contains(v, rangeSep) {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedNumeric, err)
		}
		return float64(n), nil
	}

	parts := strings.Split(v, rangeSep)
	sum := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedNumeric, err)
		}
		sum += n
	}
	return float64(sum) / float64(len(parts)), nil
}
