// Package export writes forecast tables and charts to downloadable files.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vzahanych/forecast-history/internal/forecast"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

type Encoding string

const (
	EncodingShiftJIS Encoding = "shift_jis"
	EncodingUTF8     Encoding = "utf-8"
)

// ParseEncoding accepts the config spellings of the supported encodings.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "shift_jis", "sjis", "":
		return EncodingShiftJIS, nil
	case "utf-8", "utf8":
		return EncodingUTF8, nil
	default:
		return "", fmt.Errorf("unsupported csv encoding %q", s)
	}
}

// ContentType is the MIME type of a CSV file in this encoding.
func (e Encoding) ContentType() string {
	return "text/csv; charset=" + string(e)
}

// Header is the CSV header row, in the site's language.
var Header = []string{"実績日", "天気予報発表日", "天気予報", "降水確率", "最高気温", "最低気温"}

var ErrBadHeader = errors.New("csv header does not match")

// WriteCSV writes the raw table. Runes Shift_JIS cannot represent are replaced.
func WriteCSV(w io.Writer, table *forecast.Table, enc Encoding) error {
	out := w
	var tw io.WriteCloser
	if enc == EncodingShiftJIS {
		tw = transform.NewWriter(w, encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder()))
		out = tw
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range table.Records() {
		row := []string{
			r.ObservationDate.Format(forecast.DateLayout),
			r.IssueDate.Format(forecast.DateLayout),
			r.Weather,
			r.Precipitation,
			r.HighTemp,
			r.LowTemp,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if tw != nil {
		return tw.Close()
	}
	return nil
}

// ReadCSV parses a file produced by WriteCSV back into a table.
func ReadCSV(r io.Reader, enc Encoding) (*forecast.Table, error) {
	in := r
	if enc == EncodingShiftJIS {
		in = transform.NewReader(r, japanese.ShiftJIS.NewDecoder())
	}

	cr := csv.NewReader(in)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, col := range Header {
		if header[i] != col {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i+1, header[i], col)
		}
	}

	table := forecast.NewTable()
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		obs, err := forecast.ParseDate(row[0])
		if err != nil {
			return nil, fmt.Errorf("observation date: %w", err)
		}
		issued, err := forecast.ParseDate(row[1])
		if err != nil {
			return nil, fmt.Errorf("issue date: %w", err)
		}

		table.Insert(forecast.Record{
			ObservationDate: obs,
			IssueDate:       issued,
			Weather:         row[2],
			Precipitation:   row[3],
			HighTemp:        row[4],
			LowTemp:         row[5],
		})
	}
	return table, nil
}

// CSVFileName is the download name for a station's table.
func CSVFileName(stationName string, observation time.Time) string {
	return fmt.Sprintf("weather_%s_%s.csv", stationName, observation.Format("20060102"))
}

// ChartFileName is the download name for a chart, e.g. overall_東京_20240510.png.
func ChartFileName(prefix, stationName string, observation time.Time) string {
	return fmt.Sprintf("%s_%s_%s.png", prefix, stationName, observation.Format("20060102"))
}
