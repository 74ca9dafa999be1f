package export

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/forecast-history/internal/forecast"
)

func record(t *testing.T, obs, issued, weather, pop, high, low string) forecast.Record {
	t.Helper()
	o, err := forecast.ParseDate(obs)
	require.NoError(t, err)
	i, err := forecast.ParseDate(issued)
	require.NoError(t, err)
	return forecast.Record{ObservationDate: o, IssueDate: i, Weather: weather, Precipitation: pop, HighTemp: high, LowTemp: low}
}

func sampleTable(t *testing.T) *forecast.Table {
	return forecast.NewTable(
		record(t, "2024-05-10", "2024-05-09", "雨のち曇", "60/80%", "18℃", "13℃"),
		record(t, "2024-05-10", "2024-05-04", "晴時々曇", "10%", "23.5℃", "12℃"),
		record(t, "2024-05-10", "2024-05-06", "曇, 一時 \"雨\"", "30%", "20℃", "-1℃"),
	)
}

func TestCSVRoundTrip(t *testing.T) {
	for _, enc := range []Encoding{EncodingShiftJIS, EncodingUTF8} {
		t.Run(string(enc), func(t *testing.T) {
			table := sampleTable(t)

			var buf bytes.Buffer
			require.NoError(t, WriteCSV(&buf, table, enc))

			got, err := ReadCSV(&buf, enc)
			require.NoError(t, err)

			want := table.Records()
			records := got.Records()
			require.Len(t, records, len(want))
			for i := range want {
				assert.True(t, want[i].ObservationDate.Equal(records[i].ObservationDate))
				assert.True(t, want[i].IssueDate.Equal(records[i].IssueDate))
				assert.Equal(t, want[i].Weather, records[i].Weather)
				assert.Equal(t, want[i].Precipitation, records[i].Precipitation)
				assert.Equal(t, want[i].HighTemp, records[i].HighTemp)
				assert.Equal(t, want[i].LowTemp, records[i].LowTemp)
			}
		})
	}
}

func TestWriteCSV_ShiftJISIsNotUTF8(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable(t), EncodingShiftJIS))
	assert.False(t, utf8.Valid(buf.Bytes()))
}

func TestWriteCSV_UTF8Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable(t), EncodingUTF8))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "実績日,天気予報発表日,天気予報,降水確率,最高気温,最低気温", lines[0])
	assert.Equal(t, "2024-05-10,2024-05-04,晴時々曇,10%,23.5℃,12℃", lines[1])
}

func TestWriteCSV_EmptyTableWritesHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, forecast.NewTable(), EncodingUTF8))
	assert.Equal(t, strings.Join(Header, ",")+"\n", buf.String())
}

func TestReadCSV_RejectsForeignHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b,c,d,e,f\n"), EncodingUTF8)
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]Encoding{"shift_jis": EncodingShiftJIS, "SJIS": EncodingShiftJIS, "utf-8": EncodingUTF8, "UTF8": EncodingUTF8} {
		got, err := ParseEncoding(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseEncoding("latin1")
	assert.Error(t, err)
}

func TestFileNames(t *testing.T) {
	obs, err := forecast.ParseDate("2024-05-10")
	require.NoError(t, err)

	assert.Equal(t, "weather_東京_20240510.csv", CSVFileName("東京", obs))
	assert.Equal(t, "overall_東京_20240510.png", ChartFileName("overall", "東京", obs))
}

func TestEncodingContentType(t *testing.T) {
	assert.Equal(t, "text/csv; charset=shift_jis", EncodingShiftJIS.ContentType())
	assert.Equal(t, "text/csv; charset=utf-8", EncodingUTF8.ContentType())
}
