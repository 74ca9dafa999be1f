package forecast

import (
	"sort"
	"time"
)

// DateLayout is the wire format for observation and issue dates.
const DateLayout = "2006-01-02"

// JST is the time zone the forecast site publishes in.
var JST = time.FixedZone("JST", 9*60*60)

// Record is one published forecast for an observation date. Raw fields are kept
// exactly as they appear on the page.
type Record struct {
	ObservationDate time.Time `json:"observation_date"`
	IssueDate       time.Time `json:"issue_date"`
	Weather         string    `json:"weather"`
	Precipitation   string    `json:"precipitation_probability"`
	HighTemp        string    `json:"temp_high"`
	LowTemp         string    `json:"temp_low"`
}

// Table holds records ordered by (observation date, issue date).
type Table struct {
	records []Record
}

func NewTable(records ...Record) *Table {
	t := &Table{}
	for _, r := range records {
		t.Insert(r)
	}
	return t
}

// Insert appends r and restores the table ordering.
func (t *Table) Insert(r Record) {
	t.records = append(t.records, r)
	sort.SliceStable(t.records, func(i, j int) bool {
		a, b := t.records[i], t.records[j]
		if !a.ObservationDate.Equal(b.ObservationDate) {
			return a.ObservationDate.Before(b.ObservationDate)
		}
		return a.IssueDate.Before(b.IssueDate)
	})
}

// Records returns a copy of the ordered records.
func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Empty reports whether no forecast matched. An empty table is a normal result.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Date truncates t to midnight in its own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate parses a YYYY-MM-DD string as a JST calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, JST)
}
