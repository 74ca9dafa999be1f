package handlers

import (
	"html/template"

	"github.com/vzahanych/forecast-history/internal/forecast"
)

// ForecastRequest selects a station and an observation date. Region may be
// omitted when the station name is unique.
type ForecastRequest struct {
	Region  string `form:"region" json:"region" validate:"omitempty,max=20"`
	Station string `form:"station" json:"station" validate:"required,max=40"`
	Date    string `form:"date" json:"date" validate:"required,isodate"`
}

type ChartRequest struct {
	Kind string `uri:"kind" json:"kind" validate:"required,chartkind"`
}

// ForecastResponse is the JSON form of one pipeline run.
type ForecastResponse struct {
	Region          string           `json:"region"`
	Station         string           `json:"station"`
	Segment         string           `json:"segment"`
	ObservationDate string           `json:"observation_date"`
	Records         []RecordResponse `json:"records"`
}

// RecordResponse carries the raw strings exactly as scraped.
type RecordResponse struct {
	ObservationDate string `json:"observation_date"`
	IssueDate       string `json:"issue_date"`
	Weather         string `json:"weather"`
	Precipitation   string `json:"precipitation"`
	HighTemp        string `json:"high_temp"`
	LowTemp         string `json:"low_temp"`
}

func newRecordResponse(r forecast.Record) RecordResponse {
	return RecordResponse{
		ObservationDate: r.ObservationDate.Format(forecast.DateLayout),
		IssueDate:       r.IssueDate.Format(forecast.DateLayout),
		Weather:         r.Weather,
		Precipitation:   r.Precipitation,
		HighTemp:        r.HighTemp,
		LowTemp:         r.LowTemp,
	}
}

// ErrorResponse represents an error response with validation
type ErrorResponse struct {
	Error   string      `json:"error" validate:"required,min=1,max=500"`
	Code    string      `json:"code,omitempty" validate:"omitempty,min=1,max=50"`
	Details interface{} `json:"details,omitempty"`
}

// HealthResponse represents health check response with validation
type HealthResponse struct {
	Status    string `json:"status" validate:"required,oneof=ok alive ready"`
	Uptime    string `json:"uptime" validate:"required"`
	Timestamp string `json:"timestamp,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// pageView feeds the index template. Result is nil until a run completed.
type pageView struct {
	Regions []regionView
	Region  string
	Station string
	Date    string
	Error   string
	Result  *resultView
}

type regionView struct {
	Name     string
	Stations []string
}

type resultView struct {
	StationName     string
	ObservationDate string
	Records         []RecordResponse
	CSVName         string
	CSVURL          template.URL
	Charts          []chartView
}

type chartView struct {
	Title    string
	FileName string
	URL      template.URL
	Error    string
}
