package service

import (
	"context"
	"time"

	"github.com/vzahanych/forecast-history/internal/forecast"
)

// ForecastService collects the forecasts published for one observation date at
// one station. An empty table means no forecast was found and is not an error.
type ForecastService interface {
	FetchForecasts(ctx context.Context, stationSegment string, observation time.Time) (*forecast.Table, error)
	Name() string
}

// LookbackDays is how many issue dates before the observation date are searched.
const LookbackDays = 7

// IssueDates returns the candidate issue dates for an observation date, most
// recent first: D-1 through D-7.
func IssueDates(observation time.Time) []time.Time {
	d := forecast.Date(observation)
	dates := make([]time.Time, 0, LookbackDays)
	for i := 1; i <= LookbackDays; i++ {
		dates = append(dates, d.AddDate(0, 0, -i))
	}
	return dates
}
