package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/vzahanych/forecast-history/internal/forecast"
)

var ErrMissingField = errors.New("forecast block is missing a field")

// CSS selectors of the forecast site's markup.
const (
	selectorNextLink = "a.link"
	selectorBlock    = "div.forecast.card.card-skin"
	classTargetDate  = "forecast-target-date"
	classWeather     = "weather"
	classPopNum      = "pop-num"
	classPopPercent  = "pop-percent"
	classHighestTemp = "highest-temperature"
	classLowestTemp  = "lowest-temperature"
	targetDateLayout = "01/02"
)

// NextPageLink returns the href of the detail page link, if the listing has one.
func NextPageLink(doc *goquery.Document) (string, bool) {
	return doc.Find(selectorNextLink).First().Attr("href")
}

// Extract reads every forecast block on a detail page whose target date is the
// observation date. A matched block without one of its fields fails the whole
// page with ErrMissingField.
func Extract(doc *goquery.Document, observation, issued time.Time) ([]forecast.Record, error) {
	target := observation.Format(targetDateLayout)

	var records []forecast.Record
	blocks := doc.Find(selectorBlock)
	for i := range blocks.Nodes {
		block := blocks.Eq(i)

		dateNode := block.Find("div." + classTargetDate).First()
		if dateNode.Length() == 0 || strings.TrimSpace(dateNode.Text()) != target {
			continue
		}

		rec, err := extractBlock(block)
		if err != nil {
			return nil, err
		}
		rec.ObservationDate = forecast.Date(observation)
		rec.IssueDate = forecast.Date(issued)
		records = append(records, rec)
	}

	return records, nil
}

func extractBlock(block *goquery.Selection) (forecast.Record, error) {
	var (
		rec      forecast.Record
		pop, pct string
		err      error
	)

	fields := []struct {
		class string
		dst   *string
	}{
		{classWeather, &rec.Weather},
		{classPopNum, &pop},
		{classPopPercent, &pct},
		{classHighestTemp, &rec.HighTemp},
		{classLowestTemp, &rec.LowTemp},
	}

	for _, f := range fields {
		if *f.dst, err = fieldText(block, f.class); err != nil {
			return forecast.Record{}, err
		}
	}

	rec.Precipitation = pop + pct
	return rec, nil
}

func fieldText(block *goquery.Selection, class string) (string, error) {
	node := block.Find("div." + class).First()
	if node.Length() == 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingField, class)
	}
	return strings.TrimSpace(node.Text()), nil
}
