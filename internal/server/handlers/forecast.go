package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/vzahanych/forecast-history/internal/aggregator"
	"github.com/vzahanych/forecast-history/internal/chart"
	"github.com/vzahanych/forecast-history/internal/export"
	"github.com/vzahanych/forecast-history/internal/forecast"
	"github.com/vzahanych/forecast-history/internal/server/utils"
	"github.com/vzahanych/forecast-history/internal/station"
	"go.uber.org/zap"
)

const indexPage = "index.html"

var chartTitles = map[chart.Kind]string{
	chart.KindCombined:      "最高・最低気温と降水確率",
	chart.KindTemperature:   "最高・最低気温",
	chart.KindPrecipitation: "降水確率と天気",
}

// requestError is a failure that maps directly onto an HTTP response.
type requestError struct {
	status  int
	code    string
	message string
	details interface{}
}

func (e *requestError) Error() string { return e.message }

type ForecastHandler struct {
	aggregator *aggregator.Aggregator
	clock      clockwork.Clock
	encoding   export.Encoding
	logger     *zap.Logger
}

func NewForecastHandler(agg *aggregator.Aggregator, clock clockwork.Clock, encoding export.Encoding, logger *zap.Logger) *ForecastHandler {
	return &ForecastHandler{
		aggregator: agg,
		clock:      clock,
		encoding:   encoding,
		logger:     logger,
	}
}

// Index renders the selection form with today's date (JST) preselected.
func (h *ForecastHandler) Index(c *gin.Context) {
	view := h.newPage(c.Query("region"), c.Query("station"), c.Query("date"))
	c.HTML(http.StatusOK, indexPage, view)
}

// Forecast runs the pipeline once and renders the table, CSV link and charts.
func (h *ForecastHandler) Forecast(c *gin.Context) {
	view := h.newPage(c.Query("region"), c.Query("station"), c.Query("date"))

	report, reqErr := h.runPipeline(c)
	if reqErr != nil {
		view.Error = reqErr.message
		c.HTML(reqErr.status, indexPage, view)
		return
	}

	view.Region = report.Station.Region
	view.Station = report.Station.Name
	view.Result = h.newResult(c, report)
	c.HTML(http.StatusOK, indexPage, view)
}

func (h *ForecastHandler) Stations(c *gin.Context) {
	c.JSON(http.StatusOK, station.Regions())
}

func (h *ForecastHandler) ForecastJSON(c *gin.Context) {
	report, reqErr := h.runPipeline(c)
	if reqErr != nil {
		h.abortJSON(c, reqErr)
		return
	}

	c.JSON(http.StatusOK, ForecastResponse{
		Region:          report.Station.Region,
		Station:         report.Station.Name,
		Segment:         report.Station.Segment,
		ObservationDate: report.ObservationDate.Format(forecast.DateLayout),
		Records:         recordResponses(report.Table),
	})
}

// ForecastCSV serves the raw table as a CSV attachment.
func (h *ForecastHandler) ForecastCSV(c *gin.Context) {
	report, reqErr := h.runPipeline(c)
	if reqErr != nil {
		h.abortJSON(c, reqErr)
		return
	}

	data, err := h.csv(report)
	if err != nil {
		h.abortJSON(c, &requestError{status: http.StatusInternalServerError, code: "EXPORT_ERROR", message: "Failed to write CSV", details: err.Error()})
		return
	}

	name := export.CSVFileName(report.Station.Name, report.ObservationDate)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, h.encoding.ContentType(), data)
}

// ForecastChart serves one chart as a PNG attachment.
func (h *ForecastHandler) ForecastChart(c *gin.Context) {
	var chartReq ChartRequest
	if err := c.ShouldBindUri(&chartReq); err != nil {
		h.abortJSON(c, &requestError{status: http.StatusBadRequest, code: "INVALID_PARAMS", message: "Invalid chart kind", details: err.Error()})
		return
	}
	if verrs := utils.ValidateStruct(chartReq); verrs != nil {
		h.abortJSON(c, &requestError{status: http.StatusBadRequest, code: "INVALID_PARAMS", message: "Invalid chart kind", details: verrs})
		return
	}
	kind, _ := chart.ParseKind(chartReq.Kind)

	report, reqErr := h.runPipeline(c)
	if reqErr != nil {
		h.abortJSON(c, reqErr)
		return
	}

	png, err := h.aggregator.RenderChart(utils.PipelineContext(c), report, kind)
	switch {
	case errors.Is(err, chart.ErrNoData):
		h.abortJSON(c, &requestError{status: http.StatusNotFound, code: "NO_DATA", message: "No matching forecast found"})
		return
	case errors.Is(err, forecast.ErrMalformedNumeric):
		h.abortJSON(c, &requestError{status: http.StatusUnprocessableEntity, code: "MALFORMED_VALUE", message: "Forecast values could not be charted", details: err.Error()})
		return
	case err != nil:
		h.abortJSON(c, &requestError{status: http.StatusInternalServerError, code: "CHART_ERROR", message: "Failed to render chart", details: err.Error()})
		return
	}

	name := export.ChartFileName(kind.FilePrefix(), report.Station.Name, report.ObservationDate)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, "image/png", png)
}

// runPipeline binds and validates the query, resolves the station and runs the
// pipeline. Transport and status faults surface as 502 with no partial result.
func (h *ForecastHandler) runPipeline(c *gin.Context) (*aggregator.Report, *requestError) {
	reqLogger := h.logger.With(zap.String("request_id", utils.GetRequestIDFromGinContext(c)))

	var req ForecastRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		reqLogger.Warn("Invalid request parameters", zap.Error(err))
		return nil, &requestError{status: http.StatusBadRequest, code: "INVALID_PARAMS", message: "Invalid request parameters", details: err.Error()}
	}
	if verrs := utils.ValidateStruct(req); verrs != nil {
		reqLogger.Warn("Request validation failed", zap.Any("errors", verrs))
		return nil, &requestError{status: http.StatusBadRequest, code: "INVALID_PARAMS", message: verrs[0].Message, details: verrs}
	}

	st, err := resolveStation(req.Region, req.Station)
	if err != nil {
		reqLogger.Warn("Unknown station", zap.String("region", req.Region), zap.String("station", req.Station))
		return nil, &requestError{status: http.StatusBadRequest, code: "UNKNOWN_STATION", message: err.Error()}
	}

	observation, _ := forecast.ParseDate(req.Date)

	reqLogger.Info("Processing forecast request",
		zap.String("station", st.Name),
		zap.String("date", req.Date))

	report, err := h.aggregator.Report(utils.PipelineContext(c), st, observation)
	if err != nil {
		reqLogger.Error("Failed to fetch forecast history", zap.Error(err))
		return nil, &requestError{status: http.StatusBadGateway, code: "FETCH_ERROR", message: "予報の取得に失敗しました", details: err.Error()}
	}
	return report, nil
}

func resolveStation(region, name string) (station.Station, error) {
	if region == "" {
		return station.Find(name)
	}
	return station.Lookup(region, name)
}

func (h *ForecastHandler) abortJSON(c *gin.Context, e *requestError) {
	c.AbortWithStatusJSON(e.status, ErrorResponse{
		Error:   e.message,
		Code:    e.code,
		Details: e.details,
	})
}

func (h *ForecastHandler) newPage(region, stationName, date string) *pageView {
	regions := station.Regions()
	view := &pageView{
		Regions: make([]regionView, 0, len(regions)),
		Region:  region,
		Station: stationName,
		Date:    date,
	}
	for _, r := range regions {
		rv := regionView{Name: r.Name}
		for _, st := range r.Stations {
			rv.Stations = append(rv.Stations, st.Name)
		}
		view.Regions = append(view.Regions, rv)
	}

	if view.Region == "" && len(regions) > 0 {
		view.Region = regions[0].Name
	}
	if view.Date == "" {
		view.Date = h.today()
	}
	return view
}

func (h *ForecastHandler) newResult(c *gin.Context, report *aggregator.Report) *resultView {
	result := &resultView{
		StationName:     report.Station.Name,
		ObservationDate: report.ObservationDate.Format(forecast.DateLayout),
		Records:         recordResponses(report.Table),
	}
	if report.Empty() {
		return result
	}

	if data, err := h.csv(report); err != nil {
		h.logger.Error("Failed to write CSV", zap.Error(err))
	} else {
		result.CSVName = export.CSVFileName(report.Station.Name, report.ObservationDate)
		result.CSVURL = dataURI("text/csv;charset="+string(h.encoding), data)
	}

	for _, res := range h.aggregator.Charts(utils.PipelineContext(c), report) {
		cv := chartView{
			Title:    chartTitles[res.Kind],
			FileName: export.ChartFileName(res.Kind.FilePrefix(), report.Station.Name, report.ObservationDate),
		}
		if res.Err != nil {
			cv.Error = fmt.Sprintf("グラフを描画できませんでした: %v", res.Err)
		} else {
			cv.URL = dataURI("image/png", res.PNG)
		}
		result.Charts = append(result.Charts, cv)
	}
	return result
}

func (h *ForecastHandler) csv(report *aggregator.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, report.Table, h.encoding); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *ForecastHandler) today() string {
	return h.clock.Now().In(forecast.JST).Format(forecast.DateLayout)
}

func recordResponses(table *forecast.Table) []RecordResponse {
	records := table.Records()
	out := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, newRecordResponse(r))
	}
	return out
}

func dataURI(mediaType string, data []byte) template.URL {
	return template.URL("data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data))
}
