package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/vzahanych/forecast-history/internal/aggregator"
	"github.com/vzahanych/forecast-history/internal/chart"
	"github.com/vzahanych/forecast-history/internal/config"
	"github.com/vzahanych/forecast-history/internal/export"
	"github.com/vzahanych/forecast-history/internal/forecast"
	"github.com/vzahanych/forecast-history/internal/station"
)

type fetchOptions struct {
	region  string
	station string
	segment string
	date    string
	outDir  string
	csv     bool
	charts  bool
}

func fetchCmd() *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the forecast history of one station and date",
		Long: `Runs the pipeline once and prints the forecasts published during the seven days
before the observation date. Optionally writes the CSV and the three charts.`,
		Example: `  forecast-history fetch --region 関東甲信 --station 東京 --date 2024-05-10 --csv --charts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.region, "region", "", "region display name, e.g. 関東甲信")
	cmd.Flags().StringVar(&opts.station, "station", "", "station display name, e.g. 東京")
	cmd.Flags().StringVar(&opts.segment, "segment", "", "station URL segment, e.g. 気象庁 (instead of --station)")
	cmd.Flags().StringVar(&opts.date, "date", "", "observation date YYYY-MM-DD (default: today in JST)")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "output directory for --csv and --charts (default: export.output_dir)")
	cmd.Flags().BoolVar(&opts.csv, "csv", false, "write the table as CSV")
	cmd.Flags().BoolVar(&opts.charts, "charts", false, "write the three charts as PNG")
	cmd.MarkFlagsMutuallyExclusive("station", "segment")
	cmd.MarkFlagsOneRequired("station", "segment")

	return cmd
}

func runFetch(cmd *cobra.Command, opts *fetchOptions) error {
	cfg := config.GetConfig()

	st, err := resolveStation(opts)
	if err != nil {
		return err
	}

	date := opts.date
	if date == "" {
		date = clock.Now().In(forecast.JST).Format(forecast.DateLayout)
	}
	observation, err := forecast.ParseDate(date)
	if err != nil {
		return fmt.Errorf("invalid --date %q: %w", date, err)
	}

	agg := newAggregator(cfg)
	report, err := agg.Report(cmd.Context(), st, observation)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s) %s\n\n", st.Name, st.Region, report.ObservationDate.Format(forecast.DateLayout))
	if report.Empty() {
		fmt.Fprintln(out, "該当するデータが見つかりませんでした。")
		return nil
	}
	if err := writeTable(out, report.Table); err != nil {
		return err
	}

	outDir := opts.outDir
	if outDir == "" {
		outDir = cfg.Export.OutputDir
	}
	if opts.csv || opts.charts {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	if opts.csv {
		encoding, err := export.ParseEncoding(cfg.Export.CSVEncoding)
		if err != nil {
			return err
		}
		path, err := writeCSVFile(outDir, report, encoding)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nwrote %s\n", path)
	}

	if opts.charts {
		// A chart that cannot be drawn is reported; the others are still written.
		var errs []error
		for _, res := range agg.Charts(cmd.Context(), report) {
			if res.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s chart: %v\n", res.Kind, res.Err)
				errs = append(errs, res.Err)
				continue
			}
			path := filepath.Join(outDir, export.ChartFileName(res.Kind.FilePrefix(), st.Name, report.ObservationDate))
			if err := os.WriteFile(path, res.PNG, 0o644); err != nil {
				return fmt.Errorf("write %s chart: %w", res.Kind, err)
			}
			fmt.Fprintf(out, "wrote %s\n", path)
		}
		if len(errs) == len(chart.Kinds) {
			return errors.Join(errs...)
		}
	}

	return nil
}

func resolveStation(opts *fetchOptions) (station.Station, error) {
	switch {
	case opts.segment != "":
		st, err := station.BySegment(opts.segment)
		if errors.Is(err, station.ErrUnknownStation) {
			// Segments outside the reference table are still valid URLs on the site.
			log.Warnw("Station segment not in reference data", "segment", opts.segment)
			return station.Station{Name: opts.segment, Segment: opts.segment}, nil
		}
		return st, err
	case opts.region != "":
		return station.Lookup(opts.region, opts.station)
	default:
		return station.Find(opts.station)
	}
}

func writeCSVFile(dir string, report *aggregator.Report, encoding export.Encoding) (string, error) {
	path := filepath.Join(dir, export.CSVFileName(report.Station.Name, report.ObservationDate))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	if err := export.WriteCSV(f, report.Table, encoding); err != nil {
		return "", err
	}
	return path, f.Close()
}

// writeTable prints the raw records with columns aligned by display width, so
// full-width Japanese text lines up in a terminal.
func writeTable(w io.Writer, table *forecast.Table) error {
	rows := [][]string{export.Header}
	for _, r := range table.Records() {
		rows = append(rows, []string{
			r.ObservationDate.Format(forecast.DateLayout),
			r.IssueDate.Format(forecast.DateLayout),
			r.Weather,
			r.Precipitation,
			r.HighTemp,
			r.LowTemp,
		})
	}
	return writeColumns(w, rows)
}

func writeColumns(w io.Writer, rows [][]string) error {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == len(row)-1 {
				cells[i] = cell
				continue
			}
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "  ")); err != nil {
			return err
		}
	}
	return nil
}
