package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/vzahanych/forecast-history/internal/aggregator"
	"github.com/vzahanych/forecast-history/internal/chart"
	"github.com/vzahanych/forecast-history/internal/config"
	"github.com/vzahanych/forecast-history/internal/observability"
	"github.com/vzahanych/forecast-history/internal/service"
	"github.com/vzahanych/forecast-history/pkg/logger"
	"github.com/vzahanych/forecast-history/pkg/telemetry"
)

var (
	configPath string
	log        *logger.Logger
	tele       *telemetry.Telemetry
	metrics    *observability.Metrics
	clock      clockwork.Clock = clockwork.NewRealClock()
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast-history",
		Short: "Forecast history for Japanese weather stations",
		Long: `Scrapes tenmado.app for the forecasts published during the seven days before an
observation date, and shows how they evolved as a table, CSV and charts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeServices(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdownServices(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default: ./config.yaml)")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(fetchCmd())
	cmd.AddCommand(stationsCmd())

	return cmd
}

func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			if log != nil {
				log.Infow("Received shutdown signal", "signal", sig.String())
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	return rootCmd().ExecuteContext(ctx)
}

func initializeServices(ctx context.Context) error {
	// 1. Load config: defaults, then config file, then FORECAST_* env
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Set config
	// Having config in atomic allows changing it during runtime
	config.SetConfig(cfg)

	// 3. Initialize logger
	log, err = logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// 4. Telemetry is optional; the pipeline falls back to a no-op tracer
	tele, err = telemetry.New(ctx, cfg.Telemetry, cfg.Version)
	if err != nil {
		log.Warnw("Failed to initialize telemetry", "error", err)
	}

	metrics = observability.NewMetrics()
	return nil
}

func shutdownServices(ctx context.Context) {
	if err := tele.Shutdown(context.WithoutCancel(ctx)); err != nil && log != nil {
		log.Warnw("Failed to shutdown telemetry", "error", err)
	}
	if log != nil {
		_ = log.Sync()
	}
}

// newAggregator wires the scraping service into a pipeline using the loaded
// config.
func newAggregator(cfg *config.Config) *aggregator.Aggregator {
	zl := log.Desugar()
	svc := service.NewTenmadoServiceWithConfig(cfg.Scraper, zl, tele, metrics)
	return aggregator.NewAggregator(svc, chart.Options{Width: cfg.Chart.Width, Height: cfg.Chart.Height}, zl, tele, metrics)
}
