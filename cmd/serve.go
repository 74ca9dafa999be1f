package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/vzahanych/forecast-history/internal/config"
	"github.com/vzahanych/forecast-history/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the interactive web shell",
		Long:  `Start the HTTP server with the station/date form, the JSON/CSV/PNG API, health checks and Prometheus metrics.`,
		RunE:  runServer,
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()

	log.Infow("Starting forecast history server",
		"config_path", configPath,
		"telemetry_enabled", cfg.Telemetry.Enabled,
		"server_port", cfg.Server.Port,
		"base_url", cfg.Scraper.BaseURL)

	srv, err := server.NewServer(cfg, server.Dependencies{
		Aggregator: newAggregator(cfg),
		Logger:     log.Desugar(),
		Telemetry:  tele,
		Metrics:    metrics,
		Clock:      clock,
	})
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			log.Errorw("Server error", "error", err)
		}
		return err
	case <-cmd.Context().Done():
		log.Info("Shutting down server")

		if err := srv.Shutdown(context.WithoutCancel(cmd.Context())); err != nil {
			log.Errorw("Error during server shutdown", "error", err)
			return err
		}

		log.Info("Server shutdown complete")
		return nil
	}
}
