package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
)

var configValue atomic.Value

func GetConfig() *Config {
	cfg, _ := configValue.Load().(*Config)
	if cfg == nil {
		return NewDefaultConfig()
	}
	return cfg
}

func SetConfig(cfg *Config) {
	configValue.Store(cfg)
}

type Config struct {
	Version     string          `mapstructure:"version"`
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Scraper     ScraperConfig   `mapstructure:"scraper"`
	Export      ExportConfig    `mapstructure:"export"`
	Chart       ChartConfig     `mapstructure:"chart"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// ScraperConfig points at the forecast site. BaseURL must end with a slash; the
// station segment is appended to it.
type ScraperConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Timeout   int    `mapstructure:"timeout"`
	UserAgent string `mapstructure:"user_agent"`
}

type ExportConfig struct {
	CSVEncoding string `mapstructure:"csv_encoding"`
	OutputDir   string `mapstructure:"output_dir"`
}

type ChartConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Version:     "1.0.0",
		Environment: "development",
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30,
			WriteTimeout: 120,
			IdleTimeout:  60,
		},
		Scraper: ScraperConfig{
			BaseURL:   "https://tenmado.app/weatherforecast/",
			Timeout:   0,
			UserAgent: "forecast-history/1.0",
		},
		Export: ExportConfig{
			CSVEncoding: "shift_jis",
			OutputDir:   ".",
		},
		Chart: ChartConfig{
			Width:  1000,
			Height: 600,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "",
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "tempo:4317",
		},
	}
}

// Validate checks values that would otherwise fail deep inside a pipeline run.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Scraper.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("scraper.base_url: %w", err))
	case !u.IsAbs():
		errs = append(errs, errors.New("scraper.base_url must be absolute"))
	case !strings.HasSuffix(u.Path, "/"):
		errs = append(errs, errors.New("scraper.base_url must end with /"))
	}

	if c.Scraper.Timeout < 0 {
		errs = append(errs, errors.New("scraper.timeout must not be negative"))
	}

	switch strings.ToLower(c.Export.CSVEncoding) {
	case "shift_jis", "sjis", "utf-8", "utf8":
	default:
		errs = append(errs, fmt.Errorf("export.csv_encoding %q is not supported", c.Export.CSVEncoding))
	}

	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		errs = append(errs, errors.New("chart.width and chart.height must be positive"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	return errors.Join(errs...)
}
