package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewDefaultConfig_IsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://tenmado.app/weatherforecast/", cfg.Scraper.BaseURL)
	assert.Equal(t, "shift_jis", cfg.Export.CSVEncoding)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
scraper:
  base_url: "http://localhost:1234/wf/"
  timeout: 15
export:
  csv_encoding: utf-8
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://localhost:1234/wf/", cfg.Scraper.BaseURL)
	assert.Equal(t, 15, cfg.Scraper.Timeout)
	assert.Equal(t, "utf-8", cfg.Export.CSVEncoding)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched keys keep their defaults
	assert.Equal(t, 1000, cfg.Chart.Width)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("FORECAST_SERVER_PORT", "7070")
	t.Setenv("FORECAST_CHART_WIDTH", "640")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 640, cfg.Chart.Width)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig().Scraper, cfg.Scraper)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
scraper:
  base_url: "not-a-url"
export:
  csv_encoding: latin1
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scraper.base_url")
	assert.Contains(t, err.Error(), "latin1")
}

func TestGetConfig_FallsBackToDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Environment = "test"
	SetConfig(cfg)
	assert.Equal(t, "test", GetConfig().Environment)
}
