// v1
// internal/config/config_test.go
package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaults(t *testing.T) {
	t.Setenv("PROPERTIES_PATH", "")
	cfg, err := LoadEnvAndFiles(testLogger())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPBind)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, int64(5), cfg.BreakerMaxFailures)
	assert.Equal(t, 30*time.Second, cfg.BreakerReset)
	assert.Equal(t, "memory", cfg.StoreKind)
	assert.Equal(t, "optimal", cfg.DefaultScenario)
	assert.Equal(t, 2*time.Second, cfg.TickInterval)
	assert.Equal(t, int64(10), cfg.TransitionPeriod)
	assert.Equal(t, int64(10), cfg.WarmupTicks)
	assert.Equal(t, int64(10), cfg.PredictEvery)
	assert.Equal(t, -4.0, cfg.VentTempDelta)
	assert.Equal(t, 400.0, cfg.CO2InjectDelta)
	assert.Equal(t, 20.0, cfg.Thresholds.TempMin)
	assert.Equal(t, 25.0, cfg.Thresholds.TempMax)
}

func TestPropertiesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greenhouse.properties")
	content := `# greenhouse runtime configuration
http_bind=:9191
kafka_brokers=one:9092, two:9092
breaker_max_failures=2
breaker_reset=5s
tick_interval=250ms
transition_period=40
vent_temp_delta=-8.0
co2_inject_delta=300
temp_min=18.5
store=sqlite
store_path=` + filepath.Join(dir, "gh.db") + `
autostart=true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("PROPERTIES_PATH", path)

	cfg, err := LoadEnvAndFiles(testLogger())
	require.NoError(t, err)

	assert.Equal(t, ":9191", cfg.HTTPBind)
	assert.Equal(t, []string{"one:9092", "two:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, int64(2), cfg.BreakerMaxFailures)
	assert.Equal(t, 5*time.Second, cfg.BreakerReset)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, int64(40), cfg.TransitionPeriod)
	assert.Equal(t, -8.0, cfg.VentTempDelta)
	assert.Equal(t, 300.0, cfg.CO2InjectDelta)
	assert.Equal(t, 18.5, cfg.Thresholds.TempMin)
	assert.Equal(t, "sqlite", cfg.StoreKind)
	assert.True(t, cfg.Autostart)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greenhouse.properties")
	require.NoError(t, os.WriteFile(path, []byte("http_bind=:9191\ntemp_max=27\n"), 0o644))
	t.Setenv("PROPERTIES_PATH", path)
	t.Setenv("HTTP_BIND", ":7070")
	t.Setenv("TEMP_MAX", "26")

	cfg, err := LoadEnvAndFiles(testLogger())
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPBind)
	assert.Equal(t, 26.0, cfg.Thresholds.TempMax)
}

func TestInvalidValuesFallBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greenhouse.properties")
	require.NoError(t, os.WriteFile(path, []byte("tick_interval=soon\nseed=abc\nautostart=maybe\n"), 0o644))
	t.Setenv("PROPERTIES_PATH", path)

	cfg, err := LoadEnvAndFiles(testLogger())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.TickInterval)
	assert.Equal(t, int64(0), cfg.Seed)
	assert.False(t, cfg.Autostart)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"zero tick interval", func(c *AppConfig) { c.TickInterval = 0 }},
		{"zero transition period", func(c *AppConfig) { c.TransitionPeriod = 0 }},
		{"negative warmup", func(c *AppConfig) { c.WarmupTicks = -1 }},
		{"zero breaker failures", func(c *AppConfig) { c.BreakerMaxFailures = 0 }},
		{"zero breaker reset", func(c *AppConfig) { c.BreakerReset = 0 }},
		{"unknown store", func(c *AppConfig) { c.StoreKind = "postgres" }},
		{"sqlite without path", func(c *AppConfig) { c.StoreKind = "sqlite"; c.StorePath = "" }},
		{"inverted temp band", func(c *AppConfig) { c.Thresholds.TempMin = 30; c.Thresholds.TempMax = 20 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMissingPropertiesFileErrors(t *testing.T) {
	t.Setenv("PROPERTIES_PATH", filepath.Join(t.TempDir(), "nope.properties"))
	_, err := LoadEnvAndFiles(testLogger())
	require.Error(t, err)
}
