// v1
// internal/config/config.go
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/control"
)

// AppConfig holds every runtime knob of the greenhouse service. Values come
// from built-in defaults, then an optional properties file, then
// environment variables, strongest last.
type AppConfig struct {
	HTTPBind string // address:port for the HTTP server

	KafkaBrokers  []string // empty disables telemetry publishing
	ReadingsTopic string
	CommandsTopic string

	BreakerMaxFailures int64         // consecutive publish failures before the kafka circuit opens
	BreakerReset       time.Duration // how long the circuit stays open before probing the broker

	MQTTBroker      string // empty disables the actuator bridge
	MQTTTopicPrefix string

	StoreKind string // memory | sqlite
	StorePath string // sqlite file path

	ScenariosPath   string // optional scenarios YAML
	ModelDir        string // optional directory with model artifacts
	DefaultScenario string
	Autostart       bool
	Seed            int64 // 0 draws a time-based seed

	TickInterval     time.Duration
	TransitionPeriod int64
	WarmupTicks      int64
	PredictEvery     int64

	// Equipment tuning constants with two known revisions each.
	VentTempDelta  float64
	CO2InjectDelta float64

	Thresholds control.Thresholds
}

// Default returns the configuration the service ships with.
func Default() *AppConfig {
	return &AppConfig{
		HTTPBind:           ":8080",
		ReadingsTopic:      "greenhouse.readings",
		CommandsTopic:      "greenhouse.commands",
		BreakerMaxFailures: 5,
		BreakerReset:       30 * time.Second,
		MQTTTopicPrefix:    "greenhouse",
		StoreKind:          "memory",
		StorePath:          "./data/greenhouse.db",
		DefaultScenario:    "optimal",
		TickInterval:       2 * time.Second,
		TransitionPeriod:   10,
		WarmupTicks:        10,
		PredictEvery:       10,
		VentTempDelta:      -4.0,
		CO2InjectDelta:     400.0,
		Thresholds:         control.DefaultThresholds(),
	}
}

// LoadEnvAndFiles builds the runtime configuration. PROPERTIES_PATH names
// an optional key=value file; any key can also be set as an upper-case
// environment variable, which wins over the file.
func LoadEnvAndFiles(lg *slog.Logger) (*AppConfig, error) {
	cfg := Default()

	props := map[string]string{}
	if path := os.Getenv("PROPERTIES_PATH"); path != "" {
		loaded, err := loadProps(path)
		if err != nil {
			return nil, err
		}
		props = loaded
	}

	look := func(key string) (string, bool) {
		if v := os.Getenv(strings.ToUpper(key)); v != "" {
			return v, true
		}
		v, ok := props[key]
		return v, ok
	}

	cfg.HTTPBind = gets(look, "http_bind", cfg.HTTPBind)
	cfg.KafkaBrokers = splitCSV(gets(look, "kafka_brokers", ""))
	cfg.ReadingsTopic = gets(look, "readings_topic", cfg.ReadingsTopic)
	cfg.CommandsTopic = gets(look, "commands_topic", cfg.CommandsTopic)
	cfg.BreakerMaxFailures = geti(look, "breaker_max_failures", cfg.BreakerMaxFailures, lg)
	cfg.BreakerReset = getd(look, "breaker_reset", cfg.BreakerReset, lg)
	cfg.MQTTBroker = gets(look, "mqtt_broker", cfg.MQTTBroker)
	cfg.MQTTTopicPrefix = gets(look, "mqtt_topic_prefix", cfg.MQTTTopicPrefix)
	cfg.StoreKind = gets(look, "store", cfg.StoreKind)
	cfg.StorePath = gets(look, "store_path", cfg.StorePath)
	cfg.ScenariosPath = gets(look, "scenarios_path", cfg.ScenariosPath)
	cfg.ModelDir = gets(look, "model_dir", cfg.ModelDir)
	cfg.DefaultScenario = gets(look, "default_scenario", cfg.DefaultScenario)
	cfg.Autostart = getb(look, "autostart", cfg.Autostart, lg)
	cfg.Seed = geti(look, "seed", cfg.Seed, lg)

	cfg.TickInterval = getd(look, "tick_interval", cfg.TickInterval, lg)
	cfg.TransitionPeriod = geti(look, "transition_period", cfg.TransitionPeriod, lg)
	cfg.WarmupTicks = geti(look, "warmup_ticks", cfg.WarmupTicks, lg)
	cfg.PredictEvery = geti(look, "predict_every", cfg.PredictEvery, lg)
	cfg.VentTempDelta = getf(look, "vent_temp_delta", cfg.VentTempDelta, lg)
	cfg.CO2InjectDelta = getf(look, "co2_inject_delta", cfg.CO2InjectDelta, lg)

	th := &cfg.Thresholds
	th.TempMin = getf(look, "temp_min", th.TempMin, lg)
	th.TempMax = getf(look, "temp_max", th.TempMax, lg)
	th.TempBuffer = getf(look, "temp_buffer", th.TempBuffer, lg)
	th.HumMin = getf(look, "hum_min", th.HumMin, lg)
	th.HumMax = getf(look, "hum_max", th.HumMax, lg)
	th.HumBuffer = getf(look, "hum_buffer", th.HumBuffer, lg)
	th.SoilMin = getf(look, "soil_min", th.SoilMin, lg)
	th.SoilBuffer = getf(look, "soil_buffer", th.SoilBuffer, lg)
	th.CO2Min = getf(look, "co2_min", th.CO2Min, lg)
	th.CO2Buffer = getf(look, "co2_buffer", th.CO2Buffer, lg)
	th.LightMinGrowth = getf(look, "light_min_growth", th.LightMinGrowth, lg)
	th.LightMaxStress = getf(look, "light_max_stress", th.LightMaxStress, lg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *AppConfig) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	if c.TransitionPeriod <= 0 {
		return fmt.Errorf("transition_period must be positive, got %d", c.TransitionPeriod)
	}
	if c.WarmupTicks < 0 {
		return fmt.Errorf("warmup_ticks must not be negative, got %d", c.WarmupTicks)
	}
	if c.PredictEvery <= 0 {
		return fmt.Errorf("predict_every must be positive, got %d", c.PredictEvery)
	}
	if c.BreakerMaxFailures < 1 {
		return fmt.Errorf("breaker_max_failures must be at least 1, got %d", c.BreakerMaxFailures)
	}
	if c.BreakerReset <= 0 {
		return fmt.Errorf("breaker_reset must be positive, got %s", c.BreakerReset)
	}
	switch c.StoreKind {
	case "memory":
	case "sqlite":
		if c.StorePath == "" {
			return fmt.Errorf("store_path is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown store kind %q (memory|sqlite)", c.StoreKind)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	return nil
}

type lookup func(key string) (string, bool)

func loadProps(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load properties file: %w", err)
	}
	m := map[string]string{}
	for _, ln := range strings.Split(string(b), "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "#") || strings.HasPrefix(ln, "//") {
			continue
		}
		kv := strings.SplitN(ln, "=", 2)
		if len(kv) != 2 {
			continue
		}
		m[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return m, nil
}

func gets(look lookup, key, def string) string {
	if v, ok := look(key); ok && v != "" {
		return v
	}
	return def
}

func getf(look lookup, key string, def float64, lg *slog.Logger) float64 {
	if v, ok := look(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		lg.Warn("invalid float in configuration, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func geti(look lookup, key string, def int64, lg *slog.Logger) int64 {
	if v, ok := look(key); ok {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
		lg.Warn("invalid integer in configuration, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func getd(look lookup, key string, def time.Duration, lg *slog.Logger) time.Duration {
	if v, ok := look(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		lg.Warn("invalid duration in configuration, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func getb(look lookup, key string, def bool, lg *slog.Logger) bool {
	if v, ok := look(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		lg.Warn("invalid boolean in configuration, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
