// v2
// cmd/greenhouse/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/config"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/device"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/equipment"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/httpapi"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/kafkaio"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/logging"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/loop"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/ml"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/observability"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/scenario"
	"github.com/MarioTavi18/Greenhouse-IoT-Simulation/internal/storage"
)

func main() {
	lg, lf := logging.Init()
	defer func(lf *os.File) {
		if err := lf.Close(); err != nil {
			lg.Error("log file close", "error", err)
		}
	}(lf)
	lg.Info("greenhouse service starting (closed-loop simulation, model-assisted control)")

	cfg, err := config.LoadEnvAndFiles(lg)
	if err != nil {
		lg.Error("config", "error", err)
		os.Exit(1)
	}
	lg.Info("config loaded", "bind", cfg.HTTPBind, "store", cfg.StoreKind,
		"brokers", cfg.KafkaBrokers, "mqtt", cfg.MQTTBroker, "autostart", cfg.Autostart)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewStore(cfg.StoreKind, cfg.StorePath)
	if err != nil {
		lg.Error("store", "error", err)
		os.Exit(1)
	}
	if err := store.Init(ctx); err != nil {
		lg.Error("store init", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			lg.Error("store close", "error", err)
		}
	}()

	met := observability.NewMetrics()

	brk := kafkaio.BreakerConfig{MaxFailures: int(cfg.BreakerMaxFailures), ResetTimeout: cfg.BreakerReset}
	pub, err := kafkaio.New(cfg.KafkaBrokers, cfg.ReadingsTopic, cfg.CommandsTopic, brk, lg)
	if err != nil {
		lg.Error("kafka", "error", err)
		os.Exit(1)
	}
	defer pub.Close()

	bridge, err := device.New(cfg.MQTTBroker, cfg.MQTTTopicPrefix, "greenhouse-service", lg)
	if err != nil {
		lg.Error("mqtt", "error", err)
		os.Exit(1)
	}
	defer bridge.Close()

	defs := scenario.Builtins()
	if cfg.ScenariosPath != "" {
		defs, err = scenario.LoadFile(cfg.ScenariosPath)
		if err != nil {
			lg.Error("scenarios", "error", err)
			os.Exit(1)
		}
		lg.Info("scenarios loaded", "path", cfg.ScenariosPath, "count", len(defs))
	}

	// Models are optional: without artifacts the loop stays rule-based.
	var predictor ml.Predictor
	var model ml.CommandModel
	if cfg.ModelDir != "" {
		if p, err := ml.LoadRidge(filepath.Join(cfg.ModelDir, "ridge.json")); err != nil {
			lg.Warn("ridge model unavailable, forecasts disabled", "error", err)
		} else {
			predictor = p
		}
		if m, err := ml.LoadForests(cfg.ModelDir, lg); err != nil {
			lg.Warn("command model unavailable, staying rule-based", "error", err)
		} else {
			model = m
		}
	}

	runner, err := loop.NewRunner(cfg, lg, loop.Deps{
		Store:        store,
		Publisher:    pub,
		Bridge:       bridge,
		Metrics:      met,
		Predictor:    predictor,
		CommandModel: model,
		Scenarios:    defs,
	})
	if err != nil {
		lg.Error("runner", "error", err)
		os.Exit(1)
	}

	if err := bridge.SubscribeOverrides(func(req device.OverrideRequest) {
		if err := runner.Override(equipment.Kind(req.Equipment), req.Active, req.Ticks); err != nil {
			lg.Warn("mqtt override rejected", "equipment", req.Equipment, "error", err)
		}
	}); err != nil {
		lg.Error("mqtt subscribe", "error", err)
		os.Exit(1)
	}

	srv := httpapi.NewServer(cfg, lg, runner, store, met, defs, ctx)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http", "error", err)
		}
	}()

	if cfg.Autostart {
		if err := runner.Start(ctx, "", 0, false); err != nil {
			lg.Error("autostart", "error", err)
		}
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := runner.Stop(); err != nil && !errors.Is(err, loop.ErrNotRunning) {
		lg.Error("run stop", "error", err)
	}
	sh, c := context.WithTimeout(context.Background(), 5*time.Second)
	defer c()
	_ = srv.Stop(sh)
	lg.Info("greenhouse service stopped")
}
