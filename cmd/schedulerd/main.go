// Command schedulerd is the scheduler daemon: it loads configuration,
// wires the execution store, cron evaluator, HTTP invoker, event
// publisher, job registry, worker pool, execution driver, rescheduling
// controller, and lifecycle orchestrator together, then runs until
// signaled to stop.
//
// Grounded on rezkam-mono's cmd/worker/main.go shutdown shape
// (signal.Notify + wait), since the teacher repo itself is a CLI-first
// tool without a comparable always-on daemon entrypoint.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cronforge/scheduler/internal/config"
	"github.com/cronforge/scheduler/internal/cronclock"
	"github.com/cronforge/scheduler/internal/events"
	"github.com/cronforge/scheduler/internal/execdriver"
	"github.com/cronforge/scheduler/internal/httpinvoke"
	"github.com/cronforge/scheduler/internal/observability"
	"github.com/cronforge/scheduler/internal/orchestrator"
	"github.com/cronforge/scheduler/internal/registry"
	"github.com/cronforge/scheduler/internal/rescheduler"
	"github.com/cronforge/scheduler/internal/store"
	"github.com/cronforge/scheduler/internal/store/pg"
	"github.com/cronforge/scheduler/internal/workerpool"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("schedulerd: failed to load config", "error", err)
		os.Exit(1)
	}
	initLogger(cfg.LogLevel)

	db, err := pg.OpenDB(cfg.PostgresDSN)
	if err != nil {
		slog.Error("schedulerd: failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	execStore := store.ExecutionStore(pg.NewStore(db))

	tracer, err := observability.New(ctx, observability.Config{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		slog.Error("schedulerd: failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("schedulerd: tracer shutdown failed", "error", err)
		}
	}()

	evaluator := cronclock.New()
	clock := cronclock.SystemClock{}
	reg := registry.New()
	pool := workerpool.New(cfg.WorkerPoolConcurrency)
	invoker := httpinvoke.New(httpinvoke.Config{
		MaxIdleConnsPerHost:      cfg.HTTPInvokerMaxIdleConnsPerHost,
		MaxConnsPerHost:          cfg.HTTPInvokerMaxConnsPerHost,
		ProcessWideRatePerSecond: cfg.HTTPInvokerProcessWideRate,
	})
	publisher := events.New(func(subscriberID string, recovered any) {
		slog.Error("schedulerd: event subscriber panicked", "subscriber", subscriberID, "panic", recovered)
	})
	publisher.Subscribe("audit-log", events.LogHandler(slog.Default()))

	driver := execdriver.New(execStore, invoker, publisher, clock, tracer)
	orch := orchestrator.New(execStore, evaluator, clock, reg, pool, driver, publisher)

	if err := orch.Boot(ctx); err != nil {
		slog.Error("schedulerd: boot failed", "error", err)
		os.Exit(1)
	}

	reschedCfg := rescheduler.DefaultConfig()
	reschedCfg.Interval = cfg.ReschedulerInterval
	reschedCfg.BatchSize = cfg.ReschedulerBatchSize
	reschedCtrl := rescheduler.New(execStore, publisher, orch, reschedCfg)
	reschedCtrl.SetEnabled(cfg.ReschedulerEnabled)

	reschedCtx, stopResched := context.WithCancel(ctx)
	go reschedCtrl.Run(reschedCtx)

	if cfg.ConfigOverlayPath != "" {
		watcher, err := config.NewWatcher(cfg.ConfigOverlayPath)
		if err != nil {
			slog.Warn("schedulerd: failed to start config watcher", "error", err)
		} else {
			watcher.OnChange(func(newCfg *config.Config) {
				initLogger(newCfg.LogLevel)
				reschedCtrl.SetEnabled(newCfg.ReschedulerEnabled)
				slog.Info("schedulerd: applied reloaded config",
					"log_level", newCfg.LogLevel, "rescheduler_enabled", newCfg.ReschedulerEnabled)
			})
			if err := watcher.Start(); err != nil {
				slog.Warn("schedulerd: failed to watch config overlay", "error", err)
			} else {
				defer watcher.Stop()
			}
		}
	}

	slog.Info("schedulerd started",
		"worker_pool_concurrency", cfg.WorkerPoolConcurrency,
		"rescheduler_enabled", cfg.ReschedulerEnabled,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	slog.Info("schedulerd: received shutdown signal, draining")

	stopResched()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := orch.Shutdown(shutdownCtx); err != nil {
		slog.Warn("schedulerd: shutdown did not fully drain", "error", err)
	}
	slog.Info("schedulerd stopped")
}

func initLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
