package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/dwell/internal/blocklist"
	"github.com/runnerr0/dwell/internal/config"
	"github.com/runnerr0/dwell/internal/logger"
	"github.com/runnerr0/dwell/internal/metrics"
	"github.com/runnerr0/dwell/internal/retention"
	"github.com/runnerr0/dwell/internal/server"
	"github.com/runnerr0/dwell/internal/session"
	"github.com/runnerr0/dwell/internal/storage"
	"github.com/runnerr0/dwell/internal/tracker"
)

// Execute implements the go-flags Commander interface for DaemonCommand.
func (c *DaemonCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	if c.Port > 0 {
		cfg.Daemon.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	} else if c.globals != nil && c.globals.Verbose {
		cfg.Logging.Level = "debug"
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	log, err := logger.New(cfg.Logging, dataDir)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.run(ctx, cfg, store, log)
}

// run wires the tracker, retention scheduler and HTTP server and blocks
// until ctx is cancelled or one of them fails.
func (c *DaemonCommand) run(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore, log *logger.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	filter := blocklist.New(store)
	if err := filter.Reload(ctx); err != nil {
		return err
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return err
	}
	slot, err := session.Open(cfg.Slot, dataDir)
	if err != nil {
		return fmt.Errorf("open session slot: %w", err)
	}
	defer slot.Close()

	engine := tracker.New(slot, store,
		tracker.WithBlocker(filter),
		tracker.WithDebounce(time.Duration(cfg.Tracker.DebounceMillis)*time.Millisecond),
		tracker.WithTickInterval(time.Duration(cfg.Tracker.TickSeconds)*time.Second),
		tracker.WithLogger(log),
		tracker.WithMetrics(m),
	)
	if err := engine.Init(ctx); err != nil {
		return fmt.Errorf("init tracker: %w", err)
	}
	defer engine.Close()

	job := retention.NewJob(store,
		retention.WithLogger(log),
		retention.WithMetrics(m),
	)
	sched, err := retention.NewScheduler(job, cfg.Retention.Schedule, cfg.Retention.MaxDaysPerRun, log)
	if err != nil {
		return err
	}

	deps := server.Deps{
		Store:         store,
		Blocklist:     filter,
		Events:        tracker.NewDispatcher(engine, nil, log, m),
		Sessions:      engine,
		Retention:     sched,
		Log:           log.With("component", "http"),
		MaxDaysPerRun: cfg.Retention.MaxDaysPerRun,
	}
	if cfg.Metrics.Enabled {
		deps.Gatherer = reg
	}
	srv := server.New(deps, cfg.Daemon)

	log.Info("Starting dwell daemon", "version", c.version, "slot", cfg.Slot.Backend, "schedule", cfg.Retention.Schedule)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		sched.RunNow()
		return sched.Start(gctx)
	})
	g.Go(func() error {
		filter.Watch(gctx, time.Duration(cfg.Blocklist.ReloadSeconds)*time.Second, func(err error) {
			log.Warn("Blocklist reload failed", "error", err)
		})
		return nil
	})

	err = g.Wait()
	log.Info("Dwell daemon stopped")
	return err
}
