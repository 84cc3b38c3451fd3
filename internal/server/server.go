// Package server exposes the tracker and the activity store over a local
// HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runnerr0/dwell/internal/blocklist"
	"github.com/runnerr0/dwell/internal/config"
	"github.com/runnerr0/dwell/internal/logger"
	"github.com/runnerr0/dwell/internal/retention"
	"github.com/runnerr0/dwell/internal/session"
	"github.com/runnerr0/dwell/internal/storage"
	"github.com/runnerr0/dwell/internal/tracker"
)

// Store is the storage surface served over HTTP.
type Store interface {
	RecordActivity(ctx context.Context, a storage.Activity) error
	GetAggregatedSites(ctx context.Context, startDate, endDate string, limit int) ([]storage.SiteStat, error)
	GetDailyTrend(ctx context.Context, startDate, endDate string) ([]storage.DailyTotal, error)
	GetRangeStats(ctx context.Context, startDate, endDate string, limit int) (*storage.RangeStats, error)
	GetHourlyTrend(ctx context.Context, date string) ([]storage.HourBucket, error)
	GetAggregatedPages(ctx context.Context, hostname, startDate, endDate string) ([]storage.PageStat, error)
	GetHistoryLogs(ctx context.Context, q storage.HistoryQuery) ([]storage.HistoryLog, error)
	GetWeeklyInsights(ctx context.Context, weekStart, weekEnd string) (*storage.WeeklyInsights, error)
	GetStats(ctx context.Context) (*storage.Stats, error)
	DeleteSiteData(ctx context.Context, hostname string) error
	ExportAll(ctx context.Context) (*storage.Snapshot, error)
	Import(ctx context.Context, snap *storage.Snapshot) error
	RawRetentionDays(ctx context.Context) (int, error)
	SetRawRetentionDays(ctx context.Context, days int) error
}

// EventSink accepts normalized host events.
type EventSink interface {
	Dispatch(ctx context.Context, ev tracker.Event) error
}

// SessionSource reports the session currently tracked.
type SessionSource interface {
	Current(ctx context.Context) (*session.Session, error)
}

// RetentionRunner runs one retention pass.
type RetentionRunner interface {
	Run(ctx context.Context, maxDaysPerRun int) (*retention.Result, error)
}

// Deps wires the server to the rest of the process. Events, Sessions,
// Retention and Gatherer are optional; their routes answer 503 (or are not
// mounted) when nil.
type Deps struct {
	Store     Store
	Blocklist *blocklist.Filter
	Events    EventSink
	Sessions  SessionSource
	Retention RetentionRunner
	Gatherer  prometheus.Gatherer
	Log       *logger.Logger
	Now       func() time.Time

	MaxDaysPerRun int
}

type Server struct {
	deps   Deps
	cfg    config.DaemonConfig
	engine *gin.Engine
}

func New(deps Deps, cfg config.DaemonConfig) *Server {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MaxDaysPerRun < 1 {
		deps.MaxDaysPerRun = 3
	}
	s := &Server{deps: deps, cfg: cfg}
	s.engine = s.newRouter()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.deps.Log))

	r.GET("/healthcheck", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if s.deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/v1")
	api.Use(RequireToken(s.cfg.AuthToken))
	api.Use(LimitBody(int64(s.cfg.MaxRequestSize)))
	{
		api.POST("/events", s.ingestEvents)
		api.GET("/status", s.status)

		api.POST("/activity", s.addActivity)
		api.GET("/sites", s.sites)
		api.DELETE("/sites/:hostname", s.forgetSite)
		api.GET("/pages", s.pages)
		api.GET("/history", s.history)
		api.GET("/range", s.rangeStats)
		api.GET("/trend/daily", s.dailyTrend)
		api.GET("/trend/hourly", s.hourlyTrend)
		api.GET("/insights/weekly", s.weeklyInsights)

		api.GET("/export", s.export)
		api.POST("/import", s.importSnapshot)

		api.GET("/settings/retention", s.getRetention)
		api.PUT("/settings/retention", s.setRetention)
		api.POST("/retention/run", s.runRetention)

		api.GET("/blocklist", s.listBlocklist)
		api.PUT("/blocklist", s.setBlocklist)
		api.POST("/blocklist", s.addBlocklist)
		api.DELETE("/blocklist", s.removeBlocklist)
	}

	return r
}

// Run serves on host:port until ctx is cancelled, then shuts down with a
// five second grace period.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Log.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen %s: %w", addr, err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
