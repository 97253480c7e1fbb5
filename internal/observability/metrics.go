package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type MetricsConfig struct {
	Enabled bool
	// Addr serves /metrics when set, e.g. ":9090".
	Addr           string
	ScrapeInterval time.Duration
}

// Metrics are the engine's counters and gauges. Every method is safe on a
// nil receiver so callers can use Current() unconditionally.
type Metrics struct {
	uploads          *CounterVec
	uploadDuration   *HistogramVec
	validationIssues *CounterVec
	recomputes       *CounterVec
	recomputeLatency *HistogramVec
	notifications    *CounterVec
	jobs             *CounterVec
	jobDuration      *HistogramVec
	queueDepth       *GaugeVec
	dbStats          *GaugeVec
	redisUp          *Gauge
	redisPing        *Gauge

	scrapeInterval time.Duration
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the process metrics, or nil when Init has not enabled them.
func Current() *Metrics {
	return instance
}

// Init builds the process metrics once. It returns nil when disabled.
func Init(log *logger.Logger, cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics(cfg.ScrapeInterval)
		if log != nil {
			log.Info("metrics enabled", "addr", cfg.Addr)
		}
	})
	return instance
}

// NewMetrics builds an unregistered set; Init is the process-wide entry.
func NewMetrics(scrape time.Duration) *Metrics {
	if scrape <= 0 {
		scrape = 10 * time.Second
	}
	return &Metrics{
		uploads: NewCounterVec("epr_uploads_total", "File uploads by format and outcome.", []string{"format", "status"}),
		uploadDuration: NewHistogramVec(
			"epr_upload_duration_seconds",
			"Upload ingestion time by format and outcome.",
			[]string{"format", "status"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		),
		validationIssues: NewCounterVec("epr_validation_issues_total", "Validation issues flagged by domain and rule.", []string{"domain", "rule"}),
		recomputes:       NewCounterVec("epr_recompute_total", "Recomputations by impact and outcome.", []string{"impact", "status"}),
		recomputeLatency: NewHistogramVec(
			"epr_recompute_duration_seconds",
			"Recompute time by impact.",
			[]string{"impact"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		notifications: NewCounterVec("epr_notifications_total", "Update notifications by type.", []string{"type"}),
		jobs:          NewCounterVec("epr_jobs_total", "Background jobs by type and outcome.", []string{"job_type", "status"}),
		jobDuration: NewHistogramVec(
			"epr_job_duration_seconds",
			"Background job run time by type and outcome.",
			[]string{"job_type", "status"},
			[]float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		),
		queueDepth:     NewGaugeVec("epr_job_queue_depth", "Job rows by status.", []string{"status"}),
		dbStats:        NewGaugeVec("epr_db_stats", "Database connection pool stats.", []string{"metric"}),
		redisUp:        NewGauge("epr_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing:      NewGauge("epr_redis_ping_seconds", "Redis ping latency in seconds."),
		scrapeInterval: scrape,
	}
}

func (m *Metrics) collectors() []collector {
	return []collector{
		m.uploads, m.uploadDuration, m.validationIssues,
		m.recomputes, m.recomputeLatency, m.notifications,
		m.jobs, m.jobDuration, m.queueDepth,
		m.dbStats, m.redisUp, m.redisPing,
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", m.WriteHTTP)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.collectors() {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func statusOf(err error) string {
	if err != nil {
		return "failed"
	}
	return "succeeded"
}

func (m *Metrics) ObserveUpload(format string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := statusOf(err)
	m.uploads.Inc(format, status)
	m.uploadDuration.Observe(dur.Seconds(), format, status)
}

func (m *Metrics) IncValidationIssue(domain, rule string) {
	if m == nil {
		return
	}
	m.validationIssues.Inc(domain, rule)
}

func (m *Metrics) ObserveRecompute(impact string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	m.recomputes.Inc(impact, statusOf(err))
	if err == nil {
		m.recomputeLatency.Observe(dur.Seconds(), impact)
	}
}

func (m *Metrics) IncNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.Inc(kind)
}

// ObserveJob records one handler run. status is the job's terminal or retry
// status as the worker saw it.
func (m *Metrics) ObserveJob(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobs.Inc(jobType, status)
	m.jobDuration.Observe(dur.Seconds(), jobType, status)
}

func (m *Metrics) every(ctx context.Context, fn func()) {
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	m.every(ctx, func() {
		sqlDB, err := db.DB()
		if err != nil {
			if log != nil {
				log.Warn("metrics: db stats unavailable", "error", err)
			}
			return
		}
		stats := sqlDB.Stats()
		m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
		m.dbStats.Set(float64(stats.InUse), "in_use")
		m.dbStats.Set(float64(stats.Idle), "idle")
		m.dbStats.Set(float64(stats.WaitCount), "wait_count")
		m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
	})
}

// Pinger is satisfied by the Redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, p Pinger) {
	if m == nil || p == nil {
		return
	}
	m.every(ctx, func() {
		start := time.Now()
		if err := p.Ping(ctx); err != nil {
			m.redisUp.Set(0)
			if log != nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	})
}

func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	m.every(ctx, func() {
		if err := m.collectQueueDepth(ctx, db); err != nil && log != nil {
			log.Warn("metrics: job queue depth query failed", "error", err)
		}
	})
}

var jobStatuses = []string{"queued", "running", "succeeded", "failed", "canceled"}

func (m *Metrics) collectQueueDepth(ctx context.Context, db *gorm.DB) error {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.WithContext(ctx).
		Model(&types.JobRun{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return err
	}
	for _, s := range jobStatuses {
		m.queueDepth.Set(0, s)
	}
	for _, row := range rows {
		m.queueDepth.Set(float64(row.Count), strings.TrimSpace(row.Status))
	}
	return nil
}
