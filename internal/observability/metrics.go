package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/marketpulse/internal/platform/envutil"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

const namespace = "marketpulse"

type Metrics struct {
	registry *prometheus.Registry

	flowRuns     *prometheus.CounterVec
	flowDuration *prometheus.HistogramVec
	rows         *prometheus.CounterVec
	drops        *prometheus.CounterVec
	dataQuality  *prometheus.CounterVec

	taskTransitions *prometheus.CounterVec
	tasksInflight   *prometheus.GaugeVec

	writerOps       *prometheus.CounterVec
	writerLatency   *prometheus.HistogramVec
	writerConflicts *prometheus.CounterVec
	writerRetries   *prometheus.CounterVec

	pgStats   *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	return envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10)
}

// Init returns the process metrics, or nil when METRICS_ENABLED is off.
// Every method is safe on a nil *Metrics.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

// New builds a Metrics on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := factory{reg: reg}

	return &Metrics{
		registry: reg,
		flowRuns: f.counterVec("flow_runs_total", "Flow executions by flow/category/status.", "flow", "category", "status"),
		flowDuration: f.histogramVec("flow_duration_seconds", "Flow execution time by flow/status.",
			[]float64{1, 5, 15, 30, 60, 120, 300, 600, 1200}, "flow", "status"),
		rows:        f.counterVec("rows_total", "Records by flow and outcome (fetched/inserted/skipped/dropped).", "flow", "outcome"),
		drops:       f.counterVec("dropped_records_total", "Records dropped before commit by flow/reason.", "flow", "reason"),
		dataQuality: f.counterVec("data_quality_issues_total", "Data quality issues by stage/issue.", "stage", "issue"),

		taskTransitions: f.counterVec("task_transitions_total", "Task state transitions by task/state.", "task", "state"),
		tasksInflight:   f.gaugeVec("tasks_inflight", "Tasks currently running by task.", "task"),

		writerOps: f.counterVec("writer_operations_total", "Writer commits by operation/status.", "operation", "status"),
		writerLatency: f.histogramVec("writer_operation_duration_seconds", "Writer commit latency by operation/status.",
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}, "operation", "status"),
		writerConflicts: f.counterVec("writer_conflicts_total", "Unique-key conflicts seen at commit by operation.", "operation"),
		writerRetries:   f.counterVec("writer_retries_total", "Commit re-runs by operation.", "operation"),

		pgStats:   f.gaugeVec("postgres_pool", "database/sql pool statistics.", "stat"),
		redisUp:   f.gauge("redis_up", "1 when the last redis ping succeeded."),
		redisPing: f.gauge("redis_ping_seconds", "Latency of the last redis ping."),
	}
}

type factory struct{ reg prometheus.Registerer }

func (f factory) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	f.reg.MustRegister(c)
	return c
}

func (f factory) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
	f.reg.MustRegister(g)
	return g
}

func (f factory) gauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	f.reg.MustRegister(g)
	return g
}

func (f factory) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	f.reg.MustRegister(h)
	return h
}

// Registry exposes the underlying registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
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

func label(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

func (m *Metrics) ObserveFlow(flow, category, status string, dur time.Duration) {
	if m == nil {
		return
	}
	flow = label(flow, "unknown")
	status = label(status, "unknown")
	m.flowRuns.WithLabelValues(flow, label(category, "none"), status).Inc()
	m.flowDuration.WithLabelValues(flow, status).Observe(dur.Seconds())
}

// AddRows counts records by outcome (fetched, inserted, skipped, dropped).
func (m *Metrics) AddRows(flow, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(label(flow, "unknown"), label(outcome, "unknown")).Add(float64(n))
}

func (m *Metrics) AddDrops(flow, reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.drops.WithLabelValues(label(flow, "unknown"), label(reason, "unknown")).Add(float64(n))
}

func (m *Metrics) IncDataQuality(stage, issue string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.dataQuality.WithLabelValues(label(stage, "unknown"), label(issue, "unknown")).Add(float64(n))
}

// TaskTransition records executor state changes and keeps the in-flight
// gauge. It satisfies the executor hooks interface.
func (m *Metrics) TaskTransition(name string, state string) {
	if m == nil {
		return
	}
	name = label(name, "unknown")
	m.taskTransitions.WithLabelValues(name, label(state, "unknown")).Inc()
	switch state {
	case "running":
		m.tasksInflight.WithLabelValues(name).Inc()
	case "retry_scheduled", "succeeded", "failed":
		m.tasksInflight.WithLabelValues(name).Dec()
	}
}

func (m *Metrics) ObserveWriterOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	name = label(name, "unknown")
	status = label(status, "unknown")
	m.writerOps.WithLabelValues(name, status).Inc()
	m.writerLatency.WithLabelValues(name, status).Observe(dur.Seconds())
}

func (m *Metrics) IncWriterConflict(name string) {
	if m == nil {
		return
	}
	m.writerConflicts.WithLabelValues(label(name, "unknown")).Inc()
}

func (m *Metrics) IncWriterRetry(name string) {
	if m == nil {
		return
	}
	m.writerRetries.WithLabelValues(label(name, "unknown")).Inc()
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

// StartRedisCollector pings rdb on every scrape interval. The client is not
// closed by the collector.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
