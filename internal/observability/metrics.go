package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/envutil"
	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

const namespace = "hd"

// Metrics owns a private Prometheus registry. Every method is safe on a nil
// receiver so callers never check whether metrics are enabled.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge
	apiErrors   prometheus.Counter

	writes      *prometheus.CounterVec
	writeTime   *prometheus.HistogramVec
	conflicts   *prometheus.CounterVec
	retries     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	denials     *prometheus.CounterVec
	security    *prometheus.CounterVec

	byStatus  *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge

	dbOnce sync.Once
}

// Init returns nil unless METRICS_ENABLED is set.
func Init(log *logger.Logger) *Metrics {
	if !envutil.Bool("METRICS_ENABLED", false) {
		return nil
	}
	m := NewMetrics()
	if log != nil {
		log.Info("metrics enabled")
	}
	return m
}

// NewMetrics builds a registry with the Go runtime and process collectors
// plus the housedesk series.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "api_requests_total",
			Help: "API requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "api_request_duration_seconds",
			Help:    "API latency by method and route.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "api_inflight_requests",
			Help: "API requests currently being served.",
		}),
		apiErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "api_requests_error_total",
			Help: "API requests answered with a 5xx status.",
		}),
		writes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "aggregate_operations_total",
			Help: "Lifecycle writes by operation and outcome.",
		}, []string{"op", "status"}),
		writeTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "aggregate_operation_duration_seconds",
			Help:    "Lifecycle write latency including retries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "aggregate_conflicts_total",
			Help: "Writes that lost a concurrent race.",
		}, []string{"op"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "aggregate_retries_total",
			Help: "Writes re-run after a transient database failure.",
		}, []string{"op"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "request_transitions_total",
			Help: "Committed status transitions.",
		}, []string{"from", "to", "override"}),
		denials: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "request_transition_denied_total",
			Help: "Transitions refused by the authorization gate.",
		}, []string{"reason"}),
		security: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "security_events_total",
			Help: "Rejected credentials and forbidden calls.",
		}, []string{"event"}),
		byStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "requests_by_status",
			Help: "Maintenance requests currently in each status.",
		}, []string{"status"}),
		redisUp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "redis_up",
			Help: "1 when the last Redis ping succeeded.",
		}),
		redisPing: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "redis_ping_seconds",
			Help: "Latency of the last successful Redis ping.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// WritePrometheus writes the text exposition of every series to w.
func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// StartServer serves /metrics on addr until ctx is cancelled.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	addr = strings.TrimSpace(addr)
	if m == nil || addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed && log != nil {
			log.Error("metrics server stopped", "error", err, "addr", addr)
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
	if strings.HasPrefix(status, "5") {
		m.apiErrors.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(op, status).Inc()
	m.writeTime.WithLabelValues(op).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m != nil {
		m.conflicts.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m != nil {
		m.retries.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) IncTransition(from, to requests.Status, override bool) {
	if m != nil {
		m.transitions.WithLabelValues(string(from), string(to), strconv.FormatBool(override)).Inc()
	}
}

func (m *Metrics) IncDenied(reason string) {
	if m != nil {
		m.denials.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncSecurityEvent(event string) {
	if m != nil {
		m.security.WithLabelValues(event).Inc()
	}
}

// RegisterDB exports the connection pool stats of db. Later calls are no-ops.
func (m *Metrics) RegisterDB(db *gorm.DB) error {
	if m == nil || db == nil {
		return nil
	}
	var err error
	m.dbOnce.Do(func() {
		sqlDB, dbErr := db.DB()
		if dbErr != nil {
			err = dbErr
			return
		}
		err = m.reg.Register(collectors.NewDBStatsCollector(sqlDB, "housedesk"))
	})
	return err
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	m.every(ctx, func() {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
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

// StartStatusCollector periodically publishes how many requests sit in each status.
func (m *Metrics) StartStatusCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	m.every(ctx, func() {
		if err := m.CollectStatusCounts(ctx, db); err != nil && log != nil {
			log.Warn("metrics: status count query failed", "error", err)
		}
	})
}

func (m *Metrics) CollectStatusCounts(ctx context.Context, db *gorm.DB) error {
	if m == nil || db == nil {
		return nil
	}
	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.WithContext(ctx).
		Model(&requests.MaintenanceRequest{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return err
	}
	for _, s := range requests.AllStatuses {
		m.byStatus.WithLabelValues(string(s)).Set(0)
	}
	for _, row := range rows {
		m.byStatus.WithLabelValues(strings.TrimSpace(row.Status)).Set(float64(row.Count))
	}
	return nil
}

func (m *Metrics) every(ctx context.Context, fn func()) {
	interval := envutil.Duration("METRICS_SCRAPE_INTERVAL", 10*time.Second)
	go func() {
		ticker := time.NewTicker(interval)
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
