package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripscribe",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tripscribe",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tripscribe",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Tracking metrics
	FixesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripscribe",
		Subsystem: "tracking",
		Name:      "fixes_ingested_total",
		Help:      "Total location fixes accepted by the ingest pipeline",
	}, []string{"activity"})

	FixesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripscribe",
		Subsystem: "tracking",
		Name:      "fixes_rejected_total",
		Help:      "Total location fixes rejected by the ingest pipeline",
	}, []string{"reason"})

	DwellsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tripscribe",
		Subsystem: "tracking",
		Name:      "dwells_confirmed_total",
		Help:      "Total dwell events confirmed",
	})

	PendingFixes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripscribe",
		Subsystem: "tracking",
		Name:      "pending_fixes",
		Help:      "Location fixes buffered and not yet synced to the journal",
	})

	// Curation metrics
	PhotosIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tripscribe",
		Subsystem: "curation",
		Name:      "photos_ingested_total",
		Help:      "Total photo metadata records stored",
	})

	ClustersBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tripscribe",
		Subsystem: "curation",
		Name:      "clusters_built_total",
		Help:      "Total photo clusters produced by curation runs",
	})

	CurationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tripscribe",
		Subsystem: "curation",
		Name:      "run_duration_seconds",
		Help:      "Duration of full trip curation runs",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripscribe",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripscribe",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripscribe",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Sink retry metrics
	RetryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tripscribe",
		Subsystem: "retry",
		Name:      "attempts_total",
		Help:      "Total retry attempts after a first failure",
	})

	RetryExhaustions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tripscribe",
		Subsystem: "retry",
		Name:      "exhaustions_total",
		Help:      "Total operations abandoned after exhausting retries",
	})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripscribe",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripscribe",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripscribe",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
