package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// certificate pipeline
	CertOutcomes      *prometheus.CounterVec
	CertBatchDuration prometheus.Histogram
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventhub",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eventhub",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				// Sane initial defaults
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "eventhub",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eventhub",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventhub",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),

		CertOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventhub",
				Subsystem: "certificates",
				Name:      "outcomes_total",
				Help:      "Per-participant certificate dispatch outcomes.",
			},
			[]string{"result"}, // result=sent|render_failed|send_failed
		),
		CertBatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "eventhub",
				Subsystem: "certificates",
				Name:      "batch_duration_seconds",
				Help:      "End-to-end certificate batch duration.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),
	}

	reg.MustRegister(
		p.RequestsTotal,
		p.RequestsDuration,
		p.InFlight,
		p.DbQueryDuration,
		p.DbErrorsTotal,
		p.CertOutcomes,
		p.CertBatchDuration,
	)

	return p
}

func (p *Prom) CountCertOutcome(result string) {
	p.CertOutcomes.WithLabelValues(result).Inc()
}

func (p *Prom) ObserveCertBatch(d time.Duration) {
	p.CertBatchDuration.Observe(d.Seconds())
}

// GinMiddleware records request counts, latencies and in-flight gauges
// keyed by route template rather than raw path.
func (p *Prom) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method

		p.InFlight.WithLabelValues(method, route).Inc()
		start := time.Now()

		ctx.Next()

		p.InFlight.WithLabelValues(method, route).Dec()

		status := strconv.Itoa(ctx.Writer.Status())
		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
	}
}
