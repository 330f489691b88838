package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_http_requests_total",
			Help: "Total number of HTTP requests processed by the bot service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	inboundEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_inbound_events_total",
			Help: "Total number of messenger updates received, by kind.",
		},
		[]string{"kind"},
	)
	stepTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_step_transitions_total",
			Help: "Total number of conversation step transitions.",
		},
		[]string{"step"},
	)
	pushErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_push_errors_total",
			Help: "Total number of push delivery errors.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		inboundEventsTotal,
		stepTransitionsTotal,
		pushErrorsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncInboundEvent(kind string) {
	inboundEventsTotal.WithLabelValues(kind).Inc()
}

func IncStepTransition(step string) {
	stepTransitionsTotal.WithLabelValues(step).Inc()
}

func IncPushError() {
	pushErrorsTotal.Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
