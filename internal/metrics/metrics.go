// Package metrics exposes Prometheus collectors for the budget gate, the
// recurrence job and the HTTP layer.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GateDecisions counts budget gate outcomes: accepted, budget_exceeded,
	// category_budget_exceeded, budget_not_configured, error.
	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expense_gate_decisions_total",
		Help: "Budget gate decisions by outcome.",
	}, []string{"outcome"})

	RecurrenceRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recurrence_runs_total",
		Help: "Completed recurrence job runs.",
	})

	// RecurrenceTemplates counts per-template results: generated,
	// not_due, duplicate, failed.
	RecurrenceTemplates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recurrence_templates_total",
		Help: "Recurrence templates processed by result.",
	}, []string{"result"})

	RecurrenceRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recurrence_run_duration_seconds",
		Help:    "Duration of a full recurrence job run.",
		Buckets: prometheus.DefBuckets,
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
