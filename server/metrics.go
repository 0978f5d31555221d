package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	listeners *prometheus.GaugeVec
	events    *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docfacade_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docfacade_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		listeners: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "docfacade_active_listeners",
				Help: "Number of open listen sockets",
			},
			[]string{"kind"},
		),
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docfacade_listen_events_total",
				Help: "Total number of events sent to listeners",
			},
			[]string{"kind"},
		),
	}
}
