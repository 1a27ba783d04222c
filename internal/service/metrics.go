package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	communicationsRoutedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onetalk_communications_routed_total",
			Help: "Inbound communications by type, outcome and classification method",
		},
		[]string{"type", "outcome", "method"},
	)

	lineSelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onetalk_line_selections_total",
			Help: "Line selections by routing reason",
		},
		[]string{"reason"},
	)

	callsEndedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onetalk_calls_ended_total",
			Help: "Calls completed through end call",
		},
	)

	callDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "onetalk_call_duration_seconds",
			Help:    "Reported duration of completed calls",
			Buckets: []float64{15, 30, 60, 120, 300, 600, 1200, 3600},
		},
	)
)
