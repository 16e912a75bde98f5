package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Definition
var (
	sessionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vo2lens_sessions_processed_total",
			Help: "Total number of sessions analyzed, by result status.",
		},
		[]string{"status"},
	)
	sessionAnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vo2lens_session_analysis_seconds",
			Help:    "Time spent sanitizing and analyzing one session.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)
	windowsReduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vo2lens_windows_reduced_total",
			Help: "Total number of completed windows, by validity and rejection reason.",
		},
		[]string{"validity", "reason"},
	)
	readingsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vo2lens_readings_dropped_total",
			Help: "Readings removed at ingestion, by reason.",
		},
		[]string{"reason"},
	)
	degenerateReadings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vo2lens_degenerate_readings_total",
			Help: "Breathing readings whose venturi geometry could not produce a flow.",
		},
	)
	lastVO2Max = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vo2lens_last_vo2max",
			Help: "Most recent VO2max (mL/min/kg) accepted for a profile.",
		},
		[]string{"profile"},
	)
	thresholdViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vo2lens_threshold_violations_total",
			Help: "Total number of threshold violations detected, by check and comparison.",
		},
		[]string{"check", "comparison"},
	)
	parseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vo2lens_parse_failures_total",
			Help: "Messages that could not be decoded into a session.",
		},
	)
	resultsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vo2lens_results_published_total",
			Help: "Session results written to the result topic, by outcome.",
		},
		[]string{"outcome"},
	)
)
