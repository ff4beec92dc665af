package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScansTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crashloop_monitor_scans_total",
			Help: "Completed scan ticks",
		},
	)

	ScanErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crashloop_monitor_scan_errors_total",
			Help: "Scan ticks abandoned due to API errors",
		},
	)

	DetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashloop_monitor_detections_total",
			Help: "CrashLoopBackOff containers seen, grouped by namespace",
		}, []string{"namespace"},
	)

	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashloop_monitor_alerts_total",
			Help: "Alert delivery attempts grouped by outcome (sent|failed)",
		}, []string{"outcome"},
	)

	SuppressedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crashloop_monitor_suppressed_total",
			Help: "Detections skipped because the cooldown window had not elapsed",
		},
	)

	EventsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crashloop_monitor_events_stored",
			Help: "Entries currently in the persisted event log",
		},
	)

	LastTick = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crashloop_monitor_last_tick_timestamp",
			Help: "Unix timestamp of the last completed tick",
		},
	)

	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crashloop_monitor_tick_duration_seconds",
			Help:    "Duration of scan-and-dispatch ticks",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func MustRegister() {
	prometheus.MustRegister(ScansTotal, ScanErrors, DetectionsTotal, AlertsTotal,
		SuppressedTotal, EventsStored, LastTick, TickDuration)
}

func Handler() http.Handler { return promhttp.Handler() }
