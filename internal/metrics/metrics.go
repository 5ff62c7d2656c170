// Package metrics holds the analyzer's prometheus collectors. They live on a
// dedicated registry served by the API at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "drulift"

var (
	Registry = prometheus.NewRegistry()

	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Analysis runs by outcome (ok, error).",
	}, []string{"outcome"})

	findingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "findings_total",
		Help:      "Findings reported, after waivers and baseline, by rule.",
	}, []string{"rule"})

	classesAnalyzed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "classes_analyzed",
		Help:      "Classes seen by the last analysis run.",
	})

	pluginManagers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "plugin_managers",
		Help:      "Plugin managers seen by the last analysis run.",
	})

	evaluationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "phase_duration_seconds",
		Help:      "Duration of analysis phases (parse, evaluate, persist).",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"phase"})
)

func init() {
	Registry.MustRegister(
		runsTotal,
		findingsTotal,
		classesAnalyzed,
		pluginManagers,
		evaluationDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func RecordRun(err error) {
	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		return
	}
	runsTotal.WithLabelValues("ok").Inc()
}

func RecordFindings(byRule map[string]int) {
	for rule, n := range byRule {
		findingsTotal.WithLabelValues(rule).Add(float64(n))
	}
}

// RecordHistory adds runs persisted before this process started. It is
// called once at startup by long-lived processes so the counters cover the
// stored history and not only runs made in-process.
func RecordHistory(runs int, byRule map[string]int) {
	runsTotal.WithLabelValues("ok").Add(float64(runs))
	RecordFindings(byRule)
}

func RecordInventory(classes, managers int) {
	classesAnalyzed.Set(float64(classes))
	pluginManagers.Set(float64(managers))
}

func ObservePhase(phase string, start time.Time) {
	evaluationDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
