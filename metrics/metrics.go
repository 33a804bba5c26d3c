/*
Package metrics exposes Prometheus metrics about solved problems and the
searches run for them.
*/
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "topiary"

// Outcome values of the problems counter
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
)

// Prune rule values of the prunes counter
const (
	RuleLowerBound       = "lower_bound"
	RuleSubsetConstraint = "subset_constraint"
	RuleSubsetCache      = "subset_cache"
)

// Solve is what a finished search reports
type Solve struct {
	Found    bool
	TimedOut bool
	Duration time.Duration

	SearchNodes            int
	LowerBoundEffect       int
	SubsetConstraintEffect int
	CopiedSets             int
}

// Metrics holds the collectors registered for a process
type Metrics struct {
	Problems      *prometheus.CounterVec
	SearchNodes   *prometheus.CounterVec
	Prunes        *prometheus.CounterVec
	SolveDuration *prometheus.HistogramVec
	Running       prometheus.Gauge
}

// New registers the collectors on reg and returns them
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Problems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "problems_total",
			Help:      "Number of problems processed by algorithm and outcome",
		}, []string{"algorithm", "outcome"}),
		SearchNodes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_nodes_total",
			Help:      "Number of search tree nodes visited by algorithm",
		}, []string{"algorithm"}),
		Prunes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prunes_total",
			Help:      "Number of search branches cut by algorithm and rule",
		}, []string{"algorithm", "rule"}),
		SolveDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Time spent searching for a tree by algorithm",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"algorithm"}),
		Running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "problems_running",
			Help:      "Number of problems being solved",
		}),
	}
}

// Observe records a finished search. A nil Metrics does nothing.
func (m *Metrics) Observe(algorithm string, s Solve) {
	if m == nil {
		return
	}
	outcome := OutcomeNotFound
	switch {
	case s.TimedOut:
		outcome = OutcomeTimeout
	case s.Found:
		outcome = OutcomeFound
	}
	m.Problems.WithLabelValues(algorithm, outcome).Inc()
	m.SearchNodes.WithLabelValues(algorithm).Add(float64(s.SearchNodes))
	m.Prunes.WithLabelValues(algorithm, RuleLowerBound).Add(float64(s.LowerBoundEffect))
	m.Prunes.WithLabelValues(algorithm, RuleSubsetConstraint).Add(float64(s.SubsetConstraintEffect))
	m.Prunes.WithLabelValues(algorithm, RuleSubsetCache).Add(float64(s.CopiedSets))
	m.SolveDuration.WithLabelValues(algorithm).Observe(s.Duration.Seconds())
}

// Failed records a problem that could not be solved because of an error
func (m *Metrics) Failed(algorithm string) {
	if m == nil {
		return
	}
	m.Problems.WithLabelValues(algorithm, OutcomeError).Inc()
}

// Start marks a problem as running and returns the function marking it
// done
func (m *Metrics) Start() func() {
	if m == nil {
		return func() {}
	}
	m.Running.Inc()
	return m.Running.Dec
}

// Handler returns an HTTP handler serving the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
