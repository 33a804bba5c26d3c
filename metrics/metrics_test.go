package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Observe("imp3", Solve{Found: true, Duration: time.Second, SearchNodes: 40, LowerBoundEffect: 7, CopiedSets: 2})
	m.Observe("imp3", Solve{TimedOut: true, SearchNodes: 10})
	m.Failed("basic")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Problems.WithLabelValues("imp3", OutcomeFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Problems.WithLabelValues("imp3", OutcomeTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Problems.WithLabelValues("basic", OutcomeError)))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.SearchNodes.WithLabelValues("imp3")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Prunes.WithLabelValues("imp3", RuleLowerBound)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Prunes.WithLabelValues("imp3", RuleSubsetCache)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SolveDuration))
}

func TestStart(t *testing.T) {
	m := New(prometheus.NewRegistry())
	done := m.Start()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Running))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Running))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Observe("imp3", Solve{Found: true})
	m.Failed("imp3")
	m.Start()()
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Observe("strategy1", Solve{Found: true})
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `topiary_problems_total{algorithm="strategy1",outcome="found"} 1`)
}
