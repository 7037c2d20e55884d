// Package metrics exports Prometheus counters and histograms for extraction
// runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/idcard-extractor/internal/core"
)

// Fallback outcomes besides the llm failure kinds.
const (
	FallbackSkipped = "skipped"
	FallbackOK      = "ok"
)

// Recorder implements core.Recorder.
type Recorder struct {
	runs     *prometheus.CounterVec
	fallback *prometheus.CounterVec
	stages   *prometheus.HistogramVec
	failures prometheus.Counter
}

// NewRecorder registers the collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idextract_runs_total",
			Help: "Completed extraction runs by overall confidence.",
		}, []string{"confidence"}),
		fallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idextract_fallback_total",
			Help: "LLM fallback outcomes per run.",
		}, []string{"outcome"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idextract_stage_duration_seconds",
			Help:    "Pipeline stage latency.",
			Buckets: []float64{.005, .025, .1, .25, .5, 1, 2.5, 5, 10, 30, 90},
		}, []string{"stage"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "idextract_setup_failures_total",
			Help: "Runs aborted by setup errors.",
		}),
	}
	reg.MustRegister(r.runs, r.fallback, r.stages, r.failures)
	return r
}

func (r *Recorder) ObserveRun(run core.Run) {
	r.runs.WithLabelValues(run.Confidence().String()).Inc()

	outcome := FallbackSkipped
	if run.FallbackInvoked {
		outcome = FallbackOK
		if !run.Fallback.OK() {
			outcome = string(run.Fallback.Failure)
		}
	}
	r.fallback.WithLabelValues(outcome).Inc()

	for stage, d := range run.Stages {
		r.stages.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// ObserveSetupFailure counts a run that returned a setup error.
func (r *Recorder) ObserveSetupFailure() {
	r.failures.Inc()
}

var _ core.Recorder = (*Recorder)(nil)
