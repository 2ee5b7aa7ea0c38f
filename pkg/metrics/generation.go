package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GenerationMetrics records outcomes and latency of image generation work.
// A nil receiver or unregistered instance is a no-op, so callers never guard.
type GenerationMetrics struct {
	sceneDuration *prometheus.HistogramVec
	batchDuration *prometheus.HistogramVec
	sceneOutcome  *prometheus.CounterVec
	scriptOutcome *prometheus.CounterVec
}

// NewGenerationMetrics registers the generation metrics on the provided registerer.
func NewGenerationMetrics(reg prometheus.Registerer) *GenerationMetrics {
	if reg == nil {
		return &GenerationMetrics{}
	}
	sceneDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scene_generation_duration_seconds",
		Help:    "Duration of a single scene image generation, submit to terminal state.",
		Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60, 90, 120, 150},
	}, []string{"model"})
	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batch_generation_duration_seconds",
		Help:    "Duration of a full project batch run.",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800},
	}, []string{"model"})
	sceneOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scene_generation_outcomes_total",
		Help: "Scene generation attempts by terminal outcome.",
	}, []string{"outcome"})
	scriptOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "script_generation_outcomes_total",
		Help: "Script generation calls by terminal outcome.",
	}, []string{"outcome"})
	reg.MustRegister(sceneDuration, batchDuration, sceneOutcome, scriptOutcome)
	return &GenerationMetrics{
		sceneDuration: sceneDuration,
		batchDuration: batchDuration,
		sceneOutcome:  sceneOutcome,
		scriptOutcome: scriptOutcome,
	}
}

// ObserveSceneDuration records how long one scene took to reach a terminal state.
func (g *GenerationMetrics) ObserveSceneDuration(model string, duration time.Duration) {
	if g == nil || g.sceneDuration == nil {
		return
	}
	g.sceneDuration.WithLabelValues(normalizeLabel(model)).Observe(duration.Seconds())
}

// ObserveBatchDuration records how long a full batch run took.
func (g *GenerationMetrics) ObserveBatchDuration(model string, duration time.Duration) {
	if g == nil || g.batchDuration == nil {
		return
	}
	g.batchDuration.WithLabelValues(normalizeLabel(model)).Observe(duration.Seconds())
}

// IncSceneOutcome counts a terminal scene result: completed, error or timeout.
func (g *GenerationMetrics) IncSceneOutcome(outcome string) {
	if g == nil || g.sceneOutcome == nil {
		return
	}
	g.sceneOutcome.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncScriptOutcome counts a script generation result: completed or error.
func (g *GenerationMetrics) IncScriptOutcome(outcome string) {
	if g == nil || g.scriptOutcome == nil {
		return
	}
	g.scriptOutcome.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
