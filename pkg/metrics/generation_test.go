package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestGenerationMetricsExportsCountersAndHistograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewGenerationMetrics(reg)

	metrics.ObserveSceneDuration("flash", 4*time.Second)
	metrics.ObserveBatchDuration("flash", 42*time.Second)
	metrics.IncSceneOutcome("completed")
	metrics.IncSceneOutcome("error")
	metrics.IncScriptOutcome("completed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "scene_generation_outcomes_total", "outcome", "completed"); err != nil {
		t.Fatalf("fetch completed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected completed=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "scene_generation_outcomes_total", "outcome", "error"); err != nil {
		t.Fatalf("fetch error: %v", err)
	} else if got != 1 {
		t.Fatalf("expected error=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "script_generation_outcomes_total", "outcome", "completed"); err != nil {
		t.Fatalf("fetch script completed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected script completed=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "scene_generation_duration_seconds", "model", "flash"); err != nil {
		t.Fatalf("fetch scene duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected scene duration sum > 0, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "batch_generation_duration_seconds", "model", "flash"); err != nil {
		t.Fatalf("fetch batch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected batch duration sum > 0, got %f", got)
	}
}

func TestGenerationMetricsNilSafe(t *testing.T) {
	var metrics *GenerationMetrics
	metrics.ObserveSceneDuration("flash", time.Second)
	metrics.IncSceneOutcome("completed")

	unregistered := NewGenerationMetrics(nil)
	unregistered.ObserveBatchDuration("pro", time.Second)
	unregistered.IncScriptOutcome("error")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
