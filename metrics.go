package bootstrap

import (
	"context"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GoCodeAlone/bootstrap/lifecycle"
)

// MetricsObserver turns lifecycle events into Prometheus metrics:
//
//	<ns>_module_phase_duration_seconds{module,phase,plugin}
//	<ns>_module_phase_failures_total{module,phase}
//	<ns>_modules{kind="discovered"|"created"|"plugin"}
//	<ns>_runs_total{result="completed"|"failed"}
type MetricsObserver struct {
	phaseDuration *prometheus.HistogramVec
	phaseFailures *prometheus.CounterVec
	modules       *prometheus.GaugeVec
	runs          *prometheus.CounterVec
}

// NewMetricsObserver creates the observer. namespace defaults to "bootstrap".
func NewMetricsObserver(namespace string) *MetricsObserver {
	if namespace == "" {
		namespace = "bootstrap"
	}
	return &MetricsObserver{
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "module_phase_duration_seconds",
			Help:      "Time spent in a module lifecycle callback.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"module", "phase", "plugin"}),
		phaseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "module_phase_failures_total",
			Help:      "Module lifecycle callbacks that returned an error or panicked.",
		}, []string{"module", "phase"}),
		modules: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "modules",
			Help:      "Modules seen by the current run.",
		}, []string{"kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Bootstrap runs by result.",
		}, []string{"result"}),
	}
}

// Register registers every metric with reg.
func (m *MetricsObserver) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.phaseDuration, m.phaseFailures, m.modules, m.runs} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("registering bootstrap metrics: %w", err)
		}
	}
	return nil
}

func (m *MetricsObserver) ObserverID() string {
	return "bootstrap-metrics"
}

func (m *MetricsObserver) OnEvent(_ context.Context, event cloudevents.Event) error {
	switch event.Type() {
	case lifecycle.EventTypeModulePhaseCompleted, lifecycle.EventTypeModulePhaseFailed:
		var data lifecycle.ModulePhaseData
		if err := event.DataAs(&data); err != nil {
			return fmt.Errorf("decoding %s: %w", event.Type(), err)
		}
		m.phaseDuration.WithLabelValues(data.Module, data.Phase, fmt.Sprint(data.PlugIn)).Observe(data.DurationMS / 1000)
		if event.Type() == lifecycle.EventTypeModulePhaseFailed {
			m.phaseFailures.WithLabelValues(data.Module, data.Phase).Inc()
		}
	case lifecycle.EventTypeModuleDiscovered, lifecycle.EventTypeModuleCreated:
		var data lifecycle.ModuleData
		if err := event.DataAs(&data); err != nil {
			return fmt.Errorf("decoding %s: %w", event.Type(), err)
		}
		if event.Type() == lifecycle.EventTypeModuleCreated {
			m.modules.WithLabelValues("created").Inc()
			return nil
		}
		m.modules.WithLabelValues("discovered").Inc()
		if data.PlugIn {
			m.modules.WithLabelValues("plugin").Inc()
		}
	case lifecycle.EventTypeBootstrapStarted:
		m.modules.Reset()
	case lifecycle.EventTypeBootstrapCompleted:
		m.runs.WithLabelValues("completed").Inc()
	case lifecycle.EventTypeBootstrapFailed:
		m.runs.WithLabelValues("failed").Inc()
	}
	return nil
}
