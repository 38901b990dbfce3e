package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink turns telemetry events into Prometheus metrics:
//
//	<ns>_events_total{event}
//	<ns>_experiment_events_total{event,test,variant}
//	<ns>_conversion_value{test,variant}   (histogram, conversions with a value)
//	<ns>_alerts_total{signal,severity}
type PrometheusSink struct {
	events          *prometheus.CounterVec
	experiments     *prometheus.CounterVec
	conversionValue *prometheus.HistogramVec
	alerts          *prometheus.CounterVec
}

// NewPrometheusSink creates the collectors and registers them with reg.
func NewPrometheusSink(reg prometheus.Registerer, namespace string) (*PrometheusSink, error) {
	if reg == nil {
		return nil, errors.New("telemetry: prometheus registerer is required")
	}

	s := &PrometheusSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Count of launchkit telemetry events by name.",
		}, []string{"event"}),
		experiments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "experiment_events_total",
			Help:      "Count of assignments and conversions by test and variant.",
		}, []string{"event", "test", "variant"}),
		conversionValue: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_value",
			Help:      "Values attached to experiment conversions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"test", "variant"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Count of raised alerts by signal and severity.",
		}, []string{"signal", "severity"}),
	}

	for _, c := range []prometheus.Collector{s.events, s.experiments, s.conversionValue, s.alerts} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("telemetry: register collector: %w", err)
		}
	}
	return s, nil
}

func (s *PrometheusSink) Emit(_ context.Context, event string, props map[string]any) error {
	s.events.WithLabelValues(event).Inc()

	switch event {
	case EventVariantAssigned, EventConversion:
		test, variant := str(props["test"]), str(props["variant"])
		s.experiments.WithLabelValues(event, test, variant).Inc()
		if v, ok := props["value"].(float64); ok && event == EventConversion {
			s.conversionValue.WithLabelValues(test, variant).Observe(v)
		}
	case EventAlertTriggered:
		s.alerts.WithLabelValues(str(props["signal"]), str(props["severity"])).Inc()
	}
	return nil
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
