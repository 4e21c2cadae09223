package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const MeterName = "litmuschaos.io/fault-orchestrator"

// Metrics holds the engine and task instruments. A nil *Metrics records nothing.
type Metrics struct {
	commands    metric.Int64Counter
	attempts    metric.Int64Counter
	failures    metric.Int64Counter
	transitions metric.Int64Counter
}

// InitMetrics backs a meter provider with a prometheus exporter registered on registry
func InitMetrics(registry prometheus.Registerer) (*Metrics, func(context.Context) error, error) {
	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	metrics, err := NewMetrics(provider)
	if err != nil {
		return nil, nil, err
	}
	return metrics, provider.Shutdown, nil
}

// NewMetrics creates the instruments on the given provider
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(MeterName)
	var m Metrics
	var err error
	if m.commands, err = meter.Int64Counter("fault_commands_total",
		metric.WithDescription("Commands run to completion, by result")); err != nil {
		return nil, err
	}
	if m.attempts, err = meter.Int64Counter("fault_command_attempts_total",
		metric.WithDescription("Command executions including retries")); err != nil {
		return nil, err
	}
	if m.failures, err = meter.Int64Counter("fault_command_failures_total",
		metric.WithDescription("Commands that failed after exhausting their retries, by classification")); err != nil {
		return nil, err
	}
	if m.transitions, err = meter.Int64Counter("fault_task_substage_transitions_total",
		metric.WithDescription("Task substage transitions, by target substage")); err != nil {
		return nil, err
	}
	return &m, nil
}

// CommandFinished counts one command, succeeded or not
func (m *Metrics) CommandFinished(ctx context.Context, succeeded bool) {
	if m == nil {
		return
	}
	m.commands.Add(ctx, 1, metric.WithAttributes(attribute.Bool("succeeded", succeeded)))
}

// Attempt counts one execution of a command
func (m *Metrics) Attempt(ctx context.Context) {
	if m == nil {
		return
	}
	m.attempts.Add(ctx, 1)
}

// Failure counts one terminal command failure, known tells whether it matched a known failure
func (m *Metrics) Failure(ctx context.Context, known bool) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.Bool("known", known)))
}

// Transition counts one substage change
func (m *Metrics) Transition(ctx context.Context, substage string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("substage", substage)))
}
