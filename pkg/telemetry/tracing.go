package telemetry

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/litmuschaos/fault-orchestrator/pkg/log"
)

const (
	TracerName  = "litmuschaos.io/fault-orchestrator"
	TraceParent = "TRACE_PARENT"
)

// StartSpan starts a span under the orchestrator tracer
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, spanName)
}

// GetTraceParentContext returns a context carrying the span serialized in TRACE_PARENT,
// the background context when the variable is unset. The parent is extracted with the
// propagator InitOTelSDK installs, so it works before the SDK is up.
func GetTraceParentContext() (context.Context, error) {
	traceParent := os.Getenv(TraceParent)
	if traceParent == "" {
		return context.Background(), nil
	}

	carrier := make(map[string]string)
	if err := json.Unmarshal([]byte(traceParent), &carrier); err != nil {
		return context.Background(), errors.Wrapf(err, "invalid %s", TraceParent)
	}

	return newPropagator().Extract(context.Background(), propagation.MapCarrier(carrier)), nil
}

// GetMarshalledSpanFromContext Extract spanContext from the context and return it as json encoded string
func GetMarshalledSpanFromContext(ctx context.Context) string {
	carrier := make(map[string]string)
	pro := otel.GetTextMapPropagator()

	pro.Inject(ctx, propagation.MapCarrier(carrier))

	if len(carrier) == 0 {
		return ""
	}

	marshalled, err := json.Marshal(carrier)
	if err != nil {
		log.Error(err.Error())
		return ""
	}
	if len(marshalled) >= 1024 {
		log.Error("marshalled span context is too large, unable to marshall")
		return ""
	}
	return string(marshalled)
}
