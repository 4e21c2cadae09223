package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(baseContext(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// baseContext parents every task span under the span handed over in TRACE_PARENT
func baseContext() context.Context {
	ctx, err := telemetry.GetTraceParentContext()
	if err != nil {
		log.Warnf("[Telemetry]: ignoring %s, err: %v", telemetry.TraceParent, err)
	}
	return ctx
}
