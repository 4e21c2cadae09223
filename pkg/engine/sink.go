package engine

import (
	"sync"

	"github.com/litmuschaos/fault-orchestrator/pkg/command"
)

// Sink receives the troubleshooting record of every attempt
type Sink interface {
	Record(outcome command.Outcome)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(outcome command.Outcome)

// Record calls f
func (f SinkFunc) Record(outcome command.Outcome) { f(outcome) }

// Discard drops every outcome
var Discard Sink = SinkFunc(func(command.Outcome) {})

// Troubleshooting collects outcomes in memory
type Troubleshooting struct {
	mu       sync.Mutex
	outcomes []command.Outcome
}

// Record implements Sink
func (t *Troubleshooting) Record(outcome command.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcomes = append(t.outcomes, outcome)
}

// Outcomes returns a copy of the recorded outcomes
func (t *Troubleshooting) Outcomes() []command.Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]command.Outcome(nil), t.outcomes...)
}

// Failures returns the outcomes of failed attempts
func (t *Troubleshooting) Failures() []command.Outcome {
	var failed []command.Outcome
	for _, outcome := range t.Outcomes() {
		if !outcome.Succeeded {
			failed = append(failed, outcome)
		}
	}
	return failed
}
