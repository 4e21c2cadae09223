// Package events carries task substage transitions to whoever observes them.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/palantir/stacktrace"

	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// SubstageChanged is published once per task substage transition
type SubstageChanged struct {
	TaskID   string
	TaskName string
	Old      types.Substage
	New      types.Substage
	Time     time.Time
}

func (e SubstageChanged) String() string {
	return fmt.Sprintf("%s: %s -> %s", e.TaskName, e.Old, e.New)
}

// Publisher receives substage transitions
type Publisher interface {
	Publish(ctx context.Context, event SubstageChanged) error
}

// PublisherFunc adapts a function to the Publisher interface
type PublisherFunc func(ctx context.Context, event SubstageChanged) error

// Publish calls f
func (f PublisherFunc) Publish(ctx context.Context, event SubstageChanged) error {
	return f(ctx, event)
}

// Discard drops every event
var Discard Publisher = PublisherFunc(func(context.Context, SubstageChanged) error { return nil })

// Changed builds the event of a transition on task
func Changed(task *types.Task, old, next types.Substage) SubstageChanged {
	return SubstageChanged{TaskID: task.ID, TaskName: task.Name, Old: old, New: next, Time: time.Now()}
}

// ChannelPublisher sends every event on C, blocking until it is received or ctx is done
type ChannelPublisher struct {
	C chan<- SubstageChanged
}

func (p ChannelPublisher) Publish(ctx context.Context, event SubstageChanged) error {
	select {
	case p.C <- event:
		return nil
	case <-ctx.Done():
		return stacktrace.Propagate(ctx.Err(), "could not publish %s", event)
	}
}

// Fanout publishes every event to each publisher in order, the first error is returned after all ran
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event SubstageChanged) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
