package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	apiv1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/litmuschaos/fault-orchestrator/pkg/telemetry"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
	"github.com/litmuschaos/fault-orchestrator/pkg/utils/stringutils"
)

// Recorder keeps the published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []SubstageChanged
}

func (r *Recorder) Publish(_ context.Context, event SubstageChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []SubstageChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SubstageChanged(nil), r.events...)
}

// For returns the events of one task
func (r *Recorder) For(taskID string) []SubstageChanged {
	var out []SubstageChanged
	for _, e := range r.Events() {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out
}

// TraceParentAnnotation carries the marshalled span of the publishing context
const TraceParentAnnotation = "litmuschaos.io/trace-parent"

// KubernetesPublisher records transitions as core/v1 Events, one event per task and substage,
// repeated transitions bump the count of the existing event
type KubernetesPublisher struct {
	Client    kubernetes.Interface
	Namespace string
	Component string
}

func (p KubernetesPublisher) Publish(ctx context.Context, e SubstageChanged) error {
	name := eventName(e)
	event, err := p.Client.CoreV1().Events(p.Namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if !k8serrors.IsNotFound(err) {
			return errors.Wrapf(err, "unable to get event %s in namespace %s", name, p.Namespace)
		}
		return p.create(ctx, name, e)
	}

	event.Count = event.Count + 1
	event.LastTimestamp = metav1.Time{Time: e.Time}
	if _, err := p.Client.CoreV1().Events(p.Namespace).Update(ctx, event, metav1.UpdateOptions{}); err != nil {
		return errors.Wrapf(err, "unable to update event %s in namespace %s", name, p.Namespace)
	}
	return nil
}

func (p KubernetesPublisher) create(ctx context.Context, name string, e SubstageChanged) error {
	when := e.Time
	if when.IsZero() {
		when = time.Now()
	}
	event := &apiv1.Event{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: p.Namespace,
		},
		Source: apiv1.EventSource{
			Component: p.Component,
		},
		Message:        e.String(),
		Reason:         reason(e.New),
		Type:           eventType(e.New),
		Count:          1,
		FirstTimestamp: metav1.Time{Time: when},
		LastTimestamp:  metav1.Time{Time: when},
		InvolvedObject: apiv1.ObjectReference{
			APIVersion: "litmuschaos.io/v1alpha1",
			Kind:       "FaultTask",
			Name:       e.TaskName,
			Namespace:  p.Namespace,
		},
	}
	if span := telemetry.GetMarshalledSpanFromContext(ctx); span != "" {
		event.Annotations = map[string]string{TraceParentAnnotation: span}
	}
	if _, err := p.Client.CoreV1().Events(p.Namespace).Create(ctx, event, metav1.CreateOptions{}); err != nil {
		return errors.Wrapf(err, "unable to create event %s in namespace %s", name, p.Namespace)
	}
	return nil
}

func eventName(e SubstageChanged) string {
	return stringutils.Sanitize(string(e.New)) + "-" + e.TaskID
}

func reason(s types.Substage) string {
	parts := strings.Split(strings.ToLower(string(s)), "_")
	for i, part := range parts {
		if part != "" {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}

func eventType(s types.Substage) string {
	if s == types.SubstageFailed {
		return apiv1.EventTypeWarning
	}
	return apiv1.EventTypeNormal
}
