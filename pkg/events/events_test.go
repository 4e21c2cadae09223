package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

func TestRecorderAndFanout(t *testing.T) {
	task := &types.Task{ID: "t-1", Name: "cpu"}
	recorder := &Recorder{}
	var seen []types.Substage
	fanout := Fanout{
		PublisherFunc(func(_ context.Context, e SubstageChanged) error {
			seen = append(seen, e.New)
			return errors.New("sink down")
		}),
		recorder,
	}

	err := fanout.Publish(context.Background(), Changed(task, types.SubstageInitialised, types.SubstageInProgress))
	assert.EqualError(t, err, "sink down")
	require.Len(t, recorder.For("t-1"), 1, "later publishers still run")
	assert.Equal(t, []types.Substage{types.SubstageInProgress}, seen)
	assert.Empty(t, recorder.For("t-2"))
	assert.Equal(t, "cpu: INITIALISED -> IN_PROGRESS", recorder.Events()[0].String())
}

func TestChannelPublisher(t *testing.T) {
	ch := make(chan SubstageChanged, 1)
	p := ChannelPublisher{C: ch}
	require.NoError(t, p.Publish(context.Background(), SubstageChanged{TaskID: "a"}))
	assert.Equal(t, "a", (<-ch).TaskID)

	blocked := ChannelPublisher{C: make(chan SubstageChanged)}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, blocked.Publish(ctx, SubstageChanged{TaskID: "b"}))
}

func TestKubernetesPublisher(t *testing.T) {
	client := fake.NewSimpleClientset()
	p := KubernetesPublisher{Client: client, Namespace: "litmus", Component: "fault-orchestrator"}
	e := SubstageChanged{TaskID: "abc", TaskName: "cpu", Old: types.SubstageInProgress, New: types.SubstageFailed, Time: time.Now()}

	require.NoError(t, p.Publish(context.Background(), e))
	require.NoError(t, p.Publish(context.Background(), e))

	event, err := client.CoreV1().Events("litmus").Get(context.Background(), "failed-abc", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), event.Count)
	assert.Equal(t, "Failed", event.Reason)
	assert.Equal(t, "Warning", event.Type)
	assert.Equal(t, "cpu", event.InvolvedObject.Name)

	require.NoError(t, p.Publish(context.Background(), SubstageChanged{TaskID: "abc", New: types.SubstageTriggerChildTasks}))
	event, err = client.CoreV1().Events("litmus").Get(context.Background(), "trigger-child-tasks-abc", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "TriggerChildTasks", event.Reason)
	assert.Equal(t, "Normal", event.Type)
}
