package kubernetes

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apiv1 "k8s.io/api/core/v1"
	v1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
	utilexec "k8s.io/client-go/util/exec"

	"github.com/litmuschaos/fault-orchestrator/pkg/clients"
)

func runningPod(name string) *apiv1.Pod {
	return &apiv1.Pod{
		ObjectMeta: v1.ObjectMeta{Name: name, Namespace: "default"},
		Status: apiv1.PodStatus{
			Phase:             apiv1.PodRunning,
			ContainerStatuses: []apiv1.ContainerStatus{{Name: "app", Ready: true}},
		},
	}
}

func TestCheckPodStatus(t *testing.T) {
	tests := []struct {
		name      string
		pod       *apiv1.Pod
		container string
		wantErr   bool
	}{
		{
			name: "Pod not running",
			pod: &apiv1.Pod{
				Status: apiv1.PodStatus{Phase: apiv1.PodPending},
			},
			container: "container1",
			wantErr:   true,
		},
		{
			name: "Container not ready",
			pod: &apiv1.Pod{
				Status: apiv1.PodStatus{
					Phase: apiv1.PodRunning,
					ContainerStatuses: []apiv1.ContainerStatus{
						{Name: "container1", Ready: false},
					},
				},
			},
			container: "container1",
			wantErr:   true,
		},
		{
			name: "Healthy pod and container",
			pod: &apiv1.Pod{
				Status: apiv1.PodStatus{
					Phase: apiv1.PodRunning,
					ContainerStatuses: []apiv1.ContainerStatus{
						{Name: "container1", Ready: true},
					},
				},
			},
			container: "container1",
			wantErr:   false,
		},
		{
			name: "Container name not matching",
			pod: &apiv1.Pod{
				Status: apiv1.PodStatus{
					Phase: apiv1.PodRunning,
					ContainerStatuses: []apiv1.ContainerStatus{
						{Name: "other-container", Ready: true},
					},
				},
			},
			container: "container1",
			wantErr:   true,
		},
		{
			name:    "No container requested",
			pod:     &apiv1.Pod{Status: apiv1.PodStatus{Phase: apiv1.PodRunning}},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPodStatus(tt.pod, tt.container)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkPodStatus() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func newExecutor(objects ...*apiv1.Pod) *Executor {
	client := fake.NewSimpleClientset()
	for _, o := range objects {
		_, _ = client.CoreV1().Pods(o.Namespace).Create(context.Background(), o, v1.CreateOptions{})
	}
	return New(&clients.ClientSets{KubeClient: client}, "default")
}

func TestExecStreamsCommand(t *testing.T) {
	e := newExecutor(runningPod("web-0"))
	var gotCmd []string
	var gotPod PodDetails
	e.stream = func(_ context.Context, pod PodDetails, cmd []string, _ io.Reader, stdout, _ io.Writer) error {
		gotPod, gotCmd = pod, cmd
		_, _ = stdout.Write([]byte("ok\n"))
		return nil
	}

	result, err := e.Execute(context.Background(), "K8S_EXEC:--pod web-0 --container app -- chmod -R 755 /tmp/agent.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", result.Stdout)
	assert.Equal(t, PodDetails{PodName: "web-0", Namespace: "default", ContainerName: "app"}, gotPod)
	assert.Equal(t, []string{"/bin/sh", "-c", "chmod -R 755 /tmp/agent.tar.gz"}, gotCmd)
}

func TestExecExitCode(t *testing.T) {
	e := newExecutor(runningPod("web-0"))
	e.stream = func(context.Context, PodDetails, []string, io.Reader, io.Writer, io.Writer) error {
		return utilexec.CodeExitError{Err: errors.New("command terminated with exit code 2"), Code: 2}
	}

	result, err := e.Execute(context.Background(), "K8S_EXEC:--pod web-0 -- false")
	require.NoError(t, err)
	assert.Equal(t, 2, result.ExitCode)
}

func TestExecStreamFailureIsTransportError(t *testing.T) {
	e := newExecutor(runningPod("web-0"))
	e.stream = func(context.Context, PodDetails, []string, io.Reader, io.Writer, io.Writer) error {
		return errors.New("upgrade connection: 403")
	}

	_, err := e.Execute(context.Background(), "K8S_EXEC:--pod web-0 -- uptime")
	assert.Error(t, err)
}

func TestExecOnMissingPod(t *testing.T) {
	result, err := newExecutor().Execute(context.Background(), "K8S_EXEC:--pod ghost -- uptime")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Stderr, "not found")
}

func TestCopyUnpacksIntoDestinationDirectory(t *testing.T) {
	e := newExecutor(runningPod("web-0"))
	e.readFile = func(string) ([]byte, error) { return []byte("payload"), nil }
	var gotCmd []string
	var gotStdin bool
	e.stream = func(_ context.Context, _ PodDetails, cmd []string, stdin io.Reader, _, _ io.Writer) error {
		gotCmd, gotStdin = cmd, stdin != nil
		return nil
	}

	result, err := e.Execute(context.Background(), "K8S_COPY:--pod web-0 --src /opt/agent.tar.gz --dest /tmp/agent.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, []string{"tar", "-xmf", "-", "-C", "/tmp"}, gotCmd)
	assert.True(t, gotStdin)
}

func TestDeletePod(t *testing.T) {
	e := newExecutor(runningPod("web-0"))

	result, err := e.Execute(context.Background(), "K8S_DELETE_POD:--namespace default --pod web-0")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)

	_, err = e.clients.KubeClient.CoreV1().Pods("default").Get(context.Background(), "web-0", v1.GetOptions{})
	assert.Error(t, err)

	result, err = e.Execute(context.Background(), "K8S_DELETE_POD:--namespace default --pod web-0")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
}

func TestMalformedCommands(t *testing.T) {
	e := newExecutor()
	for _, cmd := range []string{"kubectl get pods", "K8S_EXEC:--namespace default -- ls", "K8S_SCALE:--pod a"} {
		result, err := e.Execute(context.Background(), cmd)
		require.NoError(t, err)
		assert.Equal(t, 1, result.ExitCode, cmd)
	}
}
