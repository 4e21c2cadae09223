// Package kubernetes interprets K8S_* operations against a cluster through the api server.
package kubernetes

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
	apiv1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	v1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/remotecommand"
	utilexec "k8s.io/client-go/util/exec"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/clients"
	"github.com/litmuschaos/fault-orchestrator/pkg/command"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
)

// Operation names understood by the executor
const (
	OpExec      = "K8S_EXEC"
	OpCopy      = "K8S_COPY"
	OpDeletePod = "K8S_DELETE_POD"
)

// PodDetails contains all the required variables to exec inside a container
type PodDetails struct {
	PodName       string
	Namespace     string
	ContainerName string
}

// streamFunc runs the command in the pod and streams its output, swapped in tests
type streamFunc func(ctx context.Context, pod PodDetails, cmd []string, stdin io.Reader, stdout, stderr io.Writer) error

// Executor runs K8S_* operations
type Executor struct {
	clients          *clients.ClientSets
	defaultNamespace string
	stream           streamFunc
	readFile         func(name string) ([]byte, error)
}

// New wraps the cluster clientSets, pods without --namespace resolve to defaultNamespace
func New(clientSets *clients.ClientSets, defaultNamespace string) *Executor {
	e := &Executor{clients: clientSets, defaultNamespace: defaultNamespace, readFile: os.ReadFile}
	e.stream = e.spdyStream
	return e
}

// Execute implements executor.CommandExecutor
func (e *Executor) Execute(ctx context.Context, cmd string) (executor.Result, error) {
	op, ok := command.ParseOperation(cmd)
	if !ok {
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("unsupported cluster command: %s", cmd)}, nil
	}
	pod := PodDetails{PodName: op.Get("pod"), Namespace: op.Get("namespace"), ContainerName: op.Get("container")}
	if pod.Namespace == "" {
		pod.Namespace = e.defaultNamespace
	}
	if pod.PodName == "" {
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("%s requires --pod", op.Name)}, nil
	}

	switch op.Name {
	case OpExec:
		if op.Trailer == "" {
			return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("%s requires a trailing command", OpExec)}, nil
		}
		return e.exec(ctx, pod, []string{"/bin/sh", "-c", op.Trailer}, nil)
	case OpCopy:
		return e.copy(ctx, pod, op.Get("src"), op.Get("dest"))
	case OpDeletePod:
		return e.deletePod(ctx, pod)
	}
	return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("unsupported cluster operation: %s", op.Name)}, nil
}

func (e *Executor) exec(ctx context.Context, pod PodDetails, cmd []string, stdin io.Reader) (executor.Result, error) {
	target, err := e.clients.KubeClient.CoreV1().Pods(pod.Namespace).Get(ctx, pod.PodName, v1.GetOptions{})
	if err != nil {
		return apiFailure(pod, err)
	}
	if err := checkPodStatus(target, pod.ContainerName); err != nil {
		return executor.Result{ExitCode: 1, Stderr: err.Error()}, nil
	}

	var stdout, stderr bytes.Buffer
	err = e.stream(ctx, pod, cmd, stdin, &stdout, &stderr)
	result := executor.Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return result, nil
	}
	if exitErr, ok := err.(utilexec.ExitError); ok && exitErr.Exited() {
		result.ExitCode = exitErr.ExitStatus()
		return result, nil
	}
	return result, cerrors.Transport{Target: pod.Namespace + "/" + pod.PodName, Reason: err.Error()}
}

func (e *Executor) spdyStream(ctx context.Context, pod PodDetails, cmd []string, stdin io.Reader, stdout, stderr io.Writer) error {
	req := e.clients.KubeClient.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(pod.PodName).
		Namespace(pod.Namespace).
		SubResource("exec")

	req.VersionedParams(&apiv1.PodExecOptions{
		Command:   cmd,
		Container: pod.ContainerName,
		Stdin:     stdin != nil,
		Stdout:    true,
		Stderr:    true,
		TTY:       false,
	}, scheme.ParameterCodec)

	// NewSPDYExecutor connects to the provided server and upgrades the connection to
	// multiplexed bidirectional streams.
	exec, err := remotecommand.NewSPDYExecutor(e.clients.KubeConfig, "POST", req.URL())
	if err != nil {
		return errors.Errorf("error while creating Executor: %v", err)
	}
	return exec.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		Tty:    false,
	})
}

// copy streams src as a tar archive into the container and unpacks it next to dest
func (e *Executor) copy(ctx context.Context, pod PodDetails, src, dest string) (executor.Result, error) {
	if src == "" || dest == "" {
		return executor.Result{ExitCode: 1, Stderr: fmt.Sprintf("%s requires --src and --dest", OpCopy)}, nil
	}
	content, err := e.readFile(src)
	if err != nil {
		return executor.Result{ExitCode: 1, Stderr: err.Error()}, nil
	}
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{Name: path.Base(dest), Mode: 0644, Size: int64(len(content))}); err != nil {
		return executor.Result{}, err
	}
	if _, err := tw.Write(content); err != nil {
		return executor.Result{}, err
	}
	if err := tw.Close(); err != nil {
		return executor.Result{}, err
	}
	log.Debugf("[Copy]: copying %s into %s/%s:%s", src, pod.Namespace, pod.PodName, dest)
	return e.exec(ctx, pod, []string{"tar", "-xmf", "-", "-C", path.Dir(dest)}, &buf)
}

func (e *Executor) deletePod(ctx context.Context, pod PodDetails) (executor.Result, error) {
	err := e.clients.KubeClient.CoreV1().Pods(pod.Namespace).Delete(ctx, pod.PodName, v1.DeleteOptions{})
	if err != nil {
		return apiFailure(pod, err)
	}
	return executor.Result{Stdout: fmt.Sprintf("pod %s/%s deleted", pod.Namespace, pod.PodName)}, nil
}

// apiFailure keeps api level refusals (not found, forbidden) inspectable as command output
func apiFailure(pod PodDetails, err error) (executor.Result, error) {
	if k8serrors.IsNotFound(err) || k8serrors.IsForbidden(err) || k8serrors.IsInvalid(err) {
		return executor.Result{ExitCode: 1, Stderr: err.Error()}, nil
	}
	return executor.Result{}, cerrors.Transport{Target: pod.Namespace + "/" + pod.PodName, Reason: err.Error()}
}

// checkPodStatus verify the status of given pod & container
func checkPodStatus(pod *apiv1.Pod, containerName string) error {

	if strings.ToLower(string(pod.Status.Phase)) != "running" {
		return errors.Errorf("%v pod is not in running state, phase: %v", pod.Name, pod.Status.Phase)
	}
	if containerName == "" {
		return nil
	}
	for _, container := range pod.Status.ContainerStatuses {
		if container.Name != containerName {
			continue
		}
		if !container.Ready {
			return errors.Errorf("%v container of %v pod is not in ready state, phase: %v", container.Name, pod.Name, pod.Status.Phase)
		}
		return nil
	}
	return errors.Errorf("%v container not found in %v pod", containerName, pod.Name)
}
