package clients

import (
	"context"
	"sort"
	"time"

	core_v1 "k8s.io/api/core/v1"
	v1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/litmuschaos/fault-orchestrator/pkg/utils/retry"
)

var (
	defaultAttempts uint = 3
	defaultDelay         = 2 * time.Second
)

// GetPod fetches a pod, retrying transient api failures
func (clients *ClientSets) GetPod(ctx context.Context, namespace, name string) (*core_v1.Pod, error) {
	var (
		pod *core_v1.Pod
		err error
	)

	if err := retry.
		Times(defaultAttempts).
		Wait(defaultDelay).
		TryWithContext(ctx, func(attempt uint) error {
			pod, err = clients.KubeClient.CoreV1().Pods(namespace).Get(ctx, name, v1.GetOptions{})
			return err
		}); err != nil {
		return nil, err
	}

	return pod, nil
}

// ListPods lists the pods matching the label selector, retrying transient api failures
func (clients *ClientSets) ListPods(ctx context.Context, namespace, labels string) (*core_v1.PodList, error) {
	var (
		pods *core_v1.PodList
		err  error
	)

	if err := retry.
		Times(defaultAttempts).
		Wait(defaultDelay).
		TryWithContext(ctx, func(attempt uint) error {
			pods, err = clients.KubeClient.CoreV1().Pods(namespace).List(ctx, v1.ListOptions{
				LabelSelector: labels,
			})
			return err
		}); err != nil {
		return nil, err
	}

	return pods, nil
}

// ListRunningPodNames returns the sorted names of the non terminating pods matching labels
func (clients *ClientSets) ListRunningPodNames(ctx context.Context, namespace, labels string) ([]string, error) {
	pods, err := clients.ListPods(ctx, namespace, labels)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, pod := range pods.Items {
		if pod.DeletionTimestamp != nil || pod.Status.Phase != core_v1.PodRunning {
			continue
		}
		names = append(names, pod.Name)
	}
	sort.Strings(names)
	return names, nil
}
