package clients

import (
	"github.com/pkg/errors"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// ClientSets is a collection of clientSets and kubeConfig needed
type ClientSets struct {
	KubeClient kubernetes.Interface
	KubeConfig *rest.Config
}

// GenerateClientSetFromKubeConfig builds the kubernetes clientSet for the given kubeconfig and context.
// It uses in-cluster config when the kubeconfig path is empty.
func GenerateClientSetFromKubeConfig(kubeconfigPath, kubeContext string) (*ClientSets, error) {
	config, err := getKubeConfig(kubeconfigPath, kubeContext)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load kubeconfig %q", kubeconfigPath)
	}
	k8sClientSet, err := generateK8sClientSet(config)
	if err != nil {
		return nil, err
	}
	return &ClientSets{KubeClient: k8sClientSet, KubeConfig: config}, nil
}

// getKubeConfig setup the config for access cluster resource
func getKubeConfig(kubeconfigPath, kubeContext string) (*rest.Config, error) {
	if kubeconfigPath == "" {
		return clientcmd.BuildConfigFromFlags("", "")
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath},
		&clientcmd.ConfigOverrides{CurrentContext: kubeContext},
	).ClientConfig()
}

// generateK8sClientSet will generation k8s client
func generateK8sClientSet(config *rest.Config) (*kubernetes.Clientset, error) {
	k8sClientSet, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to generate kubernetes clientSet, err: %v: ", err)
	}
	return k8sClientSet, nil
}
