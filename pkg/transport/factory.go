// Package transport is the endpoint client factory: it turns an endpoint descriptor and its
// credentials into a command executor, and answers target discovery queries for the builders.
package transport

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/docker/docker/client"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/clients"
	awscloud "github.com/litmuschaos/fault-orchestrator/pkg/cloud/aws"
	"github.com/litmuschaos/fault-orchestrator/pkg/cloud/azure"
	"github.com/litmuschaos/fault-orchestrator/pkg/cloud/gcp"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor/docker"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor/kubernetes"
	"github.com/litmuschaos/fault-orchestrator/pkg/executor/shell"
	sshexec "github.com/litmuschaos/fault-orchestrator/pkg/executor/ssh"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

const sshDialTimeout = 30 * time.Second

// Factory builds one executor per call; kubernetes clientSets are shared per kubeconfig and context
type Factory struct {
	config types.EngineConfig

	mu       sync.Mutex
	clusters map[string]*clients.ClientSets

	// kubeClients is swapped in tests
	kubeClients func(kubeconfigPath, kubeContext string) (*clients.ClientSets, error)
}

// NewFactory returns a factory using the engine configuration defaults
func NewFactory(config types.EngineConfig) *Factory {
	return &Factory{
		config:      config,
		clusters:    map[string]*clients.ClientSets{},
		kubeClients: clients.GenerateClientSetFromKubeConfig,
	}
}

// ExecutorFor implements executor.Resolver
func (f *Factory) ExecutorFor(ctx context.Context, spec types.FaultSpecification) (executor.CommandExecutor, error) {
	endpoint := spec.Endpoint
	if err := endpoint.Validate(); err != nil {
		return nil, err
	}
	log.InfoWithValues("[Transport]: Resolving executor", logrus.Fields{
		"Endpoint": endpoint.Name,
		"Kind":     endpoint.Kind,
	})

	switch endpoint.Kind {
	case types.EndpointMachine:
		return f.machine(ctx, endpoint, spec.Credentials)
	case types.EndpointDocker:
		return f.docker(endpoint)
	case types.EndpointKubernetes:
		clientSets, err := f.cluster(endpoint, spec.Credentials)
		if err != nil {
			return nil, err
		}
		return kubernetes.New(clientSets, spec.Namespace()), nil
	case types.EndpointAWS:
		sess, err := awscloud.GetAWSSession(endpoint.AWS.Region, spec.Credentials)
		if err != nil {
			return nil, cerrors.Transport{Target: endpoint.Name, Reason: err.Error()}
		}
		return awscloud.New(sess, endpoint.AWS.Region), nil
	case types.EndpointAzure:
		exec, err := azure.New(endpoint.Azure, spec.Credentials)
		if err != nil {
			return nil, err
		}
		return exec, nil
	case types.EndpointGCP:
		exec, err := gcp.New(ctx, endpoint.GCP, spec.Credentials)
		if err != nil {
			return nil, err
		}
		return exec, nil
	case types.EndpointVCenter:
		return shell.New(f.govcEnv(endpoint.VCenter, spec.Credentials)...), nil
	}
	return nil, cerrors.Configuration{Reason: fmt.Sprintf("no executor for endpoint kind '%s'", endpoint.Kind)}
}

func (f *Factory) machine(ctx context.Context, endpoint *types.Endpoint, creds *types.Credentials) (executor.CommandExecutor, error) {
	config, err := sshClientConfig(creds)
	if err != nil {
		return nil, err
	}
	port := endpoint.Machine.Port
	if port == 0 {
		port = 22
	}
	address := net.JoinHostPort(endpoint.Machine.Host, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: sshDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, cerrors.Transport{Target: address, Reason: err.Error()}
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, cerrors.Transport{Target: address, Reason: fmt.Sprintf("ssh handshake failed: %v", err)}
	}
	return sshexec.New(ssh.NewClient(clientConn, chans, reqs), address), nil
}

// sshClientConfig prefers key auth, password auth is offered as well when present
func sshClientConfig(creds *types.Credentials) (*ssh.ClientConfig, error) {
	if creds == nil || creds.Username == "" {
		return nil, cerrors.Specification{Reason: "machine endpoints require credentials with a username"}
	}
	var methods []ssh.AuthMethod
	if creds.PrivateKey != "" {
		signer, err := ssh.ParsePrivateKey([]byte(creds.PrivateKey))
		if err != nil {
			return nil, cerrors.Specification{Target: creds.Name, Reason: fmt.Sprintf("unable to parse private key: %v", err)}
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if creds.Password != "" {
		methods = append(methods, ssh.Password(creds.Password))
	}
	if len(methods) == 0 {
		return nil, cerrors.Specification{Target: creds.Name, Reason: "machine credentials need a password or a private key"}
	}
	return &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         sshDialTimeout,
	}, nil
}

func (f *Factory) docker(endpoint *types.Endpoint) (executor.CommandExecutor, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	host := ""
	if endpoint.Docker != nil {
		host = endpoint.Docker.Host
		if host != "" {
			opts = append(opts, client.WithHost(host))
		}
		if certPath := endpoint.Docker.CertPath; certPath != "" {
			opts = append(opts, client.WithTLSClientConfig(
				filepath.Join(certPath, "ca.pem"),
				filepath.Join(certPath, "cert.pem"),
				filepath.Join(certPath, "key.pem"),
			))
		}
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, cerrors.Transport{Target: endpoint.Name, Reason: errors.Wrapf(err, "unable to create docker client").Error()}
	}
	return docker.New(cli, host), nil
}

// cluster returns the cached clientSets for the endpoint kubeconfig and context
func (f *Factory) cluster(endpoint *types.Endpoint, creds *types.Credentials) (*clients.ClientSets, error) {
	kubeconfig := f.config.KubeconfigPath
	if creds != nil && creds.KubeconfigPath != "" {
		kubeconfig = creds.KubeconfigPath
	}
	kubeContext := ""
	if endpoint.Kubernetes != nil {
		kubeContext = endpoint.Kubernetes.Context
	}
	key := kubeconfig + "|" + kubeContext

	f.mu.Lock()
	defer f.mu.Unlock()
	if clientSets, ok := f.clusters[key]; ok {
		return clientSets, nil
	}
	clientSets, err := f.kubeClients(kubeconfig, kubeContext)
	if err != nil {
		return nil, cerrors.Transport{Target: endpoint.Name, Reason: err.Error()}
	}
	f.clusters[key] = clientSets
	return clientSets, nil
}

// govcEnv is the environment govc reads its connection from
func (f *Factory) govcEnv(conn *types.VCenterConnection, creds *types.Credentials) []string {
	env := []string{"GOVC_URL=" + conn.URL}
	if creds != nil {
		env = append(env, "GOVC_USERNAME="+creds.Username, "GOVC_PASSWORD="+creds.Password)
	}
	if conn.Insecure {
		env = append(env, "GOVC_INSECURE=1")
	}
	if conn.Datacenter != "" {
		env = append(env, "GOVC_DATACENTER="+conn.Datacenter)
	}
	return env
}
