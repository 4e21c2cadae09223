// Package environment fills the engine configuration from environment variables and an optional YAML file.
package environment

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Getenv fetches the env and set the default value, if any
func Getenv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return value
}

//GetENV fetches all the engine settings from the environment
func GetENV(config *types.EngineConfig) {
	config.AgentArchivePath = Getenv("AGENT_ARCHIVE_PATH", "/opt/fault-orchestrator/fault-agent.tar.gz")
	config.AgentRemoteDir = Getenv("AGENT_REMOTE_DIR", "/tmp/fault-agent")
	config.AgentPort, _ = strconv.Atoi(Getenv("AGENT_PORT", "7070"))
	config.JVMAgentArchivePath = Getenv("JVM_AGENT_ARCHIVE_PATH", "/opt/fault-orchestrator/jvm-agent.tar.gz")
	config.JVMAgentPort, _ = strconv.Atoi(Getenv("JVM_AGENT_PORT", "7071"))
	config.ChildParallelism, _ = strconv.Atoi(Getenv("CHILD_PARALLELISM", "4"))
	config.GovcPath = Getenv("GOVC_PATH", "govc")
	config.KubeconfigPath = Getenv("KUBECONFIG", "")
	config.OTelEndpoint = Getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	config.MetricsAddr = Getenv("METRICS_ADDR", "")
	config.LogLevel = Getenv("LOG_LEVEL", "info")
}

// LoadFile overlays the settings present in the YAML file at path, unset keys keep their value
func LoadFile(path string, config *types.EngineConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "unable to read config file %s", path)
	}
	if err := yaml.UnmarshalStrict(data, config); err != nil {
		return errors.Wrapf(err, "invalid config file %s", path)
	}
	return nil
}
