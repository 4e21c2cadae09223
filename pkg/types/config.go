package types

// EngineConfig collects the process level settings, read from the environment and an optional file
type EngineConfig struct {
	AgentArchivePath    string `yaml:"agentArchivePath"`
	AgentRemoteDir      string `yaml:"agentRemoteDir"`
	AgentPort           int    `yaml:"agentPort"`
	JVMAgentArchivePath string `yaml:"jvmAgentArchivePath"`
	JVMAgentPort        int    `yaml:"jvmAgentPort"`
	ChildParallelism    int    `yaml:"childParallelism"`
	GovcPath            string `yaml:"govcPath"`
	KubeconfigPath      string `yaml:"kubeconfigPath"`
	OTelEndpoint        string `yaml:"otelEndpoint"`
	MetricsAddr         string `yaml:"metricsAddr"`
	LogLevel            string `yaml:"logLevel"`
}
