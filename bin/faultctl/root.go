package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/litmuschaos/fault-orchestrator/chaoslib"
	"github.com/litmuschaos/fault-orchestrator/pkg/clients"
	"github.com/litmuschaos/fault-orchestrator/pkg/endpoints"
	"github.com/litmuschaos/fault-orchestrator/pkg/environment"
	"github.com/litmuschaos/fault-orchestrator/pkg/events"
	"github.com/litmuschaos/fault-orchestrator/pkg/faults"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/telemetry"
	"github.com/litmuschaos/fault-orchestrator/pkg/transport"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// app is the process wide state built once before any subcommand runs
type app struct {
	configPath      string
	catalogPath     string
	logLevel        string
	metricsAddr     string
	eventsNamespace string

	config    types.EngineConfig
	catalog   endpoints.Catalog
	factory   *faults.Factory
	metrics   *telemetry.Metrics
	recorder  *events.Recorder
	publisher events.Publisher
	shutdown  []func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "faultctl",
		Short:         "Inject, remediate and schedule faults against machines, containers, clusters and cloud instances",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context(), cmd.Name())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "engine configuration file, overlays the environment")
	flags.StringVar(&a.catalogPath, "catalog", "", "endpoint and credential catalog")
	flags.StringVar(&a.logLevel, "log-level", "", "log level, overrides LOG_LEVEL")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	flags.StringVar(&a.eventsNamespace, "events-namespace", "", "also publish task transitions as kubernetes events in this namespace")

	root.AddCommand(
		newInjectCmd(a),
		newRemediateCmd(a),
		newTriggerCmd(a),
		newScheduleCmd(a),
		newDescribeCmd(a),
	)
	return root
}

func (a *app) setup(ctx context.Context, command string) error {
	environment.GetENV(&a.config)
	if a.configPath != "" {
		if err := environment.LoadFile(a.configPath, &a.config); err != nil {
			return err
		}
	}
	if a.logLevel != "" {
		a.config.LogLevel = a.logLevel
	}
	if a.metricsAddr != "" {
		a.config.MetricsAddr = a.metricsAddr
	}
	log.Init(a.config.LogLevel)

	if a.catalogPath != "" {
		catalog, err := endpoints.Load(a.catalogPath)
		if err != nil {
			return err
		}
		a.catalog = catalog
	}

	endpointClients := transport.NewFactory(a.config)
	a.factory = chaoslib.NewFactory(endpointClients, endpointClients, a.config)

	if err := a.setupTelemetry(ctx, command); err != nil {
		return err
	}
	return a.setupEvents()
}

func (a *app) setupTelemetry(ctx context.Context, command string) error {
	if a.config.OTelEndpoint != "" {
		service := telemetry.OTELFaultOrchestratorServiceName
		if command == "schedule" {
			service = telemetry.OTELFaultSchedulerServiceName
		}
		shutdown, err := telemetry.InitOTelSDK(ctx, service, a.config.OTelEndpoint)
		if err != nil {
			// tracing is optional, the run goes on without it
			log.Warnf("[Telemetry]: unable to initialise tracing, err: %v", err)
		} else {
			a.shutdown = append(a.shutdown, shutdown)
		}
	}

	registry := prometheus.NewRegistry()
	metrics, shutdown, err := telemetry.InitMetrics(registry)
	if err != nil {
		return err
	}
	a.metrics = metrics
	a.shutdown = append(a.shutdown, shutdown)

	if a.config.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: a.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("[Metrics]: metrics server stopped, err: %v", err)
			}
		}()
		a.shutdown = append(a.shutdown, server.Shutdown)
		log.Infof("[Metrics]: serving metrics on %s/metrics", a.config.MetricsAddr)
	}
	return nil
}

func (a *app) setupEvents() error {
	a.recorder = &events.Recorder{}
	a.publisher = a.recorder
	if a.eventsNamespace == "" {
		return nil
	}
	clientSets, err := clients.GenerateClientSetFromKubeConfig(a.config.KubeconfigPath, "")
	if err != nil {
		return err
	}
	a.publisher = events.Fanout{a.recorder, events.KubernetesPublisher{
		Client:    clientSets.KubeClient,
		Namespace: a.eventsNamespace,
		Component: "faultctl",
	}}
	return nil
}

// wrap releases the telemetry and metrics server once the subcommand returns, failed or not
func (a *app) wrap(run func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.teardown()
		return run(cmd, args)
	}
}

func (a *app) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil {
			log.Warnf("unable to shut down cleanly, err: %v", err)
		}
	}
	a.shutdown = nil
}
