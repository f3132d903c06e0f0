// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package bootstrap wires the coordination store, dispatcher, workers,
// transports, and admin surface into one runnable Service, grounded in
// components/crm/internal/bootstrap's config.go/server.go/service.go
// split.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	libCommons "github.com/LerianStudio/lib-commons/v2/commons"
	libLog "github.com/LerianStudio/lib-commons/v2/commons/log"
	libOpentelemetry "github.com/LerianStudio/lib-commons/v2/commons/opentelemetry"
	libRabbitmq "github.com/LerianStudio/lib-commons/v2/commons/rabbitmq"
	libZap "github.com/LerianStudio/lib-commons/v2/commons/zap"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/LerianStudio/workhub/internal/admin"
	"github.com/LerianStudio/workhub/internal/association"
	"github.com/LerianStudio/workhub/internal/coordination"
	"github.com/LerianStudio/workhub/internal/dedup"
	"github.com/LerianStudio/workhub/internal/dispatcher"
	"github.com/LerianStudio/workhub/internal/executor"
	"github.com/LerianStudio/workhub/internal/policy"
	"github.com/LerianStudio/workhub/internal/transport"
	"github.com/LerianStudio/workhub/internal/transport/inprocess"
	"github.com/LerianStudio/workhub/internal/transport/rabbitmq"
	"github.com/LerianStudio/workhub/internal/workcoordinator"
	"github.com/LerianStudio/workhub/internal/workers"
	"github.com/LerianStudio/workhub/pkg/wconstant"
	"github.com/LerianStudio/workhub/pkg/wmodel"
)

// Config is the top level configuration struct for the entire application,
// populated by libCommons.SetConfigFromEnvVars the way crm's Config is.
type Config struct {
	EnvName                 string `env:"ENV_NAME"`
	ServiceName             string `env:"OTEL_RESOURCE_SERVICE_NAME"`
	AdminAddress            string `env:"ADMIN_ADDRESS"`
	LogLevel                string `env:"LOG_LEVEL"`
	OtelLibraryName         string `env:"OTEL_LIBRARY_NAME"`
	OtelServiceVersion      string `env:"OTEL_RESOURCE_SERVICE_VERSION"`
	OtelDeploymentEnv       string `env:"OTEL_RESOURCE_DEPLOYMENT_ENVIRONMENT"`
	OtelColExporterEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	EnableTelemetry         bool   `env:"ENABLE_TELEMETRY"`

	PostgresDSN string `env:"WORKHUB_POSTGRES_DSN"`
	Schema      string `env:"WORKHUB_SCHEMA"`

	TransportKind  string `env:"WORKHUB_TRANSPORT"` // "inprocess" or "rabbitmq"
	RabbitMQHost   string `env:"RABBITMQ_HOST"`
	RabbitMQPort   string `env:"RABBITMQ_PORT"`
	RabbitMQUser   string `env:"RABBITMQ_USER"`
	RabbitMQPass   string `env:"RABBITMQ_PASS"`
	RabbitMQHealth string `env:"RABBITMQ_HEALTH_CHECK_URL"`

	PollIntervalMillis int   `env:"WORKHUB_POLL_INTERVAL_MS"`
	LeaseSeconds        int   `env:"WORKHUB_LEASE_SECONDS"`
	BatchSize           int32 `env:"WORKHUB_BATCH_SIZE"`

	RedisAddress      string `env:"WORKHUB_REDIS_ADDRESS"`
	DedupWindowSeconds int   `env:"WORKHUB_DEDUP_WINDOW_SECONDS"`

	leaseDuration time.Duration
	dedupWindow   time.Duration
}

// Options contains optional dependencies that can be injected by callers,
// mirroring crm's bootstrap.Options: the host application supplies its
// receptors, perspective runners and static associations, since those are
// domain-specific and cannot be discovered from the environment.
type Options struct {
	Logger       libLog.Logger
	Receptors    map[string]dispatcher.Receptor
	Runners      workers.RunnerRegistry
	Associations []wmodel.MessageAssociation
	Policies     []policy.Policy
}

// InitServers initiates the HTTP admin surface and the worker loops with
// no host-supplied receptors, runners, associations or policies.
func InitServers() (*Service, error) {
	return InitServersWithOptions(nil)
}

// InitServersWithOptions builds the fully wired Service.
func InitServersWithOptions(opts *Options) (*Service, error) {
	cfg := &Config{}
	if err := libCommons.SetConfigFromEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment variables: %w", err)
	}

	applyDefaults(cfg)

	var logger libLog.Logger
	if opts != nil && opts.Logger != nil {
		logger = opts.Logger
	} else {
		var err error

		logger, err = libZap.InitializeLoggerWithError()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	telemetry, err := libOpentelemetry.InitializeTelemetryWithError(&libOpentelemetry.TelemetryConfig{
		LibraryName:               cfg.OtelLibraryName,
		ServiceName:               cfg.ServiceName,
		ServiceVersion:            cfg.OtelServiceVersion,
		DeploymentEnv:             cfg.OtelDeploymentEnv,
		CollectorExporterEndpoint: cfg.OtelColExporterEndpoint,
		EnableTelemetry:           cfg.EnableTelemetry,
		Logger:                    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	ctx := context.Background()

	if err := coordination.Migrate(cfg.PostgresDSN); err != nil {
		return nil, fmt.Errorf("failed to run coordination migrations: %w", err)
	}

	pool, err := coordination.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect coordination store: %w", err)
	}

	store := coordination.NewStore(pool, cfg.Schema, logger)

	registry := association.NewRegistry(opts.associationsOrEmpty())
	engine := policy.NewEngine(opts.policiesOrEmpty())

	identity := wmodel.InstanceIdentity{
		InstanceID:  uuid.NewString(),
		ServiceName: cfg.ServiceName,
		HostName:    hostname(),
		ProcessID:   int32(os.Getpid()),
	}

	publisherStrategy := workcoordinator.New(store, identity, cfg.leaseDuration, logger)
	perspectiveStrategy := workcoordinator.New(store, identity, cfg.leaseDuration, logger)
	consumerStrategy := workcoordinator.New(store, identity, cfg.leaseDuration, logger)

	fleet := executor.NewFleet(runtime.GOMAXPROCS(0)*4, 5*time.Minute)

	disp := dispatcher.New(identity.InstanceID, registry, engine, opts.receptorsOrEmpty(), fleet, publisherStrategy, logger)

	outboundTransport, err := buildTransport(cfg, logger)
	if err != nil {
		return nil, err
	}

	router := singleTransportRouter{t: outboundTransport}

	pollInterval := time.Duration(cfg.PollIntervalMillis) * time.Millisecond

	publisher := workers.NewPublisher(publisherStrategy, router, logger, pollInterval)
	perspective := workers.NewPerspective(perspectiveStrategy, opts.runnersOrEmpty(), fleet, logger, pollInterval)

	ledger := buildDedupLedger(cfg, logger)
	consumer := workers.NewTransportConsumer(consumerStrategy, registry, opts.receptorsOrEmpty(), ledger, logger)

	adminFlush := func(ctx context.Context) error {
		_, err := publisherStrategy.Flush(ctx, workcoordinator.WithBatchSize(cfg.BatchSize))
		return err
	}

	adminSrv := admin.New(pool, cfg.Schema, logger, adminFlush)

	// Every successful poll cycle, not just the manual /internal/flush
	// route, advances /healthz's "age of last successful batch cycle".
	publisher.OnCycle = adminSrv.NoteCycle
	perspective.OnCycle = adminSrv.NoteCycle

	server := NewServer(cfg, logger, &telemetry, adminSrv, publisher, perspective, consumer, fleet)

	return &Service{
		Server:     server,
		Logger:     logger,
		Dispatcher: disp,
	}, nil
}

func (o *Options) associationsOrEmpty() []wmodel.MessageAssociation {
	if o == nil {
		return nil
	}

	return o.Associations
}

func (o *Options) policiesOrEmpty() []policy.Policy {
	if o == nil {
		return nil
	}

	return o.Policies
}

func (o *Options) runnersOrEmpty() workers.RunnerRegistry {
	if o == nil || o.Runners == nil {
		return workers.RunnerRegistry{}
	}

	return o.Runners
}

func (o *Options) receptorsOrEmpty() map[string]dispatcher.Receptor {
	if o == nil || o.Receptors == nil {
		return map[string]dispatcher.Receptor{}
	}

	return o.Receptors
}

func applyDefaults(cfg *Config) {
	if cfg.Schema == "" {
		cfg.Schema = "workhub"
	}

	if cfg.AdminAddress == "" {
		cfg.AdminAddress = ":3001"
	}

	if cfg.PollIntervalMillis <= 0 {
		cfg.PollIntervalMillis = int(wconstant.DefaultPollInterval / time.Millisecond)
	}

	if cfg.LeaseSeconds <= 0 {
		cfg.leaseDuration = wconstant.DefaultLeaseDuration
	} else {
		cfg.leaseDuration = time.Duration(cfg.LeaseSeconds) * time.Second
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = wconstant.DefaultBatchSize
	}

	if cfg.TransportKind == "" {
		cfg.TransportKind = "inprocess"
	}

	if cfg.DedupWindowSeconds <= 0 {
		cfg.dedupWindow = 5 * time.Minute
	} else {
		cfg.dedupWindow = time.Duration(cfg.DedupWindowSeconds) * time.Second
	}
}

// buildDedupLedger wires the Redis fast path in front of the dedup ledger
// (spec §3) when WORKHUB_REDIS_ADDRESS is configured. Redis is optional:
// without it the batch function's own ON CONFLICT DO NOTHING on
// message_id still guarantees P5, just with one extra round trip per
// duplicate.
func buildDedupLedger(cfg *Config, logger libLog.Logger) *dedup.Ledger {
	if cfg.RedisAddress == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})

	return dedup.New(client, cfg.dedupWindow, logger)
}

func buildTransport(cfg *Config, logger libLog.Logger) (transport.Transport, error) {
	if cfg.TransportKind == "rabbitmq" {
		conn := &libRabbitmq.RabbitMQConnection{
			Host:           cfg.RabbitMQHost,
			Port:           cfg.RabbitMQPort,
			User:           cfg.RabbitMQUser,
			Pass:           cfg.RabbitMQPass,
			HealthCheckURL: cfg.RabbitMQHealth,
			Logger:         logger,
		}

		return rabbitmq.New(conn)
	}

	return inprocess.New(), nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}

	return h
}

type singleTransportRouter struct {
	t transport.Transport
}

func (r singleTransportRouter) Resolve(string) transport.Transport {
	return r.t
}
