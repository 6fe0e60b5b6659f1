package main

import (
	"context"
	"fmt"

	"github.com/ulta-agent/ulta/admin"
	"github.com/ulta-agent/ulta/agentconfig"
	"github.com/ulta-agent/ulta/artifact"
	"github.com/ulta-agent/ulta/cancel"
	"github.com/ulta-agent/ulta/errors"
	"github.com/ulta-agent/ulta/fsmanager"
	"github.com/ulta-agent/ulta/identity"
	"github.com/ulta-agent/ulta/logging"
	"github.com/ulta-agent/ulta/reporter"
	"github.com/ulta-agent/ulta/state"
	"github.com/ulta-agent/ulta/statusreport"
	"github.com/ulta-agent/ulta/tank"
	"github.com/ulta-agent/ulta/transport"
	transportgrpc "github.com/ulta-agent/ulta/transport/grpc"
	transports3 "github.com/ulta-agent/ulta/transport/s3"
	"github.com/ulta-agent/ulta/ulta"
	"go.uber.org/zap"
)

// agent is every long-running collaborator startup wiring assembles.
type agent struct {
	cfg          *agentconfig.Config
	logger       *zap.SugaredLogger
	cancellation *cancel.Cancellation
	state        *state.State

	service        *ulta.Service
	statusReporter *statusreport.Reporter
	eventReporter  *reporter.Reporter
	healthchecker  *admin.Healthchecker
	adminServer    *admin.Server
	closeTransport func() error
}

// grpcClientFactory adapts transport/grpc.Dial to transport.ClientFactory.
type grpcClientFactory struct{ logger *zap.SugaredLogger }

func (f grpcClientFactory) Name() string { return "grpc" }

func (f grpcClientFactory) Build(cfg any) (*transport.Bundle, error) {
	gcfg, ok := cfg.(agentconfig.GRPCConfig)
	if !ok {
		return nil, fmt.Errorf("grpc factory: unexpected config type %T", cfg)
	}
	client, err := transportgrpc.Dial(gcfg.Address, f.logger)
	if err != nil {
		return nil, err
	}
	return &transport.Bundle{ControlPlane: client, Close: client.Close}, nil
}

// s3ClientFactory adapts transport/s3.New to transport.ClientFactory.
type s3ClientFactory struct{ logger *zap.SugaredLogger }

func (f s3ClientFactory) Name() string { return "s3" }

func (f s3ClientFactory) Build(cfg any) (*transport.Bundle, error) {
	scfg, ok := cfg.(agentconfig.S3Config)
	if !ok {
		return nil, fmt.Errorf("s3 factory: unexpected config type %T", cfg)
	}
	store, err := transports3.New(context.Background(), transports3.Config{
		Region:          scfg.Region,
		Endpoint:        scfg.Endpoint,
		AccessKeyID:     scfg.AccessKeyID,
		SecretAccessKey: scfg.SecretAccessKey,
		UsePathStyle:    scfg.UsePathStyle,
	}, f.logger)
	if err != nil {
		return nil, err
	}
	return &transport.Bundle{ObjectStore: store, Close: func() error { return nil }}, nil
}

// buildAgent performs the startup sequence: transport selection, agent
// registration, filesystem layout, the background log reporter, and
// every collaborator the main loop or admin API needs.
func buildAgent(logger *zap.SugaredLogger, cfg *agentconfig.Config, cancellation *cancel.Cancellation, labels *logging.LabelContext) (*agent, error) {
	serviceState := state.New()
	observer := state.NewObserver(serviceState, logger, cancellation)

	registry := transport.NewRegistry()
	if err := registry.Register(grpcClientFactory{logger: logger}); err != nil {
		return nil, err
	}
	if err := registry.Register(s3ClientFactory{logger: logger}); err != nil {
		return nil, err
	}

	controlPlaneBundle, err := registry.Build("grpc", cfg.Transport.GRPC)
	if err != nil {
		return nil, fmt.Errorf("build control-plane transport: %w", err)
	}
	objectStoreBundle, err := registry.Build("s3", cfg.Transport.S3)
	if err != nil {
		return nil, fmt.Errorf("build object-store transport: %w", err)
	}

	controlPlane, ok := controlPlaneBundle.ControlPlane.(*transportgrpc.Client)
	if !ok {
		return nil, fmt.Errorf("control-plane transport did not produce a usable client")
	}
	objectStore, ok := objectStoreBundle.ObjectStore.(*transports3.Store)
	if !ok {
		return nil, fmt.Errorf("object-store transport did not produce a usable client")
	}

	identityCfg := identity.Config{
		AgentName:         cfg.Agent.Name,
		AgentVersion:      cfg.Agent.Version,
		FolderID:          cfg.Agent.FolderID,
		ComputeInstanceID: cfg.Agent.ComputeInstanceID,
		InstanceLTCreated: cfg.Agent.InstanceLTCreated,
		AgentIDFile:       cfg.Agent.AgentIDFile,
		NoCache:           cfg.Agent.NoCache,
	}
	agentInfo, err := identity.Register(context.Background(), logger, identityCfg, controlPlane, identity.MakeAgentInfo(identityCfg))
	if err != nil {
		return nil, fmt.Errorf("register agent: %w", err)
	}
	logger = logger.With("agent_id", agentInfo.ID)
	labels.EnterAgent(agentInfo.ID, agentInfo.Name, agentInfo.Version)

	fs, err := fsmanager.NewFS(
		cfg.Agent.WorkDir+"/_tmp",
		cfg.Agent.WorkDir+"/tests",
		cfg.Agent.LockDir,
		0o755,
	)
	if err != nil {
		return nil, fmt.Errorf("build filesystem layout: %w", err)
	}
	usage := fsmanager.NewFilesystemUsage(logger)
	mutationLock := fsmanager.NewMutationLock()
	fsObserver := fsmanager.NewFileSystemObserver(fs, usage, mutationLock, observer, logger)

	bootstrapSink := logging.NewBootstrapSink()
	backendSource := reporter.NewSource(cfg.Reporter.MaxUnsentSize)
	logging.Drain(bootstrapSink, backendSource)

	backendProcessor := logging.NewLogMessageProcessor(controlPlane, agentInfo.ID, agentInfo.ID, "agent", logging.BackendChannel(cfg.Reporter.MaxUnsentSize))
	eventReporter := reporter.New(logger, []reporter.Handler{backendProcessor}, reporter.Config{
		RetentionPeriod:       cfg.Reporter.RetentionPeriod,
		ReportInterval:        cfg.Reporter.ReportInterval,
		MaxUnsentSize:         cfg.Reporter.MaxUnsentSize,
		UseExponentialBackoff: cfg.Reporter.UseExponentialBackoff,
	}, backendSource)

	tankClient := tank.NewClient(logger, fs, controlPlane, cfg.Tank.DataUploaderAPIAddress, cfg.Tank.GeneratorBinary)

	uploaders := []ulta.NamedUploader{
		{Name: "artifacts", Uploader: artifact.NewS3Uploader(logger, objectStore, cancellation)},
		{Name: "logs", Uploader: artifact.NewLogUploader(logger, transportgrpc.NewPlainLogAdapter(controlPlane), cancellation)},
	}

	service := ulta.NewService(logger, controlPlane, tankClient, objectStore, cfg.Agent.WorkDir, cfg.Admin.SleepTime, uploaders, cancellation, serviceState, cfg.Admin.MaxWaitingTime)

	statusReporter := statusreport.New(logger, service, controlPlane, cancellation, serviceState, cfg.Admin.StatusReportInterval)

	cleanup := func(limit int64) error {
		fsmanager.NewFilesystemCleanup(logger, fs, fsmanager.CleanupJob{DiskLimitMB: limit / (1 << 20)}, usage, cfg.Tank.NetortDir).Cleanup()
		return nil
	}
	healthchecker := admin.NewHealthchecker(logger, serviceState, cancellation, cfg.Admin.HealthcheckInterval, admin.HealthCheckFunc(func() { fsObserver.Healthcheck(cleanup) }))

	adminServer := admin.NewServer(logger, serviceState, cancellation, service)

	closeTransport := func() error {
		if controlPlaneBundle.Close != nil {
			return controlPlaneBundle.Close()
		}
		return nil
	}

	return &agent{
		cfg:            cfg,
		logger:         logger,
		cancellation:   cancellation,
		state:          serviceState,
		service:        service,
		statusReporter: statusReporter,
		eventReporter:  eventReporter,
		healthchecker:  healthchecker,
		adminServer:    adminServer,
		closeTransport: closeTransport,
	}, nil
}

// runServe drives the loop-forever path: background workers started,
// the main loop run until cancellation, everything drained on the way
// out.
func (a *agent) runServe() int {
	ctx := context.Background()
	go a.eventReporter.Run(ctx)
	go a.statusReporter.Run(ctx)
	go a.healthchecker.Run()
	if err := a.adminServer.Start(a.cfg.Admin.Port); err != nil {
		a.logger.Errorw("failed to start admin API", "error", err)
	}

	a.service.Serve()

	a.adminServer.Stop(ctx)
	_ = a.eventReporter.Report(true)
	if a.closeTransport != nil {
		_ = a.closeTransport()
	}
	return 0
}

// runSingleJob drives the one-shot path: the exit code mirrors the
// test's own.
func (a *agent) runSingleJob(testID string) int {
	ctx := context.Background()
	go a.eventReporter.Run(ctx)

	result, err := a.service.ServeSingleJob(testID)
	_ = a.eventReporter.Report(true)
	if a.closeTransport != nil {
		_ = a.closeTransport()
	}
	if err != nil {
		if errors.Is(err, ulta.ErrJobNotExecuted) {
			a.logger.Errorw("job did not execute", "test_id", testID, "error", err)
			return 1
		}
		a.logger.Errorw("job finished with an error", "test_id", testID, "error", err)
	}
	return result.ExitCode
}
