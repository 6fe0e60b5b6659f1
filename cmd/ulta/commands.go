package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/ulta-agent/ulta/agentconfig"
	"github.com/ulta-agent/ulta/cancel"
	"github.com/ulta-agent/ulta/logger"
	"github.com/ulta-agent/ulta/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "poll the control plane and serve jobs until stopped",
	RunE: func(cmd *cobra.Command, args []string) error {
		return start("")
	},
}

var runCmd = &cobra.Command{
	Use:   "run <test_id>",
	Short: "run a single test id and exit with its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return start(args[0])
	},
}

// start carries out every step of startup: config, logging, signal
// handling, wiring, and dispatch to the serve loop or a single job.
func start(testID string) error {
	cfg, err := agentconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if testID == "" {
		testID = cfg.Run.TestID
	}

	if err := logger.Initialize(cfg.Logging.JSONOutput); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	// Install a bootstrap sink so log events emitted before the control
	// plane is registered aren't lost; buildAgent drains it into the
	// real backend channel once the background reporter is running.
	bootstrapSink := logging.NewBootstrapSink()
	labels := logging.NewLabelContext()
	baseCore := logger.Logger.Desugar().Core()
	sinkCore := logging.NewSinkCore(bootstrapSink, labels, zapcore.InfoLevel)
	logger.Logger = zap.New(zapcore.NewTee(baseCore, sinkCore)).Sugar()

	cancellation := cancel.New()
	installSignalHandlers(cancellation)

	a, err := buildAgent(logger.Logger, cfg, cancellation, labels)
	if err != nil {
		pterm.Error.Printf("failed to start: %v\n", err)
		return err
	}

	var exitCode int
	if testID != "" {
		pterm.Info.Printf("running test %s\n", testID)
		exitCode = a.runSingleJob(testID)
	} else {
		pterm.Info.Printf("agent %s serving on admin port %d\n", cfg.Agent.Name, cfg.Admin.Port)
		exitCode = a.runServe()
		pterm.Success.Println("agent stopped cleanly")
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

// installSignalHandlers asks for a graceful shutdown on the first
// SIGINT/SIGTERM and escalates to a forced one on the second, mirroring
// the two-level Cancellation model.
func installSignalHandlers(cancellation *cancel.Cancellation) {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		pterm.Info.Println("\nShutting down gracefully (press Ctrl+C again to force)...")
		cancellation.NotifyGraceful("received shutdown signal")
		<-sigChan
		pterm.Warning.Println("\nForce shutdown - exiting immediately")
		cancellation.Notify("received second shutdown signal", cancel.Forced)
	}()
}
