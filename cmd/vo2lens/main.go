package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sanspareilsmyn/vo2lens/internal/api"
	"github.com/sanspareilsmyn/vo2lens/internal/config"
	"github.com/sanspareilsmyn/vo2lens/internal/logging"
	"github.com/sanspareilsmyn/vo2lens/internal/pipeline"
	"github.com/sanspareilsmyn/vo2lens/internal/vo2max"
)

const httpShutdownTimeout = 10 * time.Second

var (
	configFile = flag.String("config", "configs/config.dev.yaml", "Path to the configuration file")
	logger     *zap.Logger
)

func main() {
	// Initialize Configuration
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration from %s: %v\n", *configFile, err)
		os.Exit(1)
	}

	// Initialize Logger
	var logErr error
	logger, logErr = logging.NewLogger(cfg.Log)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", logErr)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync() // Flush buffered logs on exit
	}()

	sugar := logger.Sugar()
	sugar.Infow("Logger initialized",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
	)
	sugar.Infow("Configuration loaded successfully", "path", *configFile)

	streaming := len(cfg.Kafka.Brokers) > 0
	if !streaming && !cfg.HTTP.Enabled {
		sugar.Fatal("Nothing to run: no Kafka brokers configured and the HTTP API is disabled")
	}

	// Shared calculator, stateless between calls
	core, err := vo2max.NewCalculator(cfg.Calculator.Core(), logger.Named("vo2max"))
	if err != nil {
		sugar.Fatalw("Failed to initialize calculator", "error", err)
	}

	// Handle Graceful Shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		sugar.Infow("Received signal, initiating shutdown...", "signal", sig.String())
		cancel()
	}()

	var wg sync.WaitGroup
	var httpErr error

	if cfg.HTTP.Enabled {
		handler := api.NewHandler(
			pipeline.NewCalculator(core, cfg.Ingestion.Limits(), nil, nil, logger.Named("api.calculator")),
			pipeline.NewAlerter(cfg.Alerts, nil, nil, logger.Named("api.alerter")),
			logger.Named("api"),
		)
		server := api.NewServer(cfg.HTTP.ListenAddr, api.NewRouter(handler, logger.Named("http")), logger.Named("http"))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if httpErr = server.Run(ctx, httpShutdownTimeout); httpErr != nil {
				cancel()
			}
		}()
	}

	// Run Pipeline
	var runErr error
	if streaming {
		if err := cfg.ValidateStreaming(); err != nil {
			sugar.Fatalw("Invalid Kafka configuration", "error", err)
		}
		sugar.Info("Initializing pipeline...")
		pipe, err := pipeline.New(cfg, core, logger)
		if err != nil {
			sugar.Fatalw("Failed to initialize pipeline", "error", err)
		}
		sugar.Info("Analysis pipeline initialized")

		sugar.Info("Starting analysis pipeline...")
		runErr = pipe.Run(ctx)
		cancel()
	} else {
		sugar.Info("No Kafka brokers configured, serving the HTTP API only")
		<-ctx.Done()
	}
	wg.Wait()
	if runErr == nil {
		runErr = httpErr
	}

	// Evaluate Result
	finalLogLevel := zapcore.InfoLevel
	shutdownReason := "gracefully"
	var finalErrorField = zap.Skip()

	switch {
	case runErr == nil:
		sugar.Info("Execution completed without error.")
	case errors.Is(runErr, context.Canceled):
		sugar.Info("Execution cancelled (expected on shutdown).")
	default: // Unexpected error
		shutdownReason = "due to error"
		finalLogLevel = zapcore.ErrorLevel
		finalErrorField = zap.Error(runErr)
		sugar.Errorw("Execution stopped unexpectedly", zap.Error(runErr))
	}

	finalMessage := fmt.Sprintf("Shutdown %s.", shutdownReason)
	logger.Log(finalLogLevel, finalMessage,
		zap.String("reason", shutdownReason),
		finalErrorField,
	)

	// Application Exit
	sugar.Info("Shutting down application...")
	sugar.Info("VO2Lens finished.")
	if finalLogLevel == zapcore.ErrorLevel {
		_ = logger.Sync()
		os.Exit(1)
	}
}
