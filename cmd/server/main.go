package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/kerf-planner/internal/application"
	"github.com/eugenenazirov/kerf-planner/internal/config"
	"github.com/eugenenazirov/kerf-planner/internal/logging"
)

var signalNotify = signal.Notify

type closer interface {
	Close(ctx context.Context) error
}

func main() {
	kingpinApp := kingpin.New("kerf-planner", "Kerf Planner - plans cutting of pieces from fixed-length stock with saw kerf")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	logLevel := kingpinApp.Flag("log-level", "Minimum log level (debug, info, warn, error)").String()
	stockLengthFlag := kingpinApp.Flag("stock-length", "Default stock segment length").Default("-1").Float64()
	kerfFlag := kingpinApp.Flag("kerf", "Default material lost per cut").Default("-1").Float64()
	precisionFlag := kingpinApp.Flag("precision", "Decimal places used when matching lengths (0-3)").Default("-1").Int()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed per client (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	jobWorkersFlag := kingpinApp.Flag("job-workers", "Number of background planning workers").Default("0").Int()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}

	if *port != "" {
		overrides.Port = port
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if *stockLengthFlag >= 0 {
		overrides.StockLength = stockLengthFlag
	}

	if *kerfFlag >= 0 {
		overrides.Kerf = kerfFlag
	}

	if *precisionFlag >= 0 {
		overrides.Precision = precisionFlag
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	if *jobWorkersFlag > 0 {
		overrides.JobWorkers = jobWorkersFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(logging.WithLevel(cfg.LogLevel))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), app, cfg.ShutdownGracePeriod, logger)
}

func shutdown(server *http.Server, jobs closer, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}

	if jobs != nil {
		if err := jobs.Close(ctx); err != nil {
			logger.Warn("background jobs did not stop in time", zap.Error(err))
		}
	}
}
