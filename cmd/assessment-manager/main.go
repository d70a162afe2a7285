// cmd/assessment-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"hosting-assessment/internal/api"
	"hosting-assessment/internal/bootstrap"
	"hosting-assessment/internal/common/camunda"
	"hosting-assessment/internal/common/config"
	"hosting-assessment/internal/common/logger"
	"hosting-assessment/internal/common/observability"

	rv "hosting-assessment/internal/workers/assessment/review-assessment"
	sc "hosting-assessment/internal/workers/assessment/score-assessment"
	sb "hosting-assessment/internal/workers/assessment/submit-assessment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting assessment manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, log,
		bootstrap.WithRecorder(obs),
		bootstrap.WithTracer(obs.Tracer()),
	)
	if err != nil {
		zapLog.Fatal("assessment components failed to start", zap.Error(err))
	}

	// --- Zeebe workers ---
	var (
		zeebe   *camunda.Client
		manager *camunda.Manager
	)
	if cfg.Camunda.Enabled {
		zeebe, err = connectZeebe(ctx, cfg.Camunda, log)
		if err != nil {
			_ = app.Close()
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		manager = camunda.NewManager(zeebe.GetClient(), obs, log)
		registerWorkers(manager, cfg, app, log)
		zapLog.Info("Workers registered", zap.Strings("taskTypes", manager.Running()))
	}

	// --- REST API ---
	var server *api.Server
	if cfg.API.Enabled {
		var searcher api.Searcher
		if app.Indexer != nil {
			searcher = app.Indexer
		}
		server = api.New(api.Config{
			AppName:      cfg.App.Name,
			BodyLimit:    cfg.API.BodyLimit,
			ReadTimeout:  config.GetDuration(cfg.API.ReadTimeout),
			WriteTimeout: config.GetDuration(cfg.API.WriteTimeout),
		}, app.Service, app.Catalog, app.Renderer, searcher, log)

		go func() {
			if err := server.Listen(cfg.API.Address); err != nil {
				zapLog.Error("API server failed", zap.Error(err))
				stop()
			}
		}()
	}

	// --- Health/Metrics ---
	var ops *http.Server
	if cfg.Metrics.Enabled {
		var checker healthChecker
		if zeebe != nil {
			checker = zeebe
		}
		ops = &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           newOpsMux(app, checker),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
			if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLog.Error("Health/Metrics server failed", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("Error stopping API server", zap.Error(err))
		}
	}
	if manager != nil {
		manager.Close(shutdownCtx)
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if ops != nil {
		_ = ops.Shutdown(shutdownCtx)
	}
	if err := app.Close(); err != nil {
		zapLog.Error("Error closing connections", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing telemetry", zap.Error(err))
	}

	zapLog.Info("Assessment manager stopped gracefully")
}

// connectZeebe dials the gateway with exponential backoff until the topology answers.
func connectZeebe(ctx context.Context, cfg config.CamundaConfig, log logger.Logger) (*camunda.Client, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxElapsedTime = 0

	var client *camunda.Client
	err := backoff.RetryNotify(func() error {
		var err error
		client, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg), log)
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, 10), ctx),
		func(err error, next time.Duration) {
			log.Warn("Zeebe client initialization failed, retrying...", map[string]interface{}{
				"error":       err,
				"nextRetryIn": next.String(),
			})
		})
	if err != nil {
		return nil, err
	}
	log.Info("Zeebe client connected successfully", nil)
	return client, nil
}

func registerWorkers(manager *camunda.Manager, cfg *config.Config, app *bootstrap.App, log logger.Logger) {
	timeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}

	if config.IsWorkerEnabled(cfg, sc.TaskType) {
		handler := sc.NewHandler(&sc.Config{Timeout: timeout(sc.TaskType)}, app.Engine, app.Renderer, log)
		manager.Register(sc.TaskType, config.GetWorkerConfig(cfg, sc.TaskType), handler.Handle)
	}

	if config.IsWorkerEnabled(cfg, sb.TaskType) {
		handler := sb.NewHandler(&sb.Config{Timeout: timeout(sb.TaskType)}, app.Service, log)
		manager.Register(sb.TaskType, config.GetWorkerConfig(cfg, sb.TaskType), handler.Handle)
	}

	if config.IsWorkerEnabled(cfg, rv.TaskType) {
		handler := rv.NewHandler(&rv.Config{Timeout: timeout(rv.TaskType)}, app.Service, log)
		manager.Register(rv.TaskType, config.GetWorkerConfig(cfg, rv.TaskType), handler.Handle)
	}
}
