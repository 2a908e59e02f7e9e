package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contentpilot/api"
	"contentpilot/scheduler"
	"contentpilot/shared/kafka"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the cron trigger and the Kafka consumer",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	orch, err := a.pipeline(ctx)
	if err != nil {
		return err
	}

	trigger := scheduler.NewTrigger(a.store, orch, cfg.Pipeline.MaxConcurrentJobs, logger.Named("trigger"))
	if err := trigger.Start(cfg.Scheduler.Cron); err != nil {
		return err
	}

	if cfg.Kafka.Enabled() {
		queue := scheduler.NewQueue(orch, cfg.Pipeline.MaxConcurrentJobs, logger.Named("queue"))
		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.RequestTopic,
			GroupID: cfg.Kafka.GroupID,
			Handler: queue.Handler(),
			Logger:  logger.Named("kafka"),
		})
		if err != nil {
			logger.Warn("Kafka consumer unavailable, queue trigger disabled", zap.Error(err))
		} else {
			a.onClose(consumer.Close)
			go func() {
				if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Kafka consumer failed to start", zap.Error(err))
				}
			}()
		}
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Dependencies{
		Jobs:      orch,
		Scheduler: a.scheduler(),
		Checks:    a.checks,
		Logger:    logger.Named("api"),
	})
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting API server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	if err := trigger.Stop(shutdownCtx); err != nil {
		logger.Warn("Trigger shutdown incomplete", zap.Error(err))
	}
	return nil
}
