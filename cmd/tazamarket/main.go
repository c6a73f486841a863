// Package main запускает HTTP-сервер маркетплейса.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/taza-marketplace/internal/config"
	"github.com/mmeshcher/taza-marketplace/internal/events"
	"github.com/mmeshcher/taza-marketplace/internal/handler"
	"github.com/mmeshcher/taza-marketplace/internal/lifecycle"
	"github.com/mmeshcher/taza-marketplace/internal/marketfeed"
	"github.com/mmeshcher/taza-marketplace/internal/middleware"
	"github.com/mmeshcher/taza-marketplace/internal/pricing"
	"github.com/mmeshcher/taza-marketplace/internal/repository"
	"github.com/mmeshcher/taza-marketplace/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	machine, err := lifecycle.NewMachine(pricing.Default())
	if err != nil {
		sugar.Fatalw("pricing tables are invalid", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		sugar.Infow("order events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	var feed service.TrendFeed
	if cfg.MarketFeedAddress != "" {
		feed = marketfeed.NewClient(cfg.MarketFeedAddress)
	}

	svc := service.NewService(repo, machine, publisher, feed, logger)
	defer func() {
		if err := svc.Close(); err != nil {
			sugar.Warnw("close service", "error", err)
		}
	}()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Фоновое обновление рыночных трендов
	g.Go(func() error {
		svc.StartTrendUpdates(ctx, cfg.TrendPollInterval)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting marketplace server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
