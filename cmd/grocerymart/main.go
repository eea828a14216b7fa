// Package main запускает HTTP-сервер продуктового магазина.
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

	"github.com/mmeshcher/grocerymart/internal/config"
	"github.com/mmeshcher/grocerymart/internal/expiry"
	"github.com/mmeshcher/grocerymart/internal/gateway"
	"github.com/mmeshcher/grocerymart/internal/handler"
	"github.com/mmeshcher/grocerymart/internal/middleware"
	"github.com/mmeshcher/grocerymart/internal/notify"
	"github.com/mmeshcher/grocerymart/internal/repository"
	"github.com/mmeshcher/grocerymart/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var sink notify.Sink = notify.NewLogSink(logger)
	if cfg.RedisAddr != "" {
		redisSink, err := notify.NewRedisSink(cfg.RedisAddr, cfg.RedisPassword, cfg.NotifyQueue)
		if err != nil {
			sugar.Fatalw("notification queue initialization error", "error", err.Error())
		}
		defer redisSink.Close()
		sink = redisSink
	}
	dispatcher := notify.NewDispatcher(sink, logger, 0)

	policy := expiry.Policy{
		ThresholdDays:   cfg.NearExpiryDays,
		DiscountPercent: cfg.NearExpiryDiscountPercent,
	}

	sweeper, err := expiry.NewSweeper(repo, policy, cfg.NearExpirySchedule, logger)
	if err != nil {
		sugar.Fatalw("near-expiry scheduler initialization error", "error", err.Error())
	}

	gw := gateway.NewClient(cfg.RazorpayAPIURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	if !gw.Configured() {
		sugar.Info("payment gateway keys not set, UPI orders will use QR payments only")
	}

	svc := service.NewService(repo, dispatcher, gw, service.Options{
		Expiry:        policy,
		MerchantVPA:   cfg.MerchantVPA,
		MerchantName:  cfg.MerchantName,
		WebhookSecret: cfg.RazorpayWebhookSecret,
	}, logger)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dispatcher.Run(ctx)
		return nil
	})

	g.Go(func() error {
		sweeper.Serve(ctx, cfg.NearExpirySweepOnStart)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting grocerymart server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
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
