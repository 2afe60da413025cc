package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fooddelivery/payment-service/internal/adapter/secondary/database"
	"github.com/fooddelivery/payment-service/internal/adapter/secondary/gateway"
	"github.com/fooddelivery/payment-service/internal/adapter/secondary/messaging"
	"github.com/fooddelivery/payment-service/internal/config"
	"github.com/fooddelivery/payment-service/internal/constant/model/db"
	"github.com/fooddelivery/payment-service/internal/core/service"
	"github.com/fooddelivery/payment-service/internal/port/input"
	"github.com/fooddelivery/payment-service/internal/port/output"
	"github.com/fooddelivery/payment-service/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger("payment-worker")
	defer log.Sync()

	// Initialize secondary adapter: Database
	dbConn, err := db.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbConn.Close()

	// Initialize secondary adapters: Repository, Messaging, Gateway
	paymentRepo := database.NewGormPaymentRepository(dbConn.DB)
	msgClient, err := messaging.NewRabbitMQClientConcrete(cfg.AMQPURL, log)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer msgClient.Close()
	stripeGateway := gateway.NewStripeGateway(gateway.Config{SecretKey: cfg.StripeSecretKey})

	// Initialize core service
	paymentService := service.NewPaymentService(paymentRepo, stripeGateway, msgClient, log, cfg.GatewayTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Consume reconcile requests published after ambiguous gateway outcomes
	err = msgClient.ConsumeReconcileMessages(func(event output.PaymentEvent) error {
		log.Info("reconciling payment", zap.String("payment_id", event.PaymentID.String()))
		_, err := paymentService.ReconcilePayment(ctx, event.PaymentID)
		return err
	})
	if err != nil {
		log.Fatal("failed to start consuming reconcile messages", zap.Error(err))
	}

	// Periodic sweep over payments stuck in PROCESSING, in case the
	// reconcile message itself was lost.
	go func() {
		ticker := time.NewTicker(cfg.ReconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepStalePayments(ctx, paymentRepo, paymentService, cfg.ReconcileAge, log)
			}
		}
	}()

	log.Info("payment worker started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker")
}

// sweepStalePayments resolves payments that have sat in PROCESSING longer
// than the configured age.
func sweepStalePayments(
	ctx context.Context,
	repo output.PaymentRepository,
	svc input.PaymentService,
	age time.Duration,
	log *zap.Logger,
) {
	stale, err := repo.ListStaleProcessing(ctx, time.Now().Add(-age))
	if err != nil {
		log.Error("failed to list stale payments", zap.Error(err))
		return
	}
	for i := range stale {
		payment, err := svc.ReconcilePayment(ctx, stale[i].ID)
		if err != nil {
			log.Error("failed to reconcile stale payment",
				zap.String("payment_id", stale[i].ID.String()),
				zap.Error(err))
			continue
		}
		if payment.Status != stale[i].Status {
			log.Info("stale payment resolved",
				zap.String("payment_id", payment.ID.String()),
				zap.String("status", string(payment.Status)))
		}
	}
}
