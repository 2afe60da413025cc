package main

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	httpadapter "github.com/fooddelivery/payment-service/internal/adapter/primary/http"
	"github.com/fooddelivery/payment-service/internal/adapter/secondary/database"
	"github.com/fooddelivery/payment-service/internal/adapter/secondary/gateway"
	"github.com/fooddelivery/payment-service/internal/adapter/secondary/messaging"
	"github.com/fooddelivery/payment-service/internal/config"
	"github.com/fooddelivery/payment-service/internal/constant/model/db"
	"github.com/fooddelivery/payment-service/internal/core/service"
	"github.com/fooddelivery/payment-service/internal/core/webhook"
	"github.com/fooddelivery/payment-service/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger("payment-api")
	defer log.Sync()

	// Initialize secondary adapter: Database
	dbConn, err := db.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbConn.Close()

	// Initialize secondary adapters: Repository, Messaging, Gateway
	paymentRepo := database.NewGormPaymentRepository(dbConn.DB)
	events, err := messaging.NewRabbitMQClient(cfg.AMQPURL, log)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer events.Close()
	stripeGateway := gateway.NewStripeGateway(gateway.Config{SecretKey: cfg.StripeSecretKey})

	// Initialize core service (implements input port)
	paymentService := service.NewPaymentService(paymentRepo, stripeGateway, events, log, cfg.GatewayTimeout)

	// Initialize primary adapter: HTTP handler (uses input port)
	verifier := webhook.NewVerifier(cfg.WebhookSecret)
	paymentHandler := httpadapter.NewPaymentHandler(paymentService, verifier, log)

	// Initialize Echo
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Routes
	api := e.Group("/api/v1")
	api.POST("/payments", paymentHandler.CreatePayment)
	api.POST("/payments/:id/confirm", paymentHandler.ConfirmPayment)
	api.POST("/payments/:id/refund", paymentHandler.RefundPayment)
	api.GET("/payments/:id", paymentHandler.GetPayment)
	api.GET("/payments/order/:orderId", paymentHandler.GetPaymentByOrder)
	api.GET("/payments/customer/:customerId", paymentHandler.GetPaymentsByCustomer)
	api.POST("/webhooks/gateway", paymentHandler.GatewayWebhook)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// Start server
	addr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := e.Start(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
