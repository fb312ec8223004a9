package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/watch-storefront/internal/address"
	"github.com/imrishuroy/watch-storefront/internal/admin"
	"github.com/imrishuroy/watch-storefront/internal/aws"
	"github.com/imrishuroy/watch-storefront/internal/cart"
	"github.com/imrishuroy/watch-storefront/internal/checkout"
	"github.com/imrishuroy/watch-storefront/internal/config"
	"github.com/imrishuroy/watch-storefront/internal/handlers"
	"github.com/imrishuroy/watch-storefront/internal/idempotency"
	"github.com/imrishuroy/watch-storefront/internal/inventory"
	"github.com/imrishuroy/watch-storefront/internal/logging"
	"github.com/imrishuroy/watch-storefront/internal/notify"
	"github.com/imrishuroy/watch-storefront/internal/orders"
	"github.com/imrishuroy/watch-storefront/internal/session"
	"github.com/imrishuroy/watch-storefront/internal/validation"
)

func setupRouter(cfg *config.Config, clients *aws.AWSClients, logger *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	v := validation.New()
	metrics := aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace, logger)

	catalog := inventory.NewStore(clients.DynamoDB, cfg.Tables.Watches)
	cartStore := cart.NewStore(clients.DynamoDB, cfg.Tables.Cart)
	carts := cart.NewService(cartStore, catalog, cart.NewReconciler(cartStore, catalog, metrics, logger), logger)
	addresses := address.NewService(address.NewStore(clients.DynamoDB, cfg.Tables.Addresses), v, logger)
	orderStore := orders.NewStore(clients.DynamoDB, cfg.Tables.Orders)

	var notifier notify.Notifier
	if cfg.Notify.QueueURL != "" {
		notifier = notify.NewQueueNotifier(aws.NewPublisher(clients.SQS, cfg.Notify.QueueURL))
	} else {
		logger.Warn("NOTIFY_QUEUE_URL not set, order notifications are disabled")
	}

	return handlers.NewRouter(handlers.HandlerConfig{
		Catalog:   catalog,
		Carts:     carts,
		Addresses: addresses,
		Checkout: checkout.NewBuilder(checkout.Deps{
			Cart:      carts,
			Addresses: addresses,
			Stock:     catalog,
			Orders:    orderStore,
			Idem:      idempotency.NewStore(clients.DynamoDB, cfg.Tables.Idempotency, cfg.IdempotencyTTL),
			Notifier:  notifier,
			Validate:  v,
			Metrics:   metrics,
			Logger:    logger,
		}),
		Orders: orders.NewService(orderStore, logger),
		Admin: admin.NewService(admin.Deps{
			Products: catalog,
			Carts:    cartStore,
			Orders:   orderStore,
			Admins:   session.NewAdmins(cfg.AdminEmails),
			Validate: v,
			Logger:   logger,
		}),
		Validate: v,
		Logger:   logger,
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	clients, err := aws.NewAWSClients(context.Background(), cfg.AWS.Region, cfg.AWS.EndpointOverride)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	r := setupRouter(cfg, clients, logger)

	// RUN_LOCAL serves plain HTTP for development.
	if cfg.RunLocal {
		addr := ":" + cfg.Port
		logger.Info("running local server", zap.String("addr", addr))
		if err := r.Run(addr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
