package main

import (
	"context"
	"fmt"
	"os"

	"github.com/imrishuroy/watch-storefront/internal/admin"
	"github.com/imrishuroy/watch-storefront/internal/aws"
	"github.com/imrishuroy/watch-storefront/internal/cart"
	"github.com/imrishuroy/watch-storefront/internal/config"
	"github.com/imrishuroy/watch-storefront/internal/inventory"
	"github.com/imrishuroy/watch-storefront/internal/logging"
	"github.com/imrishuroy/watch-storefront/internal/orders"
	"github.com/imrishuroy/watch-storefront/internal/session"
	"github.com/imrishuroy/watch-storefront/internal/validation"
)

// connect builds the operator environment from the process configuration.
func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	clients, err := aws.NewAWSClients(ctx, cfg.AWS.Region, cfg.AWS.EndpointOverride)
	if err != nil {
		return nil, fmt.Errorf("failed to init aws clients: %w", err)
	}

	return &env{
		admin: admin.NewService(admin.Deps{
			Products: inventory.NewStore(clients.DynamoDB, cfg.Tables.Watches),
			Carts:    cart.NewStore(clients.DynamoDB, cfg.Tables.Cart),
			Orders:   orders.NewStore(clients.DynamoDB, cfg.Tables.Orders),
			Admins:   session.NewAdmins(cfg.AdminEmails),
			Validate: validation.New(),
			Logger:   logger,
		}),
		tables: clients.TableAdmin,
		schema: aws.Schema(cfg.Tables),
		logger: logger,
	}, nil
}

func main() {
	if err := newRootCmd(connect).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
