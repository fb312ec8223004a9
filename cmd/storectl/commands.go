package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imrishuroy/watch-storefront/internal/admin"
	"github.com/imrishuroy/watch-storefront/internal/apperr"
	"github.com/imrishuroy/watch-storefront/internal/aws"
)

// env is what every storectl command runs against.
type env struct {
	admin  *admin.Service
	tables aws.TableAdminAPI
	schema []aws.TableSpec
	logger *zap.Logger
}

type connectFunc func(ctx context.Context) (*env, error)

// TableStatus reports what migrate did with one table.
type TableStatus struct {
	Table  string `json:"table"`
	Status string `json:"status"`
}

func newRootCmd(connect connectFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "storectl",
		Short: "Operate the watch storefront tables and orders",
		Long: `storectl provisions the storefront's DynamoDB tables and runs the
store owner's operations directly against them, without going through the API.

It reads the same environment (or .env file) as the API and the worker.`,
		SilenceUsage: true,
	}

	run := func(fn func(cmd *cobra.Command, e *env, args []string) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = e.logger.Sync() }()
			out, err := fn(cmd, e, args)
			if err != nil && !errors.Is(err, apperr.ErrPartial) {
				return err
			}
			// A partial result is printed before its error.
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(out); encErr != nil {
				return encErr
			}
			return err
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Create any missing storefront tables",
			Args:  cobra.NoArgs,
			RunE:  run(migrate),
		},
		&cobra.Command{
			Use:   "find-order <order-number|booking-id|doc-id>",
			Short: "Print one order",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(cmd *cobra.Command, e *env, args []string) (any, error) {
				return e.admin.FindOrder(cmd.Context(), args[0])
			}),
		},
		&cobra.Command{
			Use:   "advance-order <order-number|booking-id|doc-id>",
			Short: "Move an order to the next status of its workflow",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(cmd *cobra.Command, e *env, args []string) (any, error) {
				return e.admin.AdvanceOrder(cmd.Context(), args[0])
			}),
		},
		visibilityCmd(run),
		dashboardCmd(run),
	)
	return root
}

type runner = func(fn func(cmd *cobra.Command, e *env, args []string) (any, error)) func(*cobra.Command, []string) error

func visibilityCmd(run runner) *cobra.Command {
	var hidden bool
	cmd := &cobra.Command{
		Use:   "set-visibility <watch-id>",
		Short: "Hide or show a product and cascade the change to carts",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, e *env, args []string) (any, error) {
			return e.admin.SetVisibility(cmd.Context(), args[0], hidden)
		}),
	}
	cmd.Flags().BoolVar(&hidden, "hidden", false, "Hide the product (omit to show it)")
	return cmd
}

func dashboardCmd(run runner) *cobra.Command {
	var r admin.DateRange
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print sales totals, optionally for a date range",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, e *env, args []string) (any, error) {
			return e.admin.Dashboard(cmd.Context(), r)
		}),
	}
	cmd.Flags().StringVar(&r.From, "from", "", "First day included (YYYY-MM-DD)")
	cmd.Flags().StringVar(&r.To, "to", "", "Last day included (YYYY-MM-DD)")
	return cmd
}

func migrate(cmd *cobra.Command, e *env, _ []string) (any, error) {
	statuses := make([]TableStatus, 0, len(e.schema))
	for _, spec := range e.schema {
		_, err := e.tables.CreateTable(cmd.Context(), spec.CreateTableInput())
		var inUse *types.ResourceInUseException
		switch {
		case err == nil:
			e.logger.Info("table created", zap.String("table", spec.Name))
			statuses = append(statuses, TableStatus{Table: spec.Name, Status: "created"})
		case errors.As(err, &inUse):
			statuses = append(statuses, TableStatus{Table: spec.Name, Status: "exists"})
		default:
			return statuses, fmt.Errorf("create table %s: %w", spec.Name, err)
		}
	}
	return statuses, nil
}
