package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/imrishuroy/watch-storefront/internal/admin"
	"github.com/imrishuroy/watch-storefront/internal/aws"
	"github.com/imrishuroy/watch-storefront/internal/cart"
	"github.com/imrishuroy/watch-storefront/internal/dynamotest"
	"github.com/imrishuroy/watch-storefront/internal/inventory"
	"github.com/imrishuroy/watch-storefront/internal/orders"
	"github.com/imrishuroy/watch-storefront/internal/session"
	"github.com/imrishuroy/watch-storefront/internal/validation"
)

type fakeTables struct {
	mu      sync.Mutex
	created map[string]bool
	err     error
}

func (f *fakeTables) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.created[*in.TableName] {
		return nil, &types.ResourceInUseException{Message: in.TableName}
	}
	f.created[*in.TableName] = true
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeTables) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{}, nil
}

type harness struct {
	fake   *dynamotest.Fake
	tables *fakeTables
	env    *env
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := dynamotest.NewStorefront()
	logger := zaptest.NewLogger(t)
	h := &harness{fake: fake, tables: &fakeTables{created: map[string]bool{}}}
	h.env = &env{
		admin: admin.NewService(admin.Deps{
			Products: inventory.NewStore(fake, dynamotest.Tables.Watches),
			Carts:    cart.NewStore(fake, dynamotest.Tables.Cart),
			Orders:   orders.NewStore(fake, dynamotest.Tables.Orders),
			Admins:   session.NewAdmins(nil),
			Validate: validation.New(),
			Logger:   logger,
		}),
		tables: h.tables,
		schema: aws.Schema(dynamotest.Tables),
		logger: logger,
	}
	return h
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(func(context.Context) (*env, error) { return h.env, nil })
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateCreatesMissingTables(t *testing.T) {
	h := newHarness(t)
	h.tables.created[dynamotest.Tables.Cart] = true

	out, err := h.run(t, "migrate")
	require.NoError(t, err)

	var statuses []TableStatus
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	require.Len(t, statuses, 5)
	for _, s := range statuses {
		want := "created"
		if s.Table == dynamotest.Tables.Cart {
			want = "exists"
		}
		assert.Equal(t, want, s.Status, s.Table)
	}

	h.tables.err = errors.New("access denied")
	_, err = h.run(t, "migrate")
	assert.ErrorContains(t, err, "access denied")
}

func TestSetVisibilityCascadesToCarts(t *testing.T) {
	h := newHarness(t)
	now := time.Now()
	h.fake.Seed(t, dynamotest.Tables.Watches, inventory.Product{ID: "P", Stock: 4})
	h.fake.Seed(t, dynamotest.Tables.Cart,
		cart.Line{ID: "c1", UserID: "u1", ProductID: "P", Quantity: 2, AddedAt: now},
		cart.Line{ID: "c2", UserID: "u2", ProductID: "P", Quantity: 1, AddedAt: now},
	)

	out, err := h.run(t, "set-visibility", "P", "--hidden")
	require.NoError(t, err)
	var res admin.VisibilityResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, admin.VisibilityResult{ProductID: "P", Hidden: true, Lines: 2, Updated: 2}, res)

	var l cart.Line
	require.True(t, h.fake.Load(t, dynamotest.Tables.Cart, "c1", &l))
	assert.True(t, l.Hidden)
	assert.Equal(t, 2, l.OriginalQuantity)

	_, err = h.run(t, "set-visibility", "P")
	require.NoError(t, err)
	require.True(t, h.fake.Load(t, dynamotest.Tables.Cart, "c1", &l))
	assert.False(t, l.Hidden)
	assert.Equal(t, 2, l.Quantity)
}

func TestOrderCommands(t *testing.T) {
	h := newHarness(t)
	at := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	err := orders.NewStore(h.fake, dynamotest.Tables.Orders).Create(context.Background(), orders.Order{
		DocID:         "d1",
		Kind:          orders.KindPurchase,
		Status:        orders.StatusPending,
		CustomerEmail: "asha@example.in",
		Timestamp:     at,
		UpdatedAt:     at,
		Purchase: &orders.PurchaseDetails{
			OrderNumber:   "ORD-1",
			Subtotal:      1000,
			TotalAmount:   1180,
			PaymentMethod: orders.PaymentCOD,
			PaymentStatus: orders.PaymentPending,
		},
	})
	require.NoError(t, err)

	out, err := h.run(t, "advance-order", "ORD-1")
	require.NoError(t, err)
	var o orders.Order
	require.NoError(t, json.Unmarshal([]byte(out), &o))
	assert.Equal(t, orders.StatusConfirmed, o.Status)

	out, err = h.run(t, "find-order", "d1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &o))
	assert.Equal(t, orders.StatusConfirmed, o.Status)

	out, err = h.run(t, "dashboard", "--from", "2026-10-01", "--to", "2026-10-31")
	require.NoError(t, err)
	var d admin.Dashboard
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, 1, d.TotalOrders)
	assert.Equal(t, 1180.0, d.TotalSales)

	out, err = h.run(t, "find-order", "ORD-404")
	assert.ErrorContains(t, err, "not found")
	assert.Empty(t, out)

	_, err = h.run(t, "dashboard", "--from", "2026-10-31", "--to", "2026-10-01")
	assert.Error(t, err)
}
