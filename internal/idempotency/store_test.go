package idempotency

import (
	"context"
	"testing"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/watch-storefront/internal/dynamotest"
)

var now = time.Unix(1700000000, 0)

func newStore(t *testing.T) (*Store, *dynamotest.Fake) {
	t.Helper()
	fake := dynamotest.NewStorefront()
	s := NewStore(fake, dynamotest.Tables.Idempotency, 48*time.Hour)
	s.nowFunc = func() time.Time { return now }
	return s, fake
}

func TestCreateIfNotExists_Get_MarkDone_MarkFailed(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	key := NotifyKey("order-123")

	created, err := s.CreateIfNotExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateIfNotExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, created, "duplicate create while in progress")

	rec, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusInProgress, rec.Status)
	assert.Equal(t, now.Add(48*time.Hour).Unix(), rec.ExpiresAt)

	require.NoError(t, s.MarkFailed(ctx, key, "smtp down"))
	rec, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "smtp down", rec.Note)

	created, err = s.CreateIfNotExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, created, "failed record is taken over")

	require.NoError(t, s.MarkDone(ctx, key, "order-123"))
	rec, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, rec.Status)
	assert.Equal(t, "order-123", rec.OrderID)

	created, err = s.CreateIfNotExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, created, "done record is kept")

	missing, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestExpiredRecordIsReclaimed(t *testing.T) {
	s, fake := newStore(t)
	fake.Seed(t, dynamotest.Tables.Idempotency, Record{
		Key:       "k",
		Status:    StatusDone,
		ExpiresAt: now.Add(-time.Minute).Unix(),
	})

	created, err := s.CreateIfNotExists(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestCompleteItemRequiresInProgress(t *testing.T) {
	s, fake := newStore(t)
	ctx := context.Background()
	key := CheckoutKey("u1", "client-1")

	_, err := fake.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{s.CompleteItem(key, "doc-1")},
	})
	require.Error(t, err, "no record to complete")

	created, err := s.CreateIfNotExists(ctx, key)
	require.NoError(t, err)
	require.True(t, created)

	_, err = fake.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{s.CompleteItem(key, "doc-1")},
	})
	require.NoError(t, err)

	rec, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, rec.Status)
	assert.Equal(t, "doc-1", rec.OrderID)
	assert.Equal(t, "checkout:u1:client-1", key)
}
