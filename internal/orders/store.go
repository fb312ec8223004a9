package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/watch-storefront/internal/aws"
)

var (
	// ErrStatusMismatch is returned when the stored status is not the expected one.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
	// ErrNotFound is returned by updates that target a missing order.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicate is returned when the document key is already taken.
	ErrDuplicate = errors.New("order already exists")
	// ErrCommitConflict is returned when the transactional commit was
	// canceled by one of its conditions.
	ErrCommitConflict = errors.New("order commit conflict")
)

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

func (s *Store) key(docID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"doc_id": &types.AttributeValueMemberS{Value: docID},
	}
}

func (s *Store) put(o Order) (*types.Put, error) {
	if o.DocID == "" {
		return nil, errors.New("order has no doc_id")
	}
	item, err := attributevalue.MarshalMap(toRecord(o))
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}
	return &types.Put{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(doc_id)"),
	}, nil
}

// Create persists a new order. o.DocID must be set by the caller.
func (s *Store) Create(ctx context.Context, o Order) error {
	p, err := s.put(o)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           p.TableName,
		Item:                p.Item,
		ConditionExpression: p.ConditionExpression,
	})
	if err != nil {
		if aws.IsConditionFailed(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("put order: %w", err)
	}
	return nil
}

// CreateWithIdempotency atomically creates the order and applies marker, the
// idempotency record transition that claims it. Either both are written or
// neither is.
func (s *Store) CreateWithIdempotency(ctx context.Context, o Order, marker types.TransactWriteItem) error {
	p, err := s.put(o)
	if err != nil {
		return err
	}
	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{{Put: p}, marker},
	})
	if err != nil {
		if aws.IsTransactionCanceled(err) {
			return fmt.Errorf("%w: %v", ErrCommitConflict, err)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches an order by document key. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, docID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       s.key(docID),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var r record
	if err := attributevalue.UnmarshalMap(out.Item, &r); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	o := fromRecord(r)
	return &o, nil
}

// FindByOrderNumber returns the first purchase order with the given number.
// Returns (nil, nil) if there is none.
func (s *Store) FindByOrderNumber(ctx context.Context, number string) (*Order, error) {
	return s.first(ctx, aws.IndexOrderByNumber, "order_number", number)
}

// FindByServiceID returns the first service order with the given booking id.
// Returns (nil, nil) if there is none.
func (s *Store) FindByServiceID(ctx context.Context, id string) (*Order, error) {
	return s.first(ctx, aws.IndexOrderByID, "id", id)
}

func (s *Store) first(ctx context.Context, index, attr, value string) (*Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:                 &s.tableName,
		IndexName:                 awsString(index),
		KeyConditionExpression:    awsString("#k = :v"),
		ExpressionAttributeNames:  map[string]string{"#k": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     awsInt32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query orders by %s: %w", attr, err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var r record
	if err := attributevalue.UnmarshalMap(out.Items[0], &r); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	o := fromRecord(r)
	return &o, nil
}

// ListByEmail returns every order of a customer, newest first.
func (s *Store) ListByEmail(ctx context.Context, email string) ([]Order, error) {
	forward := false
	paginator := dyn.NewQueryPaginator(s.client, &dyn.QueryInput{
		TableName:                 &s.tableName,
		IndexName:                 awsString(aws.IndexOrderByEmail),
		KeyConditionExpression:    awsString("customer_email = :e"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": &types.AttributeValueMemberS{Value: email}},
		ScanIndexForward:          &forward,
	})

	var out []Order
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query orders by email: %w", err)
		}
		batch, err := decode(page.Items)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

// List scans every order placed in [from, to], newest first. A zero bound
// is open.
func (s *Store) List(ctx context.Context, from, to time.Time) ([]Order, error) {
	input := &dyn.ScanInput{TableName: &s.tableName}
	var conds []string
	values := map[string]types.AttributeValue{}
	if !from.IsZero() {
		conds = append(conds, "#ts >= :from")
		values[":from"] = unixAttr(from)
	}
	if !to.IsZero() {
		conds = append(conds, "#ts <= :to")
		values[":to"] = unixAttr(to)
	}
	if len(conds) > 0 {
		expr := conds[0]
		if len(conds) == 2 {
			expr += " AND " + conds[1]
		}
		input.FilterExpression = &expr
		input.ExpressionAttributeNames = map[string]string{"#ts": "timestamp"}
		input.ExpressionAttributeValues = values
	}

	var out []Order
	paginator := dyn.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		batch, err := decode(page.Items)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// UpdateStatus conditionally updates the order status from expected -> newStatus.
// Returns ErrNotFound for a missing order and ErrStatusMismatch if the stored
// status moved on. An empty expected matches an order without a status.
func (s *Store) UpdateStatus(ctx context.Context, docID, expectedStatus, newStatus string) error {
	values := map[string]types.AttributeValue{
		":new": &types.AttributeValueMemberS{Value: newStatus},
		":ua":  unixAttr(s.nowFunc()),
	}
	cond := "attribute_exists(doc_id) AND attribute_not_exists(#s)"
	if expectedStatus != "" {
		cond = "attribute_exists(doc_id) AND #s = :expected"
		values[":expected"] = &types.AttributeValueMemberS{Value: expectedStatus}
	}

	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       s.key(docID),
		UpdateExpression:          awsString("SET #s = :new, updated_at = :ua"),
		ConditionExpression:       &cond,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
	})
	if err == nil {
		return nil
	}
	if !aws.IsConditionFailed(err) {
		return fmt.Errorf("update item: %w", err)
	}
	o, gerr := s.Get(ctx, docID)
	if gerr != nil {
		return gerr
	}
	if o == nil {
		return ErrNotFound
	}
	return ErrStatusMismatch
}

// UpdatePaymentStatus sets the payment status of a purchase order. Documents
// written before kind was stored count as purchases when they carry an order
// number or items, the same rule reads apply.
func (s *Store) UpdatePaymentStatus(ctx context.Context, docID, status string) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              s.key(docID),
		UpdateExpression: awsString("SET payment_status = :p, updated_at = :ua"),
		ConditionExpression: awsString("attribute_exists(doc_id) AND (#kind = :purchase OR " +
			"(attribute_not_exists(#kind) AND (attribute_exists(order_number) OR attribute_exists(#items))))"),
		ExpressionAttributeNames: map[string]string{"#kind": "kind", "#items": "items"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p":        &types.AttributeValueMemberS{Value: status},
			":ua":       unixAttr(s.nowFunc()),
			":purchase": &types.AttributeValueMemberS{Value: string(KindPurchase)},
		},
	})
	if err != nil {
		if aws.IsConditionFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

func decode(items []map[string]types.AttributeValue) ([]Order, error) {
	var recs []record
	if err := attributevalue.UnmarshalListOfMaps(items, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal orders: %w", err)
	}
	out := make([]Order, len(recs))
	for i, r := range recs {
		out[i] = fromRecord(r)
	}
	return out, nil
}

func unixAttr(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(t.Unix(), 10)}
}

func awsString(s string) *string { return &s }

func awsInt32(n int32) *int32 { return &n }
