package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/imrishuroy/watch-storefront/internal/aws"
)

// ErrNotFound is returned by writes that target a missing product.
var ErrNotFound = errors.New("product not found")

// maxInFilter is the largest IN list the store pushes down to DynamoDB.
const maxInFilter = 10

const maxDecrementAttempts = 3

// Store encapsulates operations on the watches table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new inventory Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

func (s *Store) key(productID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"watch_id": &types.AttributeValueMemberS{Value: productID},
	}
}

// Get fetches a product by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, productID string) (*Product, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            s.key(productID),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

// Availability reads the inventory record of a product without side effects.
func (s *Store) Availability(ctx context.Context, productID string) (Availability, error) {
	p, err := s.Get(ctx, productID)
	if err != nil {
		return Availability{}, err
	}
	return AvailabilityOf(p), nil
}

// Decrement removes qty units from stock atomically, flooring at zero. floored
// reports that fewer than qty units were left, i.e. the sale oversold.
func (s *Store) Decrement(ctx context.Context, productID string, qty int) (newStock int, floored bool, err error) {
	if qty <= 0 {
		return 0, false, fmt.Errorf("decrement %s: quantity must be positive, got %d", productID, qty)
	}
	names := map[string]string{"#stock": "stock"}

	for attempt := 0; attempt < maxDecrementAttempts; attempt++ {
		now := strconv.FormatInt(s.nowFunc().Unix(), 10)
		out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
			TableName:                &s.tableName,
			Key:                      s.key(productID),
			UpdateExpression:         awsString("ADD #stock :neg SET updated_at = :ua"),
			ConditionExpression:      awsString("attribute_exists(watch_id) AND #stock >= :qty"),
			ExpressionAttributeNames: names,
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":neg": numberAttr(-qty),
				":qty": numberAttr(qty),
				":ua":  &types.AttributeValueMemberN{Value: now},
			},
			ReturnValues: types.ReturnValueAllNew,
		})
		if err == nil {
			var rec Product
			if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
				return 0, false, fmt.Errorf("unmarshal stock: %w", err)
			}
			return rec.Stock, false, nil
		}
		if !aws.IsConditionFailed(err) {
			return 0, false, fmt.Errorf("decrement stock: %w", err)
		}

		// Not enough left: floor at zero, but only while that is still true.
		_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
			TableName:                &s.tableName,
			Key:                      s.key(productID),
			UpdateExpression:         awsString("SET #stock = :zero, updated_at = :ua"),
			ConditionExpression:      awsString("attribute_exists(watch_id) AND #stock < :qty"),
			ExpressionAttributeNames: names,
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":zero": numberAttr(0),
				":qty":  numberAttr(qty),
				":ua":   &types.AttributeValueMemberN{Value: now},
			},
		})
		if err == nil {
			return 0, true, nil
		}
		if !aws.IsConditionFailed(err) {
			return 0, false, fmt.Errorf("floor stock: %w", err)
		}

		// Neither condition held: the product is gone, or it was restocked
		// between the two writes.
		p, err := s.Get(ctx, productID)
		if err != nil {
			return 0, false, err
		}
		if p == nil {
			return 0, false, ErrNotFound
		}
	}
	return 0, false, fmt.Errorf("decrement %s: stock changed concurrently %d times", productID, maxDecrementAttempts)
}

// SetHidden flips the visibility flag of a product.
func (s *Store) SetHidden(ctx context.Context, productID string, hidden bool) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      s.key(productID),
		UpdateExpression:         awsString("SET #hidden = :h, updated_at = :ua"),
		ConditionExpression:      awsString("attribute_exists(watch_id)"),
		ExpressionAttributeNames: map[string]string{"#hidden": "hidden"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":h":  &types.AttributeValueMemberBOOL{Value: hidden},
			":ua": numberAttr(int(s.nowFunc().Unix())),
		},
	})
	if err != nil {
		if aws.IsConditionFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("set hidden: %w", err)
	}
	return nil
}

// List scans the catalog applying f. Brand lists longer than the IN limit
// are filtered after the scan.
func (s *Store) List(ctx context.Context, f Filter) ([]Product, error) {
	input := &dyn.ScanInput{TableName: &s.tableName}

	var conds []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	if !f.IncludeHidden {
		conds = append(conds, "#hidden <> :true")
		names["#hidden"] = "hidden"
		values[":true"] = &types.AttributeValueMemberBOOL{Value: true}
	}
	if c := strings.TrimSpace(f.Category); c != "" && !strings.EqualFold(c, "all") {
		conds = append(conds, "#category = :category")
		names["#category"] = "category"
		values[":category"] = &types.AttributeValueMemberS{Value: c}
	}
	if f.MinPrice > 0 {
		conds = append(conds, "#price >= :min")
		names["#price"] = "price"
		values[":min"] = floatAttr(f.MinPrice)
	}
	if f.MaxPrice > 0 {
		conds = append(conds, "#price <= :max")
		names["#price"] = "price"
		values[":max"] = floatAttr(f.MaxPrice)
	}
	pushBrands := len(f.Brands) > 0 && len(f.Brands) <= maxInFilter
	if pushBrands {
		placeholders := make([]string, len(f.Brands))
		for i, b := range f.Brands {
			ph := fmt.Sprintf(":b%d", i)
			placeholders[i] = ph
			values[ph] = &types.AttributeValueMemberS{Value: b}
		}
		conds = append(conds, "#brand IN ("+strings.Join(placeholders, ", ")+")")
		names["#brand"] = "brand"
	}
	if len(conds) > 0 {
		input.FilterExpression = awsString(strings.Join(conds, " AND "))
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}

	var products []Product
	paginator := dyn.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan products: %w", err)
		}
		var batch []Product
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal products: %w", err)
		}
		products = append(products, batch...)
	}

	if len(f.Brands) > maxInFilter {
		allowed := map[string]bool{}
		for _, b := range f.Brands {
			allowed[b] = true
		}
		kept := products[:0]
		for _, p := range products {
			if allowed[p.Brand] {
				kept = append(kept, p)
			}
		}
		products = kept
	}

	sortProducts(products, f.Sort)
	return products, nil
}

func sortProducts(products []Product, order string) {
	var less func(a, b Product) bool
	switch order {
	case SortPriceAsc:
		less = func(a, b Product) bool { return a.Price < b.Price }
	case SortPriceDesc:
		less = func(a, b Product) bool { return a.Price > b.Price }
	case SortNewest:
		less = func(a, b Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortName:
		less = func(a, b Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	default:
		less = func(a, b Product) bool {
			if a.Featured != b.Featured {
				return a.Featured
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}

// Create stores a new product, assigning an id when p has none.
func (s *Store) Create(ctx context.Context, p Product) (*Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.nowFunc()
	p.CreatedAt = now
	p.UpdatedAt = now

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return nil, fmt.Errorf("marshal product: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(watch_id)"),
	})
	if err != nil {
		return nil, fmt.Errorf("put product: %w", err)
	}
	return &p, nil
}

// Update replaces the editable fields of an existing product. Visibility is
// left alone; it changes through SetHidden so the cart cascade runs.
func (s *Store) Update(ctx context.Context, p Product) (*Product, error) {
	features, err := attributevalue.Marshal(p.Features)
	if err != nil {
		return nil, fmt.Errorf("marshal features: %w", err)
	}
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key:       s.key(p.ID),
		UpdateExpression: awsString("SET #name = :name, #brand = :brand, #category = :category, #price = :price, " +
			"#stock = :stock, featured = :featured, description = :description, image = :image, " +
			"features = :features, updated_at = :ua"),
		ConditionExpression: awsString("attribute_exists(watch_id)"),
		ExpressionAttributeNames: map[string]string{
			"#name":     "name",
			"#brand":    "brand",
			"#category": "category",
			"#price":    "price",
			"#stock":    "stock",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name":        &types.AttributeValueMemberS{Value: p.Name},
			":brand":       &types.AttributeValueMemberS{Value: p.Brand},
			":category":    &types.AttributeValueMemberS{Value: p.Category},
			":price":       floatAttr(p.Price),
			":stock":       numberAttr(p.Stock),
			":featured":    &types.AttributeValueMemberBOOL{Value: p.Featured},
			":description": &types.AttributeValueMemberS{Value: p.Description},
			":image":       &types.AttributeValueMemberS{Value: p.Image},
			":features":    features,
			":ua":          numberAttr(int(s.nowFunc().Unix())),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if aws.IsConditionFailed(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	var updated Product
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &updated, nil
}

// Delete removes a product. Returns ErrNotFound if it does not exist.
func (s *Store) Delete(ctx context.Context, productID string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:           &s.tableName,
		Key:                 s.key(productID),
		ConditionExpression: awsString("attribute_exists(watch_id)"),
	})
	if err != nil {
		if aws.IsConditionFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func numberAttr(n int) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}
}

func floatAttr(f float64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(f, 'f', -1, 64)}
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }
