package aws

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/watch-storefront/internal/config"
)

// Global secondary index names.
const (
	IndexCartByUser    = "user_id-added_at-index"
	IndexCartByWatch   = "watch_id-index"
	IndexAddressByUser = "user_id-created_at-index"
	IndexOrderByNumber = "order_number-index"
	IndexOrderByID     = "id-index"
	IndexOrderByEmail  = "customer_email-timestamp-index"
)

// IndexSpec describes a GSI. RangeKey is optional and always numeric (unix time).
type IndexSpec struct {
	Name     string
	HashKey  string
	RangeKey string
}

// TableSpec describes one storefront table. Hash keys are strings.
type TableSpec struct {
	Name    string
	HashKey string
	Indexes []IndexSpec
	TTL     string
}

// Schema returns the storefront tables under the configured names.
func Schema(t config.TablesConfig) []TableSpec {
	return []TableSpec{
		{Name: t.Watches, HashKey: "watch_id"},
		{Name: t.Cart, HashKey: "cart_id", Indexes: []IndexSpec{
			{Name: IndexCartByUser, HashKey: "user_id", RangeKey: "added_at"},
			{Name: IndexCartByWatch, HashKey: "watch_id"},
		}},
		{Name: t.Addresses, HashKey: "address_id", Indexes: []IndexSpec{
			{Name: IndexAddressByUser, HashKey: "user_id", RangeKey: "created_at"},
		}},
		{Name: t.Orders, HashKey: "doc_id", Indexes: []IndexSpec{
			{Name: IndexOrderByNumber, HashKey: "order_number"},
			{Name: IndexOrderByID, HashKey: "id"},
			{Name: IndexOrderByEmail, HashKey: "customer_email", RangeKey: "timestamp"},
		}},
		{Name: t.Idempotency, HashKey: "idempotency_key", TTL: "expires_at"},
	}
}

// CreateTableInput renders s as an on-demand table definition.
func (s TableSpec) CreateTableInput() *dynamodb.CreateTableInput {
	attrs := map[string]types.ScalarAttributeType{s.HashKey: types.ScalarAttributeTypeS}
	in := &dynamodb.CreateTableInput{
		TableName:   awsString(s.Name),
		BillingMode: types.BillingModePayPerRequest,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: awsString(s.HashKey), KeyType: types.KeyTypeHash},
		},
	}
	for _, idx := range s.Indexes {
		attrs[idx.HashKey] = types.ScalarAttributeTypeS
		keys := []types.KeySchemaElement{
			{AttributeName: awsString(idx.HashKey), KeyType: types.KeyTypeHash},
		}
		if idx.RangeKey != "" {
			attrs[idx.RangeKey] = types.ScalarAttributeTypeN
			keys = append(keys, types.KeySchemaElement{AttributeName: awsString(idx.RangeKey), KeyType: types.KeyTypeRange})
		}
		in.GlobalSecondaryIndexes = append(in.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:  awsString(idx.Name),
			KeySchema:  keys,
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}
	for name, typ := range attrs {
		in.AttributeDefinitions = append(in.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: awsString(name),
			AttributeType: typ,
		})
	}
	return in
}
