package idempotency

import "time"

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// Record is the shape persisted in the idempotency DynamoDB table.
type Record struct {
	Key       string    `dynamodbav:"idempotency_key"` // PK
	Status    string    `dynamodbav:"status"`
	OrderID   string    `dynamodbav:"order_id,omitempty"` // document key of the order the key produced
	CreatedAt time.Time `dynamodbav:"created_at,unixtime"`
	UpdatedAt time.Time `dynamodbav:"updated_at,unixtime"`
	ExpiresAt int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note      string    `dynamodbav:"note,omitempty"`
}

// CheckoutKey scopes a client-supplied Idempotency-Key to one shopper.
func CheckoutKey(userID, clientKey string) string {
	return "checkout:" + userID + ":" + clientKey
}

// NotifyKey is the de-duplication key of an order notification.
func NotifyKey(orderID string) string {
	return "notify:" + orderID
}
