package entity

import "time"

// PaymentProvider is one of the supported payment rails.
type PaymentProvider string

const (
	ProviderWave        PaymentProvider = "WAVE"
	ProviderOrangeMoney PaymentProvider = "ORANGE_MONEY"
	ProviderCard        PaymentProvider = "CARD"
	ProviderCashOnDelivery PaymentProvider = "CASH_ON_DELIVERY"
)

// Online reports whether the provider requires an external payment call.
// Cash on delivery is settled at the door and never leaves the engine.
func (p PaymentProvider) Online() bool {
	return p == ProviderWave || p == ProviderOrangeMoney || p == ProviderCard
}

// Payment transaction statuses.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// PaymentTransaction records one attempt against a payment provider.
// Several may exist for one session (retries, method switches); the latest
// by CreatedAt is authoritative.
type PaymentTransaction struct {
	ID        string          `json:"id" bson:"_id"`
	OrderID   string          `json:"order_id" bson:"order_id"` // session id until materialization
	Provider  PaymentProvider `json:"provider" bson:"provider"`
	Amount    int64           `json:"amount" bson:"amount"`
	Currency  string          `json:"currency" bson:"currency"`
	Status    string          `json:"status" bson:"status"`
	Reference string          `json:"reference" bson:"reference"`
	Metadata  struct {
		PaymentURL string `json:"paymentUrl,omitempty" bson:"paymentUrl,omitempty"`
	} `json:"metadata" bson:"metadata"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
