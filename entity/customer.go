package entity

import "time"

// Customer is the phone-keyed aggregate updated after each materialized
// order. The update is best-effort; order placement never depends on it.
type Customer struct {
	Phone       string    `json:"phone" bson:"_id"`
	FirstName   string    `json:"first_name" bson:"first_name"`
	LastName    string    `json:"last_name" bson:"last_name"`
	City        string    `json:"city" bson:"city"`
	OrderCount  int       `json:"order_count" bson:"order_count"`
	TotalSpend  int64     `json:"total_spend" bson:"total_spend"`
	LastOrderAt time.Time `json:"last_order_at" bson:"last_order_at"`
}
