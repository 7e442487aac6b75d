package entity

import "time"

// OrderItem is one purchased product line. LineTotal is always
// UnitPrice * Quantity; callers recompute it on every quantity change.
type OrderItem struct {
	ProductID string `json:"product_id" bson:"product_id"`
	Name      string `json:"name" bson:"name"`
	UnitPrice int64  `json:"unit_price" bson:"unit_price"`
	Quantity  int    `json:"quantity" bson:"quantity"`
	LineTotal int64  `json:"line_total" bson:"line_total"`
}

// CustomerInfo groups the contact fields collected during the flow.
type CustomerInfo struct {
	FirstName string `json:"first_name" bson:"first_name"`
	LastName  string `json:"last_name" bson:"last_name"`
	Phone     string `json:"phone" bson:"phone"`
	Email     string `json:"email,omitempty" bson:"email,omitempty"`
	City      string `json:"city" bson:"city"`
	Address   string `json:"address" bson:"address"`
}

// Order is the immutable materialized record of a completed purchase.
// It is created exactly once per session and never mutated afterwards.
type Order struct {
	ID            string       `json:"id" bson:"_id"`
	SessionID     string       `json:"session_id" bson:"session_id"`
	StoreID       string       `json:"store_id" bson:"store_id"`
	Items         []OrderItem  `json:"items" bson:"items"`
	Subtotal      int64        `json:"subtotal" bson:"subtotal"`
	DeliveryCost  int64        `json:"delivery_cost" bson:"delivery_cost"`
	TotalAmount   int64        `json:"total_amount" bson:"total_amount"`
	Customer      CustomerInfo `json:"customer" bson:"customer"`
	PaymentMethod string       `json:"payment_method" bson:"payment_method"`
	PaymentStatus string       `json:"payment_status" bson:"payment_status"`
	Status        string       `json:"status" bson:"status"`
	Note          string       `json:"note,omitempty" bson:"note,omitempty"`
	CreatedAt     time.Time    `json:"created_at" bson:"created_at"`
}

// Order statuses.
const (
	OrderStatusConfirmed = "confirmed"
	OrderStatusPending   = "pending"
)
