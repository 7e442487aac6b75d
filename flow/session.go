package flow

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
)

// TempIDPrefix marks placeholder session ids handed out before the first
// structured exchange. The orchestrator upgrades them to permanent uuids.
const TempIDPrefix = "temp_"

// Session identifies one ongoing conversation. Created on first contact,
// never deleted; the step only moves forward or into a modify sub-branch.
type Session struct {
	ID          string    `json:"id" bson:"_id"`
	ProductID   string    `json:"product_id" bson:"product_id"`
	StoreID     string    `json:"store_id" bson:"store_id"`
	CurrentStep Step      `json:"current_step" bson:"current_step"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// NewSession creates a session anchored to a product and store.
func NewSession(productID, storeID string) *Session {
	now := time.Now()
	return &Session{
		ID:          uuid.NewString(),
		ProductID:   productID,
		StoreID:     storeID,
		CurrentStep: StepInitial,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsTempID reports whether the id is a placeholder to be upgraded.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// ProgressEntry is one append-only record of a cart stage transition.
type ProgressEntry struct {
	Step      Step      `json:"step" bson:"step"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// CartMetadata carries the durable copy of the draft and the progress log.
type CartMetadata struct {
	OrderData       *OrderDraft     `json:"orderData" bson:"orderData"`
	ProgressHistory []ProgressEntry `json:"progressHistory" bson:"progressHistory"`
}

// AbandonedCart is the durable snapshot of a session's draft, used for
// recovery and for remarketing of incomplete purchases. Keyed by session id;
// ConvertedToOrder flips exactly once, at materialization.
type AbandonedCart struct {
	SessionID        string              `json:"id" bson:"_id"`
	StoreID          string              `json:"store_id" bson:"store_id"`
	Customer         entity.CustomerInfo `json:"customer" bson:"customer"`
	CartStage        Step                `json:"cart_stage" bson:"cart_stage"`
	ConvertedToOrder bool                `json:"converted_to_order" bson:"converted_to_order"`
	Metadata         CartMetadata        `json:"metadata" bson:"metadata"`
	CreatedAt        time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at" bson:"updated_at"`
}
