package flow

import (
	"context"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
)

// SessionStore is the persistence contract for sessions and their drafts.
type SessionStore interface {
	// Load returns the session and its draft, reconstructing a minimal
	// draft when no durable snapshot exists. A nil session means the id
	// is unknown.
	Load(ctx context.Context, sessionID string) (*Session, *OrderDraft, error)

	// Create starts a session anchored to a product and store and writes
	// the initial snapshot.
	Create(ctx context.Context, productID, storeID string) (*Session, *OrderDraft, error)

	// Save persists the snapshot for the step. Safe to call repeatedly:
	// a step already marked saved is a logged no-op.
	Save(ctx context.Context, sessionID string, step Step, draft *OrderDraft) error

	// Upgrade materializes a permanent session for a temporary id and
	// rewrites all downstream references to the new id.
	Upgrade(ctx context.Context, tempID, productID, storeID string) (*Session, *OrderDraft, error)
}

// MessageStore persists conversation turns.
type MessageStore interface {
	SaveMessage(ctx context.Context, sessionID string, msg Message) error
	History(ctx context.Context, sessionID string, limit int) ([]Message, error)
}

// Analysis is the reply of the external message-analysis service.
type Analysis struct {
	Content         string               `json:"content"`
	Choices         []string             `json:"choices"`
	NextStep        Step                 `json:"nextStep"`
	BuyingIntent    float64              `json:"buyingIntent"`
	Recommendations []entity.ProductInfo `json:"recommendations,omitempty"`
}

// MessageAnalyzer answers free-text messages outside the structured flow.
type MessageAnalyzer interface {
	Analyze(ctx context.Context, userMessage string, product entity.ProductInfo, history []Message) (*Analysis, error)
}

// PaymentInit is the provider's answer to an initiation request.
type PaymentInit struct {
	PaymentURL    string `json:"paymentUrl,omitempty"`
	Reference     string `json:"reference"`
	TransactionID string `json:"transactionId"`
}

// PaymentClient is the provider-agnostic payment collaborator.
type PaymentClient interface {
	Initiate(ctx context.Context, amount int64, provider entity.PaymentProvider, customer entity.CustomerInfo) (*PaymentInit, error)
	Verify(ctx context.Context, sessionID, transactionID string) (string, error)
}

// TransactionStore persists payment transactions.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, tx *entity.PaymentTransaction) error
	LatestTransaction(ctx context.Context, sessionID string) (*entity.PaymentTransaction, error)
	UpdateTransactionStatus(ctx context.Context, id, status string) error
}

// Materializer converts a session's draft into a persisted order.
type Materializer interface {
	Materialize(ctx context.Context, sessionID string) (string, error)
}

// Catalog is the product lookup collaborator.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (entity.ProductInfo, error)
}
