// Package order converts a finished session draft into the immutable order
// record, exactly once per session.
package order

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
	"github.com/tekkistudio/viensonsconnait-sub001/flow"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/metrics"
)

// Repository is the persistence surface the materializer needs.
type Repository interface {
	GetCart(ctx context.Context, sessionID string) (*flow.AbandonedCart, error)
	MarkCartConverted(ctx context.Context, sessionID string) (bool, error)
	InsertOrder(ctx context.Context, order *entity.Order) error
	LatestTransaction(ctx context.Context, sessionID string) (*entity.PaymentTransaction, error)
	UpsertCustomerStats(ctx context.Context, order *entity.Order) error
}

// Publisher emits the order-created event. Optional.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, order *entity.Order)
}

const orderIDAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// Materializer performs the one-time draft→order conversion.
type Materializer struct {
	repo   Repository
	events Publisher
	log    *slog.Logger
}

func NewMaterializer(repo Repository, events Publisher, log *slog.Logger) *Materializer {
	return &Materializer{
		repo:   repo,
		events: events,
		log:    log.With(sl.Module("order.materializer")),
	}
}

// Materialize reads the durable draft, claims the converted_to_order flag
// and inserts the order. Success is defined solely by the insert
// succeeding; the customer aggregate update is asynchronous best-effort.
func (m *Materializer) Materialize(ctx context.Context, sessionID string) (string, error) {
	cart, err := m.repo.GetCart(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("loading cart: %w", err)
	}
	if cart == nil {
		return "", fmt.Errorf("no cart for session %s", sessionID)
	}
	if cart.ConvertedToOrder {
		return "", flow.ErrAlreadyConverted
	}
	draft := cart.Metadata.OrderData
	if draft == nil {
		return "", fmt.Errorf("cart %s has no draft", sessionID)
	}

	claimed, err := m.repo.MarkCartConverted(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("claiming cart: %w", err)
	}
	if !claimed {
		return "", flow.ErrAlreadyConverted
	}

	orderID, err := m.newOrderID()
	if err != nil {
		return "", err
	}

	// copy-on-materialize: the order never aliases live session state
	snapshot := draft.Clone()
	order := &entity.Order{
		ID:            orderID,
		SessionID:     sessionID,
		StoreID:       cart.StoreID,
		Items:         snapshot.Items,
		Subtotal:      snapshot.Subtotal,
		DeliveryCost:  snapshot.DeliveryCost,
		TotalAmount:   snapshot.TotalAmount,
		Customer:      snapshot.Customer,
		PaymentMethod: string(snapshot.PaymentMethod),
		PaymentStatus: m.paymentStatus(ctx, sessionID, snapshot.PaymentMethod),
		Status:        entity.OrderStatusConfirmed,
		Note:          snapshot.Note,
		CreatedAt:     time.Now(),
	}

	if err := m.repo.InsertOrder(ctx, order); err != nil {
		return "", fmt.Errorf("inserting order: %w", err)
	}

	metrics.OrdersMaterialized.Inc()
	m.log.With(
		slog.String("order_id", orderID),
		slog.String("session_id", sessionID),
		slog.Int64("total", order.TotalAmount),
	).Info("order materialized")

	go m.updateStats(order)

	if m.events != nil {
		m.events.PublishOrderCreated(ctx, order)
	}
	return orderID, nil
}

func (m *Materializer) newOrderID() (string, error) {
	suffix, err := gonanoid.Generate(orderIDAlphabet, 8)
	if err != nil {
		return "", fmt.Errorf("generating order id: %w", err)
	}
	return "VOC-" + suffix, nil
}

func (m *Materializer) paymentStatus(ctx context.Context, sessionID string, method entity.PaymentProvider) string {
	if !method.Online() {
		return entity.PaymentPending
	}
	tx, err := m.repo.LatestTransaction(ctx, sessionID)
	if err != nil || tx == nil {
		return entity.PaymentPending
	}
	return tx.Status
}

// updateStats runs detached from the request: a failure here is logged and
// never fails the order.
func (m *Materializer) updateStats(order *entity.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.repo.UpsertCustomerStats(ctx, order); err != nil {
		m.log.With(
			slog.String("order_id", order.ID),
			sl.Phone(order.Customer.Phone),
			sl.Err(err),
		).Error("updating customer stats")
	}
}
