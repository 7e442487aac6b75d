package order

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
	"github.com/tekkistudio/viensonsconnait-sub001/flow"
)

var testProduct = entity.ProductInfo{ID: "voc-couples", Name: "VIENS ON S'CONNAÎT - Couples", Price: 14000}

type fakeRepo struct {
	mu           sync.Mutex
	cart         *flow.AbandonedCart
	orders       []*entity.Order
	latestTx     *entity.PaymentTransaction
	claimLost    bool
	statsUpdated chan struct{}
}

func newFakeRepo(cart *flow.AbandonedCart) *fakeRepo {
	return &fakeRepo{cart: cart, statsUpdated: make(chan struct{}, 1)}
}

func (f *fakeRepo) GetCart(_ context.Context, _ string) (*flow.AbandonedCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cart, nil
}

func (f *fakeRepo) MarkCartConverted(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimLost || f.cart == nil || f.cart.ConvertedToOrder {
		return false, nil
	}
	f.cart.ConvertedToOrder = true
	return true, nil
}

func (f *fakeRepo) InsertOrder(_ context.Context, order *entity.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeRepo) LatestTransaction(_ context.Context, _ string) (*entity.PaymentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latestTx, nil
}

func (f *fakeRepo) UpsertCustomerStats(_ context.Context, _ *entity.Order) error {
	select {
	case f.statsUpdated <- struct{}{}:
	default:
	}
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	orders []*entity.Order
}

func (f *fakePublisher) PublishOrderCreated(_ context.Context, order *entity.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
}

func readyCart(sessionID string) *flow.AbandonedCart {
	draft := flow.NewDraft(testProduct)
	draft.SetQuantity(2)
	draft.Customer = entity.CustomerInfo{
		FirstName: "Awa", LastName: "Ndiaye",
		Phone: "+221771234567", City: "Dakar", Address: "Sacré Coeur 3, Villa 12",
	}
	draft.SetDeliveryCost(0)
	draft.PaymentMethod = entity.ProviderCashOnDelivery
	return &flow.AbandonedCart{
		SessionID: sessionID,
		StoreID:   "store-1",
		CartStage: flow.StepPaymentMethod,
		Metadata:  flow.CartMetadata{OrderData: draft},
	}
}

func testMaterializer(repo Repository, events Publisher) *Materializer {
	return NewMaterializer(repo, events, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMaterializeCreatesOrder(t *testing.T) {
	repo := newFakeRepo(readyCart("s1"))
	events := &fakePublisher{}
	m := testMaterializer(repo, events)

	orderID, err := m.Materialize(context.Background(), "s1")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(orderID, "VOC-"))
	assert.Len(t, orderID, len("VOC-")+8)

	require.Len(t, repo.orders, 1)
	order := repo.orders[0]
	assert.Equal(t, orderID, order.ID)
	assert.Equal(t, "s1", order.SessionID)
	assert.Equal(t, int64(28000), order.TotalAmount)
	assert.Equal(t, entity.OrderStatusConfirmed, order.Status)
	assert.Equal(t, string(entity.ProviderCashOnDelivery), order.PaymentMethod)
	assert.Equal(t, entity.PaymentPending, order.PaymentStatus, "cash settles at the door")

	require.Len(t, events.orders, 1)

	select {
	case <-repo.statsUpdated:
	case <-time.After(2 * time.Second):
		t.Fatal("customer stats update never ran")
	}
}

func TestMaterializeExactlyOnce(t *testing.T) {
	repo := newFakeRepo(readyCart("s1"))
	m := testMaterializer(repo, nil)

	_, err := m.Materialize(context.Background(), "s1")
	require.NoError(t, err)

	_, err = m.Materialize(context.Background(), "s1")
	assert.ErrorIs(t, err, flow.ErrAlreadyConverted)
	assert.Len(t, repo.orders, 1)
}

func TestMaterializeLostClaimDoesNotInsert(t *testing.T) {
	repo := newFakeRepo(readyCart("s1"))
	// another worker claims the cart between the read and the claim
	repo.claimLost = true
	m := testMaterializer(repo, nil)

	_, err := m.Materialize(context.Background(), "s1")
	assert.ErrorIs(t, err, flow.ErrAlreadyConverted)
	assert.Empty(t, repo.orders)
}

func TestMaterializeNoCart(t *testing.T) {
	m := testMaterializer(newFakeRepo(nil), nil)
	_, err := m.Materialize(context.Background(), "missing")
	assert.Error(t, err)
}

func TestMaterializeSnapshotDoesNotAliasDraft(t *testing.T) {
	cart := readyCart("s1")
	repo := newFakeRepo(cart)
	m := testMaterializer(repo, nil)

	_, err := m.Materialize(context.Background(), "s1")
	require.NoError(t, err)

	// mutating the live draft after the fact must not touch the order
	cart.Metadata.OrderData.Items[0].Quantity = 9
	assert.Equal(t, 2, repo.orders[0].Items[0].Quantity)
}

func TestMaterializeOnlinePaymentStatusFromTransaction(t *testing.T) {
	cart := readyCart("s1")
	cart.Metadata.OrderData.PaymentMethod = entity.ProviderWave
	repo := newFakeRepo(cart)
	repo.latestTx = &entity.PaymentTransaction{ID: "tx-1", Status: entity.PaymentCompleted}
	m := testMaterializer(repo, nil)

	_, err := m.Materialize(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentCompleted, repo.orders[0].PaymentStatus)
}
