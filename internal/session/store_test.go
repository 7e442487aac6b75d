package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
	"github.com/tekkistudio/viensonsconnait-sub001/flow"
)

var testProduct = entity.ProductInfo{ID: "voc-couples", Name: "VIENS ON S'CONNAÎT - Couples", Price: 14000}

type fakeRepo struct {
	mu          sync.Mutex
	sessions    map[string]*flow.Session
	carts       map[string]*flow.AbandonedCart
	upsertCalls int
	failUpsert  bool
	rewrites    [][2]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sessions: make(map[string]*flow.Session),
		carts:    make(map[string]*flow.AbandonedCart),
	}
}

func (f *fakeRepo) SaveSession(_ context.Context, sess *flow.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sess
	f.sessions[sess.ID] = &cp
	return nil
}

func (f *fakeRepo) GetSession(_ context.Context, id string) (*flow.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (f *fakeRepo) SetSessionStep(_ context.Context, id string, step flow.Step) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sess, ok := f.sessions[id]; ok {
		sess.CurrentStep = step
	}
	return nil
}

func (f *fakeRepo) UpsertCart(_ context.Context, cart *flow.AbandonedCart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert {
		return errors.New("write failed")
	}
	f.upsertCalls++
	f.carts[cart.SessionID] = cart
	return nil
}

func (f *fakeRepo) GetCart(_ context.Context, sessionID string) (*flow.AbandonedCart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart, ok := f.carts[sessionID]
	if !ok {
		return nil, nil
	}
	return cart, nil
}

func (f *fakeRepo) RewriteSessionID(_ context.Context, oldID, newID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rewrites = append(f.rewrites, [2]string{oldID, newID})
	if cart, ok := f.carts[oldID]; ok {
		cart.SessionID = newID
		f.carts[newID] = cart
		delete(f.carts, oldID)
	}
	return nil
}

type fakeCatalog struct{}

func (fakeCatalog) GetProduct(_ context.Context, _ string) (entity.ProductInfo, error) {
	return testProduct, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	stages []flow.Step
}

func (f *fakePublisher) PublishCartStage(_ context.Context, _ string, step flow.Step) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, step)
}

func testStore(t *testing.T, repo *fakeRepo, events Publisher) *Store {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := NewStore(repo, fakeCatalog{}, events, 16, "store-1", log)
	require.NoError(t, err)
	return store
}

func TestCreateWritesInitialSnapshot(t *testing.T) {
	repo := newFakeRepo()
	store := testStore(t, repo, nil)

	sess, draft, err := store.Create(context.Background(), testProduct.ID, "store-1")

	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, flow.StepInitial, sess.CurrentStep)
	assert.Equal(t, 1, draft.Items[0].Quantity)

	cart := repo.carts[sess.ID]
	require.NotNil(t, cart, "recovery must never race an unwritten first save")
	assert.Equal(t, flow.StepInitial, cart.CartStage)
	require.NotNil(t, cart.Metadata.OrderData)
	assert.False(t, cart.ConvertedToOrder)
}

func TestSaveIsIdempotentPerStep(t *testing.T) {
	repo := newFakeRepo()
	store := testStore(t, repo, nil)
	sess, draft, err := store.Create(context.Background(), testProduct.ID, "store-1")
	require.NoError(t, err)

	draft.Customer.FirstName = "Awa"
	require.NoError(t, store.Save(context.Background(), sess.ID, flow.StepCollectName, draft))
	writes := repo.upsertCalls
	history := len(repo.carts[sess.ID].Metadata.ProgressHistory)

	// a retried transition must not write or grow the progress log again
	require.NoError(t, store.Save(context.Background(), sess.ID, flow.StepCollectName, draft))
	assert.Equal(t, writes, repo.upsertCalls)
	assert.Len(t, repo.carts[sess.ID].Metadata.ProgressHistory, history)
	assert.True(t, draft.Metadata.Completed.Saved(flow.StepCollectName))
}

func TestSaveRollsBackMarkOnWriteFailure(t *testing.T) {
	repo := newFakeRepo()
	store := testStore(t, repo, nil)
	sess, draft, err := store.Create(context.Background(), testProduct.ID, "store-1")
	require.NoError(t, err)

	repo.failUpsert = true
	err = store.Save(context.Background(), sess.ID, flow.StepCollectPhone, draft)

	require.Error(t, err)
	assert.False(t, draft.Metadata.Completed.Saved(flow.StepCollectPhone), "a failed write releases the claim so the retry can run")

	repo.failUpsert = false
	require.NoError(t, store.Save(context.Background(), sess.ID, flow.StepCollectPhone, draft))
	assert.True(t, draft.Metadata.Completed.Saved(flow.StepCollectPhone))
}

func TestSavePublishesCartStage(t *testing.T) {
	repo := newFakeRepo()
	events := &fakePublisher{}
	store := testStore(t, repo, events)
	sess, draft, err := store.Create(context.Background(), testProduct.ID, "store-1")
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), sess.ID, flow.StepCollectAddress, draft))
	assert.Contains(t, events.stages, flow.StepCollectAddress)
}

func TestLoadRebuildsSessionFromSnapshot(t *testing.T) {
	repo := newFakeRepo()
	draft := flow.NewDraft(testProduct)
	draft.Customer.FirstName = "Awa"
	repo.carts["lost-session"] = &flow.AbandonedCart{
		SessionID: "lost-session",
		StoreID:   "store-1",
		CartStage: flow.StepCollectCity,
		Metadata:  flow.CartMetadata{OrderData: draft},
	}
	store := testStore(t, repo, nil)

	sess, loaded, err := store.Load(context.Background(), "lost-session")

	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, flow.StepCollectCity, sess.CurrentStep)
	assert.Equal(t, testProduct.ID, sess.ProductID)
	assert.Equal(t, "Awa", loaded.Customer.FirstName)
}

func TestLoadReconstructsMinimalDraft(t *testing.T) {
	repo := newFakeRepo()
	repo.sessions["bare"] = &flow.Session{
		ID:          "bare",
		ProductID:   testProduct.ID,
		StoreID:     "store-1",
		CurrentStep: flow.StepCollectName,
	}
	store := testStore(t, repo, nil)

	sess, draft, err := store.Load(context.Background(), "bare")

	require.NoError(t, err)
	require.NotNil(t, sess)
	require.NotNil(t, draft, "recovery degrades to a minimal draft, never to nil")
	assert.Equal(t, 1, draft.Items[0].Quantity)
	assert.Empty(t, draft.Customer.Phone)
}

func TestLoadUnknownSessionIsNil(t *testing.T) {
	store := testStore(t, newFakeRepo(), nil)
	sess, draft, err := store.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, draft)
}

func TestUpgradeCarriesDraftAndRewritesReferences(t *testing.T) {
	repo := newFakeRepo()
	store := testStore(t, repo, nil)

	draft := flow.NewDraft(testProduct)
	draft.SetQuantity(3)
	repo.carts["temp_widget_1"] = &flow.AbandonedCart{
		SessionID: "temp_widget_1",
		CartStage: flow.StepCollectName,
		Metadata:  flow.CartMetadata{OrderData: draft},
	}

	sess, carried, err := store.Upgrade(context.Background(), "temp_widget_1", testProduct.ID, "store-1")

	require.NoError(t, err)
	assert.False(t, flow.IsTempID(sess.ID))
	assert.Equal(t, flow.StepCollectName, sess.CurrentStep)
	assert.Equal(t, 3, carried.Items[0].Quantity, "the draft survives the id upgrade")
	require.Len(t, repo.rewrites, 1)
	assert.Equal(t, [2]string{"temp_widget_1", sess.ID}, repo.rewrites[0])

	// the permanent id resolves, the placeholder does not
	got, _, err := store.Load(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestUpgradePreservesProgressHistory(t *testing.T) {
	repo := newFakeRepo()
	store := testStore(t, repo, nil)

	draft := flow.NewDraft(testProduct)
	repo.carts["temp_widget_2"] = &flow.AbandonedCart{
		SessionID: "temp_widget_2",
		CartStage: flow.StepCollectPhone,
		Metadata: flow.CartMetadata{
			OrderData: draft,
			ProgressHistory: []flow.ProgressEntry{
				{Step: flow.StepCollectQuantity},
				{Step: flow.StepCollectName},
			},
		},
	}

	sess, _, err := store.Upgrade(context.Background(), "temp_widget_2", testProduct.ID, "store-1")
	require.NoError(t, err)

	cart, err := repo.GetCart(context.Background(), sess.ID)
	require.NoError(t, err)
	require.NotNil(t, cart)
	require.Len(t, cart.Metadata.ProgressHistory, 3, "the moved log keeps its earlier entries")
	assert.Equal(t, flow.StepCollectQuantity, cart.Metadata.ProgressHistory[0].Step)
	assert.Equal(t, flow.StepCollectPhone, cart.Metadata.ProgressHistory[2].Step)
}
