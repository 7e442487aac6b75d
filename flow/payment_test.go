package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
)

func seedPaymentSession(store *fakeStore, step Step, draft *OrderDraft) *Session {
	sess := NewSession(testProduct.ID, "store-1")
	sess.CurrentStep = step
	draft.Metadata.Mode = ModeAwaitingPayment
	store.seed(sess, draft)
	return sess
}

func TestPaymentInitRejectsIncompleteDraft(t *testing.T) {
	store := newFakeStore()
	c := testCoordinator(&fakePaymentClient{}, &fakeTxStore{}, &fakeMaterializer{}, store)
	draft := NewDraft(testProduct) // no customer fields yet
	sess := seedPaymentSession(store, StepPaymentInit, draft)

	out, err := c.Handle(context.Background(), sess, draft, "")

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "incomplete_draft", out[0].Metadata.Error)
	assert.Equal(t, StepPaymentError, out[0].Metadata.NextStep)
	assert.Equal(t, StepPaymentError, sess.CurrentStep)
}

func TestPaymentMethodRejectsIncompleteDraft(t *testing.T) {
	store := newFakeStore()
	client := &fakePaymentClient{}
	c := testCoordinator(client, &fakeTxStore{}, &fakeMaterializer{}, store)
	draft := NewDraft(testProduct) // no customer fields yet
	sess := seedPaymentSession(store, StepPaymentMethod, draft)

	// the live path skips the init step, so the gate must hold here too
	out, err := c.Handle(context.Background(), sess, draft, "wave")

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "incomplete_draft", out[0].Metadata.Error)
	assert.Equal(t, StepPaymentError, sess.CurrentStep)
	assert.Equal(t, 0, client.initCalls, "an incomplete draft never reaches the provider")
}

func TestOnlinePaymentWithoutClientOffersCash(t *testing.T) {
	store := newFakeStore()
	c := NewPaymentCoordinator(nil, &fakeTxStore{}, &fakeMaterializer{}, store, PaymentConfig{
		Assistant: AssistantInfo{Name: "Rose"},
	}, testLogger())
	draft := completeDraft()
	sess := seedPaymentSession(store, StepPaymentMethod, draft)

	out, err := c.Handle(context.Background(), sess, draft, "Wave")

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "payment_unavailable", out[0].Metadata.Error)
	assert.Contains(t, out[0].Choices, "Paiement à la livraison")
	assert.Equal(t, StepPaymentError, sess.CurrentStep)
}

func TestPaymentWaveInitiation(t *testing.T) {
	store := newFakeStore()
	client := &fakePaymentClient{init: &PaymentInit{
		PaymentURL:    "https://pay.example/wv/123",
		Reference:     "REF-1",
		TransactionID: "tx-ext-1",
	}}
	txs := &fakeTxStore{}
	c := testCoordinator(client, txs, &fakeMaterializer{orderID: "VOC-AAAA1111"}, store)
	draft := completeDraft()
	sess := seedPaymentSession(store, StepPaymentMethod, draft)

	out, err := c.Handle(context.Background(), sess, draft, "Wave")

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, StepPaymentProcessing, out[0].Metadata.NextStep)
	assert.Equal(t, "https://pay.example/wv/123", out[0].Metadata.PaymentURL)
	assert.Contains(t, out[0].Choices, "J'ai payé")

	require.Len(t, txs.txs, 1)
	tx := txs.txs[0]
	assert.Equal(t, entity.ProviderWave, tx.Provider)
	assert.Equal(t, entity.PaymentPending, tx.Status)
	assert.Equal(t, draft.TotalAmount, tx.Amount)
	assert.Equal(t, "XOF", tx.Currency)
	assert.Equal(t, sess.ID, tx.OrderID)
}

func TestPaymentInitiationFailureOffersChoices(t *testing.T) {
	store := newFakeStore()
	c := testCoordinator(&fakePaymentClient{initErr: errBoom}, &fakeTxStore{}, &fakeMaterializer{}, store)
	draft := completeDraft()
	sess := seedPaymentSession(store, StepPaymentMethod, draft)

	out, err := c.Handle(context.Background(), sess, draft, "Orange Money")

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "initiation_failed", out[0].Metadata.Error)
	assert.Equal(t, StepPaymentError, sess.CurrentStep)
	assert.Contains(t, out[0].Choices, "Changer de moyen de paiement")
}

func TestCashOnDeliveryShortCircuits(t *testing.T) {
	store := newFakeStore()
	client := &fakePaymentClient{}
	mat := &fakeMaterializer{orderID: "VOC-CASH0001"}
	c := testCoordinator(client, &fakeTxStore{}, mat, store)
	draft := completeDraft()
	sess := seedPaymentSession(store, StepPaymentMethod, draft)

	out, err := c.Handle(context.Background(), sess, draft, "Paiement à la livraison")

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "VOC-CASH0001", out[0].Metadata.OrderID)
	assert.Contains(t, out[0].Content, "VOC-CASH0001")
	assert.Contains(t, out[0].Content, "Vous paierez à la livraison")
	assert.Equal(t, 0, client.initCalls, "cash never reaches the provider")
	assert.Equal(t, 1, mat.created)
	assert.Equal(t, ModeFreeConversation, draft.Metadata.Mode, "a confirmed order releases purchase mode")
}

func TestProcessingPaidVerifiesAndMaterializes(t *testing.T) {
	store := newFakeStore()
	client := &fakePaymentClient{statuses: []string{entity.PaymentCompleted}}
	txs := &fakeTxStore{}
	txs.txs = append(txs.txs, &entity.PaymentTransaction{
		ID: "tx-1", OrderID: "s", Provider: entity.ProviderWave,
		Amount: 28000, Currency: "XOF", Status: entity.PaymentPending,
	})
	mat := &fakeMaterializer{orderID: "VOC-WAVE0001"}
	c := testCoordinator(client, txs, mat, store)
	draft := completeDraft()
	sess := seedPaymentSession(store, StepPaymentProcessing, draft)

	out, err := c.Handle(context.Background(), sess, draft, "J'ai payé")

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "VOC-WAVE0001", out[0].Metadata.OrderID)
	assert.Equal(t, entity.PaymentCompleted, txs.txs[0].Status)
	assert.Equal(t, 1, mat.created)
	assert.Equal(t, StepOrderConfirmed, sess.CurrentStep)
}

func TestDoubleConfirmationMaterializesOnce(t *testing.T) {
	store := newFakeStore()
	client := &fakePaymentClient{statuses: []string{entity.PaymentCompleted, entity.PaymentCompleted}}
	txs := &fakeTxStore{}
	txs.txs = append(txs.txs, &entity.PaymentTransaction{
		ID: "tx-1", Provider: entity.ProviderWave, Status: entity.PaymentPending,
	})
	mat := &fakeMaterializer{orderID: "VOC-ONCE0001"}
	c := testCoordinator(client, txs, mat, store)
	draft := completeDraft()
	sess := seedPaymentSession(store, StepPaymentProcessing, draft)

	_, err := c.Handle(context.Background(), sess, draft, "J'ai payé")
	require.NoError(t, err)

	// the same confirmation arrives again after a reconnect
	sess.CurrentStep = StepPaymentProcessing
	out, err := c.Handle(context.Background(), sess, draft, "J'ai payé")

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1, mat.created, "the cart converts exactly once")
	assert.Contains(t, out[0].Content, "confirmée", "the duplicate gets the confirmation again, not an error")
	assert.Empty(t, out[0].Metadata.Error)
}

func TestProcessingPendingRePrompts(t *testing.T) {
	store := newFakeStore()
	client := &fakePaymentClient{} // always pending
	txs := &fakeTxStore{}
	txs.txs = append(txs.txs, &entity.PaymentTransaction{ID: "tx-1", Status: entity.PaymentPending})
	mat := &fakeMaterializer{orderID: "VOC-PEND0001"}
	c := testCoordinator(client, txs, mat, store)
	draft := completeDraft()
	sess := seedPaymentSession(store, StepPaymentProcessing, draft)

	out, err := c.Handle(context.Background(), sess, draft, "J'ai payé")

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Content, "en attente")
	assert.Equal(t, 0, mat.created)
	assert.Equal(t, StepPaymentProcessing, sess.CurrentStep, "a pending payment keeps the session in place")
}

func TestProcessingSwitchMethod(t *testing.T) {
	store := newFakeStore()
	c := testCoordinator(&fakePaymentClient{}, &fakeTxStore{}, &fakeMaterializer{}, store)
	draft := completeDraft()
	sess := seedPaymentSession(store, StepPaymentProcessing, draft)

	out, err := c.Handle(context.Background(), sess, draft, "je veux changer de moyen de paiement")

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, StepPaymentMethod, out[0].Metadata.NextStep)
	assert.Equal(t, PaymentChoices(), out[0].Choices)
}

func TestOwnsCoversBothFlows(t *testing.T) {
	c := testCoordinator(&fakePaymentClient{}, &fakeTxStore{}, &fakeMaterializer{}, newFakeStore())
	for _, step := range []Step{
		StepPaymentInit, StepPaymentMethod, StepPaymentProcessing,
		StepPaymentComplete, StepPaymentError, StepOrderConfirmed,
		StepExpressPayment, StepExpressProcessing, StepExpressComplete,
	} {
		assert.True(t, c.Owns(step), "%s", step)
	}
	assert.False(t, c.Owns(StepCollectName))
	assert.False(t, c.Owns(StepExpressSummary))
}
