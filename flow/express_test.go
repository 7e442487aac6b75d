package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedExpressSession(store *fakeStore, step Step, draft *OrderDraft) string {
	sess := NewSession(testProduct.ID, "store-1")
	sess.CurrentStep = step
	draft.Metadata.Mode = ModeExpressFlow
	draft.Metadata.SetFlag(FlagExpressMode, true)
	return store.seed(sess, draft)
}

func TestExpressEntryFromChooseFlow(t *testing.T) {
	store := newFakeStore()
	o := testOrchestrator(store, &fakeMessages{}, &fakeAnalyzer{err: errBoom}, nil)

	sess := NewSession(testProduct.ID, "store-1")
	sess.CurrentStep = StepChooseFlow
	draft := NewDraft(testProduct)
	draft.Metadata.Mode = ModeStandardFlow
	id := store.seed(sess, draft)

	out := send(t, o, store, id, "Commande express")

	require.Len(t, out, 2, "express intro plus the first question")
	assert.Contains(t, out[0].Content, "express")
	assert.Equal(t, StepExpressQuantity, out[1].Metadata.NextStep)
	assert.Equal(t, ModeExpressFlow, draft.Metadata.Mode)
	assert.True(t, draft.Metadata.Flag(FlagExpressMode))
	assert.Equal(t, StepExpressQuantity, sess.CurrentStep)
}

func TestExpressFunnelToSummary(t *testing.T) {
	store := newFakeStore()
	o := testOrchestrator(store, &fakeMessages{}, &fakeAnalyzer{err: errBoom}, nil)
	id := seedExpressSession(store, StepExpressQuantity, NewDraft(testProduct))

	out := send(t, o, store, id, "2")
	assert.Equal(t, StepExpressContact, out[len(out)-1].Metadata.NextStep)

	send(t, o, store, id, "77 000 00 00")
	send(t, o, store, id, "Awa Ndiaye")
	out = send(t, o, store, id, "Liberté 6, Villa 2")

	require.Equal(t, StepExpressSummary, out[len(out)-1].Metadata.NextStep)
	_, draft, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	// no city step in express: the default delivery zone applies
	assert.Equal(t, int64(3000), draft.DeliveryCost)
	assert.Equal(t, int64(2*14000+3000), draft.TotalAmount)
	assert.Equal(t, "+221770000000", draft.Customer.Phone)
}

func TestExpressSummaryYesArmsPayment(t *testing.T) {
	store := newFakeStore()
	o := testOrchestrator(store, &fakeMessages{}, &fakeAnalyzer{err: errBoom}, nil)
	draft := completeDraft()
	id := seedExpressSession(store, StepExpressSummary, draft)

	out := send(t, o, store, id, "Oui")

	assert.Equal(t, StepExpressPayment, out[len(out)-1].Metadata.NextStep)
	assert.Equal(t, ModeAwaitingPayment, draft.Metadata.Mode)
}

func TestExpressSummaryNoRestartsShortLoop(t *testing.T) {
	store := newFakeStore()
	o := testOrchestrator(store, &fakeMessages{}, &fakeAnalyzer{err: errBoom}, nil)
	draft := completeDraft()
	draft.Metadata.Completed.MarkProcessed(StepExpressQuantity)
	draft.Metadata.Completed.MarkProcessed(StepExpressContact)
	id := seedExpressSession(store, StepExpressSummary, draft)

	out := send(t, o, store, id, "Non")

	assert.Equal(t, StepExpressQuantity, out[len(out)-1].Metadata.NextStep)
	assert.False(t, draft.Metadata.Completed.Processed(StepExpressQuantity), "loop steps are re-runnable")

	out = send(t, o, store, id, "5")
	assert.Equal(t, StepExpressContact, out[len(out)-1].Metadata.NextStep)
	assert.Equal(t, 5, draft.Items[0].Quantity)
}

func TestExpressDuplicateSuppressed(t *testing.T) {
	store := newFakeStore()
	msgs := &fakeMessages{}
	o := testOrchestrator(store, msgs, &fakeAnalyzer{err: errBoom}, nil)
	draft := NewDraft(testProduct)
	draft.Metadata.Completed.MarkProcessed(StepExpressQuantity)
	id := seedExpressSession(store, StepExpressContact, draft)

	out := o.Handle(context.Background(), Inbound{
		SessionID:   id,
		Content:     "2",
		CurrentStep: StepExpressQuantity,
	})

	require.Len(t, out, 1)
	assert.Equal(t, MsgContinueFlow, out[0].Content)
	assert.Equal(t, 1, draft.Items[0].Quantity)
}

func TestExpressUpsellYesAddsNote(t *testing.T) {
	store := newFakeStore()
	o := testOrchestrator(store, &fakeMessages{}, &fakeAnalyzer{err: errBoom}, nil)
	id := seedExpressSession(store, StepExpressUpsell, completeDraft())

	out := send(t, o, store, id, "Oui")

	require.Len(t, out, 2)
	assert.Equal(t, StepExpressSurvey, out[1].Metadata.NextStep)
}

func TestExpressUpsellNoSkipsToSurvey(t *testing.T) {
	store := newFakeStore()
	o := testOrchestrator(store, &fakeMessages{}, &fakeAnalyzer{err: errBoom}, nil)
	id := seedExpressSession(store, StepExpressUpsell, completeDraft())

	out := send(t, o, store, id, "Non merci")

	require.Len(t, out, 1)
	assert.Equal(t, StepExpressSurvey, out[0].Metadata.NextStep, "a refusal goes straight to the survey")
}

func TestExpressFallbackDoesNotRepersistUser(t *testing.T) {
	store := newFakeStore()
	msgs := &fakeMessages{}
	txs := &fakeTxStore{saveErr: errBoom}
	pay := testCoordinator(&fakePaymentClient{init: &PaymentInit{
		PaymentURL: "https://pay.example/wv/9",
		Reference:  "REF-9",
	}}, txs, &fakeMaterializer{}, store)
	o := testOrchestrator(store, msgs, &fakeAnalyzer{err: errBoom}, pay)
	id := seedExpressSession(store, StepExpressPayment, completeDraft())

	out := send(t, o, store, id, "Wave")

	require.Len(t, out, 1)
	assert.Equal(t, "retryable", out[0].Metadata.Error)
	assert.Len(t, msgs.userMessages(), 1, "the fallback path does not record the message again")
}
