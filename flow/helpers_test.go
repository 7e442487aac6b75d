package flow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
)

var testProduct = entity.ProductInfo{
	ID:    "voc-couples",
	Name:  "VIENS ON S'CONNAÎT - Couples",
	Price: 14000,
	Stock: 50,
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory SessionStore.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	drafts   map[string]*OrderDraft
	saves    []Step
	saveErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string]*Session),
		drafts:   make(map[string]*OrderDraft),
	}
}

// seed installs a session/draft pair and returns the session id.
func (f *fakeStore) seed(sess *Session, draft *OrderDraft) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sess.ID] = sess
	f.drafts[sess.ID] = draft
	return sess.ID
}

func (f *fakeStore) Load(_ context.Context, sessionID string) (*Session, *OrderDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, nil, nil
	}
	return sess, f.drafts[sessionID], nil
}

func (f *fakeStore) Create(_ context.Context, productID, storeID string) (*Session, *OrderDraft, error) {
	sess := NewSession(productID, storeID)
	draft := NewDraft(testProduct)
	f.seed(sess, draft)
	return sess, draft, nil
}

func (f *fakeStore) Save(_ context.Context, sessionID string, step Step, draft *OrderDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves = append(f.saves, step)
	f.drafts[sessionID] = draft
	if sess, ok := f.sessions[sessionID]; ok {
		sess.CurrentStep = step
	}
	return nil
}

func (f *fakeStore) Upgrade(ctx context.Context, tempID, productID, storeID string) (*Session, *OrderDraft, error) {
	f.mu.Lock()
	carried := f.drafts[tempID]
	delete(f.sessions, tempID)
	delete(f.drafts, tempID)
	f.mu.Unlock()
	sess := NewSession(productID, storeID)
	draft := carried
	if draft == nil {
		draft = NewDraft(testProduct)
	}
	f.seed(sess, draft)
	return sess, draft, nil
}

// fakeMessages records persisted conversation turns.
type fakeMessages struct {
	mu      sync.Mutex
	saved   []Message
	history []Message
}

func (f *fakeMessages) SaveMessage(_ context.Context, _ string, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, msg)
	return nil
}

func (f *fakeMessages) History(_ context.Context, _ string, _ int) ([]Message, error) {
	return f.history, nil
}

func (f *fakeMessages) userMessages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, m := range f.saved {
		if m.Type == MessageUser {
			out = append(out, m)
		}
	}
	return out
}

// fakeAnalyzer returns a canned analysis or error.
type fakeAnalyzer struct {
	analysis *Analysis
	err      error
	calls    int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string, _ entity.ProductInfo, _ []Message) (*Analysis, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

// fakeCatalog serves the test product for any id.
type fakeCatalog struct{}

func (fakeCatalog) GetProduct(_ context.Context, _ string) (entity.ProductInfo, error) {
	return testProduct, nil
}

// fakePaymentClient is a scriptable PaymentClient.
type fakePaymentClient struct {
	init      *PaymentInit
	initErr   error
	statuses  []string
	initCalls int
}

func (f *fakePaymentClient) Initiate(_ context.Context, _ int64, _ entity.PaymentProvider, _ entity.CustomerInfo) (*PaymentInit, error) {
	f.initCalls++
	if f.initErr != nil {
		return nil, f.initErr
	}
	return f.init, nil
}

func (f *fakePaymentClient) Verify(_ context.Context, _, _ string) (string, error) {
	if len(f.statuses) == 0 {
		return entity.PaymentPending, nil
	}
	status := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return status, nil
}

// fakeTxStore keeps transactions in memory.
type fakeTxStore struct {
	mu      sync.Mutex
	txs     []*entity.PaymentTransaction
	saveErr error
}

func (f *fakeTxStore) SaveTransaction(_ context.Context, tx *entity.PaymentTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.txs = append(f.txs, tx)
	return nil
}

func (f *fakeTxStore) LatestTransaction(_ context.Context, _ string) (*entity.PaymentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.txs) == 0 {
		return nil, nil
	}
	return f.txs[len(f.txs)-1], nil
}

func (f *fakeTxStore) UpdateTransactionStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.txs {
		if tx.ID == id {
			tx.Status = status
		}
	}
	return nil
}

// fakeMaterializer converts at most once, like the real one.
type fakeMaterializer struct {
	orderID string
	created int
	err     error
}

func (f *fakeMaterializer) Materialize(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.created > 0 {
		return "", ErrAlreadyConverted
	}
	f.created++
	return f.orderID, nil
}

// completeDraft builds a draft ready for payment.
func completeDraft() *OrderDraft {
	d := NewDraft(testProduct)
	d.SetQuantity(2)
	d.Customer = entity.CustomerInfo{
		FirstName: "Awa",
		LastName:  "Ndiaye",
		Phone:     "+221771234567",
		City:      "Dakar",
		Address:   "Sacré Coeur 3, Villa 12",
	}
	d.SetDeliveryCost(0)
	return d
}

var errBoom = errors.New("boom")

func testOrchestrator(store *fakeStore, msgs *fakeMessages, analyzer *fakeAnalyzer, pay *PaymentCoordinator) *Orchestrator {
	return NewOrchestrator(Options{
		Store:       store,
		Messages:    msgs,
		Analyzer:    analyzer,
		Payment:     pay,
		Catalog:     fakeCatalog{},
		CountryCode: "SN",
		Assistant:   AssistantInfo{Name: "Rose", Title: "Assistante d'achat"},
		ProductID:   testProduct.ID,
		StoreID:     "store-1",
	}, testLogger())
}

func testCoordinator(client *fakePaymentClient, txs *fakeTxStore, mat *fakeMaterializer, store *fakeStore) *PaymentCoordinator {
	return NewPaymentCoordinator(client, txs, mat, store, PaymentConfig{
		Currency:       "XOF",
		VerifyTimeout:  50 * time.Millisecond,
		VerifyInterval: 10 * time.Millisecond,
		Assistant:      AssistantInfo{Name: "Rose"},
	}, testLogger())
}
