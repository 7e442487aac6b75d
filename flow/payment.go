package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
)

// PaymentState is the nested payment state machine.
type PaymentState string

const (
	PaymentStateInit       PaymentState = "init"
	PaymentStateMethod     PaymentState = "method"
	PaymentStateProcessing PaymentState = "processing"
	PaymentStateComplete   PaymentState = "complete"
	PaymentStateError      PaymentState = "error"
)

// stepState maps conversation steps onto payment states.
var stepState = map[Step]PaymentState{
	StepPaymentInit:       PaymentStateInit,
	StepPaymentMethod:     PaymentStateMethod,
	StepExpressPayment:    PaymentStateMethod,
	StepPaymentProcessing: PaymentStateProcessing,
	StepExpressProcessing: PaymentStateProcessing,
	StepPaymentComplete:   PaymentStateComplete,
	StepOrderConfirmed:    PaymentStateComplete,
	StepExpressComplete:   PaymentStateComplete,
	StepPaymentError:      PaymentStateError,
}

// PaymentCoordinator drives a draft from method selection through external
// payment to order materialization. Materialization happens at most once
// per session, guarded by the cart's converted_to_order flag.
type PaymentCoordinator struct {
	client       PaymentClient
	txs          TransactionStore
	materializer Materializer
	store        SessionStore

	currency       string
	verifyTimeout  time.Duration
	verifyInterval time.Duration
	assistant      AssistantInfo
	log            *slog.Logger
}

type PaymentConfig struct {
	Currency       string
	VerifyTimeout  time.Duration
	VerifyInterval time.Duration
	Assistant      AssistantInfo
}

func NewPaymentCoordinator(client PaymentClient, txs TransactionStore, materializer Materializer, store SessionStore, cfg PaymentConfig, log *slog.Logger) *PaymentCoordinator {
	if cfg.VerifyTimeout == 0 {
		cfg.VerifyTimeout = 5 * time.Minute
	}
	if cfg.VerifyInterval == 0 {
		cfg.VerifyInterval = 5 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "XOF"
	}
	return &PaymentCoordinator{
		client:         client,
		txs:            txs,
		materializer:   materializer,
		store:          store,
		currency:       cfg.Currency,
		verifyTimeout:  cfg.VerifyTimeout,
		verifyInterval: cfg.VerifyInterval,
		assistant:      cfg.Assistant,
		log:            log.With(sl.Module("flow.payment")),
	}
}

// Owns reports whether a step belongs to the payment sub-machine.
func (c *PaymentCoordinator) Owns(step Step) bool {
	_, ok := stepState[step]
	return ok
}

// Handle advances the payment machine by one user message.
func (c *PaymentCoordinator) Handle(ctx context.Context, sess *Session, draft *OrderDraft, input string) ([]Message, error) {
	state, ok := stepState[sess.CurrentStep]
	if !ok {
		state = PaymentStateInit
	}
	switch state {
	case PaymentStateInit:
		return c.handleInit(ctx, sess, draft)
	case PaymentStateMethod:
		return c.handleMethod(ctx, sess, draft, input)
	case PaymentStateProcessing:
		return c.handleProcessing(ctx, sess, draft, input)
	case PaymentStateComplete:
		return c.handleComplete(ctx, sess, draft, input)
	case PaymentStateError:
		return c.handleMethod(ctx, sess, draft, input)
	}
	return nil, fmt.Errorf("unknown payment state for step %s", sess.CurrentStep)
}

// paymentReady reports whether the draft has everything payment requires.
// The express flow never collects a city; its delivery is priced on the
// default zone instead.
func paymentReady(sess *Session, draft *OrderDraft) bool {
	if sess.CurrentStep.IsExpress() {
		return len(draft.Items) > 0 && draft.TotalAmount > 0 &&
			draft.Customer.FirstName != "" &&
			draft.Customer.Phone != "" &&
			draft.Customer.Address != ""
	}
	return draft.Complete()
}

// rejectIncomplete moves to the error state with a corrective message
// instead of attempting payment.
func (c *PaymentCoordinator) rejectIncomplete(ctx context.Context, sess *Session, draft *OrderDraft) []Message {
	missing := missingField(draft)
	c.transition(ctx, sess, draft, StepPaymentError)
	return []Message{c.msg(
		fmt.Sprintf("Il me manque %s pour finaliser la commande. Reprenons 🙂", missing),
		nil,
		MessageMeta{SessionID: sess.ID, NextStep: StepPaymentError, Error: "incomplete_draft"},
	)}
}

// handleInit validates the draft before any payment attempt. An incomplete
// draft moves to the error state, never to the provider.
func (c *PaymentCoordinator) handleInit(ctx context.Context, sess *Session, draft *OrderDraft) ([]Message, error) {
	if !paymentReady(sess, draft) {
		return c.rejectIncomplete(ctx, sess, draft), nil
	}
	c.transition(ctx, sess, draft, StepPaymentMethod)
	p := PromptFor(StepPaymentMethod, draft)
	return []Message{c.msg(p.Content, p.Choices, MessageMeta{SessionID: sess.ID, NextStep: StepPaymentMethod})}, nil
}

// handleMethod normalizes the method choice. Cash on delivery
// short-circuits straight to materialization; online providers get an
// initiation call.
func (c *PaymentCoordinator) handleMethod(ctx context.Context, sess *Session, draft *OrderDraft, input string) ([]Message, error) {
	// sessions land here without passing through the init step, so the
	// completeness gate runs again before anything reaches the provider
	if !paymentReady(sess, draft) {
		return c.rejectIncomplete(ctx, sess, draft), nil
	}

	provider := draft.PaymentMethod
	if p := ClassifyProvider(input); p != "" {
		provider = p
	}
	if provider == "" {
		return []Message{c.msg(
			"Quel moyen de paiement préférez-vous ?",
			PaymentChoices(),
			MessageMeta{SessionID: sess.ID, NextStep: sess.CurrentStep},
		)}, nil
	}
	draft.PaymentMethod = provider

	if !provider.Online() {
		return c.finalize(ctx, sess, draft, "")
	}

	if c.client == nil {
		c.transition(ctx, sess, draft, StepPaymentError)
		return []Message{c.msg(
			"Le paiement en ligne est indisponible pour le moment. Vous pouvez payer à la livraison 🙂",
			[]string{"Paiement à la livraison", "Parler à un conseiller"},
			MessageMeta{SessionID: sess.ID, NextStep: StepPaymentError, Error: "payment_unavailable"},
		)}, nil
	}

	init, err := c.client.Initiate(ctx, draft.TotalAmount, provider, draft.Customer)
	if err != nil {
		c.log.With(
			slog.String("session_id", sess.ID),
			slog.String("provider", string(provider)),
			sl.Phone(draft.Customer.Phone),
			sl.Err(err),
		).Error("payment initiation")
		c.transition(ctx, sess, draft, StepPaymentError)
		return []Message{c.msg(
			"Le paiement n'a pas pu être initié. Que souhaitez-vous faire ?",
			[]string{"Réessayer", "Changer de moyen de paiement", "Parler à un conseiller"},
			MessageMeta{SessionID: sess.ID, NextStep: StepPaymentError, Error: "initiation_failed"},
		)}, nil
	}

	tx := &entity.PaymentTransaction{
		ID:        uuid.NewString(),
		OrderID:   sess.ID,
		Provider:  provider,
		Amount:    draft.TotalAmount,
		Currency:  c.currency,
		Status:    entity.PaymentPending,
		Reference: init.Reference,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	tx.Metadata.PaymentURL = init.PaymentURL
	if err := c.txs.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("saving transaction: %w", err)
	}

	processing := StepPaymentProcessing
	if sess.CurrentStep.IsExpress() {
		processing = StepExpressProcessing
	}
	c.transition(ctx, sess, draft, processing)

	content := fmt.Sprintf("C'est presque fini ! Payez %d %s via %s puis revenez me dire \"J'ai payé\" ✅",
		draft.TotalAmount, c.currency, providerLabel(provider))
	if init.PaymentURL != "" {
		content += "\n" + init.PaymentURL
	}
	return []Message{c.msg(content, []string{"J'ai payé", "J'ai un problème"}, MessageMeta{
		SessionID:  sess.ID,
		NextStep:   processing,
		PaymentURL: init.PaymentURL,
	})}, nil
}

// processing-step user choices.
var processingVocabulary = map[Choice][]string{
	"paid":    {"j'ai payé", "j ai payé", "jai payé", "payé", "paye", "paid", "c'est fait"},
	"problem": {"problème", "probleme", "souci", "erreur", "marche pas"},
	"switch":  {"changer", "autre moyen", "autre méthode"},
}

// handleProcessing waits for a user-declared payment signal, verifies it
// with the provider and materializes on completed status.
func (c *PaymentCoordinator) handleProcessing(ctx context.Context, sess *Session, draft *OrderDraft, input string) ([]Message, error) {
	switch Classify(input, processingVocabulary) {
	case "switch":
		method := StepPaymentMethod
		if sess.CurrentStep.IsExpress() {
			method = StepExpressPayment
		}
		c.transition(ctx, sess, draft, method)
		return []Message{c.msg("Pas de souci. Quel moyen de paiement préférez-vous ?", PaymentChoices(),
			MessageMeta{SessionID: sess.ID, NextStep: method})}, nil
	case "problem":
		return []Message{c.msg(
			"Je suis là pour vous aider. Que souhaitez-vous faire ?",
			[]string{"Réessayer", "Changer de moyen de paiement", "Parler à un conseiller"},
			MessageMeta{SessionID: sess.ID, NextStep: sess.CurrentStep},
		)}, nil
	case "paid":
		return c.verifyAndFinalize(ctx, sess, draft)
	}
	return []Message{c.msg(
		"Dites-moi \"J'ai payé\" une fois le paiement effectué, ou \"J'ai un problème\" si besoin.",
		[]string{"J'ai payé", "J'ai un problème"},
		MessageMeta{SessionID: sess.ID, NextStep: sess.CurrentStep},
	)}, nil
}

func (c *PaymentCoordinator) verifyAndFinalize(ctx context.Context, sess *Session, draft *OrderDraft) ([]Message, error) {
	tx, err := c.txs.LatestTransaction(ctx, sess.ID)
	if err != nil || tx == nil {
		return nil, fmt.Errorf("no transaction for session %s: %w", sess.ID, err)
	}

	status, err := c.verifyWithBudget(ctx, sess.ID, tx.ID)
	if err != nil {
		c.log.With(slog.String("session_id", sess.ID), slog.String("tx_id", tx.ID), sl.Err(err)).Error("payment verification")
	}

	switch status {
	case entity.PaymentCompleted:
		if err := c.txs.UpdateTransactionStatus(ctx, tx.ID, entity.PaymentCompleted); err != nil {
			c.log.With(slog.String("tx_id", tx.ID), sl.Err(err)).Error("updating transaction status")
		}
		return c.finalize(ctx, sess, draft, tx.ID)
	case entity.PaymentPending:
		return []Message{c.msg(
			"Le paiement est encore en attente côté opérateur. Revenez me dire \"J'ai payé\" dans un instant 🙂",
			[]string{"J'ai payé", "J'ai un problème"},
			MessageMeta{SessionID: sess.ID, NextStep: sess.CurrentStep},
		)}, nil
	}
	return []Message{c.msg(
		"Je n'ai pas pu confirmer le paiement. Que souhaitez-vous faire ?",
		[]string{"Réessayer", "Changer de moyen de paiement", "Parler à un conseiller"},
		MessageMeta{SessionID: sess.ID, NextStep: sess.CurrentStep, Error: "verification_failed"},
	)}, nil
}

// verifyWithBudget polls the provider until completion, failure or the
// overall timeout budget is spent. Exceeding the budget surfaces as a
// payment-problem choice set, never an indefinite hang.
func (c *PaymentCoordinator) verifyWithBudget(ctx context.Context, sessionID, txID string) (string, error) {
	deadline := time.Now().Add(c.verifyTimeout)
	for {
		status, err := c.client.Verify(ctx, sessionID, txID)
		if err != nil {
			return "", err
		}
		if status != entity.PaymentPending {
			return status, nil
		}
		if time.Now().Add(c.verifyInterval).After(deadline) {
			return entity.PaymentPending, nil
		}
		select {
		case <-ctx.Done():
			return entity.PaymentPending, ctx.Err()
		case <-time.After(c.verifyInterval):
		}
	}
}

// ErrAlreadyConverted is returned by materializers when the cart has
// already produced an order.
var ErrAlreadyConverted = errors.New("cart already converted to order")

// finalize materializes the order and renders the confirmation. For online
// payments txID references the completed transaction; cash on delivery
// passes an empty id.
func (c *PaymentCoordinator) finalize(ctx context.Context, sess *Session, draft *OrderDraft, txID string) ([]Message, error) {
	orderID, err := c.materializer.Materialize(ctx, sess.ID)
	if err != nil {
		if errors.Is(err, ErrAlreadyConverted) {
			// duplicate confirmation signal: the first one won
			complete := StepOrderConfirmed
			if sess.CurrentStep.IsExpress() {
				complete = StepExpressComplete
			}
			p := PromptFor(complete, draft)
			return []Message{c.msg(p.Content, p.Choices, MessageMeta{SessionID: sess.ID, NextStep: complete})}, nil
		}
		return nil, fmt.Errorf("materializing order: %w", err)
	}

	complete := StepOrderConfirmed
	if sess.CurrentStep.IsExpress() {
		complete = StepExpressComplete
	}
	draft.Metadata.Mode = ModeFreeConversation
	c.transition(ctx, sess, draft, complete)

	content := fmt.Sprintf("Votre commande %s est confirmée 🎉 Merci pour votre confiance !", orderID)
	if txID == "" {
		content += "\nVous paierez à la livraison."
	}
	return []Message{c.msg(content,
		[]string{"Suivre ma commande", "Délai de livraison", "Créer un compte"},
		MessageMeta{SessionID: sess.ID, NextStep: complete, OrderID: orderID},
	)}, nil
}

// handleComplete routes the post-confirmation navigation: tracking and
// delivery questions, otherwise on to the survey (upsell for express).
func (c *PaymentCoordinator) handleComplete(ctx context.Context, sess *Session, draft *OrderDraft, input string) ([]Message, error) {
	step := StepPostPurchaseSurvey
	if sess.CurrentStep.IsExpress() {
		step = StepExpressUpsell
	}
	switch ClassifyMenu(input) {
	case "track_order":
		step = StepTrackOrder
	case "delivery_eta":
		step = StepDeliveryEta
	}
	c.transition(ctx, sess, draft, step)
	p := PromptFor(step, draft)
	return []Message{c.msg(p.Content, p.Choices, MessageMeta{SessionID: sess.ID, NextStep: step})}, nil
}

func (c *PaymentCoordinator) transition(ctx context.Context, sess *Session, draft *OrderDraft, to Step) {
	sess.CurrentStep = to
	sess.UpdatedAt = time.Now()
	if err := c.store.Save(ctx, sess.ID, to, draft); err != nil {
		c.log.With(slog.String("session_id", sess.ID), slog.String("step", string(to)), sl.Err(err)).Error("saving payment transition")
	}
}

func (c *PaymentCoordinator) msg(content string, choices []string, meta MessageMeta) Message {
	return Message{
		Type:      MessageAssistant,
		Content:   content,
		Choices:   choices,
		Assistant: c.assistant,
		Metadata:  meta,
		Timestamp: time.Now(),
	}
}

func missingField(d *OrderDraft) string {
	switch {
	case len(d.Items) == 0:
		return "le produit"
	case d.Customer.FirstName == "":
		return "votre nom"
	case d.Customer.Phone == "":
		return "votre numéro de téléphone"
	case d.Customer.City == "":
		return "votre ville"
	case d.Customer.Address == "":
		return "votre adresse"
	default:
		return "le montant de la commande"
	}
}

func providerLabel(p entity.PaymentProvider) string {
	switch p {
	case entity.ProviderWave:
		return "Wave"
	case entity.ProviderOrangeMoney:
		return "Orange Money"
	case entity.ProviderCard:
		return "carte bancaire"
	case entity.ProviderCashOnDelivery:
		return "paiement à la livraison"
	}
	return string(p)
}
