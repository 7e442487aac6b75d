package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
)

// CustomerLookup resolves a returning customer by phone. Optional; a nil
// lookup skips the check_existing shortcut.
type CustomerLookup interface {
	GetCustomer(ctx context.Context, phone string) (*entity.Customer, error)
}

// Orchestrator is the single entry point for inbound messages. It owns the
// routing decision between the structured flow, the express flow, the
// payment coordinator and the free-text responder.
type Orchestrator struct {
	store     SessionStore
	messages  MessageStore
	analyzer  MessageAnalyzer
	payment   *PaymentCoordinator
	express   *ExpressOrchestrator
	catalog   Catalog
	customers CustomerLookup
	validator *Validator

	assistant       AssistantInfo
	productID       string
	storeID         string
	intentThreshold float64
	log             *slog.Logger
}

// Options groups the orchestrator collaborators.
type Options struct {
	Store           SessionStore
	Messages        MessageStore
	Analyzer        MessageAnalyzer
	Payment         *PaymentCoordinator
	Catalog         Catalog
	Customers       CustomerLookup
	CountryCode     string
	Assistant       AssistantInfo
	ProductID       string
	StoreID         string
	IntentThreshold float64
}

func NewOrchestrator(opts Options, log *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		store:           opts.Store,
		messages:        opts.Messages,
		analyzer:        opts.Analyzer,
		payment:         opts.Payment,
		catalog:         opts.Catalog,
		customers:       opts.Customers,
		validator:       NewValidator(opts.CountryCode),
		assistant:       opts.Assistant,
		productID:       opts.ProductID,
		storeID:         opts.StoreID,
		intentThreshold: opts.IntentThreshold,
		log:             log.With(sl.Module("flow.orchestrator")),
	}
	if o.intentThreshold == 0 {
		o.intentThreshold = 0.7
	}
	o.express = newExpressOrchestrator(o)
	return o
}

// Handle is the top error boundary: whatever happens inside, the caller
// receives at least one well-formed message and the session state is left
// as it was before a failed attempt.
func (o *Orchestrator) Handle(ctx context.Context, in Inbound) []Message {
	msgs, err := o.dispatch(ctx, in)
	if err != nil {
		o.log.With(
			slog.String("session_id", in.SessionID),
			slog.String("step", string(in.CurrentStep)),
			sl.Err(err),
		).Error("message handling failed")
		return []Message{o.newAssistant(MsgGenericError, []string{"Réessayer"}, MessageMeta{
			SessionID: in.SessionID,
			NextStep:  in.CurrentStep,
			Error:     "retryable",
		})}
	}
	return msgs
}

func (o *Orchestrator) dispatch(ctx context.Context, in Inbound) (msgs []Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
		}
	}()

	// 1. Recursion guard: strip the flag, persist the raw message, answer
	// with one generic continuation and nothing else.
	if in.OrderDraft != nil && in.OrderDraft.Metadata.Flag(FlagPreventRecursion) {
		return o.breakRecursion(ctx, in), nil
	}

	// 2. Mode detection: express sessions go to the sibling machine; an
	// internal failure there falls back to the standard path.
	var persisted bool
	if o.isExpress(in) {
		msgs, expressPersisted, exprErr := o.express.Handle(ctx, in)
		if exprErr == nil {
			return msgs, nil
		}
		persisted = expressPersisted
		o.log.With(
			slog.String("session_id", in.SessionID),
			sl.Err(exprErr),
		).Error("express flow failed, falling back to standard path")
	}

	// 3. Session resolution, including temp-id upgrade.
	sess, draft, err := o.resolve(ctx, &in)
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}

	step := in.CurrentStep
	if !step.Known() {
		step = sess.CurrentStep
	}

	// 4. Duplicate-message suppression: a step whose side effects already
	// committed is never reprocessed.
	if draft.Metadata.Completed.Processed(step) && !step.IsTerminal() {
		out := o.newAssistant(MsgContinueFlow, nil, MessageMeta{SessionID: sess.ID, NextStep: sess.CurrentStep})
		o.persistOutbound(ctx, sess.ID, &out)
		return []Message{out}, nil
	}

	// 5. Persist the inbound user message, exactly once. The express path
	// may already have done so before failing. A write failure must not
	// block the conversation.
	if !persisted {
		o.persistUser(ctx, sess.ID, in)
	}

	// 6/7. Route to the structured flow or the free-text responder.
	if o.shouldPreventFreeText(draft, step, in.Content) {
		return o.handleStructured(ctx, sess, draft, step, in)
	}
	return o.handleFreeText(ctx, sess, in)
}

func (o *Orchestrator) isExpress(in Inbound) bool {
	if in.CurrentStep.IsExpress() {
		return true
	}
	if in.OrderDraft == nil {
		return false
	}
	return in.OrderDraft.Metadata.Flag(FlagExpressMode) || in.OrderDraft.Metadata.Mode == ModeExpressFlow
}

func (o *Orchestrator) breakRecursion(ctx context.Context, in Inbound) []Message {
	in.OrderDraft.Metadata = MergeMetadata(NewMetadata(), in.OrderDraft.Metadata)
	in.OrderDraft.Metadata.ClearFlag(FlagPreventRecursion)
	o.persistUser(ctx, in.SessionID, in)
	if err := o.store.Save(ctx, in.SessionID, in.CurrentStep, in.OrderDraft); err != nil {
		o.log.With(slog.String("session_id", in.SessionID), sl.Err(err)).Error("saving draft after recursion break")
	}
	out := o.newAssistant(MsgContinueFlow, nil, MessageMeta{SessionID: in.SessionID, NextStep: in.CurrentStep})
	o.persistOutbound(ctx, in.SessionID, &out)
	return []Message{out}
}

// resolve loads or creates the session and picks the working draft. The
// final session id is written back to the inbound message so every response
// carries it.
func (o *Orchestrator) resolve(ctx context.Context, in *Inbound) (*Session, *OrderDraft, error) {
	var (
		sess  *Session
		draft *OrderDraft
		err   error
	)
	switch {
	case IsTempID(in.SessionID):
		sess, draft, err = o.store.Upgrade(ctx, in.SessionID, o.productID, o.storeID)
	case in.SessionID == "":
		sess, draft, err = o.store.Create(ctx, o.productID, o.storeID)
	default:
		sess, draft, err = o.store.Load(ctx, in.SessionID)
		if err == nil && sess == nil {
			sess, draft, err = o.store.Create(ctx, o.productID, o.storeID)
		}
	}
	if err != nil {
		return nil, nil, err
	}
	in.SessionID = sess.ID
	if in.OrderDraft != nil {
		// a partial inbound draft may carry no metadata maps at all
		in.OrderDraft.Metadata = MergeMetadata(NewMetadata(), in.OrderDraft.Metadata)
		draft = in.OrderDraft
	}
	if draft == nil {
		return nil, nil, fmt.Errorf("no draft for session %s", sess.ID)
	}
	return sess, draft, nil
}

// shouldPreventFreeText decides once per message whether the free-text
// responder is suppressed: purchase mode, structured step, or one of the
// predefined menu choices.
func (o *Orchestrator) shouldPreventFreeText(draft *OrderDraft, step Step, content string) bool {
	if draft.Metadata.Mode.InPurchaseFlow() {
		return true
	}
	if step.IsStructured() {
		return true
	}
	return ClassifyMenu(content) != ChoiceUnmatched
}

// handleStructured routes the message to the specific handler of the
// current step. If no handler fires, the safety net answers instead of
// falling through to free text.
func (o *Orchestrator) handleStructured(ctx context.Context, sess *Session, draft *OrderDraft, step Step, in Inbound) ([]Message, error) {
	switch {
	case step == StepInitial || (step == StepGenericResponse && ClassifyMenu(in.Content) == "buy_now"):
		return o.startPurchase(ctx, sess, draft)
	case step == StepChooseFlow:
		return o.chooseFlow(ctx, sess, draft, in)
	case o.payment.Owns(step):
		msgs, err := o.payment.Handle(ctx, sess, draft, in.Content)
		if err != nil {
			return nil, err
		}
		o.persistAll(ctx, sess.ID, msgs)
		return msgs, nil
	case step == StepTrackOrder, step == StepDeliveryEta, step == StepSessionEnd:
		return o.terminalInfo(ctx, sess, draft, step)
	case step.IsStructured():
		return o.validateAndAdvance(ctx, sess, draft, step, in)
	}
	switch ClassifyMenu(in.Content) {
	case "buy_now":
		return o.startPurchase(ctx, sess, draft)
	case "track_order":
		return o.terminalInfo(ctx, sess, draft, StepTrackOrder)
	case "delivery_eta":
		return o.terminalInfo(ctx, sess, draft, StepDeliveryEta)
	}
	// Deliberate safety net: once in a purchase flow the user is never
	// answered by the free-text responder.
	out := o.newAssistant(MsgContinuePurchase, nil, MessageMeta{SessionID: sess.ID, NextStep: sess.CurrentStep})
	o.persistOutbound(ctx, sess.ID, &out)
	return []Message{out}, nil
}

func (o *Orchestrator) startPurchase(ctx context.Context, sess *Session, draft *OrderDraft) ([]Message, error) {
	draft.Metadata.Mode = ModeStandardFlow
	draft.Metadata.Completed.MarkProcessed(StepInitial)
	return o.advanceTo(ctx, sess, draft, StepChooseFlow)
}

func (o *Orchestrator) chooseFlow(ctx context.Context, sess *Session, draft *OrderDraft, in Inbound) ([]Message, error) {
	choice := Classify(in.Content, map[Choice][]string{
		"express": {"express", "rapide", "vite"},
		"guided":  {"guidée", "guidee", "guide", "normale", "classique"},
	})
	draft.Metadata.Completed.MarkProcessed(StepChooseFlow)
	if choice == "express" {
		draft.Metadata.Mode = ModeExpressFlow
		draft.Metadata.SetFlag(FlagExpressMode, true)
		return o.express.start(ctx, sess, draft)
	}
	draft.Metadata.Mode = ModeStandardFlow
	return o.advanceTo(ctx, sess, draft, StepCollectQuantity)
}

func (o *Orchestrator) terminalInfo(ctx context.Context, sess *Session, draft *OrderDraft, step Step) ([]Message, error) {
	p := PromptFor(step, draft)
	out := o.newAssistant(p.Content, p.Choices, MessageMeta{SessionID: sess.ID, NextStep: NextStep(step)})
	o.persistOutbound(ctx, sess.ID, &out)
	return []Message{out}, nil
}

// validateAndAdvance is the standard structured path: validate, mutate the
// field group, advance through any auto steps, persist once.
func (o *Orchestrator) validateAndAdvance(ctx context.Context, sess *Session, draft *OrderDraft, step Step, in Inbound) ([]Message, error) {
	res := o.validator.Validate(step, in.Content, draft)
	if !res.IsValid {
		p := PromptFor(step, draft)
		out := o.newAssistant(res.Message, p.Choices, MessageMeta{SessionID: sess.ID, NextStep: step})
		o.persistOutbound(ctx, sess.ID, &out)
		return []Message{out}, nil
	}

	draft.Metadata = MergeMetadata(draft.Metadata, res.Patch)
	draft.Metadata.Completed.MarkProcessed(step)
	if stepIndex(res.NextStep) < stepIndex(step) {
		// modify loop: every mark from the target onward is stale,
		// including the one just set, so the loop can run again
		clearDownstream(draft, res.NextStep)
	}
	return o.advanceTo(ctx, sess, draft, res.NextStep)
}

// autoSteps run without waiting for user input.
var autoSteps = map[Step]struct{}{
	StepCheckExisting:    {},
	StepSelectDelivery:   {},
	StepDeliveryCostNote: {},
}

// advanceTo walks the chain from target through any auto steps, collecting
// one prompt message per visited step, then persists the snapshot once.
func (o *Orchestrator) advanceTo(ctx context.Context, sess *Session, draft *OrderDraft, target Step) ([]Message, error) {
	var msgs []Message
	cur := target
	const maxTransitions = 10
	for i := 0; i < maxTransitions; i++ {
		if _, auto := autoSteps[cur]; !auto {
			break
		}
		if m := o.runAutoStep(ctx, sess, draft, cur); m != nil {
			msgs = append(msgs, *m)
		}
		draft.Metadata.Completed.MarkProcessed(cur)
		cur = NextStep(cur)
	}

	if cur == StepPaymentMethod || cur == StepExpressPayment {
		draft.Metadata.Mode = ModeAwaitingPayment
	}

	sess.CurrentStep = cur
	sess.UpdatedAt = time.Now()
	if err := o.store.Save(ctx, sess.ID, cur, draft); err != nil {
		// transient persistence failure: log, still answer the user
		o.log.With(slog.String("session_id", sess.ID), slog.String("step", string(cur)), sl.Err(err)).Error("saving snapshot")
	}

	p := PromptFor(cur, draft)
	out := o.newAssistant(p.Content, p.Choices, MessageMeta{
		SessionID: sess.ID,
		NextStep:  cur,
		OrderData: draft,
	})
	msgs = append(msgs, out)
	o.persistAll(ctx, sess.ID, msgs)
	return msgs, nil
}

func (o *Orchestrator) runAutoStep(ctx context.Context, sess *Session, draft *OrderDraft, step Step) *Message {
	switch step {
	case StepCheckExisting:
		if o.customers == nil || draft.Customer.Phone == "" {
			return nil
		}
		customer, err := o.customers.GetCustomer(ctx, draft.Customer.Phone)
		if err != nil || customer == nil {
			return nil
		}
		out := o.newAssistant(
			fmt.Sprintf("Ravi de vous revoir, %s ! 🎉", customer.FirstName),
			nil,
			MessageMeta{SessionID: sess.ID, NextStep: NextStep(step)},
		)
		return &out
	case StepSelectDelivery:
		draft.SetDeliveryCost(DeliveryCostFor(draft.Customer.City))
		return nil
	case StepDeliveryCostNote:
		p := PromptFor(step, draft)
		out := o.newAssistant(p.Content, nil, MessageMeta{SessionID: sess.ID, NextStep: NextStep(step)})
		return &out
	}
	return nil
}

// handleFreeText delegates to the external message-analysis collaborator,
// optionally enriching the reply with product recommendations when buying
// intent is high.
func (o *Orchestrator) handleFreeText(ctx context.Context, sess *Session, in Inbound) ([]Message, error) {
	if o.analyzer == nil {
		return o.analysisUnavailable(ctx, sess), nil
	}
	product, err := o.catalog.GetProduct(ctx, sess.ProductID)
	if err != nil {
		o.log.With(slog.String("product_id", sess.ProductID), sl.Err(err)).Error("catalog lookup")
	}
	history, err := o.messages.History(ctx, sess.ID, 10)
	if err != nil {
		o.log.With(slog.String("session_id", sess.ID), sl.Err(err)).Error("loading history")
	}

	analysis, err := o.analyzer.Analyze(ctx, in.Content, product, history)
	if err != nil {
		o.log.With(
			slog.String("session_id", sess.ID),
			slog.String("step", string(sess.CurrentStep)),
			sl.Err(err),
		).Error("message analysis")
		return o.analysisUnavailable(ctx, sess), nil
	}

	next := analysis.NextStep
	if !next.Known() {
		next = StepGenericResponse
	}
	out := o.newAssistant(analysis.Content, analysis.Choices, MessageMeta{SessionID: sess.ID, NextStep: next})
	msgs := []Message{out}

	if analysis.BuyingIntent > o.intentThreshold && len(analysis.Recommendations) > 0 {
		recs := analysis.Recommendations
		if len(recs) > 2 {
			recs = recs[:2]
		}
		content := "Ces jeux pourraient aussi vous plaire :\n"
		choices := make([]string, 0, len(recs))
		for _, r := range recs {
			content += fmt.Sprintf("• %s — %d FCFA\n", r.Name, r.Price)
			choices = append(choices, r.Name)
		}
		msgs = append(msgs, o.newAssistant(content, choices, MessageMeta{SessionID: sess.ID, NextStep: next}))
	}

	o.persistAll(ctx, sess.ID, msgs)
	return msgs, nil
}

// analysisUnavailable is the degraded free-text answer when the analysis
// collaborator is missing or failing.
func (o *Orchestrator) analysisUnavailable(ctx context.Context, sess *Session) []Message {
	out := o.newAssistant(MsgGenericError, []string{"Réessayer", "Parler à un conseiller"}, MessageMeta{
		SessionID: sess.ID,
		NextStep:  sess.CurrentStep,
		Error:     "analysis_unavailable",
	})
	o.persistOutbound(ctx, sess.ID, &out)
	return []Message{out}
}

func (o *Orchestrator) newAssistant(content string, choices []string, meta MessageMeta) Message {
	return Message{
		Type:      MessageAssistant,
		Content:   content,
		Choices:   choices,
		Assistant: o.assistant,
		Metadata:  meta,
		Timestamp: time.Now(),
	}
}

func (o *Orchestrator) persistUser(ctx context.Context, sessionID string, in Inbound) {
	msg := Message{
		Type:      MessageUser,
		Content:   in.Content,
		Metadata:  MessageMeta{SessionID: sessionID, NextStep: in.CurrentStep},
		Timestamp: time.Now(),
	}
	if err := o.messages.SaveMessage(ctx, sessionID, msg); err != nil {
		o.log.With(slog.String("session_id", sessionID), sl.Err(err)).Error("saving inbound message")
	}
}

func (o *Orchestrator) persistOutbound(ctx context.Context, sessionID string, msg *Message) {
	if err := o.messages.SaveMessage(ctx, sessionID, *msg); err != nil {
		o.log.With(slog.String("session_id", sessionID), sl.Err(err)).Error("saving outbound message")
	}
}

func (o *Orchestrator) persistAll(ctx context.Context, sessionID string, msgs []Message) {
	for i := range msgs {
		o.persistOutbound(ctx, sessionID, &msgs[i])
	}
}

// stepIndex gives the position of a step in its flow's default chain, used
// to detect backward (modify-loop) transitions.
func stepIndex(s Step) int {
	for i, st := range standardSteps {
		if st == s {
			return i
		}
	}
	for i, st := range expressSteps {
		if st == s {
			return len(standardSteps) + i
		}
	}
	return -1
}

// clearDownstream drops processed/saved marks from the target step onward
// so a modify loop can re-run those steps.
func clearDownstream(draft *OrderDraft, from Step) {
	idx := stepIndex(from)
	if idx < 0 {
		return
	}
	for step := range draft.Metadata.Completed {
		if stepIndex(step) >= idx {
			delete(draft.Metadata.Completed, step)
		}
	}
}
