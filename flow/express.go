package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
)

// ExpressOrchestrator is the short-flow sibling state machine. It shares
// the step validator and payment coordinator with the standard flow but
// never re-enters it; a failure here makes the caller fall back to the
// standard path.
type ExpressOrchestrator struct {
	o *Orchestrator
}

func newExpressOrchestrator(o *Orchestrator) *ExpressOrchestrator {
	return &ExpressOrchestrator{o: o}
}

// start enters the express flow from the flow-choice step.
func (e *ExpressOrchestrator) start(ctx context.Context, sess *Session, draft *OrderDraft) ([]Message, error) {
	draft.Metadata.Completed.MarkProcessed(StepExpressStart)
	intro := e.o.newAssistant(PromptFor(StepExpressStart, draft).Content, nil, MessageMeta{
		SessionID: sess.ID,
		NextStep:  StepExpressQuantity,
	})
	msgs, err := e.advance(ctx, sess, draft, StepExpressQuantity)
	if err != nil {
		return nil, err
	}
	out := append([]Message{intro}, msgs...)
	e.o.persistOutbound(ctx, sess.ID, &intro)
	return out, nil
}

// Handle processes one inbound message for an express session. The second
// return reports whether the inbound user message was persisted, so a
// fallback to the standard path never records it twice.
func (e *ExpressOrchestrator) Handle(ctx context.Context, in Inbound) ([]Message, bool, error) {
	sess, draft, err := e.o.resolve(ctx, &in)
	if err != nil {
		return nil, false, fmt.Errorf("resolving express session: %w", err)
	}

	step := in.CurrentStep
	if !step.IsExpress() {
		step = sess.CurrentStep
	}
	if !step.IsExpress() {
		// recovery lost express step history: let the standard path take over
		return nil, false, fmt.Errorf("session %s has no express step", sess.ID)
	}

	if draft.Metadata.Completed.Processed(step) && !step.IsTerminal() {
		out := e.o.newAssistant(MsgContinueFlow, nil, MessageMeta{SessionID: sess.ID, NextStep: sess.CurrentStep})
		e.o.persistOutbound(ctx, sess.ID, &out)
		return []Message{out}, false, nil
	}

	e.o.persistUser(ctx, sess.ID, in)

	switch {
	case e.o.payment.Owns(step):
		msgs, err := e.o.payment.Handle(ctx, sess, draft, in.Content)
		if err != nil {
			return nil, true, err
		}
		e.o.persistAll(ctx, sess.ID, msgs)
		return msgs, true, nil
	case step == StepExpressStart:
		msgs, err := e.start(ctx, sess, draft)
		return msgs, true, err
	case step == StepExpressSummary:
		msgs, err := e.handleSummary(ctx, sess, draft, in)
		return msgs, true, err
	case step == StepExpressUpsell:
		msgs, err := e.handleUpsell(ctx, sess, draft, in)
		return msgs, true, err
	case step == StepExpressEnd:
		out := e.o.newAssistant(PromptFor(step, draft).Content, nil, MessageMeta{SessionID: sess.ID, NextStep: step})
		e.o.persistOutbound(ctx, sess.ID, &out)
		return []Message{out}, true, nil
	}

	res := e.o.validator.Validate(step, in.Content, draft)
	if !res.IsValid {
		out := e.o.newAssistant(res.Message, PromptFor(step, draft).Choices, MessageMeta{SessionID: sess.ID, NextStep: step})
		e.o.persistOutbound(ctx, sess.ID, &out)
		return []Message{out}, true, nil
	}
	draft.Metadata = MergeMetadata(draft.Metadata, res.Patch)
	draft.Metadata.Completed.MarkProcessed(step)
	msgs, err := e.advance(ctx, sess, draft, res.NextStep)
	return msgs, true, err
}

func (e *ExpressOrchestrator) handleSummary(ctx context.Context, sess *Session, draft *OrderDraft, in Inbound) ([]Message, error) {
	switch ClassifyYesNo(in.Content) {
	case ChoiceYes:
		draft.Metadata.Completed.MarkProcessed(StepExpressSummary)
		draft.Metadata.Mode = ModeAwaitingPayment
		return e.advance(ctx, sess, draft, StepExpressPayment)
	case ChoiceNo:
		clearDownstream(draft, StepExpressQuantity)
		return e.advance(ctx, sess, draft, StepExpressQuantity)
	}
	out := e.o.newAssistant("Répondez par Oui ou Non 🙂", []string{"Oui", "Non"}, MessageMeta{SessionID: sess.ID, NextStep: StepExpressSummary})
	e.o.persistOutbound(ctx, sess.ID, &out)
	return []Message{out}, nil
}

func (e *ExpressOrchestrator) handleUpsell(ctx context.Context, sess *Session, draft *OrderDraft, in Inbound) ([]Message, error) {
	choice := ClassifyYesNo(in.Content)
	if choice == ChoiceUnmatched {
		out := e.o.newAssistant("Répondez par Oui ou Non 🙂", []string{"Oui", "Non"}, MessageMeta{SessionID: sess.ID, NextStep: StepExpressUpsell})
		e.o.persistOutbound(ctx, sess.ID, &out)
		return []Message{out}, nil
	}
	draft.Metadata.Completed.MarkProcessed(StepExpressUpsell)
	var msgs []Message
	if choice == ChoiceYes {
		note := e.o.newAssistant("Super ! Vous recevrez notre sélection par SMS après la livraison 📦", nil, MessageMeta{SessionID: sess.ID, NextStep: StepExpressSurvey})
		e.o.persistOutbound(ctx, sess.ID, &note)
		msgs = append(msgs, note)
	}
	next, err := e.advance(ctx, sess, draft, StepExpressSurvey)
	if err != nil {
		return nil, err
	}
	return append(msgs, next...), nil
}

// advance moves the express session to the target step, persists the
// snapshot once and renders the step prompt. Summary entry recomputes the
// delivery cost so the shown total honors the amount invariant.
func (e *ExpressOrchestrator) advance(ctx context.Context, sess *Session, draft *OrderDraft, target Step) ([]Message, error) {
	if target == StepExpressSummary {
		draft.SetDeliveryCost(DeliveryCostFor(draft.Customer.City))
	}
	sess.CurrentStep = target
	sess.UpdatedAt = time.Now()
	if err := e.o.store.Save(ctx, sess.ID, target, draft); err != nil {
		e.o.log.With(
			slog.String("session_id", sess.ID),
			slog.String("step", string(target)),
			sl.Err(err),
		).Error("saving express snapshot")
	}
	p := PromptFor(target, draft)
	out := e.o.newAssistant(p.Content, p.Choices, MessageMeta{SessionID: sess.ID, NextStep: target, OrderData: draft})
	e.o.persistOutbound(ctx, sess.ID, &out)
	return []Message{out}, nil
}
