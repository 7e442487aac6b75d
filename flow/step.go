package flow

// Step is one named state in the conversational state machine.
type Step string

// Standard (guided) flow steps.
const (
	StepInitial          Step = "initial"
	StepChooseFlow       Step = "choose_flow"
	StepCollectQuantity  Step = "collect_quantity"
	StepCollectName      Step = "collect_name"
	StepCollectPhone     Step = "collect_phone"
	StepCollectCity      Step = "collect_city"
	StepCollectAddress   Step = "collect_address"
	StepCollectEmailOpt  Step = "collect_email_opt"
	StepCheckExisting    Step = "check_existing"
	StepSelectDelivery   Step = "select_delivery"
	StepDeliveryCostNote Step = "delivery_cost_note"
	StepAddNotesOpt      Step = "add_notes_opt"
	StepCollectNote      Step = "collect_note"
	StepRecommendProducts Step = "recommend_products"
	StepAddProduct       Step = "add_product"
	StepConfirmItems     Step = "confirm_items"
	StepOrderSummary     Step = "order_summary"
	StepModifyOrder      Step = "modify_order"
	StepConfirmOrder     Step = "confirm_order"
	StepCreateAccountOpt Step = "create_account_opt"
	StepPaymentMethod    Step = "payment_method"
	StepPaymentInit      Step = "payment_init"
	StepPaymentProcessing Step = "payment_processing"
	StepPaymentComplete  Step = "payment_complete"
	StepPaymentError     Step = "payment_error"
	StepOrderConfirmed   Step = "order_confirmed"
	StepPostPurchaseSurvey Step = "post_purchase_survey"
	StepSurveyComment    Step = "survey_comment"
	StepTrackOrder       Step = "track_order"
	StepDeliveryEta      Step = "delivery_eta"
	StepGenericResponse  Step = "generic_response"
	StepSessionEnd       Step = "session_end"
)

// Express flow steps.
const (
	StepExpressStart      Step = "express_start"
	StepExpressQuantity   Step = "express_quantity"
	StepExpressContact    Step = "express_contact"
	StepExpressName       Step = "express_name"
	StepExpressAddress    Step = "express_address"
	StepExpressSummary    Step = "express_summary"
	StepExpressPayment    Step = "express_payment"
	StepExpressProcessing Step = "express_processing"
	StepExpressComplete   Step = "express_complete"
	StepExpressUpsell     Step = "express_upsell"
	StepExpressSurvey     Step = "express_survey"
	StepExpressEnd        Step = "express_end"
)

// standardSteps is the closed set of guided-flow steps, in default chain order.
var standardSteps = []Step{
	StepInitial,
	StepChooseFlow,
	StepCollectQuantity,
	StepCollectName,
	StepCollectPhone,
	StepCollectCity,
	StepCollectAddress,
	StepCollectEmailOpt,
	StepCheckExisting,
	StepSelectDelivery,
	StepDeliveryCostNote,
	StepAddNotesOpt,
	StepCollectNote,
	StepRecommendProducts,
	StepAddProduct,
	StepConfirmItems,
	StepOrderSummary,
	StepModifyOrder,
	StepConfirmOrder,
	StepCreateAccountOpt,
	StepPaymentMethod,
	StepPaymentInit,
	StepPaymentProcessing,
	StepPaymentComplete,
	StepPaymentError,
	StepOrderConfirmed,
	StepPostPurchaseSurvey,
	StepSurveyComment,
	StepTrackOrder,
	StepDeliveryEta,
	StepGenericResponse,
	StepSessionEnd,
}

var expressSteps = []Step{
	StepExpressStart,
	StepExpressQuantity,
	StepExpressContact,
	StepExpressName,
	StepExpressAddress,
	StepExpressSummary,
	StepExpressPayment,
	StepExpressProcessing,
	StepExpressComplete,
	StepExpressUpsell,
	StepExpressSurvey,
	StepExpressEnd,
}

// AllSteps returns the complete closed step set.
func AllSteps() []Step {
	all := make([]Step, 0, len(standardSteps)+len(expressSteps))
	all = append(all, standardSteps...)
	all = append(all, expressSteps...)
	return all
}

var expressSet = func() map[Step]struct{} {
	m := make(map[Step]struct{}, len(expressSteps))
	for _, s := range expressSteps {
		m[s] = struct{}{}
	}
	return m
}()

// IsExpress reports whether the step belongs to the express flow.
func (s Step) IsExpress() bool {
	_, ok := expressSet[s]
	return ok
}

// IsTerminal reports whether the step ends the conversation.
func (s Step) IsTerminal() bool {
	return s == StepSessionEnd || s == StepExpressEnd
}

// structuredSet holds the steps during which the free-text responder must
// never answer: contact collection, payment, summaries and item addition.
var structuredSet = map[Step]struct{}{
	StepCollectQuantity:  {},
	StepCollectName:      {},
	StepCollectPhone:     {},
	StepCollectCity:      {},
	StepCollectAddress:   {},
	StepCollectEmailOpt:  {},
	StepCollectNote:      {},
	StepSelectDelivery:   {},
	StepAddNotesOpt:      {},
	StepAddProduct:       {},
	StepConfirmItems:     {},
	StepOrderSummary:     {},
	StepModifyOrder:      {},
	StepConfirmOrder:     {},
	StepCreateAccountOpt: {},
	StepPaymentMethod:    {},
	StepPaymentInit:      {},
	StepPaymentProcessing: {},
	StepPaymentError:     {},
	StepOrderConfirmed:   {},
	StepPostPurchaseSurvey: {},
	StepSurveyComment:    {},
}

// IsStructured reports whether the step is part of the closed purchase flow.
func (s Step) IsStructured() bool {
	if _, ok := structuredSet[s]; ok {
		return true
	}
	return s.IsExpress() && !s.IsTerminal()
}

// Known reports membership in the closed step set.
func (s Step) Known() bool {
	_, ok := nextStep[s]
	return ok
}
