package flow

// nextStep is the flow topology: every step in the closed set maps to
// exactly one default successor. Branch edges (email opt-out, modify loop,
// payment retry) are validator overrides, not entries here.
var nextStep = map[Step]Step{
	StepInitial:          StepChooseFlow,
	StepChooseFlow:       StepCollectQuantity,
	StepCollectQuantity:  StepCollectName,
	StepCollectName:      StepCollectPhone,
	StepCollectPhone:     StepCollectCity,
	StepCollectCity:      StepCollectAddress,
	StepCollectAddress:   StepCollectEmailOpt,
	StepCollectEmailOpt:  StepCheckExisting,
	StepCheckExisting:    StepSelectDelivery,
	StepSelectDelivery:   StepDeliveryCostNote,
	StepDeliveryCostNote: StepAddNotesOpt,
	StepAddNotesOpt:      StepCollectNote,
	StepCollectNote:      StepRecommendProducts,
	StepRecommendProducts: StepAddProduct,
	StepAddProduct:       StepConfirmItems,
	StepConfirmItems:     StepOrderSummary,
	StepOrderSummary:     StepConfirmOrder,
	StepModifyOrder:      StepCollectQuantity,
	StepConfirmOrder:     StepCreateAccountOpt,
	StepCreateAccountOpt: StepPaymentMethod,
	StepPaymentMethod:    StepPaymentInit,
	StepPaymentInit:      StepPaymentProcessing,
	StepPaymentProcessing: StepPaymentComplete,
	StepPaymentComplete:  StepOrderConfirmed,
	StepPaymentError:     StepPaymentMethod,
	StepOrderConfirmed:   StepPostPurchaseSurvey,
	StepPostPurchaseSurvey: StepSurveyComment,
	StepSurveyComment:    StepSessionEnd,
	StepTrackOrder:       StepSessionEnd,
	StepDeliveryEta:      StepSessionEnd,
	StepGenericResponse:  StepSessionEnd,
	StepSessionEnd:       StepSessionEnd,

	StepExpressStart:      StepExpressQuantity,
	StepExpressQuantity:   StepExpressContact,
	StepExpressContact:    StepExpressName,
	StepExpressName:       StepExpressAddress,
	StepExpressAddress:    StepExpressSummary,
	StepExpressSummary:    StepExpressPayment,
	StepExpressPayment:    StepExpressProcessing,
	StepExpressProcessing: StepExpressComplete,
	StepExpressComplete:   StepExpressUpsell,
	StepExpressUpsell:     StepExpressSurvey,
	StepExpressSurvey:     StepExpressEnd,
	StepExpressEnd:        StepExpressEnd,
}

// NextStep returns the default successor of a step. The table is total over
// the closed step set; unknown steps fall through to session_end so a
// corrupted snapshot can never strand a conversation.
func NextStep(s Step) Step {
	if next, ok := nextStep[s]; ok {
		return next
	}
	return StepSessionEnd
}
