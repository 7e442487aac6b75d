package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStepTotalOverClosedSet(t *testing.T) {
	for _, step := range AllSteps() {
		next := NextStep(step)
		assert.True(t, next.Known(), "successor of %s (%s) must stay in the closed set", step, next)
	}
}

func TestNextStepUnknownFallsToSessionEnd(t *testing.T) {
	assert.Equal(t, StepSessionEnd, NextStep(Step("corrupted_snapshot_step")))
}

func TestTerminalStepsSelfLoop(t *testing.T) {
	assert.Equal(t, StepSessionEnd, NextStep(StepSessionEnd))
	assert.Equal(t, StepExpressEnd, NextStep(StepExpressEnd))
}

func TestModifyOrderLoopsBackToQuantity(t *testing.T) {
	assert.Equal(t, StepCollectQuantity, NextStep(StepModifyOrder))
}

func TestExpressStepsNeverCrossIntoStandardFlow(t *testing.T) {
	for _, step := range expressSteps {
		assert.True(t, NextStep(step).IsExpress(), "successor of %s must stay express", step)
	}
}

func TestIsStructured(t *testing.T) {
	assert.True(t, StepCollectQuantity.IsStructured())
	assert.True(t, StepPaymentMethod.IsStructured())
	assert.True(t, StepExpressContact.IsStructured())
	assert.False(t, StepGenericResponse.IsStructured())
	assert.False(t, StepInitial.IsStructured())
	assert.False(t, StepExpressEnd.IsStructured())
}
