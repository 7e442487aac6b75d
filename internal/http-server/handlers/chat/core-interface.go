package chat

import (
	"context"

	"github.com/tekkistudio/viensonsconnait-sub001/flow"
)

// Core is the orchestrator surface the chat handler needs.
type Core interface {
	Handle(ctx context.Context, in flow.Inbound) []flow.Message
}
