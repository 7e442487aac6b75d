package core

import (
	"context"
	"fmt"
	"time"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
	"github.com/tekkistudio/viensonsconnait-sub001/flow"
)

func (c *Core) Handle(ctx context.Context, in flow.Inbound) []flow.Message {
	if c.conversation == nil {
		return []flow.Message{{
			Type:      flow.MessageAssistant,
			Content:   flow.MsgGenericError,
			Timestamp: time.Now(),
			Metadata: flow.MessageMeta{
				SessionID: in.SessionID,
				Error:     "unavailable",
			},
		}}
	}
	return c.conversation.Handle(ctx, in)
}

func (c *Core) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("repository is not set")
	}
	return c.repo.GetOrder(ctx, id)
}

func (c *Core) GetCart(ctx context.Context, sessionID string) (*flow.AbandonedCart, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("repository is not set")
	}
	return c.repo.GetCart(ctx, sessionID)
}
