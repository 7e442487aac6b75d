package core

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
	"github.com/tekkistudio/viensonsconnait-sub001/flow"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
)

type Repository interface {
	GetOrder(ctx context.Context, id string) (*entity.Order, error)
	GetCart(ctx context.Context, sessionID string) (*flow.AbandonedCart, error)
}

type Conversation interface {
	Handle(ctx context.Context, in flow.Inbound) []flow.Message
}

// Core aggregates the collaborators behind the HTTP API.
type Core struct {
	repo         Repository
	conversation Conversation
	authKey      string
	log          *slog.Logger
}

func New(log *slog.Logger) *Core {
	return &Core{
		log: log.With(sl.Module("core")),
	}
}

func (c *Core) SetRepository(repo Repository) {
	c.repo = repo
}

func (c *Core) SetConversation(conv Conversation) {
	c.conversation = conv
}

func (c *Core) SetAuthKey(key string) {
	c.authKey = key
}

func (c *Core) CheckApiKey(key string) bool {
	if c.authKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(c.authKey)) == 1
}
