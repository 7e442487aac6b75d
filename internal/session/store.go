// Package session implements the session state store: a bounded in-memory
// cache written through to the durable abandoned-cart snapshot, with
// degraded reconstruction when both are missing.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tekkistudio/viensonsconnait-sub001/flow"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
)

// Repository is the durable side of the store.
type Repository interface {
	SaveSession(ctx context.Context, sess *flow.Session) error
	GetSession(ctx context.Context, id string) (*flow.Session, error)
	SetSessionStep(ctx context.Context, id string, step flow.Step) error
	UpsertCart(ctx context.Context, cart *flow.AbandonedCart) error
	GetCart(ctx context.Context, sessionID string) (*flow.AbandonedCart, error)
	RewriteSessionID(ctx context.Context, oldID, newID string) error
}

// Publisher emits cart stage-change events for remarketing. Optional.
type Publisher interface {
	PublishCartStage(ctx context.Context, sessionID string, step flow.Step)
}

type entry struct {
	sess  *flow.Session
	draft *flow.OrderDraft
}

// Store is the write-through session state store.
type Store struct {
	repo    Repository
	catalog flow.Catalog
	events  Publisher
	cache   *lru.Cache[string, *entry]
	storeID string
	log     *slog.Logger
}

func NewStore(repo Repository, catalog flow.Catalog, events Publisher, cacheSize int, storeID string, log *slog.Logger) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, *entry](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating session cache: %w", err)
	}
	return &Store{
		repo:    repo,
		catalog: catalog,
		events:  events,
		cache:   cache,
		storeID: storeID,
		log:     log.With(sl.Module("session.store")),
	}, nil
}

// Create starts a session with the minimal draft and writes the initial
// snapshot so recovery never races an unwritten first save.
func (s *Store) Create(ctx context.Context, productID, storeID string) (*flow.Session, *flow.OrderDraft, error) {
	sess := flow.NewSession(productID, storeID)
	draft, err := s.minimalDraft(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.SaveSession(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("saving session: %w", err)
	}
	if err := s.repo.UpsertCart(ctx, s.snapshot(sess, flow.StepInitial, draft, nil)); err != nil {
		// the cache still holds the state; the next save retries the write
		s.log.With(slog.String("session_id", sess.ID), sl.Err(err)).Error("writing initial snapshot")
	}
	s.cache.Add(sess.ID, &entry{sess: sess, draft: draft})
	return sess, draft, nil
}

// Load reads the cache first, then the durable snapshot, then reconstructs
// a minimal draft anchored to the session's product. A nil session means
// the id is unknown everywhere.
func (s *Store) Load(ctx context.Context, sessionID string) (*flow.Session, *flow.OrderDraft, error) {
	if e, ok := s.cache.Get(sessionID); ok {
		return e.sess, e.draft, nil
	}

	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading session: %w", err)
	}
	cart, err := s.repo.GetCart(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading snapshot: %w", err)
	}

	if sess == nil && cart == nil {
		return nil, nil, nil
	}
	if sess == nil {
		// session record lost: rebuild it from the snapshot
		sess = &flow.Session{
			ID:          cart.SessionID,
			StoreID:     cart.StoreID,
			CurrentStep: cart.CartStage,
			CreatedAt:   cart.CreatedAt,
			UpdatedAt:   time.Now(),
		}
		if cart.Metadata.OrderData != nil && len(cart.Metadata.OrderData.Items) > 0 {
			sess.ProductID = cart.Metadata.OrderData.Items[0].ProductID
		}
	}

	var draft *flow.OrderDraft
	if cart != nil && cart.Metadata.OrderData != nil {
		draft = cart.Metadata.OrderData
	} else {
		// degraded but recoverable: quantity 1, empty customer fields,
		// anchored only to the known product. Express step history is lost.
		draft, err = s.minimalDraft(ctx, sess.ProductID)
		if err != nil {
			return nil, nil, err
		}
		s.log.With(slog.String("session_id", sessionID)).Info("reconstructed minimal draft")
	}

	s.cache.Add(sessionID, &entry{sess: sess, draft: draft})
	return sess, draft, nil
}

// Save merges and writes the snapshot for the step. A step already marked
// saved is a logged no-op, which makes Save safe to call several times per
// logical transition.
func (s *Store) Save(ctx context.Context, sessionID string, step flow.Step, draft *flow.OrderDraft) error {
	if draft.Metadata.Completed.Saved(step) {
		s.log.With(slog.String("session_id", sessionID), slog.String("step", string(step))).Debug("snapshot already saved, skipping")
		return nil
	}

	sess, _, err := s.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("unknown session %s", sessionID)
	}
	sess.CurrentStep = step
	sess.UpdatedAt = time.Now()

	existing, err := s.repo.GetCart(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading snapshot for merge: %w", err)
	}
	var history []flow.ProgressEntry
	if existing != nil {
		history = existing.Metadata.ProgressHistory
	}

	// claim the step in the same persistence call as its side effect
	draft.Metadata.Completed.MarkSaved(step)

	if err := s.repo.UpsertCart(ctx, s.snapshot(sess, step, draft, history)); err != nil {
		draft.Metadata.Completed[step] = flow.StepMarks{
			Processed: draft.Metadata.Completed.Processed(step),
			Saved:     false,
		}
		return fmt.Errorf("writing snapshot: %w", err)
	}

	// companion session record mirror is best-effort
	if err := s.repo.SetSessionStep(ctx, sessionID, step); err != nil {
		s.log.With(slog.String("session_id", sessionID), sl.Err(err)).Error("mirroring step on session")
	}

	s.cache.Add(sessionID, &entry{sess: sess, draft: draft})

	if s.events != nil {
		s.events.PublishCartStage(ctx, sessionID, step)
	}
	return nil
}

// Upgrade materializes a permanent session for a temporary placeholder id
// and rewrites all downstream references (messages, cart, transactions) to
// the new id. The caller only ever sees the final id.
func (s *Store) Upgrade(ctx context.Context, tempID, productID, storeID string) (*flow.Session, *flow.OrderDraft, error) {
	sess := flow.NewSession(productID, storeID)

	var draft *flow.OrderDraft
	if e, ok := s.cache.Get(tempID); ok {
		draft = e.draft
		if e.sess != nil {
			sess.CurrentStep = e.sess.CurrentStep
		}
	} else if cart, err := s.repo.GetCart(ctx, tempID); err == nil && cart != nil {
		draft = cart.Metadata.OrderData
		sess.CurrentStep = cart.CartStage
	}
	if draft == nil {
		var err error
		draft, err = s.minimalDraft(ctx, productID)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := s.repo.SaveSession(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("saving upgraded session: %w", err)
	}
	if err := s.repo.RewriteSessionID(ctx, tempID, sess.ID); err != nil {
		return nil, nil, fmt.Errorf("rewriting session references: %w", err)
	}
	// the rewritten cart keeps its append-only progress log
	var history []flow.ProgressEntry
	if cart, err := s.repo.GetCart(ctx, sess.ID); err == nil && cart != nil {
		history = cart.Metadata.ProgressHistory
	}
	if err := s.repo.UpsertCart(ctx, s.snapshot(sess, sess.CurrentStep, draft, history)); err != nil {
		s.log.With(slog.String("session_id", sess.ID), sl.Err(err)).Error("writing upgraded snapshot")
	}

	s.cache.Remove(tempID)
	s.cache.Add(sess.ID, &entry{sess: sess, draft: draft})
	s.log.With(
		slog.String("temp_id", tempID),
		slog.String("session_id", sess.ID),
	).Info("upgraded temporary session")
	return sess, draft, nil
}

func (s *Store) snapshot(sess *flow.Session, step flow.Step, draft *flow.OrderDraft, history []flow.ProgressEntry) *flow.AbandonedCart {
	return &flow.AbandonedCart{
		SessionID: sess.ID,
		StoreID:   sess.StoreID,
		Customer:  draft.Customer,
		CartStage: step,
		Metadata: flow.CartMetadata{
			OrderData:       draft,
			ProgressHistory: append(history, flow.ProgressEntry{Step: step, Timestamp: time.Now()}),
		},
		CreatedAt: sess.CreatedAt,
		UpdatedAt: time.Now(),
	}
}

func (s *Store) minimalDraft(ctx context.Context, productID string) (*flow.OrderDraft, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("loading product %s: %w", productID, err)
	}
	return flow.NewDraft(product), nil
}
