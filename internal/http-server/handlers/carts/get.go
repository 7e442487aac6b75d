package carts

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/tekkistudio/viensonsconnait-sub001/flow"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/api/response"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
)

// Core is the repository surface the carts handler needs.
type Core interface {
	GetCart(ctx context.Context, sessionID string) (*flow.AbandonedCart, error)
}

func GetCart(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.carts"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("cart store not available")
			render.JSON(w, r, response.Error("Carts not available"))
			return
		}

		sessionID := chi.URLParam(r, "sessionId")
		cart, err := handler.GetCart(r.Context(), sessionID)
		if err != nil {
			logger.Error("loading cart", slog.String("session_id", sessionID), sl.Err(err))
			render.JSON(w, r, response.Error("Failed to load cart"))
			return
		}
		if cart == nil {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("Cart not found"))
			return
		}
		render.JSON(w, r, response.Ok(cart))
	}
}
