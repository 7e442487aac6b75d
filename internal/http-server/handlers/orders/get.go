package orders

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/api/response"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
)

// Core is the repository surface the orders handler needs.
type Core interface {
	GetOrder(ctx context.Context, id string) (*entity.Order, error)
}

func GetOrder(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.orders"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("order store not available")
			render.JSON(w, r, response.Error("Orders not available"))
			return
		}

		id := chi.URLParam(r, "id")
		order, err := handler.GetOrder(r.Context(), id)
		if err != nil {
			logger.Error("loading order", slog.String("order_id", id), sl.Err(err))
			render.JSON(w, r, response.Error("Failed to load order"))
			return
		}
		if order == nil {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("Order not found"))
			return
		}
		render.JSON(w, r, response.Ok(order))
	}
}
