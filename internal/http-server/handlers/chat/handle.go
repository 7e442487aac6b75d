package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/tekkistudio/viensonsconnait-sub001/flow"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/api/response"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/metrics"
)

type request struct {
	SessionID   string           `json:"sessionId"`
	Content     string           `json:"content" validate:"required"`
	CurrentStep string           `json:"currentStep"`
	OrderDraft  *flow.OrderDraft `json:"orderDraft,omitempty"`
}

var validate = validator.New()

// HandleMessage is the inbound message entry point.
func HandleMessage(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.chat"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("chat handler not available")
			render.JSON(w, r, response.Error("Chat not available"))
			return
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("failed to decode request body", sl.Err(err))
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request", sl.Err(err))
			render.JSON(w, r, response.Error("No message content provided"))
			return
		}

		msgs := handler.Handle(r.Context(), flow.Inbound{
			SessionID:   req.SessionID,
			Content:     req.Content,
			CurrentStep: flow.Step(req.CurrentStep),
			OrderDraft:  req.OrderDraft,
		})
		metrics.MessagesHandled.WithLabelValues("chat").Inc()

		logger.Debug("message handled",
			slog.String("session_id", req.SessionID),
			slog.Int("messages", len(msgs)),
		)
		render.JSON(w, r, response.Ok(msgs))
	}
}
