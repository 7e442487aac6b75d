package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/api/response"
)

func NotAllowed(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("method not allowed", slog.String("method", r.Method), slog.String("path", r.URL.Path))
		w.WriteHeader(http.StatusMethodNotAllowed)
		render.JSON(w, r, response.Error("Method not allowed"))
	}
}
