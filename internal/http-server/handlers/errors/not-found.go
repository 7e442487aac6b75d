package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/api/response"
)

func NotFound(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("not found", slog.String("path", r.URL.Path))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("Not found"))
	}
}
