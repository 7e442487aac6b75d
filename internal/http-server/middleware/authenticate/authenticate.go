package authenticate

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/api/response"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
)

// Authenticate checks API keys.
type Authenticate interface {
	CheckApiKey(key string) bool
}

// Open paths skip authentication.
var openPaths = map[string]struct{}{
	"/metrics": {},
	"/health":  {},
}

func New(log *slog.Logger, auth Authenticate) func(next http.Handler) http.Handler {
	logger := log.With(sl.Module("middleware.authenticate"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, open := openPaths[r.URL.Path]; open {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Authorization")
			key = strings.TrimPrefix(key, "Bearer ")
			if key == "" || !auth.CheckApiKey(key) {
				logger.Debug("unauthorized request", slog.String("path", r.URL.Path))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("Unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
