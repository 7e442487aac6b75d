package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tekkistudio/viensonsconnait-sub001/internal/config"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/http-server/handlers/carts"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/http-server/handlers/chat"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/http-server/handlers/errors"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/http-server/handlers/orders"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/http-server/middleware/authenticate"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/http-server/middleware/timeout"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/api/response"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/metrics"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	chat.Core
	orders.Core
	carts.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(30))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))
	router.Use(metrics.Middleware)
	router.Use(authenticate.New(log, handler))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Ok(nil))
	})

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/chat", func(r chi.Router) {
			r.Post("/message", chat.HandleMessage(log, handler))
		})
		v1.Route("/orders", func(r chi.Router) {
			r.Get("/{id}", orders.GetOrder(log, handler))
		})
		v1.Route("/carts", func(r chi.Router) {
			r.Get("/{sessionId}", carts.GetCart(log, handler))
		})
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  router,
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
