package main

import (
	"flag"
	"log/slog"
	"time"

	"github.com/tekkistudio/viensonsconnait-sub001/flow"
	"github.com/tekkistudio/viensonsconnait-sub001/impl/core"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/config"
	repository "github.com/tekkistudio/viensonsconnait-sub001/internal/database"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/events"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/http-server/api"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/logger"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/service/analysis"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/service/catalog"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/service/order"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/service/payment"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/session"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath)

	lg.Info("starting orderflow", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	handler := core.New(lg)
	handler.SetAuthKey(conf.Listen.ApiKey)

	db, err := repository.NewMongoClient(conf, lg)
	if err != nil {
		lg.With(
			sl.Err(err),
		).Error("mongo client")
		return
	}
	// sessions, orders and messages all live in mongo; nothing works without it
	if db == nil {
		lg.Error("mongo is disabled in config but required")
		return
	}
	handler.SetRepository(db)
	lg.With(
		slog.String("host", conf.Mongo.Host),
		slog.String("port", conf.Mongo.Port),
		slog.String("user", conf.Mongo.User),
		slog.String("database", conf.Mongo.Database),
	).Info("mongo client initialized")

	catalogService := catalog.NewService(conf, lg)
	if catalogService == nil {
		lg.Error("catalog service not configured")
		return
	}
	lg.With(
		slog.String("login", conf.Catalog.Login),
		slog.String("url", conf.Catalog.BaseURL),
	).Info("catalog service initialized")

	var sessionEvents session.Publisher
	var orderEvents order.Publisher
	if conf.Rabbit.Enabled {
		publisher, err := events.NewPublisher(conf, lg)
		if err != nil {
			lg.With(
				sl.Err(err),
			).Error("event publisher")
		} else {
			sessionEvents = publisher
			orderEvents = publisher
			lg.With(
				slog.String("exchange", conf.Rabbit.Exchange),
			).Info("event publisher initialized")
		}
	}

	store, err := session.NewStore(db, catalogService, sessionEvents, conf.Cache.Size, conf.Store.ID, lg)
	if err != nil {
		lg.Error("session store", sl.Err(err))
		return
	}

	var analyzer flow.MessageAnalyzer
	if a := analysis.NewAnalyzer(conf, lg); a != nil {
		a.SetProductService(catalogService)
		analyzer = a
		lg.With(
			sl.Secret("openai_key", conf.OpenAI.ApiKey),
			slog.String("model", conf.OpenAI.Model),
		).Info("analyzer initialized")
	}

	assistant := flow.AssistantInfo{
		Name:  "Rose",
		Title: "Assistante d'achat",
	}

	materializer := order.NewMaterializer(db, orderEvents, lg)

	var paymentClient flow.PaymentClient
	if pc := payment.NewClient(conf, lg); pc != nil {
		paymentClient = pc
		lg.With(
			slog.String("url", conf.Payment.BaseURL),
		).Info("payment client initialized")
	} else {
		lg.Info("payment gateway not configured, online payments disabled")
	}
	coordinator := flow.NewPaymentCoordinator(paymentClient, db, materializer, store, flow.PaymentConfig{
		Currency:       conf.Store.Currency,
		VerifyTimeout:  time.Duration(conf.Payment.VerifyTimeout) * time.Second,
		VerifyInterval: time.Duration(conf.Payment.VerifyInterval) * time.Second,
		Assistant:      assistant,
	}, lg)

	orchestrator := flow.NewOrchestrator(flow.Options{
		Store:           store,
		Messages:        db,
		Analyzer:        analyzer,
		Payment:         coordinator,
		Catalog:         catalogService,
		Customers:       db,
		CountryCode:     conf.Store.CountryCode,
		Assistant:       assistant,
		ProductID:       conf.Store.ProductID,
		StoreID:         conf.Store.ID,
		IntentThreshold: conf.OpenAI.IntentBuy,
	}, lg)
	handler.SetConversation(orchestrator)

	// *** blocking start with http server ***
	err = api.New(conf, lg, handler)
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Error("service stopped")
}
