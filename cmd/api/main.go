package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ordercraft/fulfillment-core/internal/config"
	"github.com/ordercraft/fulfillment-core/internal/consolidation"
	"github.com/ordercraft/fulfillment-core/internal/httpx"
	"github.com/ordercraft/fulfillment-core/internal/inventory"
	kafkax "github.com/ordercraft/fulfillment-core/internal/kafka"
	"github.com/ordercraft/fulfillment-core/internal/orders"
	"github.com/ordercraft/fulfillment-core/internal/postgres"
	"github.com/ordercraft/fulfillment-core/internal/redisx"
	"github.com/ordercraft/fulfillment-core/internal/shipping"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicShippingStatusChanged, 1024, log)
	pStatus.Start(ctx)
	pConsolidated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrdersConsolidated, 1024, log)
	pConsolidated.Start(ctx)
	pStock := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockAdjusted, 1024, log)
	pStock.Start(ctx)

	// Services & handlers
	invSvc := &inventory.Service{
		Store:    &inventory.PGStore{DB: db},
		Events:   pStock,
		Producer: cfg.ServiceName,
		Log:      log,
	}
	shipSvc := &shipping.Service{
		Store:    &shipping.PGStore{DB: db},
		Events:   pStatus,
		Cache:    rdb,
		Producer: cfg.ServiceName,
		Log:      log,
	}
	consSvc := &consolidation.Service{
		Store:    &consolidation.PGStore{DB: db},
		Events:   pConsolidated,
		Producer: cfg.ServiceName,
		Log:      log,
	}

	router := httpx.NewRouter()
	(&httpx.InventoryHandler{Svc: invSvc}).Register(router)
	(&httpx.ShippingHandler{Svc: shipSvc}).Register(router)
	(&httpx.ConsolidationHandler{Svc: consSvc}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// stop intake -> flush remaining events -> drain
	for _, p := range []*kafkax.Producer{pStatus, pConsolidated, pStock} {
		p.Close()
	}
	cancel()
	for _, p := range []*kafkax.Producer{pStatus, pConsolidated, pStock} {
		p.WaitClosed()
	}
}
