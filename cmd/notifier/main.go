package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ordercraft/fulfillment-core/internal/config"
	kafkax "github.com/ordercraft/fulfillment-core/internal/kafka"
	"github.com/ordercraft/fulfillment-core/internal/orders"
	"github.com/ordercraft/fulfillment-core/internal/redisx"
)

// notifier consumes shipping status-changed events and hands them to the
// external notification dispatcher. Delivery is best-effort: the core has
// already committed by the time an event arrives here.
type notifier struct {
	rdb *redis.Client
	log zerolog.Logger
}

func (n *notifier) handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventShippingStatusChanged {
		return nil
	}

	// dedup by event_id so a redelivered message notifies once
	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	if exists, _ := redisx.Exists(ctx, n.rdb, dkey); exists {
		return nil
	}
	_ = n.rdb.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[orders.ShippingStatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}

	// dispatch boundary: the real channel (email, SMS) lives outside the core
	n.log.Info().
		Str("order", p.OrderID).
		Str("from", p.From).
		Str("to", p.To).
		Str("reason", p.Reason).
		Msg("notification dispatched")
	return nil
}

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "notifier").Logger()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	group := getenv("NOTIFIER_GROUP", "notifier-svc")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicShippingStatusChanged, workers, log)

	n := &notifier{rdb: rdb, log: log}
	go func() {
		log.Info().Str("group", group).Int("workers", workers).Msg("notifier consumer started")
		if err := cons.Start(ctx, n.handle); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
