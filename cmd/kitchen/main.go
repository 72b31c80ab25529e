package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-restaurant-pos/internal/amqpx"
	"github.com/ariefcatur/go-restaurant-pos/internal/config"
	kafkax "github.com/ariefcatur/go-restaurant-pos/internal/kafka"
	"github.com/ariefcatur/go-restaurant-pos/internal/kitchen"
	"github.com/ariefcatur/go-restaurant-pos/internal/logger"
	"github.com/ariefcatur/go-restaurant-pos/internal/orders"
	"github.com/ariefcatur/go-restaurant-pos/internal/postgres"
	"github.com/ariefcatur/go-restaurant-pos/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-kitchen"
	log := logger.New(service, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Warn("config_invalid", "falling back to defaults", "error", err.Error())
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, int32(cfg.PGMaxConns))
	if err != nil {
		log.Error("db_connect", "postgres unavailable", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer untuk OrderStatusChanged
	events, closeEvents, err := newEmitter(cfg, log)
	if err != nil {
		log.Error("broker_connect", "event broker unavailable", err, "broker", cfg.EventBroker)
		os.Exit(1)
	}
	defer closeEvents()

	svc := &kitchen.Service{
		Store:       &orders.Repo{DB: db, Rates: cfg.Rates},
		Redis:       rdb,
		Events:      events,
		ServiceName: service,
		Log:         log,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("kitchen_started", "consuming order.placed", "broker", cfg.EventBroker,
			"group", cfg.KitchenGroup, "workers", cfg.KitchenWorkers)
		var err error
		if cfg.EventBroker == config.BrokerRabbitMQ {
			cons := amqpx.NewConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.KitchenGroup, orders.TopicOrderPlaced,
				cfg.KitchenWorkers, log)
			err = cons.Start(ctx, svc.HandleBody)
		} else {
			cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.KitchenGroup, orders.TopicOrderPlaced, cfg.KitchenWorkers, log)
			err = cons.Start(ctx, svc.HandleOrderPlaced)
		}
		if err != nil {
			log.Error("consumer_exit", "consumer stopped", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutdown", "shutting down consumer")
	cancel()
	<-done
}

func newEmitter(cfg config.Config, log *logger.Logger) (orders.Emitter, func(), error) {
	if cfg.EventBroker == config.BrokerRabbitMQ {
		p, err := amqpx.Dial(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	}
	p := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	p.Start()
	return p, func() {
		p.Close()
		p.WaitClosed()
	}, nil
}
