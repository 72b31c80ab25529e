package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/amqpx"
	"github.com/ariefcatur/go-restaurant-pos/internal/config"
	"github.com/ariefcatur/go-restaurant-pos/internal/httpx"
	kafkax "github.com/ariefcatur/go-restaurant-pos/internal/kafka"
	"github.com/ariefcatur/go-restaurant-pos/internal/logger"
	"github.com/ariefcatur/go-restaurant-pos/internal/menu"
	"github.com/ariefcatur/go-restaurant-pos/internal/orders"
	"github.com/ariefcatur/go-restaurant-pos/internal/postgres"
	"github.com/ariefcatur/go-restaurant-pos/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LogLevel)
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
	applied, err := postgres.Migrate(ctx, db)
	if err != nil {
		log.Error("db_migrate", "migration failed", err)
		os.Exit(1)
	}
	log.Info("db_migrate", "migrations applied", "files", applied)

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Events
	events, closeEvents, err := newEmitter(cfg, log)
	if err != nil {
		log.Error("broker_connect", "event broker unavailable", err, "broker", cfg.EventBroker)
		os.Exit(1)
	}

	// Repo & handler
	router := httpx.NewRouter()
	httpx.MountAPI(router, cfg.DefaultTenant,
		&httpx.MenuHandler{Repo: &menu.Repo{DB: db}, Redis: rdb, Log: log},
		&httpx.OrdersHandler{
			Repo:    &orders.Repo{DB: db, Rates: cfg.Rates},
			Events:  events,
			Redis:   rdb,
			Service: cfg.ServiceName,
			Log:     log,
		},
	)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		log.Info("http_listen", "order api listening", "addr", cfg.HTTPAddr, "broker", cfg.EventBroker)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_listen", "server failed", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown", "shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	closeEvents() // flush event yang masih di buffer
	cancel()
}

// newEmitter picks the broker from EVENT_BROKER. The returned func flushes
// and closes it.
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
		p.Close() // tutup inbox -> flush & close writer
		p.WaitClosed()
	}, nil
}
