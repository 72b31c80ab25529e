package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/apiclient"
	"github.com/ariefcatur/go-restaurant-pos/internal/cart"
	"github.com/ariefcatur/go-restaurant-pos/internal/checkout"
	"github.com/ariefcatur/go-restaurant-pos/internal/config"
	"github.com/ariefcatur/go-restaurant-pos/internal/httpx"
	"github.com/ariefcatur/go-restaurant-pos/internal/logger"
	"github.com/ariefcatur/go-restaurant-pos/internal/menucache"
	"github.com/ariefcatur/go-restaurant-pos/internal/offline"
	"github.com/ariefcatur/go-restaurant-pos/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadPOS()
	log := logger.New("pos-"+cfg.TerminalID, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Warn("config_invalid", "falling back to defaults", "error", err.Error())
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := apiclient.New(cfg.APIBaseURL, cfg.Tenant, cfg.APITimeout)

	// Offline queue: file (default) atau redis lokal
	var store offline.Store
	switch cfg.QueueBackend {
	case "redis":
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		store = offline.NewRedisStore(rdb, cfg.TerminalID)
	default:
		fs, err := offline.OpenFileStore(cfg.QueuePath)
		if err != nil {
			log.Error("queue_open", "cannot open offline queue", err, "path", cfg.QueuePath)
			os.Exit(1)
		}
		store = fs
	}
	queue := offline.NewQueue(store, api, log, offline.WithMaxAttempts(cfg.MaxAttempts))

	// Menu: copy lokal dulu, lalu coba refresh
	mc := menucache.New(api, cfg.MenuCachePath)
	if err := mc.Load(); err != nil {
		log.Warn("menu_load", "ignoring unreadable menu cache", "error", err.Error())
	}
	if _, err := mc.Refresh(ctx); err != nil {
		log.Warn("menu_refresh", "starting with cached menu", "error", err.Error(),
			"last_updated", mc.Get().LastUpdated)
	}

	c := cart.New(cfg.Rates)
	syncer := &offline.Syncer{
		Queue:         queue,
		Probe:         api.Health,
		FlushInterval: cfg.FlushInterval,
		ProbeInterval: cfg.ProbeInterval,
		Log:           log,
	}
	go syncer.Run(ctx)

	router := httpx.NewRouter()
	(&httpx.POSHandler{
		Cart:      c,
		Menu:      mc,
		Submitter: &checkout.Submitter{Cart: c, API: api, Queue: queue, Log: log, SendTimeout: cfg.APITimeout},
		Queue:     queue,
		Online:    syncer.Online,
		Log:       log,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("http_listen", "pos terminal listening", "addr", cfg.HTTPAddr, "api", cfg.APIBaseURL,
			"queue", cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_listen", "server failed", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown", "shutting down terminal")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel()
}
