package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/upande/sprayplan/services/api/config"
	"github.com/upande/sprayplan/services/api/erp"
	httpserver "github.com/upande/sprayplan/services/api/http"
	"github.com/upande/sprayplan/services/api/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	erpClient := erp.NewClient(cfg.ERPBaseURL, cfg.ERPAPIKey, cfg.RequestTimeout)
	sessions := session.NewManager(cfg.StockDebounce)

	srv := httpserver.New(cfg, erpClient, sessions)
	log.Printf("spray plan API listening on %s", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
