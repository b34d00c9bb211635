package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/onhand"
	"github.com/radieske/fight-ledger/internal/reconcile"
	"github.com/radieske/fight-ledger/internal/shared/config"
	"github.com/radieske/fight-ledger/internal/shared/db"
	"github.com/radieske/fight-ledger/internal/shared/logger"
	"github.com/radieske/fight-ledger/internal/shared/metrics"
	"github.com/radieske/fight-ledger/internal/store"
)

// onhand-backfill recalcula o snapshot de on-hand de todas as movimentações
// (ou só das de um evento) e termina
func main() {
	eventID := flag.String("event", "", "event id (empty = all events)")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New("onhand-backfill", cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	for _, w := range cfg.Warnings {
		log.Warn("config value ignored", zap.String("detail", w))
	}
	sign, err := reconcile.ParseSign(cfg.OnHandSign)
	if err != nil {
		log.Fatal("invalid onhand sign", zap.Error(err))
	}

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := store.NewPostgres(pg)
	r := onhand.NewRefresher(st, reconcile.New(st, sign), cfg.OnHandBatchSize, log,
		metrics.NewCollectors(prometheus.NewRegistry()))

	rep, err := r.Backfill(ctx, *eventID)
	if err != nil {
		log.Error("backfill aborted", zap.Error(err))
		os.Exit(1)
	}
	if rep.Failed > 0 {
		os.Exit(2)
	}
}
