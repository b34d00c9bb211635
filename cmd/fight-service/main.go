package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/radieske/fight-ledger/internal/broadcast"
	"github.com/radieske/fight-ledger/internal/cashier"
	"github.com/radieske/fight-ledger/internal/fight"
	httpapi "github.com/radieske/fight-ledger/internal/fight-service/http"
	"github.com/radieske/fight-ledger/internal/odds"
	"github.com/radieske/fight-ledger/internal/partial"
	"github.com/radieske/fight-ledger/internal/reconcile"
	"github.com/radieske/fight-ledger/internal/settlement"
	"github.com/radieske/fight-ledger/internal/shared/cache"
	"github.com/radieske/fight-ledger/internal/shared/config"
	"github.com/radieske/fight-ledger/internal/shared/db"
	"github.com/radieske/fight-ledger/internal/shared/kafka"
	"github.com/radieske/fight-ledger/internal/shared/logger"
	"github.com/radieske/fight-ledger/internal/shared/metrics"
	"github.com/radieske/fight-ledger/internal/store"
	"github.com/radieske/fight-ledger/internal/wager"
)

func main() {
	// carrega config
	cfg := config.Load()

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env)
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
	log.Info("starting service",
		zap.String("service", cfg.ServiceName),
		zap.String("env", cfg.Env),
		zap.String("commission", cfg.CommissionPercent.String()),
		zap.String("onhand_sign", string(sign)),
	)

	// conecta com db Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if cfg.PostgresAutoInit {
		if err := db.EnsureSchema(context.Background(), pg, store.Schema); err != nil {
			log.Fatal("failed to apply schema", zap.Error(err))
		}
		log.Info("schema applied")
	}
	log.Info("postgres connected")

	// conecta com Redis (Pub/Sub do ws-gateway)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	m := metrics.NewCollectors(prometheus.DefaultRegisterer)

	// notificações: Redis para o tempo real, Kafka para os workers
	kpub := broadcast.NewKafka(func(topic string) *kafka.Writer {
		return kafka.NewWriter(cfg.KafkaBrokers, cfg.Topic(topic))
	}, log, m)
	defer kpub.Close()
	pub := broadcast.Multi{broadcast.NewRedis(redisClient, cfg.RedisPubSubChannel, log, m), kpub}

	st := store.NewPostgres(pg)
	calc := odds.NewCalculator(cfg.CommissionPercent)
	tracker := partial.NewTracker()

	api := httpapi.NewServer(log, httpapi.Deps{
		Fights: fight.NewService(st, calc, settlement.NewProcessor(log, m), tracker, pub, log,
			fight.WithAutoOpenNext(cfg.AutoOpenNextFight), fight.WithMetrics(m)),
		Wagers:     wager.NewService(st, calc, tracker, pub, log, m),
		Cash:       cashier.NewService(st, pub, log, m),
		Reconciler: reconcile.New(st, sign),
	}, rate.Limit(cfg.BetRatePerSec), cfg.BetRateBurst)

	// sobe servidor de métricas e health
	msrv := metrics.StartMetricsServer(cfg.MetricsPort, log, metrics.All(map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Info("fight-service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	_ = srv.Shutdown(shutdownCtx)
	_ = msrv.Shutdown(shutdownCtx)
	log.Info("fight-service stopped")
}
