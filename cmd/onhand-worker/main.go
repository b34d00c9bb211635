package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/onhand"
	"github.com/radieske/fight-ledger/internal/onhand-worker/consumer"
	"github.com/radieske/fight-ledger/internal/reconcile"
	"github.com/radieske/fight-ledger/internal/shared/config"
	"github.com/radieske/fight-ledger/internal/shared/db"
	"github.com/radieske/fight-ledger/internal/shared/kafka"
	"github.com/radieske/fight-ledger/internal/shared/logger"
	"github.com/radieske/fight-ledger/internal/shared/metrics"
	"github.com/radieske/fight-ledger/internal/store"
	"github.com/radieske/fight-ledger/pkg/contracts/topics"
)

func main() {
	cfg := config.Load()
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

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// consumer group único para os dois tópicos
	reader := kafka.NewReader(cfg.KafkaBrokers, "onhand-worker",
		cfg.Topic(topics.CashMovements), cfg.Topic(topics.BetsSettled))
	defer reader.Close()

	m := metrics.NewCollectors(prometheus.DefaultRegisterer)
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "onhand_worker_messages_consumed_total", Help: "mensagens consumidas"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "onhand_worker_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, errorsBy)

	st := store.NewPostgres(pg)
	proc := &consumer.Processor{
		Log:                log,
		Reader:             reader,
		Refresher:          onhand.NewRefresher(st, reconcile.New(st, sign), cfg.OnHandBatchSize, log, m),
		TopicCashMovements: cfg.Topic(topics.CashMovements),
		TopicBetsSettled:   cfg.Topic(topics.BetsSettled),
		OnConsumed:         func() { consumed.Inc() },
		OnError:            func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metrics.StartMetricsServer(cfg.MetricsPort, log, metrics.All(map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
	}))

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("onhand-worker started", zap.String("sign", string(sign)))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("onhand-worker stopped")
}
