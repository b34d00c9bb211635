// Package onhand grava o snapshot de on-hand em cada movimentação de caixa.
// O valor é derivado pelo reconciliador e serve só para exibição.
package onhand

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/reconcile"
	"github.com/radieske/fight-ledger/internal/shared/metrics"
	"github.com/radieske/fight-ledger/internal/store"
)

const DefaultBatchSize = 500

// Report resume uma passada de backfill
type Report struct {
	Pairs   int
	Updated int
	Failed  int
}

type Refresher struct {
	store   store.Store
	rec     *reconcile.Reconciler
	batch   int
	log     *zap.Logger
	metrics *metrics.Collectors
}

func NewRefresher(st store.Store, rec *reconcile.Reconciler, batch int, log *zap.Logger, m *metrics.Collectors) *Refresher {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Refresher{store: st, rec: rec, batch: batch, log: log, metrics: m}
}

// RefreshPair recalcula e grava o on-hand de todas as movimentações do par.
// Leitura e escrita rodam na mesma transação, em lotes de batch.
func (r *Refresher) RefreshPair(ctx context.Context, pair store.TellerPair) (int, error) {
	var n int
	err := r.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		cps, err := r.rec.CheckpointsTx(ctx, tx, pair.EventID, pair.TellerNo)
		if err != nil {
			return err
		}
		updates := make([]store.OnHandUpdate, 0, r.batch)
		for _, cp := range cps {
			updates = append(updates, store.OnHandUpdate{MovementID: cp.MovementID, OnHand: cp.OnHand})
			if len(updates) == r.batch {
				if err := tx.SetOnHand(ctx, updates); err != nil {
					return err
				}
				n += len(updates)
				updates = updates[:0]
			}
		}
		if len(updates) > 0 {
			if err := tx.SetOnHand(ctx, updates); err != nil {
				return err
			}
			n += len(updates)
		}
		return nil
	})
	if err != nil {
		r.metrics.OnHandRefreshed("error")
		return 0, err
	}
	r.metrics.OnHandRefreshed("ok")
	return n, nil
}

// Backfill percorre todos os pares (evento, caixa); eventID vazio pega todos.
// Um par com erro é logado e não interrompe os demais.
func (r *Refresher) Backfill(ctx context.Context, eventID string) (Report, error) {
	var pairs []store.TellerPair
	err := r.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		pairs, err = tx.ListTellerPairs(ctx, eventID)
		return err
	})
	if err != nil {
		return Report{}, err
	}

	rep := Report{Pairs: len(pairs)}
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		n, err := r.RefreshPair(ctx, p)
		if err != nil {
			rep.Failed++
			r.log.Error("onhand refresh failed",
				zap.String("event_id", p.EventID), zap.Int("teller_no", p.TellerNo), zap.Error(err))
			continue
		}
		rep.Updated += n
	}
	r.log.Info("onhand backfill done",
		zap.Int("pairs", rep.Pairs), zap.Int("updated", rep.Updated), zap.Int("failed", rep.Failed),
		zap.String("sign", string(r.rec.Sign())))
	return rep, nil
}
