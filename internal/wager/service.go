// Package wager aceita apostas na luta aberta. O débito do apostador e a
// gravação da aposta acontecem na mesma transação.
package wager

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/broadcast"
	"github.com/radieske/fight-ledger/internal/odds"
	"github.com/radieske/fight-ledger/internal/partial"
	"github.com/radieske/fight-ledger/internal/shared/apperr"
	"github.com/radieske/fight-ledger/internal/shared/metrics"
	"github.com/radieske/fight-ledger/internal/store"
	"github.com/radieske/fight-ledger/pkg/contracts/events"
	"github.com/radieske/fight-ledger/pkg/contracts/topics"
)

// Request é uma aposta a ser colocada; UserID vem da identidade autenticada
type Request struct {
	FightID string
	UserID  string
	Side    store.Side
	Amount  int64
}

// Receipt é a aposta gravada com o saldo restante do apostador
type Receipt struct {
	Bet     store.Bet
	Fight   store.Fight
	Credits int64
}

type Service struct {
	store   store.Store
	calc    odds.Calculator
	tracker *partial.Tracker
	pub     broadcast.Publisher
	log     *zap.Logger
	metrics *metrics.Collectors
	now     func() time.Time
}

func NewService(st store.Store, calc odds.Calculator, tracker *partial.Tracker, pub broadcast.Publisher,
	log *zap.Logger, m *metrics.Collectors) *Service {
	return &Service{store: st, calc: calc, tracker: tracker, pub: pub, log: log, metrics: m, now: time.Now}
}

// SetClock troca o relógio usado em created_at
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Place valida e grava a aposta. A odd cotada considera os pools atuais mais
// esta aposta; ela é sobrescrita no fechamento da luta.
func (s *Service) Place(ctx context.Context, req Request) (Receipt, error) {
	const op = "wager.Place"

	if !req.Side.Valid() {
		return Receipt{}, apperr.Validation(op, "side must be meron or wala")
	}
	if req.Amount <= 0 {
		return Receipt{}, apperr.Validation(op, "amount must be greater than 0")
	}

	var rc Receipt
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		// trava a luta: um Close concorrente não pode deixar a aposta fora do pool
		f, err := tx.GetFight(ctx, req.FightID, true)
		if err != nil {
			return err
		}
		if f.Status != store.FightOpen {
			return apperr.InvalidState(op, "fight", f.ID, "betting is only allowed for open fights")
		}
		// o tracker só vale para lutas do evento em andamento
		ev, err := tx.ActiveEvent(ctx)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		if err == nil && ev.ID == f.EventID && s.tracker.Get(f.FightNumber).Closed(req.Side) {
			return apperr.InvalidState(op, "fight", f.ID, string(req.Side)+" is partially closed")
		}

		bettor, err := tx.GetAccount(ctx, req.UserID)
		if err != nil {
			return err
		}
		if rc.Credits, err = tx.AdjustCredits(ctx, bettor.ID, -req.Amount); err != nil {
			return err
		}

		sums, err := tx.SumStakesBySide(ctx, f.ID)
		if err != nil {
			return err
		}
		sums[req.Side] += req.Amount
		q := s.calc.Quote(odds.Pools{Meron: sums[store.SideMeron], Wala: sums[store.SideWala]})

		rc.Bet = store.Bet{
			FightID:   f.ID,
			UserID:    bettor.ID,
			TellerNo:  bettor.TellerNo,
			Side:      req.Side,
			Amount:    req.Amount,
			Odds:      q.For(string(req.Side)),
			Status:    store.BetPending,
			CreatedAt: s.now().UTC(),
		}
		rc.Fight = f
		return tx.InsertBet(ctx, &rc.Bet)
	})
	if err != nil {
		return Receipt{}, err
	}

	s.metrics.BetPlaced(string(rc.Bet.Side))
	s.log.Info("bet placed",
		zap.String("bet_id", rc.Bet.ID),
		zap.String("fight_id", rc.Fight.ID),
		zap.String("side", string(rc.Bet.Side)),
		zap.Int64("amount_cents", rc.Bet.Amount),
	)
	s.pub.Publish(ctx, topics.BetPlaced, rc.Fight.EventID, events.BetPlaced{
		BetID:       rc.Bet.ID,
		FightID:     rc.Fight.ID,
		EventID:     rc.Fight.EventID,
		FightNumber: rc.Fight.FightNumber,
		UserID:      rc.Bet.UserID,
		TellerNo:    rc.Bet.TellerNo,
		Side:        string(rc.Bet.Side),
		AmountCents: rc.Bet.Amount,
		Odds:        rc.Bet.Odds.StringFixed(2),
		Ts:          rc.Bet.CreatedAt,
	})
	return rc, nil
}

// ByFight lista as apostas de uma luta
func (s *Service) ByFight(ctx context.Context, fightID string) ([]store.Bet, error) {
	var out []store.Bet
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetFight(ctx, fightID, false); err != nil {
			return err
		}
		var err error
		out, err = tx.ListBets(ctx, store.BetFilter{FightID: fightID})
		return err
	})
	return out, err
}

// ByUser lista as apostas de um apostador
func (s *Service) ByUser(ctx context.Context, userID string) ([]store.Bet, error) {
	var out []store.Bet
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListBets(ctx, store.BetFilter{UserID: userID})
		return err
	})
	return out, err
}

func (s *Service) Get(ctx context.Context, id string) (store.Bet, error) {
	var b store.Bet
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		b, err = tx.GetBet(ctx, id)
		return err
	})
	return b, err
}
