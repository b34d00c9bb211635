// Package settlement liquida as apostas de uma luta resolvida.
//
// A liquidação roda inteira dentro de uma transação do store: todas as
// apostas pendentes mudam de status e todos os créditos são aplicados, ou
// nada acontece. Cada aposta passa por um compare-and-swap pending -> x, então
// uma segunda liquidação concorrente nunca paga duas vezes.
package settlement

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/shared/apperr"
	"github.com/radieske/fight-ledger/internal/shared/metrics"
	"github.com/radieske/fight-ledger/internal/shared/money"
	"github.com/radieske/fight-ledger/internal/store"
)

// Summary resume uma liquidação
type Summary struct {
	FightID     string
	EventID     string
	FightNumber int
	Winner      store.Winner
	Processed   int
	TotalPayout int64
	Won         int
	Lost        int
	Void        int
	TellerNos   []int // caixas com apostas na luta
}

// Outcome aplica a regra de pagamento a uma aposta
//
//	draw/cancelled -> void, devolve o valor apostado
//	lado vencedor  -> won, amount * odds / 100 (half-up na unidade mínima)
//	caso contrário -> lost, 0
func Outcome(b store.Bet, winner store.Winner) (store.BetStatus, int64) {
	switch {
	case winner == store.WinnerDraw || winner == store.WinnerCancelled:
		return store.BetVoid, b.Amount
	case string(b.Side) == string(winner):
		return store.BetWon, money.MulPercent(b.Amount, b.Odds)
	default:
		return store.BetLost, 0
	}
}

type Processor struct {
	log     *zap.Logger
	metrics *metrics.Collectors
	now     func() time.Time
}

func NewProcessor(log *zap.Logger, m *metrics.Collectors) *Processor {
	return &Processor{log: log, metrics: m, now: time.Now}
}

// SetClock troca o relógio usado em settled_at
func (p *Processor) SetClock(now func() time.Time) { p.now = now }

// Settle liquida a luta numa transação própria e registra as métricas após o commit
func (p *Processor) Settle(ctx context.Context, st store.Store, fightID string) (Summary, error) {
	var sum Summary
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		sum, err = p.SettleTx(ctx, tx, fightID)
		return err
	})
	if err != nil {
		return Summary{}, err
	}
	p.Record(sum)
	return sum, nil
}

// SettleTx liquida dentro de uma transação existente. Não registra métricas:
// quem controla o commit chama Record depois.
func (p *Processor) SettleTx(ctx context.Context, tx store.Tx, fightID string) (Summary, error) {
	const op = "settlement.Settle"

	f, err := tx.GetFight(ctx, fightID, true)
	if err != nil {
		return Summary{}, err
	}
	if !f.Status.Terminal() {
		return Summary{}, apperr.InvalidState(op, "fight", f.ID, "fight is "+string(f.Status)+", not resolved")
	}
	if f.SettledAt != nil {
		return Summary{}, apperr.E(apperr.ErrAlreadySettled, op, "fight", f.ID, "")
	}

	winner := f.Winner
	if f.Status == store.FightCancelled {
		winner = store.WinnerCancelled
	}
	if !winner.Valid() {
		return Summary{}, apperr.InvalidState(op, "fight", f.ID, "fight has no winner")
	}

	bets, err := tx.ListPendingBets(ctx, f.ID)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{FightID: f.ID, EventID: f.EventID, FightNumber: f.FightNumber, Winner: winner}
	tellers := map[int]struct{}{}
	for _, b := range bets {
		status, payout := Outcome(b, winner)

		moved, err := tx.SettleBet(ctx, b.ID, status, payout)
		if err != nil {
			return Summary{}, err
		}
		if !moved {
			// outro processo liquidou esta aposta primeiro
			return Summary{}, apperr.E(apperr.ErrConcurrencyConflict, op, "bet", b.ID, "bet left pending concurrently")
		}

		if payout > 0 && (status == store.BetWon || status == store.BetVoid) {
			if _, err := tx.AdjustCredits(ctx, b.UserID, payout); err != nil {
				return Summary{}, err
			}
		}

		sum.Processed++
		sum.TotalPayout += payout
		switch status {
		case store.BetWon:
			sum.Won++
		case store.BetLost:
			sum.Lost++
		case store.BetVoid:
			sum.Void++
		}
		tellers[b.TellerNo] = struct{}{}
	}

	now := p.now().UTC()
	f.SettledAt = &now
	if err := tx.UpdateFight(ctx, f); err != nil {
		return Summary{}, err
	}

	for n := range tellers {
		sum.TellerNos = append(sum.TellerNos, n)
	}
	sort.Ints(sum.TellerNos)
	return sum, nil
}

// Record registra métricas e log de uma liquidação já confirmada
func (p *Processor) Record(sum Summary) {
	p.metrics.Settled(string(store.BetWon), sum.Won)
	p.metrics.Settled(string(store.BetLost), sum.Lost)
	p.metrics.Settled(string(store.BetVoid), sum.Void)
	p.metrics.PaidOut(sum.TotalPayout)

	p.log.Info("fight settled",
		zap.String("fight_id", sum.FightID),
		zap.Int("fight_number", sum.FightNumber),
		zap.String("winner", string(sum.Winner)),
		zap.Int("processed", sum.Processed),
		zap.Int64("total_payout_cents", sum.TotalPayout),
	)
}
