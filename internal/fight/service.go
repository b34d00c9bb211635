package fight

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/broadcast"
	"github.com/radieske/fight-ledger/internal/odds"
	"github.com/radieske/fight-ledger/internal/partial"
	"github.com/radieske/fight-ledger/internal/settlement"
	"github.com/radieske/fight-ledger/internal/shared/apperr"
	"github.com/radieske/fight-ledger/internal/shared/metrics"
	"github.com/radieske/fight-ledger/internal/store"
	"github.com/radieske/fight-ledger/pkg/contracts/events"
	"github.com/radieske/fight-ledger/pkg/contracts/topics"
)

// Service orquestra as transições de luta. Cada operação roda numa transação
// do store; as notificações saem só depois do commit.
type Service struct {
	store    store.Store
	calc     odds.Calculator
	settler  *settlement.Processor
	tracker  *partial.Tracker
	pub      broadcast.Publisher
	log      *zap.Logger
	metrics  *metrics.Collectors
	autoOpen bool
	now      func() time.Time
}

type Option func(*Service)

// WithAutoOpenNext faz a próxima luta nascer open em vez de waiting
func WithAutoOpenNext(v bool) Option { return func(s *Service) { s.autoOpen = v } }

func WithMetrics(m *metrics.Collectors) Option { return func(s *Service) { s.metrics = m } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(st store.Store, calc odds.Calculator, settler *settlement.Processor, tracker *partial.Tracker,
	pub broadcast.Publisher, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store: st, calc: calc, settler: settler, tracker: tracker,
		pub: pub, log: log, now: time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Resolution é o resultado de um declare-winner
type Resolution struct {
	Fight   store.Fight
	Next    store.Fight
	Summary settlement.Summary
}

// DeclareInput são os dados de um declare-winner; Status é opcional
type DeclareInput struct {
	FightID    string
	Winner     store.Winner
	Status     store.FightStatus
	DeclaredBy string
}

// --- consultas ---

func (s *Service) Get(ctx context.Context, id string) (store.Fight, error) {
	var f store.Fight
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		f, err = tx.GetFight(ctx, id, false)
		return err
	})
	return f, err
}

// List devolve as lutas do evento por número
func (s *Service) List(ctx context.Context, eventID string) ([]store.Fight, error) {
	var out []store.Fight
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetEvent(ctx, eventID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListFights(ctx, eventID)
		return err
	})
	return out, err
}

// Current devolve a luta de maior número do evento
func (s *Service) Current(ctx context.Context, eventID string) (store.Fight, error) {
	var f store.Fight
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		f, err = tx.LatestFight(ctx, eventID, false)
		return err
	})
	return f, err
}

// Quote devolve as odds correntes da luta a partir dos pools gravados
func (s *Service) Quote(f store.Fight) odds.Quote {
	return s.calc.Quote(odds.Pools{Meron: f.MeronPool, Wala: f.WalaPool})
}

// --- transições ---

// Create cria a próxima luta do evento (número anterior + 1)
func (s *Service) Create(ctx context.Context, eventID, createdBy string) (store.Fight, error) {
	var (
		f       store.Fight
		ongoing bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		ev, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		ongoing = ev.Status == store.EventOngoing
		if ev.Status == store.EventCompleted || ev.Status == store.EventCancelled {
			return apperr.InvalidState("fight.Create", "event", ev.ID, "event is "+string(ev.Status))
		}
		f, err = s.createNext(ctx, tx, eventID, createdBy)
		return err
	})
	if err != nil {
		return store.Fight{}, err
	}

	// o tracker só guarda lutas do evento em andamento; a nova nasce aberta
	if ongoing {
		s.tracker.Clear(f.FightNumber)
	}
	s.log.Info("fight created", zap.String("fight_id", f.ID), zap.Int("fight_number", f.FightNumber))
	s.metrics.FightTransition(string(f.Status))
	s.publishFight(ctx, f)
	return f, nil
}

func (s *Service) createNext(ctx context.Context, tx store.Tx, eventID, createdBy string) (store.Fight, error) {
	number := 1
	prev, err := tx.LatestFight(ctx, eventID, true)
	switch {
	case err == nil:
		if err := CheckNext(prev); err != nil {
			return store.Fight{}, err
		}
		number = prev.FightNumber + 1
	case !errors.Is(err, apperr.ErrNotFound):
		return store.Fight{}, err
	}

	status := store.FightWaiting
	if s.autoOpen {
		status = store.FightOpen
	}
	now := s.now().UTC()
	f := store.Fight{
		EventID:     eventID,
		FightNumber: number,
		Status:      status,
		CreatedBy:   createdBy,
		StartTime:   now,
		CreatedAt:   now,
	}
	if err := tx.InsertFight(ctx, &f); err != nil {
		return store.Fight{}, err
	}
	return f, nil
}

// Open libera a luta para apostas
func (s *Service) Open(ctx context.Context, id string) (store.Fight, error) {
	var f store.Fight
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if f, err = tx.GetFight(ctx, id, true); err != nil {
			return err
		}
		if err := checkTransition("fight.Open", f, store.FightOpen); err != nil {
			return err
		}
		f.Status = store.FightOpen
		return tx.UpdateFight(ctx, f)
	})
	if err != nil {
		return store.Fight{}, err
	}

	s.log.Info("fight opened", zap.String("fight_id", f.ID), zap.Int("fight_number", f.FightNumber))
	s.metrics.FightTransition(string(f.Status))
	s.publishFight(ctx, f)
	return f, nil
}

// Close encerra as apostas, agrega os pools e fixa as odds das apostas
// pendentes desta luta. Lutas anteriores do evento não são tocadas.
func (s *Service) Close(ctx context.Context, id string) (store.Fight, error) {
	var (
		f       store.Fight
		ongoing bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if f, err = tx.GetFight(ctx, id, true); err != nil {
			return err
		}
		if err := checkTransition("fight.Close", f, store.FightClosed); err != nil {
			return err
		}
		if ongoing, err = inOngoingEvent(ctx, tx, f.EventID); err != nil {
			return err
		}

		sums, err := tx.SumStakesBySide(ctx, f.ID)
		if err != nil {
			return err
		}
		f.Status = store.FightClosed
		f.MeronPool = sums[store.SideMeron]
		f.WalaPool = sums[store.SideWala]
		if err := tx.UpdateFight(ctx, f); err != nil {
			return err
		}

		latest, err := tx.LatestFight(ctx, f.EventID, false)
		if err != nil {
			return err
		}
		if latest.ID != f.ID {
			return nil
		}
		q := s.Quote(f)
		for _, side := range []store.Side{store.SideMeron, store.SideWala} {
			if _, err := tx.SetPendingOdds(ctx, f.ID, side, q.For(string(side))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return store.Fight{}, err
	}

	if ongoing {
		s.tracker.Clear(f.FightNumber)
	}
	s.log.Info("fight closed",
		zap.String("fight_id", f.ID),
		zap.Int("fight_number", f.FightNumber),
		zap.Int64("meron_cents", f.MeronPool),
		zap.Int64("wala_cents", f.WalaPool),
	)
	s.metrics.FightTransition(string(f.Status))
	s.publishFight(ctx, f)
	return f, nil
}

// SetStatus despacha uma mudança de status genérica para a transição certa
func (s *Service) SetStatus(ctx context.Context, id string, status store.FightStatus, actor string) (store.Fight, error) {
	switch status {
	case store.FightOpen:
		return s.Open(ctx, id)
	case store.FightClosed:
		return s.Close(ctx, id)
	case store.FightCancelled:
		res, err := s.DeclareWinner(ctx, DeclareInput{FightID: id, Winner: store.WinnerCancelled, DeclaredBy: actor})
		return res.Fight, err
	case store.FightCompleted:
		return store.Fight{}, apperr.Validation("fight.SetStatus", "completing a fight requires a winner")
	default:
		return store.Fight{}, apperr.Validation("fight.SetStatus", "status must be open, closed or cancelled")
	}
}

// DeclareWinner resolve a luta, liquida as apostas e cria a próxima luta,
// tudo na mesma transação. Declarar numa luta já resolvida é InvalidState e
// não altera nada.
func (s *Service) DeclareWinner(ctx context.Context, in DeclareInput) (Resolution, error) {
	const op = "fight.DeclareWinner"

	status, winner, err := ResolveOutcome(in.Winner, in.Status)
	if err != nil {
		return Resolution{}, err
	}

	var (
		res     Resolution
		ongoing bool
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		f, err := tx.GetFight(ctx, in.FightID, true)
		if err != nil {
			return err
		}
		if f.Status.Terminal() {
			return apperr.InvalidState(op, "fight", f.ID, "winner already declared")
		}
		if err := checkTransition(op, f, status); err != nil {
			return err
		}

		end := s.now().UTC()
		f.Status = status
		f.Winner = winner
		f.EndTime = &end
		if err := tx.UpdateFight(ctx, f); err != nil {
			return err
		}

		if res.Summary, err = s.settler.SettleTx(ctx, tx, f.ID); err != nil {
			return err
		}
		if res.Fight, err = tx.GetFight(ctx, f.ID, false); err != nil {
			return err
		}
		if res.Next, err = s.createNext(ctx, tx, f.EventID, in.DeclaredBy); err != nil {
			return err
		}
		ongoing, err = inOngoingEvent(ctx, tx, f.EventID)
		return err
	})
	if err != nil {
		return Resolution{}, err
	}

	if ongoing {
		s.tracker.Clear(res.Fight.FightNumber)
		s.tracker.Clear(res.Next.FightNumber)
	}
	s.settler.Record(res.Summary)
	s.log.Info("winner declared",
		zap.String("fight_id", res.Fight.ID),
		zap.String("winner", string(res.Fight.Winner)),
		zap.String("next_fight_id", res.Next.ID),
	)
	s.metrics.FightTransition(string(res.Fight.Status))
	s.metrics.FightTransition(string(res.Next.Status))

	s.publishFight(ctx, res.Fight)
	s.pub.Publish(ctx, topics.BetsSettled, res.Fight.EventID, events.BetsSettled{
		FightID:          res.Summary.FightID,
		EventID:          res.Summary.EventID,
		FightNumber:      res.Summary.FightNumber,
		Winner:           string(res.Summary.Winner),
		ProcessedBets:    res.Summary.Processed,
		TotalPayoutCents: res.Summary.TotalPayout,
		TellerNos:        res.Summary.TellerNos,
		Ts:               s.now().UTC(),
	})
	s.publishFight(ctx, res.Next)
	return res, nil
}

// Settle refaz a liquidação de uma luta resolvida (ex: retry após conflito)
func (s *Service) Settle(ctx context.Context, id string) (settlement.Summary, error) {
	return s.settler.Settle(ctx, s.store, id)
}

// PartialClose suspende (ou reabre) as apostas de um lado da luta aberta
func (s *Service) PartialClose(ctx context.Context, id string, side store.Side, closed bool) (partial.State, error) {
	if !side.Valid() {
		return partial.State{}, apperr.Validation("fight.PartialClose", "side must be meron or wala")
	}

	var (
		f  store.Fight
		st partial.State
	)
	// a trava da luta impede que um Close concorrente limpe o tracker antes do Set
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if f, err = tx.GetFight(ctx, id, true); err != nil {
			return err
		}
		if f.Status != store.FightOpen {
			return apperr.InvalidState("fight.PartialClose", "fight", f.ID, "fight is not open")
		}
		ongoing, err := inOngoingEvent(ctx, tx, f.EventID)
		if err != nil {
			return err
		}
		if !ongoing {
			return apperr.InvalidState("fight.PartialClose", "fight", f.ID, "fight does not belong to the ongoing event")
		}
		st, err = s.tracker.Set(f.FightNumber, side, closed)
		return err
	})
	if err != nil {
		return partial.State{}, err
	}
	s.log.Info("partial state changed",
		zap.Int("fight_number", f.FightNumber),
		zap.Bool("meron", st.Meron),
		zap.Bool("wala", st.Wala),
	)
	s.pub.Publish(ctx, topics.PartialStates, f.EventID, events.PartialStateChanged{
		FightID: f.ID, EventID: f.EventID, FightNumber: f.FightNumber,
		Meron: st.Meron, Wala: st.Wala, Ts: s.now().UTC(),
	})
	return st, nil
}

// inOngoingEvent informa se o evento é o que está em andamento
func inOngoingEvent(ctx context.Context, tx store.Tx, eventID string) (bool, error) {
	ev, err := tx.ActiveEvent(ctx)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ev.ID == eventID, nil
}

// PartialStates lista o estado de fechamento parcial de todas as lutas
func (s *Service) PartialStates() partial.Snapshot { return s.tracker.All() }

// Snapshot converte uma luta no payload publicado
func (s *Service) Snapshot(f store.Fight) events.FightUpdate {
	q := s.Quote(f)
	return events.FightUpdate{
		FightID:         f.ID,
		EventID:         f.EventID,
		FightNumber:     f.FightNumber,
		Status:          string(f.Status),
		Winner:          string(f.Winner),
		MeronCents:      f.MeronPool,
		WalaCents:       f.WalaPool,
		PercentageMeron: q.Meron.StringFixed(2),
		PercentageWala:  q.Wala.StringFixed(2),
		EndTime:         f.EndTime,
		Ts:              s.now().UTC(),
	}
}

func (s *Service) publishFight(ctx context.Context, f store.Fight) {
	s.pub.Publish(ctx, topics.FightUpdates, f.EventID, s.Snapshot(f))
}
