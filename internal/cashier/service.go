// Package cashier registra as movimentações de caixa dos tellers: depósitos
// (topup) e retiradas (remit) levados pelos runners.
//
// Topup e Remit são síncronos: ajustam o crédito e gravam a movimentação já
// completed na mesma transação. Request/Assign/Confirm é o fluxo assíncrono:
// o teller pede, um runner assume (processing) e a confirmação aplica o crédito.
package cashier

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/broadcast"
	"github.com/radieske/fight-ledger/internal/shared/apperr"
	"github.com/radieske/fight-ledger/internal/shared/metrics"
	"github.com/radieske/fight-ledger/internal/store"
	"github.com/radieske/fight-ledger/pkg/contracts/events"
	"github.com/radieske/fight-ledger/pkg/contracts/topics"
)

// Result é a movimentação gravada e o saldo do teller depois dela
type Result struct {
	Movement store.CashMovement
	Credits  int64
}

// Stats resume as movimentações de um runner
type Stats struct {
	RunnerID   string
	TotalTopup int64 // completed
	TotalRemit int64 // completed
	Pending    int
	Processing int
	Completed  int
	Voided     int
	Total      int
}

type Service struct {
	store   store.Store
	pub     broadcast.Publisher
	log     *zap.Logger
	metrics *metrics.Collectors
	now     func() time.Time
}

func NewService(st store.Store, pub broadcast.Publisher, log *zap.Logger, m *metrics.Collectors) *Service {
	return &Service{store: st, pub: pub, log: log, metrics: m, now: time.Now}
}

// SetClock troca o relógio usado em created_at
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// delta é o efeito da movimentação no crédito do teller
func delta(kind store.MovementKind, amount int64) int64 {
	if kind == store.KindRemit {
		return -amount
	}
	return amount
}

func (s *Service) teller(ctx context.Context, tx store.Tx, op, id string) (store.Account, error) {
	a, err := tx.GetAccount(ctx, id)
	if err != nil {
		return store.Account{}, err
	}
	if !a.Role.IsTeller() {
		return store.Account{}, apperr.E(apperr.ErrValidation, op, "account", id, "account is not a teller")
	}
	return a, nil
}

// activeEventID devolve o evento em andamento, ou vazio se não houver
func activeEventID(ctx context.Context, tx store.Tx) (string, error) {
	ev, err := tx.ActiveEvent(ctx)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	return ev.ID, err
}

// Topup deposita amount no caixa do teller
func (s *Service) Topup(ctx context.Context, tellerID, runnerID string, amount int64) (Result, error) {
	return s.record(ctx, "cashier.Topup", store.KindTopup, tellerID, runnerID, amount)
}

// Remit retira amount do caixa do teller; exige saldo suficiente
func (s *Service) Remit(ctx context.Context, tellerID, runnerID string, amount int64) (Result, error) {
	return s.record(ctx, "cashier.Remit", store.KindRemit, tellerID, runnerID, amount)
}

func (s *Service) record(ctx context.Context, op string, kind store.MovementKind, tellerID, runnerID string, amount int64) (Result, error) {
	if amount <= 0 {
		return Result{}, apperr.Validation(op, "amount must be greater than 0")
	}

	var res Result
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := s.teller(ctx, tx, op, tellerID)
		if err != nil {
			return err
		}
		if runnerID != "" {
			if _, err := tx.GetAccount(ctx, runnerID); err != nil {
				return err
			}
		}
		eventID, err := activeEventID(ctx, tx)
		if err != nil {
			return err
		}

		if res.Credits, err = tx.AdjustCredits(ctx, t.ID, delta(kind, amount)); err != nil {
			return err
		}
		res.Movement = store.CashMovement{
			EventID:   eventID,
			TellerID:  t.ID,
			TellerNo:  t.TellerNo,
			RunnerID:  runnerID,
			Amount:    amount,
			Kind:      kind,
			Status:    store.MovementCompleted,
			CreatedAt: s.now().UTC(),
		}
		return tx.InsertCashMovement(ctx, &res.Movement)
	})
	if err != nil {
		return Result{}, err
	}
	s.emit(ctx, res.Movement)
	return res, nil
}

// Request cria uma movimentação pendente, sem runner
func (s *Service) Request(ctx context.Context, tellerID string, kind store.MovementKind, amount int64) (store.CashMovement, error) {
	const op = "cashier.Request"
	if !kind.Valid() {
		return store.CashMovement{}, apperr.Validation(op, "kind must be topup or remit")
	}
	if amount <= 0 {
		return store.CashMovement{}, apperr.Validation(op, "amount must be greater than 0")
	}

	var m store.CashMovement
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := s.teller(ctx, tx, op, tellerID)
		if err != nil {
			return err
		}
		eventID, err := activeEventID(ctx, tx)
		if err != nil {
			return err
		}
		m = store.CashMovement{
			EventID:   eventID,
			TellerID:  t.ID,
			TellerNo:  t.TellerNo,
			Amount:    amount,
			Kind:      kind,
			Status:    store.MovementPending,
			CreatedAt: s.now().UTC(),
		}
		return tx.InsertCashMovement(ctx, &m)
	})
	if err != nil {
		return store.CashMovement{}, err
	}
	s.emit(ctx, m)
	return m, nil
}

// Assign entrega uma movimentação pendente a um runner (pending -> processing)
func (s *Service) Assign(ctx context.Context, id, runnerID string) (store.CashMovement, error) {
	const op = "cashier.Assign"
	if runnerID == "" {
		return store.CashMovement{}, apperr.Validation(op, "runner id is required")
	}

	return s.transition(ctx, op, id, func(ctx context.Context, tx store.Tx, m *store.CashMovement) error {
		if m.RunnerID != "" {
			return apperr.InvalidState(op, "cash_movement", m.ID, "already assigned to a runner")
		}
		if m.Status != store.MovementPending {
			return apperr.InvalidState(op, "cash_movement", m.ID, "only pending movements can be assigned")
		}
		if _, err := tx.GetAccount(ctx, runnerID); err != nil {
			return err
		}
		m.RunnerID = runnerID
		m.Status = store.MovementProcessing
		return nil
	})
}

// Confirm conclui a entrega (processing -> completed) e aplica o crédito.
// Se o ajuste falhar a movimentação continua em processing.
func (s *Service) Confirm(ctx context.Context, id string) (store.CashMovement, error) {
	const op = "cashier.Confirm"
	return s.transition(ctx, op, id, func(ctx context.Context, tx store.Tx, m *store.CashMovement) error {
		if m.Status != store.MovementProcessing {
			return apperr.InvalidState(op, "cash_movement", m.ID, "only processing movements can be confirmed")
		}
		if _, err := tx.AdjustCredits(ctx, m.TellerID, delta(m.Kind, m.Amount)); err != nil {
			return err
		}
		m.Status = store.MovementCompleted
		return nil
	})
}

// Void cancela uma movimentação ainda não concluída
func (s *Service) Void(ctx context.Context, id string) (store.CashMovement, error) {
	const op = "cashier.Void"
	return s.transition(ctx, op, id, func(_ context.Context, _ store.Tx, m *store.CashMovement) error {
		if m.Status != store.MovementPending && m.Status != store.MovementProcessing {
			return apperr.InvalidState(op, "cash_movement", m.ID, "movement is "+string(m.Status))
		}
		m.Status = store.MovementVoided
		return nil
	})
}

func (s *Service) transition(ctx context.Context, op, id string,
	fn func(ctx context.Context, tx store.Tx, m *store.CashMovement) error) (store.CashMovement, error) {
	var m store.CashMovement
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if m, err = tx.GetCashMovement(ctx, id, true); err != nil {
			return err
		}
		if err := fn(ctx, tx, &m); err != nil {
			return err
		}
		return tx.UpdateCashMovement(ctx, m)
	})
	if err != nil {
		return store.CashMovement{}, err
	}
	s.emit(ctx, m)
	return m, nil
}

func (s *Service) Get(ctx context.Context, id string) (store.CashMovement, error) {
	var m store.CashMovement
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		m, err = tx.GetCashMovement(ctx, id, false)
		return err
	})
	return m, err
}

func (s *Service) List(ctx context.Context, f store.MovementFilter) ([]store.CashMovement, error) {
	var out []store.CashMovement
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListCashMovements(ctx, f)
		return err
	})
	return out, err
}

// RunnerStats soma os topups/remits concluídos e conta por status
func (s *Service) RunnerStats(ctx context.Context, runnerID string) (Stats, error) {
	list, err := s.List(ctx, store.MovementFilter{RunnerID: runnerID})
	if err != nil {
		return Stats{}, err
	}
	st := Stats{RunnerID: runnerID, Total: len(list)}
	for _, m := range list {
		switch m.Status {
		case store.MovementPending:
			st.Pending++
		case store.MovementProcessing:
			st.Processing++
		case store.MovementCompleted:
			st.Completed++
			if m.Kind == store.KindTopup {
				st.TotalTopup += m.Amount
			} else {
				st.TotalRemit += m.Amount
			}
		case store.MovementVoided:
			st.Voided++
		}
	}
	return st, nil
}

func (s *Service) emit(ctx context.Context, m store.CashMovement) {
	s.metrics.CashMovement(string(m.Kind), string(m.Status))
	s.log.Info("cash movement recorded",
		zap.String("movement_id", m.ID),
		zap.String("kind", string(m.Kind)),
		zap.String("status", string(m.Status)),
		zap.Int("teller_no", m.TellerNo),
		zap.Int64("amount_cents", m.Amount),
	)
	s.pub.Publish(ctx, topics.CashMovements, m.EventID, events.CashMovement{
		MovementID:  m.ID,
		EventID:     m.EventID,
		TellerID:    m.TellerID,
		TellerNo:    m.TellerNo,
		RunnerID:    m.RunnerID,
		Kind:        string(m.Kind),
		Status:      string(m.Status),
		AmountCents: m.Amount,
		Ts:          s.now().UTC(),
	})
}
