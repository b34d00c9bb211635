package reconcile

import (
	"context"
	"time"

	"github.com/radieske/fight-ledger/internal/shared/apperr"
	"github.com/radieske/fight-ledger/internal/store"
)

// Checkpoint é o on-hand logo após uma movimentação do caixa
type Checkpoint struct {
	MovementID string
	Position
}

type Reconciler struct {
	store store.Store
	sign  SignConvention
	now   func() time.Time
}

func New(st store.Store, sign SignConvention) *Reconciler {
	return &Reconciler{store: st, sign: sign, now: time.Now}
}

func (r *Reconciler) SetClock(now func() time.Time) { r.now = now }

func (r *Reconciler) Sign() SignConvention { return r.sign }

// Position calcula o on-hand até cutoff; cutoff zero significa agora
func (r *Reconciler) Position(ctx context.Context, eventID string, tellerNo int, cutoff time.Time) (Position, error) {
	var p Position
	err := r.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		p, err = r.PositionTx(ctx, tx, eventID, tellerNo, cutoff)
		return err
	})
	return p, err
}

func (r *Reconciler) PositionTx(ctx context.Context, tx store.Tx, eventID string, tellerNo int, cutoff time.Time) (Position, error) {
	if eventID == "" {
		return Position{}, apperr.Validation("reconcile.Position", "event id is required")
	}
	if _, err := tx.GetEvent(ctx, eventID); err != nil {
		return Position{}, err
	}
	if cutoff.IsZero() {
		cutoff = r.now().UTC()
	}
	bets, moves, err := flows(ctx, tx, eventID, tellerNo)
	if err != nil {
		return Position{}, err
	}
	p := Run(bets, moves, []time.Time{cutoff}, r.sign)[0]
	p.EventID, p.TellerNo = eventID, tellerNo
	return p, nil
}

// Checkpoints devolve uma posição por movimentação do caixa no evento,
// na ordem (created_at, id), com corte no created_at de cada uma
func (r *Reconciler) Checkpoints(ctx context.Context, eventID string, tellerNo int) ([]Checkpoint, error) {
	var out []Checkpoint
	err := r.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = r.CheckpointsTx(ctx, tx, eventID, tellerNo)
		return err
	})
	return out, err
}

func (r *Reconciler) CheckpointsTx(ctx context.Context, tx store.Tx, eventID string, tellerNo int) ([]Checkpoint, error) {
	bets, moves, err := flows(ctx, tx, eventID, tellerNo)
	if err != nil {
		return nil, err
	}

	sw := NewSweep(bets, moves)
	out := make([]Checkpoint, 0, len(sw.moves))
	for _, m := range sw.moves {
		t := sw.Advance(m.CreatedAt)
		out = append(out, Checkpoint{
			MovementID: m.ID,
			Position: Position{
				EventID:  eventID,
				TellerNo: tellerNo,
				Cutoff:   m.CreatedAt,
				Totals:   t,
				OnHand:   t.OnHand(r.sign),
				Sign:     r.sign,
			},
		})
	}
	return out, nil
}

func flows(ctx context.Context, tx store.Tx, eventID string, tellerNo int) ([]store.BetFlow, []store.MovementFlow, error) {
	bets, err := tx.ListTellerBetFlows(ctx, eventID, tellerNo)
	if err != nil {
		return nil, nil, err
	}
	moves, err := tx.ListTellerMovementFlows(ctx, eventID, tellerNo)
	if err != nil {
		return nil, nil, err
	}
	return bets, moves, nil
}
