// Package fight implementa o ciclo de vida das lutas de um evento:
//
//	waiting -> open -> closed -> completed
//	   \________\________\____-> cancelled
//
// completed e cancelled são terminais e disparam a liquidação. Uma nova luta
// só nasce quando a anterior do evento está terminal e liquidada.
package fight

import (
	"github.com/radieske/fight-ledger/internal/shared/apperr"
	"github.com/radieske/fight-ledger/internal/store"
)

var transitions = map[store.FightStatus][]store.FightStatus{
	store.FightWaiting: {store.FightOpen, store.FightCancelled},
	store.FightOpen:    {store.FightClosed, store.FightCancelled},
	store.FightClosed:  {store.FightCompleted, store.FightCancelled},
}

// CanTransition informa se from -> to é uma transição válida
func CanTransition(from, to store.FightStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(op string, f store.Fight, to store.FightStatus) error {
	if !CanTransition(f.Status, to) {
		return apperr.InvalidState(op, "fight", f.ID, "cannot move fight from "+string(f.Status)+" to "+string(to))
	}
	return nil
}

// ResolveOutcome normaliza o par (vencedor, status) de um declare-winner.
// Vencedor "cancelled" equivale a status cancelled; meron/wala/draw levam a
// completed. Status vazio é inferido do vencedor.
func ResolveOutcome(winner store.Winner, status store.FightStatus) (store.FightStatus, store.Winner, error) {
	const op = "fight.DeclareWinner"

	if winner == store.WinnerNone && status == store.FightCancelled {
		winner = store.WinnerCancelled
	}
	if !winner.Valid() {
		return "", "", apperr.Validation(op, "winner must be one of meron, wala, draw, cancelled")
	}

	target := store.FightCompleted
	if winner == store.WinnerCancelled {
		target = store.FightCancelled
	}
	switch status {
	case "", target:
		return target, winner, nil
	case store.FightCompleted, store.FightCancelled:
		return "", "", apperr.Validation(op, "winner "+string(winner)+" does not match status "+string(status))
	default:
		return "", "", apperr.Validation(op, "status must be completed or cancelled")
	}
}

// CheckNext valida a criação da luta seguinte a prev
func CheckNext(prev store.Fight) error {
	const op = "fight.Create"
	if !prev.Status.Terminal() {
		return apperr.InvalidState(op, "fight", prev.ID, "previous fight is not finished")
	}
	if prev.SettledAt == nil {
		return apperr.InvalidState(op, "fight", prev.ID, "previous fight is not settled")
	}
	return nil
}
