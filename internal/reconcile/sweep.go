// Package reconcile calcula quanto dinheiro um caixa deveria ter em mãos num
// evento, varrendo em ordem as apostas e movimentações até cada corte.
// Nada aqui grava estado: o resultado é recalculado a partir dos registros.
package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/fight-ledger/internal/shared/apperr"
	"github.com/radieske/fight-ledger/internal/shared/money"
	"github.com/radieske/fight-ledger/internal/store"
)

// SignConvention define como depósitos e retiradas entram no on-hand
type SignConvention string

const (
	// (apostado - pago) - (depósitos - retiradas)
	FloatOwed SignConvention = "float"
	// (apostado - pago) + (depósitos - retiradas)
	CashInDrawer SignConvention = "drawer"
)

// ParseSign lê o valor de ONHAND_SIGN
func ParseSign(s string) (SignConvention, error) {
	switch SignConvention(s) {
	case FloatOwed, CashInDrawer:
		return SignConvention(s), nil
	}
	return "", apperr.Validation("reconcile.ParseSign", fmt.Sprintf("unknown sign convention %q", s))
}

// Totals são os acumulados da varredura, em unidades mínimas
type Totals struct {
	Staked      int64
	PaidOut     int64
	Deposits    int64
	Withdrawals int64
}

// OnHand aplica a convenção de sinal e devolve o valor com duas casas
func (t Totals) OnHand(sign SignConvention) decimal.Decimal {
	wagering := t.Staked - t.PaidOut
	cash := t.Deposits - t.Withdrawals
	if sign == CashInDrawer {
		return money.ToDecimal(wagering + cash)
	}
	return money.ToDecimal(wagering - cash)
}

// Position é o on-hand de um caixa num corte
type Position struct {
	EventID  string
	TellerNo int
	Cutoff   time.Time
	Totals
	OnHand decimal.Decimal
	Sign   SignConvention
}

// Sweep mantém um cursor por sequência; Advance só anda para frente
type Sweep struct {
	bets   []store.BetFlow
	moves  []store.MovementFlow
	bi, mi int
	totals Totals
}

// NewSweep ordena cópias das sequências por (created_at, id)
func NewSweep(bets []store.BetFlow, moves []store.MovementFlow) *Sweep {
	b := append([]store.BetFlow(nil), bets...)
	sort.SliceStable(b, func(i, j int) bool { return before(b[i].CreatedAt, b[i].ID, b[j].CreatedAt, b[j].ID) })
	m := append([]store.MovementFlow(nil), moves...)
	sort.SliceStable(m, func(i, j int) bool { return before(m[i].CreatedAt, m[i].ID, m[j].CreatedAt, m[j].ID) })
	return &Sweep{bets: b, moves: m}
}

func before(ta time.Time, ida string, tb time.Time, idb string) bool {
	if !ta.Equal(tb) {
		return ta.Before(tb)
	}
	return ida < idb
}

// Advance consome tudo com created_at <= cutoff e devolve os acumulados.
// Um cutoff anterior ao último não desfaz nada.
func (s *Sweep) Advance(cutoff time.Time) Totals {
	for s.bi < len(s.bets) && !s.bets[s.bi].CreatedAt.After(cutoff) {
		b := s.bets[s.bi]
		s.totals.Staked += b.Amount
		s.totals.PaidOut += b.Payout
		s.bi++
	}
	for s.mi < len(s.moves) && !s.moves[s.mi].CreatedAt.After(cutoff) {
		m := s.moves[s.mi]
		if m.Status == store.MovementCompleted {
			switch m.Kind {
			case store.KindTopup:
				s.totals.Deposits += m.Amount
			case store.KindRemit:
				s.totals.Withdrawals += m.Amount
			}
		}
		s.mi++
	}
	return s.totals
}

// Run calcula uma posição por corte, na ordem crescente dos cortes
func Run(bets []store.BetFlow, moves []store.MovementFlow, cutoffs []time.Time, sign SignConvention) []Position {
	cs := append([]time.Time(nil), cutoffs...)
	sort.Slice(cs, func(i, j int) bool { return cs[i].Before(cs[j]) })

	sw := NewSweep(bets, moves)
	out := make([]Position, 0, len(cs))
	for _, c := range cs {
		t := sw.Advance(c)
		out = append(out, Position{Cutoff: c, Totals: t, OnHand: t.OnHand(sign), Sign: sign})
	}
	return out
}
