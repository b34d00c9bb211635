package store

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store agrupa operações em transações. Tudo que o domínio faz no banco
// passa por WithTx: ou tudo é aplicado, ou nada.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx são as operações disponíveis dentro de uma transação
type Tx interface {
	// Contas
	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, id string) (Account, error)
	// AdjustCredits soma delta ao saldo de forma atômica; nunca deixa negativo
	AdjustCredits(ctx context.Context, id string, delta int64) (int64, error)

	// Eventos
	CreateEvent(ctx context.Context, e *GameEvent) error
	GetEvent(ctx context.Context, id string) (GameEvent, error)
	ListEvents(ctx context.Context) ([]GameEvent, error)
	ActiveEvent(ctx context.Context) (GameEvent, error)
	// ActivateEvent marca o evento como ongoing e encerra os demais ongoing
	ActivateEvent(ctx context.Context, id string) (GameEvent, error)

	// Lutas
	InsertFight(ctx context.Context, f *Fight) error
	GetFight(ctx context.Context, id string, forUpdate bool) (Fight, error)
	LatestFight(ctx context.Context, eventID string, forUpdate bool) (Fight, error)
	ListFights(ctx context.Context, eventID string) ([]Fight, error)
	UpdateFight(ctx context.Context, f Fight) error

	// Apostas
	InsertBet(ctx context.Context, b *Bet) error
	GetBet(ctx context.Context, id string) (Bet, error)
	ListBets(ctx context.Context, f BetFilter) ([]Bet, error)
	ListPendingBets(ctx context.Context, fightID string) ([]Bet, error)
	SumStakesBySide(ctx context.Context, fightID string) (map[Side]int64, error)
	SetPendingOdds(ctx context.Context, fightID string, side Side, odds decimal.Decimal) (int64, error)
	// SettleBet faz CAS pending -> status; false se a aposta já saiu de pending
	SettleBet(ctx context.Context, id string, status BetStatus, payout int64) (bool, error)
	ListTellerBetFlows(ctx context.Context, eventID string, tellerNo int) ([]BetFlow, error)

	// Movimentações de caixa
	InsertCashMovement(ctx context.Context, m *CashMovement) error
	GetCashMovement(ctx context.Context, id string, forUpdate bool) (CashMovement, error)
	UpdateCashMovement(ctx context.Context, m CashMovement) error
	ListCashMovements(ctx context.Context, f MovementFilter) ([]CashMovement, error)
	ListTellerMovementFlows(ctx context.Context, eventID string, tellerNo int) ([]MovementFlow, error)
	// ListTellerPairs lista pares (evento, caixa) com movimentações; eventID vazio = todos
	ListTellerPairs(ctx context.Context, eventID string) ([]TellerPair, error)
	SetOnHand(ctx context.Context, updates []OnHandUpdate) error
}
