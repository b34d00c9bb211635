package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side é o lado apostado
type Side string

const (
	SideMeron Side = "meron"
	SideWala  Side = "wala"
)

func (s Side) Valid() bool { return s == SideMeron || s == SideWala }

// FightStatus é o status do ciclo de vida de uma luta
type FightStatus string

const (
	FightWaiting   FightStatus = "waiting"
	FightOpen      FightStatus = "open"
	FightClosed    FightStatus = "closed"
	FightCompleted FightStatus = "completed"
	FightCancelled FightStatus = "cancelled"
)

// Terminal indica status final (completed/cancelled)
func (s FightStatus) Terminal() bool { return s == FightCompleted || s == FightCancelled }

// Winner é o resultado declarado de uma luta
type Winner string

const (
	WinnerNone      Winner = ""
	WinnerMeron     Winner = "meron"
	WinnerWala      Winner = "wala"
	WinnerDraw      Winner = "draw"
	WinnerCancelled Winner = "cancelled" // luta anulada
)

func (w Winner) Valid() bool {
	switch w {
	case WinnerMeron, WinnerWala, WinnerDraw, WinnerCancelled:
		return true
	}
	return false
}

// BetStatus é o status de liquidação de uma aposta
type BetStatus string

const (
	BetPending BetStatus = "pending"
	BetWon     BetStatus = "won"
	BetLost    BetStatus = "lost"
	BetVoid    BetStatus = "void"
)

// MovementKind é o tipo de movimentação de caixa
type MovementKind string

const (
	KindTopup MovementKind = "topup" // depósito no caixa
	KindRemit MovementKind = "remit" // retirada do caixa
)

func (k MovementKind) Valid() bool { return k == KindTopup || k == KindRemit }

// MovementStatus é o status de uma movimentação de caixa
type MovementStatus string

const (
	MovementPending    MovementStatus = "pending"
	MovementProcessing MovementStatus = "processing"
	MovementCompleted  MovementStatus = "completed"
	MovementVoided     MovementStatus = "voided"
)

// EventStatus é o status de um evento (noite de lutas)
type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// Role é o papel de uma conta
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleCashinTeller  Role = "cashinTeller"
	RoleCashoutTeller Role = "cashoutTeller"
	RoleRunner        Role = "runner"
	RoleController    Role = "controller"
)

// IsTeller indica papéis que podem receber topup/remit
func (r Role) IsTeller() bool {
	return r == RoleCashinTeller || r == RoleCashoutTeller || r == RoleAdmin
}

// Account é uma conta (caixa, runner, controlador). Credits em unidades mínimas.
type Account struct {
	ID        string
	Username  string
	TellerNo  int
	Role      Role
	Credits   int64
	CreatedAt time.Time
}

// GameEvent agrupa a sequência de lutas de uma noite
type GameEvent struct {
	ID        string
	Name      string
	Location  string
	EventDate time.Time
	Status    EventStatus
	CreatedBy string
	CreatedAt time.Time
}

// Fight é uma rodada de apostas dentro de um evento
type Fight struct {
	ID          string
	EventID     string
	FightNumber int
	MeronPool   int64 // unidades mínimas, preenchido no fechamento
	WalaPool    int64
	Status      FightStatus
	Winner      Winner
	CreatedBy   string
	StartTime   time.Time
	EndTime     *time.Time // resolução
	SettledAt   *time.Time // liquidação das apostas concluída
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Bet é uma aposta em um lado de uma luta
type Bet struct {
	ID        string
	FightID   string
	UserID    string
	TellerNo  int
	Side      Side
	Amount    int64           // unidades mínimas
	Odds      decimal.Decimal // percentual, ex: 185.50
	Payout    int64
	Status    BetStatus
	Settled   bool // separado do status para impedir pagamento duplo
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CashMovement é uma movimentação de caixa feita (ou pedida) via runner
type CashMovement struct {
	ID        string
	EventID   string // vazio quando não associado a evento
	TellerID  string
	TellerNo  int
	RunnerID  string // vazio quando não atribuído
	Amount    int64
	Kind      MovementKind
	Status    MovementStatus
	OnHand    decimal.NullDecimal // snapshot derivado, só para exibição
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BetFlow é a projeção de uma aposta usada pelo reconciliador
type BetFlow struct {
	ID        string
	Amount    int64
	Payout    int64
	CreatedAt time.Time
}

// MovementFlow é a projeção de uma movimentação usada pelo reconciliador
type MovementFlow struct {
	ID        string
	Amount    int64
	Kind      MovementKind
	Status    MovementStatus
	CreatedAt time.Time
}

// TellerPair identifica um caixa dentro de um evento
type TellerPair struct {
	EventID  string
	TellerNo int
}

// OnHandUpdate grava o snapshot de on-hand em uma movimentação
type OnHandUpdate struct {
	MovementID string
	OnHand     decimal.Decimal
}

// BetFilter filtra apostas; campos vazios não filtram
type BetFilter struct {
	FightID string
	UserID  string
	Status  BetStatus
}

// MovementFilter filtra movimentações; campos vazios não filtram
type MovementFilter struct {
	EventID  string
	TellerID string
	RunnerID string
	Kind     MovementKind
	Status   MovementStatus
}
