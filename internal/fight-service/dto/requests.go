package dto

import "time"

// Valores monetários entram como string decimal ("100.50") e são convertidos
// para unidades mínimas na borda.

type CreateEventRequest struct {
	Name      string     `json:"name" validate:"required,max=120"`
	Location  string     `json:"location" validate:"max=120"`
	EventDate *time.Time `json:"eventDate"`
}

type CreateFightRequest struct {
	EventID string `json:"eventId" validate:"required"`
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open closed completed cancelled"`
}

type DeclareWinnerRequest struct {
	Winner string `json:"winner" validate:"required,oneof=meron wala draw cancelled"`
	Status string `json:"status" validate:"omitempty,oneof=completed cancelled"`
}

type PartialCloseRequest struct {
	Side   string `json:"side" validate:"required,oneof=meron wala"`
	Closed bool   `json:"closed"`
}

type PlaceBetRequest struct {
	FightID string `json:"fightId" validate:"required"`
	Side    string `json:"side" validate:"required,oneof=meron wala"`
	Amount  string `json:"amount" validate:"required"`
}

// CashRequest é usado por topup/remit síncronos; o runner é quem chama
type CashRequest struct {
	TellerID string `json:"tellerId" validate:"required"`
	Amount   string `json:"amount" validate:"required"`
}

// MovementRequest abre uma movimentação pendente em nome do teller autenticado
type MovementRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=topup remit"`
	Amount string `json:"amount" validate:"required"`
}

type AssignRequest struct {
	RunnerID string `json:"runnerId"` // vazio = runner autenticado
}
