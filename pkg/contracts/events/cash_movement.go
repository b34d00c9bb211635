package events

import "time"

// Movimentação de caixa (topup/remit) registrada ou com status alterado
type CashMovement struct {
	MovementID  string    `json:"movement_id"`
	EventID     string    `json:"event_id,omitempty"`
	TellerID    string    `json:"teller_id"`
	TellerNo    int       `json:"teller_no"`
	RunnerID    string    `json:"runner_id,omitempty"`
	Kind        string    `json:"kind"`   // "topup" | "remit"
	Status      string    `json:"status"` // pending | processing | completed | voided
	AmountCents int64     `json:"amount_cents"`
	Ts          time.Time `json:"ts"`
}
