package events

import "time"

// Evento publicado no tópico "bet_placed" após a aposta ser gravada
type BetPlaced struct {
	BetID       string    `json:"bet_id"`
	FightID     string    `json:"fight_id"`
	EventID     string    `json:"event_id"`
	FightNumber int       `json:"fight_number"`
	UserID      string    `json:"user_id"`
	TellerNo    int       `json:"teller_no"`
	Side        string    `json:"side"`         // "meron" | "wala"
	AmountCents int64     `json:"amount_cents"` // unidades mínimas
	Odds        string    `json:"odds"`         // percentual cotado, ex: "185.25"
	Ts          time.Time `json:"ts"`
}
