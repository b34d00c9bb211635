package events

import "time"

// Snapshot de uma luta publicado a cada transição de status
type FightUpdate struct {
	FightID         string     `json:"fight_id"`
	EventID         string     `json:"event_id"`
	FightNumber     int        `json:"fight_number"`
	Status          string     `json:"status"`
	Winner          string     `json:"winner,omitempty"`
	MeronCents      int64      `json:"meron_cents"`
	WalaCents       int64      `json:"wala_cents"`
	PercentageMeron string     `json:"percentage_meron"`
	PercentageWala  string     `json:"percentage_wala"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Ts              time.Time  `json:"ts"`
}

// Mudança no fechamento parcial de um lado da luta atual
type PartialStateChanged struct {
	FightID     string    `json:"fight_id"`
	EventID     string    `json:"event_id"`
	FightNumber int       `json:"fight_number"`
	Meron       bool      `json:"meron"`
	Wala        bool      `json:"wala"`
	Ts          time.Time `json:"ts"`
}
