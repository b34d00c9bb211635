package events

import "time"

// Evento emitido quando todas as apostas de uma luta foram liquidadas
type BetsSettled struct {
	FightID          string    `json:"fight_id"`
	EventID          string    `json:"event_id"`
	FightNumber      int       `json:"fight_number"`
	Winner           string    `json:"winner"` // meron | wala | draw | cancelled
	ProcessedBets    int       `json:"processed_bets"`
	TotalPayoutCents int64     `json:"total_payout_cents"`
	TellerNos        []int     `json:"teller_nos"` // caixas afetados (recalcular on-hand)
	Ts               time.Time `json:"ts"`
}
