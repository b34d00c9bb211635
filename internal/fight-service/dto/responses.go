package dto

import "time"

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Entity    string `json:"entity,omitempty"`
	ID        string `json:"id,omitempty"`
	Retryable bool   `json:"retryable"`
}

type EventResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	EventDate time.Time `json:"eventDate"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type FightResponse struct {
	ID              string     `json:"id"`
	EventID         string     `json:"eventId"`
	FightNumber     int        `json:"fightNumber"`
	Status          string     `json:"status"`
	Winner          string     `json:"winner,omitempty"`
	Meron           string     `json:"meron"`
	Wala            string     `json:"wala"`
	PercentageMeron string     `json:"percentageMeron"`
	PercentageWala  string     `json:"percentageWala"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	SettledAt       *time.Time `json:"settledAt,omitempty"`
}

type SettlementResponse struct {
	Winner      string `json:"winner"`
	Processed   int    `json:"processed"`
	Won         int    `json:"won"`
	Lost        int    `json:"lost"`
	Void        int    `json:"void"`
	TotalPayout string `json:"totalPayout"`
}

type ResolutionResponse struct {
	Fight      FightResponse      `json:"fight"`
	Next       *FightResponse     `json:"next,omitempty"`
	Settlement SettlementResponse `json:"settlement"`
}

type PartialStateResponse struct {
	FightNumber int  `json:"fightNumber"`
	Meron       bool `json:"meron"`
	Wala        bool `json:"wala"`
}

type BetResponse struct {
	ID        string    `json:"id"`
	FightID   string    `json:"fightId"`
	UserID    string    `json:"userId"`
	TellerNo  int       `json:"tellerNo"`
	Side      string    `json:"side"`
	Amount    string    `json:"amount"`
	Odds      string    `json:"odds"`
	Payout    string    `json:"payout"`
	Status    string    `json:"status"`
	Settled   bool      `json:"settled"`
	CreatedAt time.Time `json:"createdAt"`
}

type PlaceBetResponse struct {
	Bet     BetResponse `json:"bet"`
	Credits string      `json:"credits"`
}

type MovementResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId,omitempty"`
	TellerID  string    `json:"tellerId"`
	TellerNo  int       `json:"tellerNo"`
	RunnerID  string    `json:"runnerId,omitempty"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Amount    string    `json:"amount"`
	OnHand    *string   `json:"onHand,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type CashResponse struct {
	Movement MovementResponse `json:"movement"`
	Credits  string           `json:"credits"`
}

type RunnerStatsResponse struct {
	RunnerID   string `json:"runnerId"`
	TotalTopup string `json:"totalTopup"`
	TotalRemit string `json:"totalRemit"`
	Pending    int    `json:"pending"`
	Processing int    `json:"processing"`
	Completed  int    `json:"completed"`
	Voided     int    `json:"voided"`
	Total      int    `json:"total"`
}

type PositionResponse struct {
	EventID     string    `json:"eventId"`
	TellerNo    int       `json:"tellerNo"`
	Cutoff      time.Time `json:"cutoff"`
	MovementID  string    `json:"movementId,omitempty"`
	Staked      string    `json:"staked"`
	PaidOut     string    `json:"paidOut"`
	Deposits    string    `json:"deposits"`
	Withdrawals string    `json:"withdrawals"`
	OnHand      string    `json:"onHand"`
	Sign        string    `json:"sign"`
}
