package topics

const (
	// Lutas
	FightUpdates  = "fight_updates"
	PartialStates = "fight_partial_states"

	// Apostas
	BetPlaced   = "bet_placed"
	BetsSettled = "bets_settled"

	// Caixa (runner / teller)
	CashMovements = "cash_movements"

	// Canal Redis Pub/Sub consumido pelo ws-gateway
	BroadcastChannel = "fight_updates_broadcast"
)
