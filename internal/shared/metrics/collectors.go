package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors concentra os contadores de negócio do ledger. Métodos aceitam
// receptor nil, assim os serviços de domínio funcionam sem métricas (testes).
type Collectors struct {
	BetsPlaced       *prometheus.CounterVec // side
	FightTransitions *prometheus.CounterVec // to
	Settlements      *prometheus.CounterVec // outcome
	SettlementPayout prometheus.Counter
	CashMovements    *prometheus.CounterVec // kind, status
	OnHandRefresh    *prometheus.CounterVec // result
	BroadcastErrors  *prometheus.CounterVec // sink
}

// NewCollectors cria e registra os contadores em reg
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		BetsPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fightledger_bets_placed_total", Help: "apostas aceitas por lado",
		}, []string{"side"}),
		FightTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fightledger_fight_transitions_total", Help: "transições de status de luta",
		}, []string{"to"}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fightledger_settlements_total", Help: "apostas liquidadas por resultado",
		}, []string{"outcome"}),
		SettlementPayout: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fightledger_settlement_payout_minor_total", Help: "total pago em unidades mínimas",
		}),
		CashMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fightledger_cash_movements_total", Help: "movimentações de caixa por tipo e status",
		}, []string{"kind", "status"}),
		OnHandRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fightledger_onhand_refresh_total", Help: "recálculos de on-hand por resultado",
		}, []string{"result"}),
		BroadcastErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fightledger_broadcast_errors_total", Help: "falhas de publicação por destino",
		}, []string{"sink"}),
	}
	reg.MustRegister(c.BetsPlaced, c.FightTransitions, c.Settlements, c.SettlementPayout,
		c.CashMovements, c.OnHandRefresh, c.BroadcastErrors)
	return c
}

func (c *Collectors) BetPlaced(side string) {
	if c != nil {
		c.BetsPlaced.WithLabelValues(side).Inc()
	}
}

func (c *Collectors) FightTransition(to string) {
	if c != nil {
		c.FightTransitions.WithLabelValues(to).Inc()
	}
}

// Settled soma n apostas liquidadas com o resultado dado
func (c *Collectors) Settled(outcome string, n int) {
	if c != nil && n > 0 {
		c.Settlements.WithLabelValues(outcome).Add(float64(n))
	}
}

func (c *Collectors) PaidOut(minor int64) {
	if c != nil && minor > 0 {
		c.SettlementPayout.Add(float64(minor))
	}
}

func (c *Collectors) CashMovement(kind, status string) {
	if c != nil {
		c.CashMovements.WithLabelValues(kind, status).Inc()
	}
}

func (c *Collectors) OnHandRefreshed(result string) {
	if c != nil {
		c.OnHandRefresh.WithLabelValues(result).Inc()
	}
}

func (c *Collectors) BroadcastFailed(sink string) {
	if c != nil {
		c.BroadcastErrors.WithLabelValues(sink).Inc()
	}
}
