package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorsCount(t *testing.T) {
	c := NewCollectors(prometheus.NewRegistry())

	c.BetPlaced("meron")
	c.BetPlaced("meron")
	c.Settled("won", 1)
	c.Settled("lost", 0)
	c.PaidOut(28500)
	c.CashMovement("topup", "completed")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.BetsPlaced.WithLabelValues("meron")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Settlements.WithLabelValues("won")))
	assert.Equal(t, 28500.0, testutil.ToFloat64(c.SettlementPayout))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Settlements.WithLabelValues("lost")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CashMovements.WithLabelValues("topup", "completed")))
}

func TestNilCollectorsAreNoop(t *testing.T) {
	var c *Collectors
	assert.NotPanics(t, func() {
		c.BetPlaced("wala")
		c.FightTransition("open")
		c.Settled("void", 1)
		c.PaidOut(100)
		c.CashMovement("remit", "voided")
		c.OnHandRefreshed("ok")
		c.BroadcastFailed("redis")
	})
}
