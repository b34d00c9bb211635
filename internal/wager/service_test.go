package wager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/broadcast"
	"github.com/radieske/fight-ledger/internal/odds"
	"github.com/radieske/fight-ledger/internal/partial"
	"github.com/radieske/fight-ledger/internal/shared/apperr"
	"github.com/radieske/fight-ledger/internal/shared/metrics"
	"github.com/radieske/fight-ledger/internal/store"
	"github.com/radieske/fight-ledger/pkg/contracts/events"
	"github.com/radieske/fight-ledger/pkg/contracts/topics"
)

type env struct {
	st      *store.Memory
	svc     *Service
	tracker *partial.Tracker
	pub     *broadcast.Recorder
	m       *metrics.Collectors
	bettor  store.Account
	fight   store.Fight
}

func setup(t *testing.T, credits int64, status store.FightStatus) *env {
	t.Helper()
	e := &env{
		st:      store.NewMemory(),
		tracker: partial.NewTracker(),
		pub:     &broadcast.Recorder{},
		m:       metrics.NewCollectors(prometheus.NewRegistry()),
	}
	e.svc = NewService(e.st, odds.NewCalculator(decimal.NewFromInt(5)), e.tracker, e.pub, zap.NewNop(), e.m)

	require.NoError(t, e.st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		e.bettor = store.Account{Username: "teller4", TellerNo: 4, Role: store.RoleCashinTeller, Credits: credits}
		require.NoError(t, tx.CreateAccount(ctx, &e.bettor))
		ev := store.GameEvent{Name: "Derby", EventDate: time.Now(), Status: store.EventOngoing}
		require.NoError(t, tx.CreateEvent(ctx, &ev))
		e.fight = store.Fight{EventID: ev.ID, FightNumber: 6, Status: status}
		return tx.InsertFight(ctx, &e.fight)
	}))
	return e
}

func (e *env) credits(t *testing.T) int64 {
	t.Helper()
	var c int64
	require.NoError(t, e.st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		a, err := tx.GetAccount(ctx, e.bettor.ID)
		c = a.Credits
		return err
	}))
	return c
}

func TestPlaceDebitsAndQuotes(t *testing.T) {
	e := setup(t, 200000, store.FightOpen)
	ctx := context.Background()

	_, err := e.svc.Place(ctx, Request{FightID: e.fight.ID, UserID: e.bettor.ID, Side: store.SideMeron, Amount: 100000})
	require.NoError(t, err)
	rc, err := e.svc.Place(ctx, Request{FightID: e.fight.ID, UserID: e.bettor.ID, Side: store.SideWala, Amount: 50000})
	require.NoError(t, err)

	assert.Equal(t, int64(50000), rc.Credits)
	assert.Equal(t, int64(50000), e.credits(t))
	assert.Equal(t, 4, rc.Bet.TellerNo)
	assert.Equal(t, store.BetPending, rc.Bet.Status)
	assert.Equal(t, "285.00", rc.Bet.Odds.StringFixed(2))

	placed := e.pub.Topic(topics.BetPlaced)
	require.Len(t, placed, 2)
	assert.Equal(t, "285.00", placed[1].Payload.(events.BetPlaced).Odds)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.m.BetsPlaced.WithLabelValues("wala")))

	bets, err := e.svc.ByFight(ctx, e.fight.ID)
	require.NoError(t, err)
	assert.Len(t, bets, 2)
}

func TestPlaceValidation(t *testing.T) {
	e := setup(t, 1000, store.FightOpen)
	ctx := context.Background()

	_, err := e.svc.Place(ctx, Request{FightID: e.fight.ID, UserID: e.bettor.ID, Side: "draw", Amount: 100})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = e.svc.Place(ctx, Request{FightID: e.fight.ID, UserID: e.bettor.ID, Side: store.SideMeron, Amount: 0})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = e.svc.Place(ctx, Request{FightID: "missing", UserID: e.bettor.ID, Side: store.SideMeron, Amount: 100})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPlaceRequiresOpenFight(t *testing.T) {
	e := setup(t, 1000, store.FightClosed)
	_, err := e.svc.Place(context.Background(), Request{FightID: e.fight.ID, UserID: e.bettor.ID, Side: store.SideMeron, Amount: 100})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.Equal(t, int64(1000), e.credits(t))
}

func TestPlaceInsufficientFunds(t *testing.T) {
	e := setup(t, 99, store.FightOpen)
	_, err := e.svc.Place(context.Background(), Request{FightID: e.fight.ID, UserID: e.bettor.ID, Side: store.SideMeron, Amount: 100})
	assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	bets, err := e.svc.ByUser(context.Background(), e.bettor.ID)
	require.NoError(t, err)
	assert.Empty(t, bets)
	assert.Empty(t, e.pub.Messages())
}

func TestPartiallyClosedSideRejects(t *testing.T) {
	e := setup(t, 1000, store.FightOpen)
	ctx := context.Background()
	_, err := e.tracker.Set(e.fight.FightNumber, store.SideMeron, true)
	require.NoError(t, err)

	_, err = e.svc.Place(ctx, Request{FightID: e.fight.ID, UserID: e.bettor.ID, Side: store.SideMeron, Amount: 100})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = e.svc.Place(ctx, Request{FightID: e.fight.ID, UserID: e.bettor.ID, Side: store.SideWala, Amount: 100})
	assert.NoError(t, err)
	assert.Equal(t, int64(900), e.credits(t))
}

func TestPartialStateIgnoredOutsideOngoingEvent(t *testing.T) {
	e := setup(t, 1000, store.FightOpen)
	ctx := context.Background()

	var other store.Fight
	require.NoError(t, e.st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		ev := store.GameEvent{Name: "Old Derby", EventDate: time.Now(), Status: store.EventCompleted}
		require.NoError(t, tx.CreateEvent(ctx, &ev))
		other = store.Fight{EventID: ev.ID, FightNumber: e.fight.FightNumber, Status: store.FightOpen}
		return tx.InsertFight(ctx, &other)
	}))
	_, err := e.tracker.Set(e.fight.FightNumber, store.SideMeron, true)
	require.NoError(t, err)

	_, err = e.svc.Place(ctx, Request{FightID: other.ID, UserID: e.bettor.ID, Side: store.SideMeron, Amount: 100})
	require.NoError(t, err)

	_, err = e.svc.Place(ctx, Request{FightID: e.fight.ID, UserID: e.bettor.ID, Side: store.SideMeron, Amount: 100})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestConcurrentStakesNeverOverdraw(t *testing.T) {
	e := setup(t, 1000, store.FightOpen)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.Place(ctx, Request{FightID: e.fight.ID, UserID: e.bettor.ID, Side: store.SideWala, Amount: 100})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	assert.Zero(t, e.credits(t))
}
