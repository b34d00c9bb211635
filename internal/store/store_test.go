package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/fight-ledger/internal/shared/apperr"
	"github.com/radieske/fight-ledger/internal/shared/db"
)

var errBoom = errors.New("boom")

// stores devolve as implementações a exercitar; Postgres só com TEST_POSTGRES_DSN
func stores(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{"memory": NewMemory()}

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		return out
	}
	conn, err := db.ConnectPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.EnsureSchema(context.Background(), conn, Schema))
	out["postgres"] = NewPostgres(conn)
	return out
}

type fixture struct {
	account Account
	event   GameEvent
	fight   Fight
}

func seed(t *testing.T, s Store, credits int64) fixture {
	t.Helper()
	var fx fixture
	err := s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
		fx.account = Account{Username: "teller-" + uuid.NewString(), TellerNo: 7, Role: RoleCashinTeller, Credits: credits}
		if err := tx.CreateAccount(ctx, &fx.account); err != nil {
			return err
		}
		fx.event = GameEvent{Name: "Friday Derby", EventDate: time.Now().UTC()}
		if err := tx.CreateEvent(ctx, &fx.event); err != nil {
			return err
		}
		fx.fight = Fight{EventID: fx.event.ID, FightNumber: 1, Status: FightOpen}
		return tx.InsertFight(ctx, &fx.fight)
	})
	require.NoError(t, err)
	return fx
}

func TestRollbackDiscardsWrites(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			fx := seed(t, s, 1000)
			ctx := context.Background()

			err := s.WithTx(ctx, func(ctx context.Context, tx Tx) error {
				if _, err := tx.AdjustCredits(ctx, fx.account.ID, 500); err != nil {
					return err
				}
				return errBoom
			})
			require.ErrorIs(t, err, errBoom)

			require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx Tx) error {
				a, err := tx.GetAccount(ctx, fx.account.ID)
				require.NoError(t, err)
				assert.Equal(t, int64(1000), a.Credits)
				return nil
			}))
		})
	}
}

func TestAdjustCreditsNeverNegative(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			fx := seed(t, s, 100)
			err := s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
				bal, err := tx.AdjustCredits(ctx, fx.account.ID, -100)
				require.NoError(t, err)
				assert.Equal(t, int64(0), bal)

				_, err = tx.AdjustCredits(ctx, fx.account.ID, -1)
				assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)

				_, err = tx.AdjustCredits(ctx, uuid.NewString(), 10)
				assert.ErrorIs(t, err, apperr.ErrNotFound)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestSettleBetIsCompareAndSwap(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			fx := seed(t, s, 0)
			err := s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
				b := Bet{FightID: fx.fight.ID, UserID: fx.account.ID, Side: SideMeron, Amount: 10000}
				require.NoError(t, tx.InsertBet(ctx, &b))

				moved, err := tx.SettleBet(ctx, b.ID, BetWon, 18500)
				require.NoError(t, err)
				assert.True(t, moved)

				moved, err = tx.SettleBet(ctx, b.ID, BetLost, 0)
				require.NoError(t, err)
				assert.False(t, moved)

				got, err := tx.GetBet(ctx, b.ID)
				require.NoError(t, err)
				assert.Equal(t, BetWon, got.Status)
				assert.Equal(t, int64(18500), got.Payout)
				assert.True(t, got.Settled)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestOneLiveFightPerEvent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			fx := seed(t, s, 0)
			err := s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
				return tx.InsertFight(ctx, &Fight{EventID: fx.event.ID, FightNumber: 2, Status: FightWaiting})
			})
			assert.ErrorIs(t, err, apperr.ErrConcurrencyConflict)
		})
	}
}

func TestPoolsAndPendingOdds(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			fx := seed(t, s, 0)
			err := s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
				for _, b := range []Bet{
					{FightID: fx.fight.ID, UserID: fx.account.ID, Side: SideMeron, Amount: 100000},
					{FightID: fx.fight.ID, UserID: fx.account.ID, Side: SideWala, Amount: 30000},
					{FightID: fx.fight.ID, UserID: fx.account.ID, Side: SideWala, Amount: 20000},
				} {
					b := b
					require.NoError(t, tx.InsertBet(ctx, &b))
				}

				sums, err := tx.SumStakesBySide(ctx, fx.fight.ID)
				require.NoError(t, err)
				assert.Equal(t, int64(100000), sums[SideMeron])
				assert.Equal(t, int64(50000), sums[SideWala])

				n, err := tx.SetPendingOdds(ctx, fx.fight.ID, SideWala, decimal.RequireFromString("285.00"))
				require.NoError(t, err)
				assert.Equal(t, int64(2), n)

				bets, err := tx.ListBets(ctx, BetFilter{FightID: fx.fight.ID})
				require.NoError(t, err)
				require.Len(t, bets, 3)
				for _, b := range bets {
					if b.Side == SideWala {
						assert.True(t, b.Odds.Equal(decimal.NewFromInt(285)), b.Odds.String())
					} else {
						assert.True(t, b.Odds.IsZero())
					}
				}
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestTellerFlowsAreOrdered(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			fx := seed(t, s, 0)
			base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
			err := s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
				late := CashMovement{EventID: fx.event.ID, TellerID: fx.account.ID, TellerNo: 7,
					Amount: 300, Kind: KindRemit, Status: MovementCompleted, CreatedAt: base.Add(time.Hour)}
				early := CashMovement{EventID: fx.event.ID, TellerID: fx.account.ID, TellerNo: 7,
					Amount: 1000, Kind: KindTopup, Status: MovementCompleted, CreatedAt: base}
				require.NoError(t, tx.InsertCashMovement(ctx, &late))
				require.NoError(t, tx.InsertCashMovement(ctx, &early))

				flows, err := tx.ListTellerMovementFlows(ctx, fx.event.ID, 7)
				require.NoError(t, err)
				require.Len(t, flows, 2)
				assert.Equal(t, early.ID, flows[0].ID)
				assert.Equal(t, late.ID, flows[1].ID)

				pairs, err := tx.ListTellerPairs(ctx, fx.event.ID)
				require.NoError(t, err)
				assert.Equal(t, []TellerPair{{EventID: fx.event.ID, TellerNo: 7}}, pairs)

				require.NoError(t, tx.SetOnHand(ctx, []OnHandUpdate{{MovementID: early.ID, OnHand: decimal.RequireFromString("-10.00")}}))
				got, err := tx.GetCashMovement(ctx, early.ID, false)
				require.NoError(t, err)
				require.True(t, got.OnHand.Valid)
				assert.Equal(t, "-10.00", got.OnHand.Decimal.StringFixed(2))
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestMemoryActivateEventKeepsOneOngoing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	var a, b GameEvent
	require.NoError(t, m.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		a = GameEvent{Name: "A", EventDate: time.Now()}
		b = GameEvent{Name: "B", EventDate: time.Now()}
		require.NoError(t, tx.CreateEvent(ctx, &a))
		require.NoError(t, tx.CreateEvent(ctx, &b))
		_, err := tx.ActivateEvent(ctx, a.ID)
		require.NoError(t, err)
		_, err = tx.ActivateEvent(ctx, b.ID)
		return err
	}))

	require.NoError(t, m.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		active, err := tx.ActiveEvent(ctx)
		require.NoError(t, err)
		assert.Equal(t, b.ID, active.ID)

		prev, err := tx.GetEvent(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, EventCompleted, prev.Status)
		return nil
	}))
}

func TestMemoryCancelledContextSkipsTx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewMemory().WithTx(ctx, func(context.Context, Tx) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDuplicateUsernameIsValidation(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			username := "runner-" + uuid.NewString()
			require.NoError(t, s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
				return tx.CreateAccount(ctx, &Account{Username: username, Role: RoleRunner})
			}))

			err := s.WithTx(context.Background(), func(ctx context.Context, tx Tx) error {
				return tx.CreateAccount(ctx, &Account{Username: username, Role: RoleRunner})
			})
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.NotErrorIs(t, err, apperr.ErrConcurrencyConflict)
		})
	}
}
