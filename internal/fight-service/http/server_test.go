package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/radieske/fight-ledger/internal/broadcast"
	"github.com/radieske/fight-ledger/internal/cashier"
	"github.com/radieske/fight-ledger/internal/fight"
	"github.com/radieske/fight-ledger/internal/fight-service/dto"
	"github.com/radieske/fight-ledger/internal/odds"
	"github.com/radieske/fight-ledger/internal/partial"
	"github.com/radieske/fight-ledger/internal/reconcile"
	"github.com/radieske/fight-ledger/internal/settlement"
	"github.com/radieske/fight-ledger/internal/store"
	"github.com/radieske/fight-ledger/internal/wager"
)

type api struct {
	t       *testing.T
	h       http.Handler
	st      *store.Memory
	admin   store.Account
	teller  store.Account
	runner  store.Account
	eventID string
}

func newAPI(t *testing.T, perSec rate.Limit, burst int) *api {
	t.Helper()
	st := store.NewMemory()
	calc := odds.NewCalculator(decimal.NewFromInt(5))
	tracker := partial.NewTracker()
	pub := broadcast.Nop{}
	log := zap.NewNop()

	srv := NewServer(log, Deps{
		Fights:     fight.NewService(st, calc, settlement.NewProcessor(log, nil), tracker, pub, log),
		Wagers:     wager.NewService(st, calc, tracker, pub, log, nil),
		Cash:       cashier.NewService(st, pub, log, nil),
		Reconciler: reconcile.New(st, reconcile.FloatOwed),
	}, perSec, burst)

	a := &api{t: t, h: srv.Router(), st: st}
	require.NoError(t, st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		a.admin = store.Account{Username: "admin", Role: store.RoleAdmin}
		require.NoError(t, tx.CreateAccount(ctx, &a.admin))
		a.teller = store.Account{Username: "teller3", TellerNo: 3, Role: store.RoleCashinTeller, Credits: 100000}
		require.NoError(t, tx.CreateAccount(ctx, &a.teller))
		a.runner = store.Account{Username: "runner", Role: store.RoleRunner}
		return tx.CreateAccount(ctx, &a.runner)
	}))
	return a
}

func (a *api) do(method, path string, as store.Account, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if as.ID != "" {
		req.Header.Set(HeaderUserID, as.ID)
		req.Header.Set(HeaderRole, string(as.Role))
		req.Header.Set(HeaderTellerNo, strconv.Itoa(as.TellerNo))
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// openFight cria e ativa um evento e abre a luta 1
func (a *api) openFight() dto.FightResponse {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/events", a.admin, dto.CreateEventRequest{Name: "Derby"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[dto.EventResponse](a.t, rec)
	a.eventID = ev.ID

	rec = a.do(http.MethodPost, "/v1/events/"+ev.ID+"/activate", a.admin, nil)
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/v1/fights", a.admin, dto.CreateFightRequest{EventID: ev.ID})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	f := decode[dto.FightResponse](a.t, rec)
	assert.Equal(a.t, 1, f.FightNumber)

	rec = a.do(http.MethodPatch, "/v1/fights/"+f.ID+"/status", a.admin, dto.SetStatusRequest{Status: "open"})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[dto.FightResponse](a.t, rec)
}

func TestFightRoundTrip(t *testing.T) {
	a := newAPI(t, 0, 0)
	f := a.openFight()

	rec := a.do(http.MethodPost, "/v1/bets", a.teller, dto.PlaceBetRequest{FightID: f.ID, Side: "meron", Amount: "400.00"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode[dto.PlaceBetResponse](t, rec)
	assert.Equal(t, "600.00", placed.Credits)
	assert.Equal(t, 3, placed.Bet.TellerNo)

	rec = a.do(http.MethodPost, "/v1/bets", a.teller, dto.PlaceBetRequest{FightID: f.ID, Side: "wala", Amount: "200"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPatch, "/v1/fights/"+f.ID+"/status", a.admin, dto.SetStatusRequest{Status: "closed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	closed := decode[dto.FightResponse](t, rec)
	assert.Equal(t, "400.00", closed.Meron)
	assert.Equal(t, "142.50", closed.PercentageMeron)

	rec = a.do(http.MethodPost, "/v1/fights/"+f.ID+"/declare-winner", a.admin, dto.DeclareWinnerRequest{Winner: "meron"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[dto.ResolutionResponse](t, rec)
	assert.Equal(t, "completed", res.Fight.Status)
	assert.Equal(t, 2, res.Settlement.Processed)
	assert.Equal(t, "570.00", res.Settlement.TotalPayout)
	require.NotNil(t, res.Next)
	assert.Equal(t, 2, res.Next.FightNumber)

	rec = a.do(http.MethodPost, "/v1/fights/"+f.ID+"/declare-winner", a.admin, dto.DeclareWinnerRequest{Winner: "wala"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode[dto.ErrorResponse](t, rec)
	assert.Equal(t, "invalid_state", body.Error)
	assert.Equal(t, "fight", body.Entity)
	assert.Equal(t, f.ID, body.ID)
	assert.False(t, body.Retryable)

	rec = a.do(http.MethodGet, "/v1/fights/"+f.ID, store.Account{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "meron", decode[dto.FightResponse](t, rec).Winner)

	rec = a.do(http.MethodGet, "/v1/users/"+a.teller.ID+"/bets", store.Account{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bets := decode[[]dto.BetResponse](t, rec)
	require.Len(t, bets, 2)
	for _, b := range bets {
		if b.Side == "meron" {
			assert.Equal(t, "won", b.Status)
			assert.Equal(t, "570.00", b.Payout)
		} else {
			assert.Equal(t, "lost", b.Status)
			assert.Equal(t, "0.00", b.Payout)
		}
	}
}

func TestBetErrors(t *testing.T) {
	a := newAPI(t, 0, 0)
	f := a.openFight()

	rec := a.do(http.MethodPost, "/v1/bets", a.teller, dto.PlaceBetRequest{FightID: f.ID, Side: "draw", Amount: "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decode[dto.ErrorResponse](t, rec).Error)

	rec = a.do(http.MethodPost, "/v1/bets", a.teller, dto.PlaceBetRequest{FightID: f.ID, Side: "wala", Amount: "1.001"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/v1/bets", a.teller, dto.PlaceBetRequest{FightID: f.ID, Side: "wala", Amount: "5000"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "insufficient_funds", decode[dto.ErrorResponse](t, rec).Error)

	rec = a.do(http.MethodPost, "/v1/bets", a.teller, dto.PlaceBetRequest{FightID: "missing", Side: "wala", Amount: "5"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPost, "/v1/bets", store.Account{}, dto.PlaceBetRequest{FightID: f.ID, Side: "wala", Amount: "5"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPartialCloseBlocksSide(t *testing.T) {
	a := newAPI(t, 0, 0)
	f := a.openFight()

	rec := a.do(http.MethodPost, "/v1/fights/"+f.ID+"/partial", a.admin, dto.PartialCloseRequest{Side: "meron", Closed: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, dto.PartialStateResponse{FightNumber: 1, Meron: true}, decode[dto.PartialStateResponse](t, rec))

	rec = a.do(http.MethodPost, "/v1/bets", a.teller, dto.PlaceBetRequest{FightID: f.ID, Side: "meron", Amount: "10"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = a.do(http.MethodPost, "/v1/bets", a.teller, dto.PlaceBetRequest{FightID: f.ID, Side: "wala", Amount: "10"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(http.MethodGet, "/v1/fights/partial-states", store.Account{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[partial.Snapshot](t, rec).Total)
}

func TestRolesAreEnforced(t *testing.T) {
	a := newAPI(t, 0, 0)

	rec := a.do(http.MethodPost, "/v1/events", a.teller, dto.CreateEventRequest{Name: "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/v1/cash/topup", a.teller, dto.CashRequest{TellerID: a.teller.ID, Amount: "1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	req.Header.Set(HeaderTellerNo, "abc")
	out := httptest.NewRecorder()
	a.h.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestBetRateLimit(t *testing.T) {
	a := newAPI(t, rate.Every(time.Hour), 1)
	f := a.openFight()

	rec := a.do(http.MethodPost, "/v1/bets", a.teller, dto.PlaceBetRequest{FightID: f.ID, Side: "wala", Amount: "1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = a.do(http.MethodPost, "/v1/bets", a.teller, dto.PlaceBetRequest{FightID: f.ID, Side: "wala", Amount: "1"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.True(t, decode[dto.ErrorResponse](t, rec).Retryable)
}

func TestCashFlowAndOnHand(t *testing.T) {
	a := newAPI(t, 0, 0)
	a.openFight()

	rec := a.do(http.MethodPost, "/v1/cash/topup", a.runner, dto.CashRequest{TellerID: a.teller.ID, Amount: "250"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cash := decode[dto.CashResponse](t, rec)
	assert.Equal(t, "1250.00", cash.Credits)
	assert.Equal(t, a.eventID, cash.Movement.EventID)
	assert.Equal(t, a.runner.ID, cash.Movement.RunnerID)

	rec = a.do(http.MethodPost, "/v1/cash/requests", a.teller, dto.MovementRequest{Kind: "remit", Amount: "50"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decode[dto.MovementResponse](t, rec)
	assert.Equal(t, "pending", m.Status)

	rec = a.do(http.MethodPost, "/v1/cash/"+m.ID+"/assign", a.runner, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "processing", decode[dto.MovementResponse](t, rec).Status)

	rec = a.do(http.MethodPost, "/v1/cash/"+m.ID+"/confirm", a.runner, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decode[dto.MovementResponse](t, rec).Status)

	rec = a.do(http.MethodGet, "/v1/events/"+a.eventID+"/tellers/3/onhand", store.Account{}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pos := decode[dto.PositionResponse](t, rec)
	assert.Equal(t, "250.00", pos.Deposits)
	assert.Equal(t, "50.00", pos.Withdrawals)
	assert.Equal(t, "-200.00", pos.OnHand)
	assert.Equal(t, "float", pos.Sign)

	rec = a.do(http.MethodGet, "/v1/runners/"+a.runner.ID+"/stats", store.Account{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[dto.RunnerStatsResponse](t, rec)
	assert.Equal(t, 2, st.Completed)
	assert.Equal(t, "250.00", st.TotalTopup)
	assert.Equal(t, "50.00", st.TotalRemit)

	rec = a.do(http.MethodGet, "/v1/events/"+a.eventID+"/tellers/x/onhand", store.Account{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
