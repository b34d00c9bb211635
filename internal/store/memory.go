package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/radieske/fight-ledger/internal/shared/apperr"
)

type memState struct {
	accounts  map[string]Account
	usernames map[string]string
	events    map[string]GameEvent
	fights    map[string]Fight
	bets      map[string]Bet
	movements map[string]CashMovement
}

func newMemState() *memState {
	return &memState{
		accounts:  map[string]Account{},
		usernames: map[string]string{},
		events:    map[string]GameEvent{},
		fights:    map[string]Fight{},
		bets:      map[string]Bet{},
		movements: map[string]CashMovement{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.usernames {
		c.usernames[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.fights {
		c.fights[k] = v
	}
	for k, v := range s.bets {
		c.bets[k] = v
	}
	for k, v := range s.movements {
		c.movements[k] = v
	}
	return c
}

// Memory é um Store em memória. Transações são serializadas por um mutex e
// trabalham sobre uma cópia do estado, que só substitui o original no commit.
type Memory struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{state: newMemState(), now: time.Now}
}

// SetClock troca o relógio usado para preencher timestamps vazios
func (m *Memory) SetClock(now func() time.Time) { m.now = now }

func (m *Memory) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{s: m.state.clone(), now: m.now}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = tx.s
	return nil
}

type memTx struct {
	s   *memState
	now func() time.Time
}

func (t *memTx) stamp(ts *time.Time) {
	if ts.IsZero() {
		*ts = t.now().UTC()
	}
}

func byCreated[T any](items []T, created func(T) time.Time, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return id(items[i]) < id(items[j])
	})
}

// --- contas ---

func (t *memTx) CreateAccount(_ context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, ok := t.s.accounts[a.ID]; ok {
		return apperr.E(apperr.ErrConcurrencyConflict, "store.CreateAccount", "account", a.ID, "duplicate id")
	}
	if _, ok := t.s.usernames[a.Username]; ok {
		return apperr.E(apperr.ErrValidation, "store.CreateAccount", "account", a.Username, "username taken")
	}
	if a.Credits < 0 {
		return apperr.Validation("store.CreateAccount", "credits must not be negative")
	}
	t.stamp(&a.CreatedAt)
	t.s.accounts[a.ID] = *a
	t.s.usernames[a.Username] = a.ID
	return nil
}

func (t *memTx) GetAccount(_ context.Context, id string) (Account, error) {
	a, ok := t.s.accounts[id]
	if !ok {
		return Account{}, apperr.NotFound("store.GetAccount", "account", id)
	}
	return a, nil
}

func (t *memTx) AdjustCredits(_ context.Context, id string, delta int64) (int64, error) {
	a, ok := t.s.accounts[id]
	if !ok {
		return 0, apperr.NotFound("store.AdjustCredits", "account", id)
	}
	if a.Credits+delta < 0 {
		return a.Credits, apperr.E(apperr.ErrInsufficientFunds, "store.AdjustCredits", "account", id, "")
	}
	a.Credits += delta
	t.s.accounts[id] = a
	return a.Credits, nil
}

// --- eventos ---

func (t *memTx) CreateEvent(_ context.Context, e *GameEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = EventUpcoming
	}
	if e.Status == EventOngoing {
		for _, other := range t.s.events {
			if other.Status == EventOngoing {
				return apperr.E(apperr.ErrConcurrencyConflict, "store.CreateEvent", "event", e.ID, "another event is ongoing")
			}
		}
	}
	t.stamp(&e.CreatedAt)
	t.s.events[e.ID] = *e
	return nil
}

func (t *memTx) GetEvent(_ context.Context, id string) (GameEvent, error) {
	e, ok := t.s.events[id]
	if !ok {
		return GameEvent{}, apperr.NotFound("store.GetEvent", "event", id)
	}
	return e, nil
}

func (t *memTx) ListEvents(_ context.Context) ([]GameEvent, error) {
	out := make([]GameEvent, 0, len(t.s.events))
	for _, e := range t.s.events {
		out = append(out, e)
	}
	// mais recentes primeiro
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EventDate.Equal(out[j].EventDate) {
			return out[i].EventDate.After(out[j].EventDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memTx) ActiveEvent(_ context.Context) (GameEvent, error) {
	for _, e := range t.s.events {
		if e.Status == EventOngoing {
			return e, nil
		}
	}
	return GameEvent{}, apperr.NotFound("store.ActiveEvent", "event", "ongoing")
}

func (t *memTx) ActivateEvent(_ context.Context, id string) (GameEvent, error) {
	e, ok := t.s.events[id]
	if !ok {
		return GameEvent{}, apperr.NotFound("store.ActivateEvent", "event", id)
	}
	for k, other := range t.s.events {
		if k != id && other.Status == EventOngoing {
			other.Status = EventCompleted
			t.s.events[k] = other
		}
	}
	e.Status = EventOngoing
	t.s.events[id] = e
	return e, nil
}

// --- lutas ---

func (t *memTx) InsertFight(_ context.Context, f *Fight) error {
	if _, ok := t.s.events[f.EventID]; !ok {
		return apperr.NotFound("store.InsertFight", "event", f.EventID)
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	for _, other := range t.s.fights {
		if other.EventID != f.EventID {
			continue
		}
		if other.FightNumber == f.FightNumber {
			return apperr.E(apperr.ErrConcurrencyConflict, "store.InsertFight", "fight", f.ID, "fight number already used")
		}
		if !other.Status.Terminal() && !f.Status.Terminal() {
			return apperr.E(apperr.ErrConcurrencyConflict, "store.InsertFight", "fight", f.ID, "event already has a live fight")
		}
	}
	t.stamp(&f.CreatedAt)
	t.stamp(&f.StartTime)
	f.UpdatedAt = f.CreatedAt
	t.s.fights[f.ID] = *f
	return nil
}

func (t *memTx) GetFight(_ context.Context, id string, _ bool) (Fight, error) {
	f, ok := t.s.fights[id]
	if !ok {
		return Fight{}, apperr.NotFound("store.GetFight", "fight", id)
	}
	return f, nil
}

func (t *memTx) LatestFight(_ context.Context, eventID string, _ bool) (Fight, error) {
	var (
		latest Fight
		found  bool
	)
	for _, f := range t.s.fights {
		if f.EventID == eventID && (!found || f.FightNumber > latest.FightNumber) {
			latest, found = f, true
		}
	}
	if !found {
		return Fight{}, apperr.NotFound("store.LatestFight", "fight", "event "+eventID)
	}
	return latest, nil
}

func (t *memTx) ListFights(_ context.Context, eventID string) ([]Fight, error) {
	out := []Fight{}
	for _, f := range t.s.fights {
		if eventID == "" || f.EventID == eventID {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EventID != out[j].EventID {
			return out[i].EventID < out[j].EventID
		}
		return out[i].FightNumber < out[j].FightNumber
	})
	return out, nil
}

func (t *memTx) UpdateFight(_ context.Context, f Fight) error {
	if _, ok := t.s.fights[f.ID]; !ok {
		return apperr.NotFound("store.UpdateFight", "fight", f.ID)
	}
	f.UpdatedAt = t.now().UTC()
	t.s.fights[f.ID] = f
	return nil
}

// --- apostas ---

func (t *memTx) InsertBet(_ context.Context, b *Bet) error {
	if _, ok := t.s.fights[b.FightID]; !ok {
		return apperr.NotFound("store.InsertBet", "fight", b.FightID)
	}
	if _, ok := t.s.accounts[b.UserID]; !ok {
		return apperr.NotFound("store.InsertBet", "account", b.UserID)
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = BetPending
	}
	t.stamp(&b.CreatedAt)
	b.UpdatedAt = b.CreatedAt
	t.s.bets[b.ID] = *b
	return nil
}

func (t *memTx) GetBet(_ context.Context, id string) (Bet, error) {
	b, ok := t.s.bets[id]
	if !ok {
		return Bet{}, apperr.NotFound("store.GetBet", "bet", id)
	}
	return b, nil
}

func (t *memTx) ListBets(_ context.Context, f BetFilter) ([]Bet, error) {
	out := []Bet{}
	for _, b := range t.s.bets {
		if f.FightID != "" && b.FightID != f.FightID {
			continue
		}
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, b)
	}
	byCreated(out, func(b Bet) time.Time { return b.CreatedAt }, func(b Bet) string { return b.ID })
	return out, nil
}

func (t *memTx) ListPendingBets(ctx context.Context, fightID string) ([]Bet, error) {
	return t.ListBets(ctx, BetFilter{FightID: fightID, Status: BetPending})
}

func (t *memTx) SumStakesBySide(_ context.Context, fightID string) (map[Side]int64, error) {
	sums := map[Side]int64{SideMeron: 0, SideWala: 0}
	for _, b := range t.s.bets {
		if b.FightID == fightID {
			sums[b.Side] += b.Amount
		}
	}
	return sums, nil
}

func (t *memTx) SetPendingOdds(_ context.Context, fightID string, side Side, odds decimal.Decimal) (int64, error) {
	var n int64
	for id, b := range t.s.bets {
		if b.FightID == fightID && b.Side == side && b.Status == BetPending {
			b.Odds = odds
			b.UpdatedAt = t.now().UTC()
			t.s.bets[id] = b
			n++
		}
	}
	return n, nil
}

func (t *memTx) SettleBet(_ context.Context, id string, status BetStatus, payout int64) (bool, error) {
	b, ok := t.s.bets[id]
	if !ok {
		return false, apperr.NotFound("store.SettleBet", "bet", id)
	}
	if b.Status != BetPending || b.Settled {
		return false, nil
	}
	b.Status = status
	b.Payout = payout
	b.Settled = true
	b.UpdatedAt = t.now().UTC()
	t.s.bets[id] = b
	return true, nil
}

func (t *memTx) ListTellerBetFlows(_ context.Context, eventID string, tellerNo int) ([]BetFlow, error) {
	out := []BetFlow{}
	for _, b := range t.s.bets {
		if b.TellerNo != tellerNo {
			continue
		}
		f, ok := t.s.fights[b.FightID]
		if !ok || f.EventID != eventID {
			continue
		}
		out = append(out, BetFlow{ID: b.ID, Amount: b.Amount, Payout: b.Payout, CreatedAt: b.CreatedAt})
	}
	byCreated(out, func(b BetFlow) time.Time { return b.CreatedAt }, func(b BetFlow) string { return b.ID })
	return out, nil
}

// --- movimentações de caixa ---

func (t *memTx) InsertCashMovement(_ context.Context, m *CashMovement) error {
	if _, ok := t.s.accounts[m.TellerID]; !ok {
		return apperr.NotFound("store.InsertCashMovement", "account", m.TellerID)
	}
	if m.EventID != "" {
		if _, ok := t.s.events[m.EventID]; !ok {
			return apperr.NotFound("store.InsertCashMovement", "event", m.EventID)
		}
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = MovementPending
	}
	t.stamp(&m.CreatedAt)
	m.UpdatedAt = m.CreatedAt
	t.s.movements[m.ID] = *m
	return nil
}

func (t *memTx) GetCashMovement(_ context.Context, id string, _ bool) (CashMovement, error) {
	m, ok := t.s.movements[id]
	if !ok {
		return CashMovement{}, apperr.NotFound("store.GetCashMovement", "cash_movement", id)
	}
	return m, nil
}

func (t *memTx) UpdateCashMovement(_ context.Context, m CashMovement) error {
	if _, ok := t.s.movements[m.ID]; !ok {
		return apperr.NotFound("store.UpdateCashMovement", "cash_movement", m.ID)
	}
	m.UpdatedAt = t.now().UTC()
	t.s.movements[m.ID] = m
	return nil
}

func (t *memTx) ListCashMovements(_ context.Context, f MovementFilter) ([]CashMovement, error) {
	out := []CashMovement{}
	for _, m := range t.s.movements {
		if f.EventID != "" && m.EventID != f.EventID {
			continue
		}
		if f.TellerID != "" && m.TellerID != f.TellerID {
			continue
		}
		if f.RunnerID != "" && m.RunnerID != f.RunnerID {
			continue
		}
		if f.Kind != "" && m.Kind != f.Kind {
			continue
		}
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		out = append(out, m)
	}
	byCreated(out, func(m CashMovement) time.Time { return m.CreatedAt }, func(m CashMovement) string { return m.ID })
	return out, nil
}

func (t *memTx) ListTellerMovementFlows(_ context.Context, eventID string, tellerNo int) ([]MovementFlow, error) {
	out := []MovementFlow{}
	for _, m := range t.s.movements {
		if m.EventID != eventID || m.TellerNo != tellerNo {
			continue
		}
		out = append(out, MovementFlow{ID: m.ID, Amount: m.Amount, Kind: m.Kind, Status: m.Status, CreatedAt: m.CreatedAt})
	}
	byCreated(out, func(m MovementFlow) time.Time { return m.CreatedAt }, func(m MovementFlow) string { return m.ID })
	return out, nil
}

func (t *memTx) ListTellerPairs(_ context.Context, eventID string) ([]TellerPair, error) {
	seen := map[TellerPair]bool{}
	out := []TellerPair{}
	for _, m := range t.s.movements {
		if m.EventID == "" || (eventID != "" && m.EventID != eventID) {
			continue
		}
		p := TellerPair{EventID: m.EventID, TellerNo: m.TellerNo}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventID != out[j].EventID {
			return out[i].EventID < out[j].EventID
		}
		return out[i].TellerNo < out[j].TellerNo
	})
	return out, nil
}

func (t *memTx) SetOnHand(_ context.Context, updates []OnHandUpdate) error {
	for _, u := range updates {
		m, ok := t.s.movements[u.MovementID]
		if !ok {
			return apperr.NotFound("store.SetOnHand", "cash_movement", u.MovementID)
		}
		m.OnHand = decimal.NewNullDecimal(u.OnHand)
		t.s.movements[u.MovementID] = m
	}
	return nil
}
