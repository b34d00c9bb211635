package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/radieske/fight-ledger/internal/shared/apperr"
)

// Schema é o DDL idempotente das tabelas do ledger
//
//go:embed schema.sql
var Schema string

// Postgres implementa Store sobre database/sql + lib/pq
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// WithTx abre uma transação, executa fn e faz commit; qualquer erro faz rollback
func (p *Postgres) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return pgErr("store.Begin", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return pgErr("store.Commit", tx.Commit())
}

type pgTx struct{ tx *sql.Tx }

// nome gerado pelo Postgres para o UNIQUE de accounts.username (schema.sql)
const usernameConstraint = "accounts_username_key"

// pgErr traduz erros do driver para a taxonomia do domínio
func pgErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		switch pe.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return apperr.E(apperr.ErrConcurrencyConflict, op, "", "", pe.Message)
		case "23505": // unique_violation
			if pe.Constraint == usernameConstraint {
				return apperr.E(apperr.ErrValidation, op, "account", "", "username taken")
			}
			return apperr.E(apperr.ErrConcurrencyConflict, op, "", "", pe.Constraint)
		case "23503": // foreign_key_violation
			return apperr.E(apperr.ErrNotFound, op, "", "", pe.Constraint)
		case "23514", "22P02": // check_violation, invalid_text_representation
			return apperr.Validation(op, pe.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func lock(forUpdate bool) string {
	if forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

// --- contas ---

const accountCols = `id::text, username, teller_no, role, credits, created_at`

func scanAccount(r rowScanner) (Account, error) {
	var a Account
	err := r.Scan(&a.ID, &a.Username, &a.TellerNo, &a.Role, &a.Credits, &a.CreatedAt)
	return a, err
}

func (t *pgTx) CreateAccount(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = orNow(a.CreatedAt)
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO accounts (id, username, teller_no, role, credits, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.Username, a.TellerNo, a.Role, a.Credits, a.CreatedAt)
	return pgErr("store.CreateAccount", err)
}

func (t *pgTx) GetAccount(ctx context.Context, id string) (Account, error) {
	a, err := scanAccount(t.tx.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, apperr.NotFound("store.GetAccount", "account", id)
	}
	return a, pgErr("store.GetAccount", err)
}

// AdjustCredits aplica credits = credits + delta numa única instrução; a
// condição no WHERE impede saldo negativo sem read-modify-write
func (t *pgTx) AdjustCredits(ctx context.Context, id string, delta int64) (int64, error) {
	var bal int64
	err := t.tx.QueryRowContext(ctx, `
		UPDATE accounts SET credits = credits + $1
		WHERE id=$2 AND credits + $1 >= 0
		RETURNING credits`, delta, id).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		var cur int64
		err = t.tx.QueryRowContext(ctx, `SELECT credits FROM accounts WHERE id=$1`, id).Scan(&cur)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperr.NotFound("store.AdjustCredits", "account", id)
		}
		if err != nil {
			return 0, pgErr("store.AdjustCredits", err)
		}
		return cur, apperr.E(apperr.ErrInsufficientFunds, "store.AdjustCredits", "account", id, "")
	}
	return bal, pgErr("store.AdjustCredits", err)
}

// --- eventos ---

const eventCols = `id::text, name, location, event_date, status, COALESCE(created_by::text,''), created_at`

func scanEvent(r rowScanner) (GameEvent, error) {
	var e GameEvent
	err := r.Scan(&e.ID, &e.Name, &e.Location, &e.EventDate, &e.Status, &e.CreatedBy, &e.CreatedAt)
	return e, err
}

func (t *pgTx) CreateEvent(ctx context.Context, e *GameEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = EventUpcoming
	}
	e.CreatedAt = orNow(e.CreatedAt)
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO game_events (id, name, location, event_date, status, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.Name, e.Location, e.EventDate, e.Status, nullable(e.CreatedBy), e.CreatedAt)
	return pgErr("store.CreateEvent", err)
}

func (t *pgTx) GetEvent(ctx context.Context, id string) (GameEvent, error) {
	e, err := scanEvent(t.tx.QueryRowContext(ctx, `SELECT `+eventCols+` FROM game_events WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return GameEvent{}, apperr.NotFound("store.GetEvent", "event", id)
	}
	return e, pgErr("store.GetEvent", err)
}

func (t *pgTx) ListEvents(ctx context.Context) ([]GameEvent, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+eventCols+` FROM game_events ORDER BY event_date DESC, id`)
	if err != nil {
		return nil, pgErr("store.ListEvents", err)
	}
	defer rows.Close()

	out := []GameEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, pgErr("store.ListEvents", err)
		}
		out = append(out, e)
	}
	return out, pgErr("store.ListEvents", rows.Err())
}

func (t *pgTx) ActiveEvent(ctx context.Context) (GameEvent, error) {
	e, err := scanEvent(t.tx.QueryRowContext(ctx, `SELECT `+eventCols+` FROM game_events WHERE status='ongoing' LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return GameEvent{}, apperr.NotFound("store.ActiveEvent", "event", "ongoing")
	}
	return e, pgErr("store.ActiveEvent", err)
}

func (t *pgTx) ActivateEvent(ctx context.Context, id string) (GameEvent, error) {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE game_events SET status='completed' WHERE status='ongoing' AND id<>$1`, id); err != nil {
		return GameEvent{}, pgErr("store.ActivateEvent", err)
	}
	e, err := scanEvent(t.tx.QueryRowContext(ctx,
		`UPDATE game_events SET status='ongoing' WHERE id=$1 RETURNING `+eventCols, id))
	if errors.Is(err, sql.ErrNoRows) {
		return GameEvent{}, apperr.NotFound("store.ActivateEvent", "event", id)
	}
	return e, pgErr("store.ActivateEvent", err)
}

// --- lutas ---

const fightCols = `id::text, event_id::text, fight_number, meron_cents, wala_cents, status, winner,
	COALESCE(created_by::text,''), start_time, end_time, settled_at, created_at, updated_at`

func scanFight(r rowScanner) (Fight, error) {
	var (
		f              Fight
		ended, settled sql.NullTime
	)
	err := r.Scan(&f.ID, &f.EventID, &f.FightNumber, &f.MeronPool, &f.WalaPool, &f.Status, &f.Winner,
		&f.CreatedBy, &f.StartTime, &ended, &settled, &f.CreatedAt, &f.UpdatedAt)
	f.EndTime = timePtr(ended)
	f.SettledAt = timePtr(settled)
	return f, err
}

func (t *pgTx) InsertFight(ctx context.Context, f *Fight) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = orNow(f.CreatedAt)
	f.UpdatedAt = f.CreatedAt
	if f.StartTime.IsZero() {
		f.StartTime = f.CreatedAt
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO fights (id, event_id, fight_number, meron_cents, wala_cents, status, winner,
		                    created_by, start_time, end_time, settled_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)`,
		f.ID, f.EventID, f.FightNumber, f.MeronPool, f.WalaPool, f.Status, f.Winner,
		nullable(f.CreatedBy), f.StartTime, nullTime(f.EndTime), nullTime(f.SettledAt), f.CreatedAt)
	return pgErr("store.InsertFight", err)
}

func (t *pgTx) GetFight(ctx context.Context, id string, forUpdate bool) (Fight, error) {
	f, err := scanFight(t.tx.QueryRowContext(ctx, `SELECT `+fightCols+` FROM fights WHERE id=$1`+lock(forUpdate), id))
	if errors.Is(err, sql.ErrNoRows) {
		return Fight{}, apperr.NotFound("store.GetFight", "fight", id)
	}
	return f, pgErr("store.GetFight", err)
}

// LatestFight com forUpdate serializa criadores concorrentes da próxima luta;
// o índice único (event_id, fight_number) cobre o caso sem linhas
func (t *pgTx) LatestFight(ctx context.Context, eventID string, forUpdate bool) (Fight, error) {
	f, err := scanFight(t.tx.QueryRowContext(ctx, `
		SELECT `+fightCols+` FROM fights WHERE event_id=$1
		ORDER BY fight_number DESC LIMIT 1`+lock(forUpdate), eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return Fight{}, apperr.NotFound("store.LatestFight", "fight", "event "+eventID)
	}
	return f, pgErr("store.LatestFight", err)
}

func (t *pgTx) ListFights(ctx context.Context, eventID string) ([]Fight, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+fightCols+` FROM fights
		WHERE ($1 = '' OR event_id::text = $1)
		ORDER BY event_id, fight_number`, eventID)
	if err != nil {
		return nil, pgErr("store.ListFights", err)
	}
	defer rows.Close()

	out := []Fight{}
	for rows.Next() {
		f, err := scanFight(rows)
		if err != nil {
			return nil, pgErr("store.ListFights", err)
		}
		out = append(out, f)
	}
	return out, pgErr("store.ListFights", rows.Err())
}

func (t *pgTx) UpdateFight(ctx context.Context, f Fight) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE fights SET meron_cents=$2, wala_cents=$3, status=$4, winner=$5,
		       end_time=$6, settled_at=$7, updated_at=now()
		WHERE id=$1`,
		f.ID, f.MeronPool, f.WalaPool, f.Status, f.Winner, nullTime(f.EndTime), nullTime(f.SettledAt))
	if err != nil {
		return pgErr("store.UpdateFight", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("store.UpdateFight", "fight", f.ID)
	}
	return nil
}

// --- apostas ---

const betCols = `id::text, fight_id::text, user_id::text, teller_no, side, amount_cents, odds,
	payout_cents, status, settled, created_at, updated_at`

func scanBet(r rowScanner) (Bet, error) {
	var b Bet
	err := r.Scan(&b.ID, &b.FightID, &b.UserID, &b.TellerNo, &b.Side, &b.Amount, &b.Odds,
		&b.Payout, &b.Status, &b.Settled, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (t *pgTx) InsertBet(ctx context.Context, b *Bet) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = BetPending
	}
	b.CreatedAt = orNow(b.CreatedAt)
	b.UpdatedAt = b.CreatedAt
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO bets (id, fight_id, user_id, teller_no, side, amount_cents, odds,
		                  payout_cents, status, settled, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)`,
		b.ID, b.FightID, b.UserID, b.TellerNo, b.Side, b.Amount, b.Odds,
		b.Payout, b.Status, b.Settled, b.CreatedAt)
	return pgErr("store.InsertBet", err)
}

func (t *pgTx) GetBet(ctx context.Context, id string) (Bet, error) {
	b, err := scanBet(t.tx.QueryRowContext(ctx, `SELECT `+betCols+` FROM bets WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Bet{}, apperr.NotFound("store.GetBet", "bet", id)
	}
	return b, pgErr("store.GetBet", err)
}

// where monta cláusulas "col = $n" apenas para valores não vazios
type where struct {
	conds []string
	args  []any
}

func (w *where) eq(col, val string) {
	if val == "" {
		return
	}
	w.args = append(w.args, val)
	w.conds = append(w.conds, fmt.Sprintf("%s = $%d", col, len(w.args)))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (t *pgTx) ListBets(ctx context.Context, f BetFilter) ([]Bet, error) {
	var w where
	w.eq("fight_id", f.FightID)
	w.eq("user_id", f.UserID)
	w.eq("status", string(f.Status))

	rows, err := t.tx.QueryContext(ctx, `SELECT `+betCols+` FROM bets`+w.String()+` ORDER BY created_at, id`, w.args...)
	if err != nil {
		return nil, pgErr("store.ListBets", err)
	}
	defer rows.Close()

	out := []Bet{}
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, pgErr("store.ListBets", err)
		}
		out = append(out, b)
	}
	return out, pgErr("store.ListBets", rows.Err())
}

func (t *pgTx) ListPendingBets(ctx context.Context, fightID string) ([]Bet, error) {
	return t.ListBets(ctx, BetFilter{FightID: fightID, Status: BetPending})
}

func (t *pgTx) SumStakesBySide(ctx context.Context, fightID string) (map[Side]int64, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT side, COALESCE(SUM(amount_cents),0) FROM bets
		WHERE fight_id=$1 GROUP BY side`, fightID)
	if err != nil {
		return nil, pgErr("store.SumStakesBySide", err)
	}
	defer rows.Close()

	sums := map[Side]int64{SideMeron: 0, SideWala: 0}
	for rows.Next() {
		var (
			side Side
			sum  int64
		)
		if err := rows.Scan(&side, &sum); err != nil {
			return nil, pgErr("store.SumStakesBySide", err)
		}
		sums[side] = sum
	}
	return sums, pgErr("store.SumStakesBySide", rows.Err())
}

func (t *pgTx) SetPendingOdds(ctx context.Context, fightID string, side Side, odds decimal.Decimal) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE bets SET odds=$3, updated_at=now()
		WHERE fight_id=$1 AND side=$2 AND status='pending'`, fightID, side, odds)
	if err != nil {
		return 0, pgErr("store.SetPendingOdds", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SettleBet é o compare-and-swap pending -> status; o guard no WHERE é o que
// garante pagamento único mesmo com liquidações concorrentes
func (t *pgTx) SettleBet(ctx context.Context, id string, status BetStatus, payout int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE bets SET status=$2, payout_cents=$3, settled=true, updated_at=now()
		WHERE id=$1 AND status='pending' AND settled=false`, id, status, payout)
	if err != nil {
		return false, pgErr("store.SettleBet", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (t *pgTx) ListTellerBetFlows(ctx context.Context, eventID string, tellerNo int) ([]BetFlow, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT b.id::text, b.amount_cents, b.payout_cents, b.created_at
		FROM bets b JOIN fights f ON f.id = b.fight_id
		WHERE f.event_id=$1 AND b.teller_no=$2
		ORDER BY b.created_at, b.id`, eventID, tellerNo)
	if err != nil {
		return nil, pgErr("store.ListTellerBetFlows", err)
	}
	defer rows.Close()

	out := []BetFlow{}
	for rows.Next() {
		var b BetFlow
		if err := rows.Scan(&b.ID, &b.Amount, &b.Payout, &b.CreatedAt); err != nil {
			return nil, pgErr("store.ListTellerBetFlows", err)
		}
		out = append(out, b)
	}
	return out, pgErr("store.ListTellerBetFlows", rows.Err())
}

// --- movimentações de caixa ---

const movementCols = `id::text, COALESCE(event_id::text,''), teller_id::text, teller_no,
	COALESCE(runner_id::text,''), amount_cents, kind, status, on_hand, created_at, updated_at`

func scanMovement(r rowScanner) (CashMovement, error) {
	var m CashMovement
	err := r.Scan(&m.ID, &m.EventID, &m.TellerID, &m.TellerNo, &m.RunnerID, &m.Amount,
		&m.Kind, &m.Status, &m.OnHand, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (t *pgTx) InsertCashMovement(ctx context.Context, m *CashMovement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = MovementPending
	}
	m.CreatedAt = orNow(m.CreatedAt)
	m.UpdatedAt = m.CreatedAt
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO cash_movements (id, event_id, teller_id, teller_no, runner_id, amount_cents,
		                            kind, status, on_hand, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)`,
		m.ID, nullable(m.EventID), m.TellerID, m.TellerNo, nullable(m.RunnerID), m.Amount,
		m.Kind, m.Status, m.OnHand, m.CreatedAt)
	return pgErr("store.InsertCashMovement", err)
}

func (t *pgTx) GetCashMovement(ctx context.Context, id string, forUpdate bool) (CashMovement, error) {
	m, err := scanMovement(t.tx.QueryRowContext(ctx, `SELECT `+movementCols+` FROM cash_movements WHERE id=$1`+lock(forUpdate), id))
	if errors.Is(err, sql.ErrNoRows) {
		return CashMovement{}, apperr.NotFound("store.GetCashMovement", "cash_movement", id)
	}
	return m, pgErr("store.GetCashMovement", err)
}

func (t *pgTx) UpdateCashMovement(ctx context.Context, m CashMovement) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE cash_movements SET runner_id=$2, status=$3, on_hand=$4, updated_at=now()
		WHERE id=$1`, m.ID, nullable(m.RunnerID), m.Status, m.OnHand)
	if err != nil {
		return pgErr("store.UpdateCashMovement", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("store.UpdateCashMovement", "cash_movement", m.ID)
	}
	return nil
}

func (t *pgTx) ListCashMovements(ctx context.Context, f MovementFilter) ([]CashMovement, error) {
	var w where
	w.eq("event_id", f.EventID)
	w.eq("teller_id", f.TellerID)
	w.eq("runner_id", f.RunnerID)
	w.eq("kind", string(f.Kind))
	w.eq("status", string(f.Status))

	rows, err := t.tx.QueryContext(ctx, `SELECT `+movementCols+` FROM cash_movements`+w.String()+` ORDER BY created_at, id`, w.args...)
	if err != nil {
		return nil, pgErr("store.ListCashMovements", err)
	}
	defer rows.Close()

	out := []CashMovement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, pgErr("store.ListCashMovements", err)
		}
		out = append(out, m)
	}
	return out, pgErr("store.ListCashMovements", rows.Err())
}

func (t *pgTx) ListTellerMovementFlows(ctx context.Context, eventID string, tellerNo int) ([]MovementFlow, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id::text, amount_cents, kind, status, created_at
		FROM cash_movements
		WHERE event_id=$1 AND teller_no=$2
		ORDER BY created_at, id`, eventID, tellerNo)
	if err != nil {
		return nil, pgErr("store.ListTellerMovementFlows", err)
	}
	defer rows.Close()

	out := []MovementFlow{}
	for rows.Next() {
		var m MovementFlow
		if err := rows.Scan(&m.ID, &m.Amount, &m.Kind, &m.Status, &m.CreatedAt); err != nil {
			return nil, pgErr("store.ListTellerMovementFlows", err)
		}
		out = append(out, m)
	}
	return out, pgErr("store.ListTellerMovementFlows", rows.Err())
}

func (t *pgTx) ListTellerPairs(ctx context.Context, eventID string) ([]TellerPair, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT DISTINCT event_id::text, teller_no FROM cash_movements
		WHERE event_id IS NOT NULL AND ($1 = '' OR event_id::text = $1)
		ORDER BY 1, 2`, eventID)
	if err != nil {
		return nil, pgErr("store.ListTellerPairs", err)
	}
	defer rows.Close()

	out := []TellerPair{}
	for rows.Next() {
		var p TellerPair
		if err := rows.Scan(&p.EventID, &p.TellerNo); err != nil {
			return nil, pgErr("store.ListTellerPairs", err)
		}
		out = append(out, p)
	}
	return out, pgErr("store.ListTellerPairs", rows.Err())
}

// SetOnHand grava o lote inteiro numa única instrução via unnest
func (t *pgTx) SetOnHand(ctx context.Context, updates []OnHandUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	ids := make([]string, len(updates))
	vals := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.MovementID
		vals[i] = u.OnHand.StringFixed(2)
	}
	_, err := t.tx.ExecContext(ctx, `
		UPDATE cash_movements AS m SET on_hand = u.on_hand
		FROM unnest($1::uuid[], $2::numeric[]) AS u(id, on_hand)
		WHERE m.id = u.id`, pq.Array(ids), pq.Array(vals))
	return pgErr("store.SetOnHand", err)
}
