// Package sqlite implements the ledger store on an embedded SQLite
// database. Timestamps are stored as Unix nanoseconds in UTC so range
// scans and ordering stay plain integer comparisons.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type Store struct {
	db *sql.DB
}

var _ ledger.Store = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertExpense(ctx context.Context, ex execer, e core.Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	var person, original sql.NullString
	if e.Repayment != nil {
		person = sql.NullString{String: e.Repayment.Person, Valid: true}
		original = sql.NullString{String: e.Repayment.OriginalDescription, Valid: true}
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, category, amount_cents, description, date_unix_nano, repayment_person, repayment_original)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Category, e.Amount.Cents, e.Description, e.Date.UTC().UnixNano(), person, original)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) error {
	return insertExpense(ctx, s.db, e)
}

func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	return s.deleteRow(ctx, s.db, "expenses", userID, id)
}

func (s *Store) deleteRow(ctx context.Context, ex execer, table, userID, id string) error {
	res, err := ex.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, userID string, from, to *time.Time) ([]core.Expense, error) {
	query := `
		SELECT id, user_id, category, amount_cents, description, date_unix_nano, repayment_person, repayment_original
		FROM expenses WHERE user_id = ?`
	args := []any{userID}
	if from != nil {
		query += " AND date_unix_nano >= ?"
		args = append(args, from.UTC().UnixNano())
	}
	if to != nil {
		query += " AND date_unix_nano <= ?"
		args = append(args, to.UTC().UnixNano())
	}
	query += " ORDER BY date_unix_nano DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e                core.Expense
			nano             int64
			person, original sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Category, &e.Amount.Cents, &e.Description, &nano, &person, &original); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date = time.Unix(0, nano).UTC()
		if person.Valid {
			e.Repayment = &core.RepaymentDetails{Person: person.String, OriginalDescription: original.String}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CreateOwed(ctx context.Context, o core.OwedAmount) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO owed_amounts (id, user_id, person, amount_cents, description, date_unix_nano, paid)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.Person, o.Amount.Cents, o.Description, o.Date.UTC().UnixNano(), o.Paid)
	if err != nil {
		return fmt.Errorf("insert owed amount: %w", err)
	}
	return nil
}

func (s *Store) GetOwed(ctx context.Context, userID, id string) (core.OwedAmount, error) {
	var (
		o    core.OwedAmount
		nano int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, person, amount_cents, description, date_unix_nano, paid
		FROM owed_amounts WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&o.ID, &o.UserID, &o.Person, &o.Amount.Cents, &o.Description, &nano, &o.Paid)
	if errors.Is(err, sql.ErrNoRows) {
		return core.OwedAmount{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.OwedAmount{}, fmt.Errorf("get owed amount: %w", err)
	}
	o.Date = time.Unix(0, nano).UTC()
	return o, nil
}

func (s *Store) DeleteOwed(ctx context.Context, userID, id string) error {
	return s.deleteRow(ctx, s.db, "owed_amounts", userID, id)
}

func (s *Store) ListOwed(ctx context.Context, userID string) ([]core.OwedAmount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, person, amount_cents, description, date_unix_nano, paid
		FROM owed_amounts WHERE user_id = ? ORDER BY date_unix_nano DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list owed amounts: %w", err)
	}
	defer rows.Close()

	var out []core.OwedAmount
	for rows.Next() {
		var (
			o    core.OwedAmount
			nano int64
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.Person, &o.Amount.Cents, &o.Description, &nano, &o.Paid); err != nil {
			return nil, fmt.Errorf("scan owed amount: %w", err)
		}
		o.Date = time.Unix(0, nano).UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) CreateOwedToMe(ctx context.Context, o core.OwedToMe) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO owed_to_me (id, user_id, person, amount_cents, description, date_unix_nano, received)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.Person, o.Amount.Cents, o.Description, o.Date.UTC().UnixNano(), o.Received)
	if err != nil {
		return fmt.Errorf("insert owed-to-me: %w", err)
	}
	return nil
}

func (s *Store) GetOwedToMe(ctx context.Context, userID, id string) (core.OwedToMe, error) {
	var (
		o    core.OwedToMe
		nano int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, person, amount_cents, description, date_unix_nano, received
		FROM owed_to_me WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&o.ID, &o.UserID, &o.Person, &o.Amount.Cents, &o.Description, &nano, &o.Received)
	if errors.Is(err, sql.ErrNoRows) {
		return core.OwedToMe{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.OwedToMe{}, fmt.Errorf("get owed-to-me: %w", err)
	}
	o.Date = time.Unix(0, nano).UTC()
	return o, nil
}

func (s *Store) DeleteOwedToMe(ctx context.Context, userID, id string) error {
	return s.deleteRow(ctx, s.db, "owed_to_me", userID, id)
}

func (s *Store) ListOwedToMe(ctx context.Context, userID string) ([]core.OwedToMe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, person, amount_cents, description, date_unix_nano, received
		FROM owed_to_me WHERE user_id = ? ORDER BY date_unix_nano DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list owed-to-me: %w", err)
	}
	defer rows.Close()

	var out []core.OwedToMe
	for rows.Next() {
		var (
			o    core.OwedToMe
			nano int64
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.Person, &o.Amount.Cents, &o.Description, &nano, &o.Received); err != nil {
			return nil, fmt.Errorf("scan owed-to-me: %w", err)
		}
		o.Date = time.Unix(0, nano).UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) CreateRecurring(ctx context.Context, re core.RecurringExpense) error {
	if re.ID == "" {
		re.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_expenses (id, user_id, category, amount_cents, description, frequency, start_unix_nano, next_due_unix_nano)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		re.ID, re.UserID, re.Category, re.Amount.Cents, re.Description, string(re.Frequency),
		re.StartDate.UTC().UnixNano(), re.NextDueDate.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("insert recurring expense: %w", err)
	}
	return nil
}

func (s *Store) DeleteRecurring(ctx context.Context, userID, id string) error {
	return s.deleteRow(ctx, s.db, "recurring_expenses", userID, id)
}

func (s *Store) ListRecurring(ctx context.Context, userID string) ([]core.RecurringExpense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category, amount_cents, description, frequency, start_unix_nano, next_due_unix_nano
		FROM recurring_expenses WHERE user_id = ? ORDER BY next_due_unix_nano ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringExpense
	for rows.Next() {
		var (
			re          core.RecurringExpense
			freq        string
			start, next int64
		)
		if err := rows.Scan(&re.ID, &re.UserID, &re.Category, &re.Amount.Cents, &re.Description, &freq, &start, &next); err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		re.Frequency = core.Frequency(freq)
		re.StartDate = time.Unix(0, start).UTC()
		re.NextDueDate = time.Unix(0, next).UTC()
		out = append(out, re)
	}
	return out, rows.Err()
}

func (s *Store) CreateBudget(ctx context.Context, b core.Budget) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, scope_kind, scope_category, amount_cents, month)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, string(b.Scope.Kind), b.Scope.Category, b.Amount.Cents, b.Month)
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, userID, id string) error {
	return s.deleteRow(ctx, s.db, "budgets", userID, id)
}

func (s *Store) ListBudgets(ctx context.Context, userID, month string) ([]core.Budget, error) {
	query := `SELECT id, user_id, scope_kind, scope_category, amount_cents, month FROM budgets WHERE user_id = ?`
	args := []any{userID}
	if month != "" {
		query += " AND month = ?"
		args = append(args, month)
	}
	query += " ORDER BY scope_kind, scope_category"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var (
			b    core.Budget
			kind string
		)
		if err := rows.Scan(&b.ID, &b.UserID, &kind, &b.Scope.Category, &b.Amount.Cents, &b.Month); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Scope.Kind = core.ScopeKind(kind)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM recurring_expenses ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Commit runs the batch in a single transaction.
func (s *Store) Commit(ctx context.Context, userID string, batch ledger.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, e := range batch.ExpenseCreates {
		if err := insertExpense(ctx, tx, e); err != nil {
			return err
		}
	}
	for _, re := range batch.RecurringUpdates {
		res, err := tx.ExecContext(ctx, `
			UPDATE recurring_expenses SET next_due_unix_nano = ? WHERE id = ? AND user_id = ?`,
			re.NextDueDate.UTC().UnixNano(), re.ID, userID)
		if err != nil {
			return fmt.Errorf("update recurring expense: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n == 0 {
			return ledger.ErrNotFound
		}
	}
	for _, id := range batch.OwedDeletes {
		if err := s.deleteRow(ctx, tx, "owed_amounts", userID, id); err != nil {
			return err
		}
	}
	for _, id := range batch.OwedToMeDeletes {
		if err := s.deleteRow(ctx, tx, "owed_to_me", userID, id); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}
