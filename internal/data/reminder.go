package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
)

// reminderRepo implements the Reminder repository on sqlite
type reminderRepo struct {
	db *sql.DB
}

// NewReminderRepo creates a Reminder repository on an open database
func NewReminderRepo(db *sql.DB) (repo.ReminderRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reminders (
			scope TEXT NOT NULL,
			owner TEXT NOT NULL,
			keyword TEXT NOT NULL,
			bot TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (scope, owner, keyword, bot)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminders table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reminders_scope ON reminders(scope)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminders index: %w", err)
	}

	return &reminderRepo{db: db}, nil
}

// translateConflict maps the driver's uniqueness violations onto the
// repo-level sentinel so engines never see driver error types.
func translateConflict(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return repo.ErrConflict
		}
	}
	return err
}

// buildReminderWhere renders a filter into a WHERE clause and its
// arguments. An unconstrained filter yields the empty string.
func buildReminderWhere(f repo.ReminderFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Scope != nil {
		clauses = append(clauses, "scope = ?")
		args = append(args, f.Scope.Key())
	}
	if len(f.Scopes) > 0 {
		placeholders := make([]string, len(f.Scopes))
		for i, s := range f.Scopes {
			placeholders[i] = "?"
			args = append(args, s.Key())
		}
		clauses = append(clauses, "scope IN ("+strings.Join(placeholders, ", ")+")")
	}
	if f.Owner != "" {
		clauses = append(clauses, "owner = ?")
		args = append(args, f.Owner)
	}
	if f.ExcludeOwner != "" {
		clauses = append(clauses, "owner != ?")
		args = append(args, f.ExcludeOwner)
	}
	if f.Keyword != "" {
		clauses = append(clauses, "keyword = ?")
		args = append(args, f.Keyword)
	}
	if len(f.Keywords) > 0 {
		placeholders := make([]string, len(f.Keywords))
		for i, kw := range f.Keywords {
			placeholders[i] = "?"
			args = append(args, kw)
		}
		clauses = append(clauses, "keyword IN ("+strings.Join(placeholders, ", ")+")")
	}
	if f.Bot != "" {
		clauses = append(clauses, "bot = ?")
		args = append(args, f.Bot)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Create inserts one reminder
func (r *reminderRepo) Create(ctx context.Context, reminder *domain.Reminder) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (scope, owner, keyword, bot, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		reminder.Scope.Key(),
		reminder.Owner,
		reminder.Keyword,
		reminder.Bot,
		time.Now().Unix(),
	)
	if err != nil {
		if conflict := translateConflict(err); errors.Is(conflict, repo.ErrConflict) {
			return conflict
		}
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	return nil
}

// Upsert inserts reminders, replacing existing tuples
func (r *reminderRepo) Upsert(ctx context.Context, reminders []*domain.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, reminder := range reminders {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO reminders (scope, owner, keyword, bot, created_at)
			VALUES (?, ?, ?, ?, ?)
		`,
			reminder.Scope.Key(),
			reminder.Owner,
			reminder.Keyword,
			reminder.Bot,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert reminder: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// Remove deletes all rows matching the filter
func (r *reminderRepo) Remove(ctx context.Context, f repo.ReminderFilter) (int64, error) {
	where, args := buildReminderWhere(f)
	result, err := r.db.ExecContext(ctx, `DELETE FROM reminders`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reminders: %w", err)
	}
	return result.RowsAffected()
}

// List returns all rows matching the filter
func (r *reminderRepo) List(ctx context.Context, f repo.ReminderFilter) ([]*domain.Reminder, error) {
	where, args := buildReminderWhere(f)
	rows, err := r.db.QueryContext(ctx, `
		SELECT scope, owner, keyword, bot FROM reminders`+where+`
		ORDER BY scope, owner, keyword
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		var reminder domain.Reminder
		var scopeKey string
		if err := rows.Scan(&scopeKey, &reminder.Owner, &reminder.Keyword, &reminder.Bot); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminder.Scope = domain.ScopeFromKey(scopeKey)
		reminders = append(reminders, &reminder)
	}
	return reminders, rows.Err()
}

// Scopes returns the distinct scopes that have at least one row
func (r *reminderRepo) Scopes(ctx context.Context) ([]domain.Scope, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT scope FROM reminders`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scopes: %w", err)
	}
	defer rows.Close()

	var scopes []domain.Scope
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan scope: %w", err)
		}
		scopes = append(scopes, domain.ScopeFromKey(key))
	}
	return scopes, rows.Err()
}

// Close closes the database connection
func (r *reminderRepo) Close() error {
	return r.db.Close()
}
