package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/feishu-keyword-watch/internal/biz/domain"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
)

// ignoreRepo implements the Ignore repository on sqlite
type ignoreRepo struct {
	db *sql.DB
}

// NewIgnoreRepo creates an Ignore repository on an open database
func NewIgnoreRepo(db *sql.DB) (repo.IgnoreRepo, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ignored_users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot TEXT NOT NULL,
			ignored_user TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (bot, ignored_user)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create ignored_users table: %w", err)
	}

	return &ignoreRepo{db: db}, nil
}

// Create inserts one ignore entry
func (r *ignoreRepo) Create(ctx context.Context, e *domain.IgnoreEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ignored_users (bot, ignored_user, created_at)
		VALUES (?, ?, ?)
	`, e.Bot, e.IgnoredUser, time.Now().Unix())
	if err != nil {
		if conflict := translateConflict(err); errors.Is(conflict, repo.ErrConflict) {
			return conflict
		}
		return fmt.Errorf("failed to insert ignore entry: %w", err)
	}
	return nil
}

// Remove deletes the (bot, user) pair
func (r *ignoreRepo) Remove(ctx context.Context, bot, user string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM ignored_users WHERE bot = ? AND ignored_user = ?
	`, bot, user)
	if err != nil {
		return 0, fmt.Errorf("failed to delete ignore entry: %w", err)
	}
	return result.RowsAffected()
}

// ListByBot returns all entries owned by one bot
func (r *ignoreRepo) ListByBot(ctx context.Context, bot string) ([]*domain.IgnoreEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT bot, ignored_user FROM ignored_users
		WHERE bot = ?
		ORDER BY ignored_user
	`, bot)
	if err != nil {
		return nil, fmt.Errorf("failed to query ignore entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.IgnoreEntry
	for rows.Next() {
		var entry domain.IgnoreEntry
		if err := rows.Scan(&entry.Bot, &entry.IgnoredUser); err != nil {
			return nil, fmt.Errorf("failed to scan ignore entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// Close closes the database connection
func (r *ignoreRepo) Close() error {
	return r.db.Close()
}
