package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/anthropics/feishu-keyword-watch/feishu"
	"github.com/anthropics/feishu-keyword-watch/internal/biz/repo"
)

// Repositories contains all repositories
type Repositories struct {
	Reminder repo.ReminderRepo
	Ignore   repo.IgnoreRepo
	Chat     repo.ChatRepo

	db *sql.DB
}

// NewRepositories creates all repositories. Reminder and ignore tables share
// one database file.
func NewRepositories(feishuClient *feishu.Client, dbPath string) (*Repositories, error) {
	db, err := OpenDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	reminderRepo, err := NewReminderRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	ignoreRepo, err := NewIgnoreRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Repositories{
		Reminder: reminderRepo,
		Ignore:   ignoreRepo,
		Chat:     NewChatRepo(feishuClient),
		db:       db,
	}, nil
}

// OpenDatabase opens the sqlite file, creating its directory if needed.
func OpenDatabase(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Close closes the shared database connection
func (r *Repositories) Close() error {
	return r.db.Close()
}
