// Package sqlite persists learning data in a single SQLite file through sqlx.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/echolearn/server/domain/repositories"
)

const schema = `
CREATE TABLE IF NOT EXISTS learning_sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	transcription TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	sign_language_data TEXT,
	duration REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_learning_sessions_created_at ON learning_sessions (created_at);

CREATE TABLE IF NOT EXISTS quizzes (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES learning_sessions(id) ON DELETE CASCADE,
	question TEXT NOT NULL,
	options TEXT NOT NULL,
	correct_answer TEXT NOT NULL,
	explanation TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quizzes_session_id ON quizzes (session_id);

CREATE TABLE IF NOT EXISTS user_progress (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES learning_sessions(id) ON DELETE CASCADE,
	quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
	user_answer TEXT NOT NULL,
	is_correct BOOLEAN NOT NULL,
	time_taken REAL NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_user_progress_session_id ON user_progress (session_id);
`

// DB wraps the sqlx handle shared by the repositories
type DB struct {
	*sqlx.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(ctx context.Context, path string, logger *zap.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000"
	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Opened SQLite database", zap.String("path", path))
	return &DB{DB: db, logger: logger}, nil
}

// Store returns the repositories backed by db
func (db *DB) Store() repositories.Store {
	return repositories.Store{
		Sessions: &SessionRepository{db: db.DB},
		Quizzes:  &QuizRepository{db: db.DB},
		Progress: &ProgressRepository{db: db.DB},
		Close: func(context.Context) error {
			if err := db.DB.Close(); err != nil {
				db.logger.Error("Failed to close SQLite database", zap.Error(err))
				return err
			}
			db.logger.Info("Closed SQLite database")
			return nil
		},
	}
}
