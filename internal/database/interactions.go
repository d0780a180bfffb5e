package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"umpire-rules-rag/internal/models"

	"github.com/jmoiron/sqlx"
)

// ErrInteractionNotFound is returned when feedback targets an unknown row
var ErrInteractionNotFound = errors.New("interaction not found")

// InteractionLog persists query/response rows and user feedback in SQLite
type InteractionLog struct {
	db *sqlx.DB
}

// NewInteractionLog opens the log database and creates the schema
func NewInteractionLog(dsn string) (*InteractionLog, error) {
	db, err := openSQLite(dsn)
	if err != nil {
		return nil, err
	}

	l := &InteractionLog{db: db}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return l, nil
}

func (l *InteractionLog) initSchema() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS interactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query_text TEXT NOT NULL,
			division TEXT NOT NULL,
			response TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			session_id TEXT NOT NULL,
			response_time REAL NOT NULL,
			query_type TEXT NOT NULL,
			api_used TEXT NOT NULL,
			tokens_used INTEGER NOT NULL,
			rule_reference TEXT,
			thumbs_up BOOLEAN,
			thumbs_down BOOLEAN,
			feedback_text TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id)`,
	}

	for _, tableSQL := range tables {
		if _, err := l.db.Exec(tableSQL); err != nil {
			log.Printf("Failed to execute SQL: %s, error: %v", tableSQL, err)
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Log inserts an interaction and returns its id. An empty Timestamp is set to now.
func (l *InteractionLog) Log(ctx context.Context, in *models.Interaction) (int64, error) {
	if in.Timestamp == "" {
		in.Timestamp = time.Now().Format(time.RFC3339Nano)
	}

	res, err := l.db.NamedExecContext(ctx, `
		INSERT INTO interactions (
			query_text, division, response, timestamp, session_id,
			response_time, query_type, api_used, tokens_used, rule_reference
		)
		VALUES (
			:query_text, :division, :response, :timestamp, :session_id,
			:response_time, :query_type, :api_used, :tokens_used, :rule_reference
		)
	`, in)
	if err != nil {
		return 0, fmt.Errorf("failed to log interaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read interaction id: %w", err)
	}
	in.ID = id
	return id, nil
}

// UpdateFeedback records thumbs up/down and optional free-text feedback
func (l *InteractionLog) UpdateFeedback(ctx context.Context, id int64, thumbsUp, thumbsDown bool, text string) error {
	var feedback *string
	if text != "" {
		feedback = &text
	}

	res, err := l.db.ExecContext(ctx, `
		UPDATE interactions
		SET thumbs_up = ?, thumbs_down = ?, feedback_text = COALESCE(?, feedback_text)
		WHERE id = ?
	`, thumbsUp, thumbsDown, feedback, id)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("interaction %d: %w", id, ErrInteractionNotFound)
	}
	return nil
}

// Get returns a single interaction
func (l *InteractionLog) Get(ctx context.Context, id int64) (models.Interaction, error) {
	var in models.Interaction
	err := l.db.GetContext(ctx, &in, `SELECT * FROM interactions WHERE id = ?`, id)
	if err != nil {
		return in, fmt.Errorf("interaction %d: %w", id, err)
	}
	return in, nil
}

// All returns every interaction ordered by id
func (l *InteractionLog) All(ctx context.Context) ([]models.Interaction, error) {
	var rows []models.Interaction
	if err := l.db.SelectContext(ctx, &rows, `SELECT * FROM interactions ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to read interactions: %w", err)
	}
	return rows, nil
}

// Close closes the database connection
func (l *InteractionLog) Close() error {
	return l.db.Close()
}
