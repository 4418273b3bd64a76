package database

import (
	"context"
	"fmt"
	"time"
)

// ConfluenceEvent is a persisted record of a fired confluence alert
type ConfluenceEvent struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	MessageID int64     `json:"message_id"`
	FiredAt   time.Time `json:"fired_at"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalysisRecord is a persisted record of a completed analysis task
type AnalysisRecord struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	TraceID   string    `json:"trace_id"`
	Symbol    string    `json:"symbol"`
	Analysis  string    `json:"analysis"`
	Failed    bool      `json:"failed"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists confluence events and analysis results
type Repository struct {
	db *DB
}

// NewRepository creates a repository over an existing DB
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveConfluenceEvent records a fired confluence alert
func (r *Repository) SaveConfluenceEvent(ctx context.Context, symbol string, price float64, messageID int64, firedAt time.Time) error {
	query := `
		INSERT INTO confluence_events (symbol, price, message_id, fired_at)
		VALUES ($1, $2, $3, $4)`

	if _, err := r.db.Pool.Exec(ctx, query, symbol, price, messageID, firedAt); err != nil {
		return fmt.Errorf("failed to save confluence event: %w", err)
	}
	return nil
}

// SaveAnalysisResult records the outcome of an analysis task
func (r *Repository) SaveAnalysisResult(ctx context.Context, taskID int64, traceID, symbol, analysis string, taskErr error) error {
	failed := taskErr != nil
	errText := ""
	if failed {
		errText = taskErr.Error()
	}

	query := `
		INSERT INTO analysis_results (task_id, trace_id, symbol, analysis, failed, error)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.db.Pool.Exec(ctx, query, taskID, traceID, symbol, analysis, failed, errText); err != nil {
		return fmt.Errorf("failed to save analysis result: %w", err)
	}
	return nil
}

// RecentConfluenceEvents returns the most recent fired events for a symbol
func (r *Repository) RecentConfluenceEvents(ctx context.Context, symbol string, limit int) ([]ConfluenceEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, symbol, price, message_id, fired_at, created_at
		FROM confluence_events
		WHERE symbol = $1
		ORDER BY fired_at DESC
		LIMIT $2`

	rows, err := r.db.Pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query confluence events: %w", err)
	}
	defer rows.Close()

	var events []ConfluenceEvent
	for rows.Next() {
		var e ConfluenceEvent
		if err := rows.Scan(&e.ID, &e.Symbol, &e.Price, &e.MessageID, &e.FiredAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan confluence event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating confluence events: %w", err)
	}

	return events, nil
}

// RecentAnalysisResults returns the most recent analysis records for a symbol
func (r *Repository) RecentAnalysisResults(ctx context.Context, symbol string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, task_id, trace_id, symbol, analysis, failed, error, created_at
		FROM analysis_results
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis results: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		if err := rows.Scan(&rec.ID, &rec.TaskID, &rec.TraceID, &rec.Symbol, &rec.Analysis, &rec.Failed, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis result: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis results: %w", err)
	}

	return records, nil
}
