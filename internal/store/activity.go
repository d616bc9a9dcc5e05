// ABOUTME: Activity log of ledger operations submitted through the portal
// ABOUTME: Listed newest first on the overview page

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppendActivity records an operation outcome.
// Generates ID and CreatedAt if not set.
func (s *SQLiteStore) AppendActivity(ctx context.Context, e *ActivityEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Source == "" {
		e.Source = SourceWeb
	}

	query := `
		INSERT INTO activity (activity_id, operation, source, status, result, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Operation,
		string(e.Source),
		string(e.Status),
		e.Result,
		e.Error,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}

	s.logger.Debug("appended activity",
		"id", e.ID,
		"operation", e.Operation,
		"status", e.Status,
	)
	return nil
}

// normalizeActivityLimit applies default (50) and cap (500).
func normalizeActivityLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > 500:
		return 500
	default:
		return limit
	}
}

const activityQuery = `
	SELECT activity_id, operation, source, status, result, error, created_at
	FROM activity
	WHERE (? = '' OR operation = ?)
	  AND (? = '' OR status = ?)
	ORDER BY created_at DESC, rowid DESC
	LIMIT ?
`

// ListActivity returns entries newest first.
func (s *SQLiteStore) ListActivity(ctx context.Context, f ActivityFilter) ([]ActivityEntry, error) {
	status := string(f.Status)
	rows, err := s.db.QueryContext(ctx, activityQuery,
		f.Operation, f.Operation,
		status, status,
		normalizeActivityLimit(f.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		var source, statusStr, createdAtStr string
		if err := rows.Scan(&e.ID, &e.Operation, &source, &statusStr, &e.Result, &e.Error, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		e.Source = ActivitySource(source)
		e.Status = ActivityStatus(statusStr)
		e.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity: %w", err)
	}
	return entries, nil
}
