package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vthibault/annonce/internal/guard/dispatch"
)

// JournalRepo implements dispatch.Journal on PostgreSQL.
type JournalRepo struct {
	db *DB
}

// NewJournalRepo creates a journal repository.
func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Record inserts one call summary.
func (r *JournalRepo) Record(ctx context.Context, s dispatch.CallSummary) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO call_journal (id, operation, attempts, result, duration_ms, proxy, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.Operation, s.Attempts, s.Result, s.Duration.Milliseconds(), s.Proxy, s.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record call: %w", err)
	}
	return nil
}

// CallRow is one journal entry as read back for diagnostics.
type CallRow struct {
	ID         string    `db:"id"          json:"id"`
	Operation  string    `db:"operation"   json:"operation"`
	Attempts   int       `db:"attempts"    json:"attempts"`
	Result     string    `db:"result"      json:"result"`
	DurationMS int64     `db:"duration_ms" json:"duration_ms"`
	Proxy      string    `db:"proxy"       json:"proxy"`
	StartedAt  time.Time `db:"started_at"  json:"started_at"`
}

// Recent returns the most recent journal entries, newest first.
func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]CallRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []CallRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, operation, attempts, result, duration_ms, proxy, started_at
		 FROM call_journal ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	return rows, nil
}
