package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictsol/predictsol-go/internal/domain"
)

// JournalStore implements domain.Journal using PostgreSQL.
type JournalStore struct {
	pool *pgxpool.Pool
}

// NewJournalStore creates a JournalStore backed by the given connection
// pool.
func NewJournalStore(pool *pgxpool.Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

// Record appends one submission record.
func (s *JournalStore) Record(ctx context.Context, entry domain.JournalEntry) error {
	const query = `
		INSERT INTO submission_journal (id, action, event, label, signature, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query,
		entry.ID,
		string(entry.Action),
		entry.Event,
		entry.Label,
		entry.Signature,
		string(entry.Status),
		entry.Error,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record submission %s: %w", entry.Label, err)
	}
	return nil
}

// List returns submission records, newest first, optionally filtered to one
// event address.
func (s *JournalStore) List(ctx context.Context, event string, limit int) ([]domain.JournalEntry, error) {
	query := `SELECT id, action, event, label, signature, status, error, created_at FROM submission_journal`
	args := []any{}
	if event != "" {
		query += " WHERE event = $1"
		args = append(args, event)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list submissions: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		var action, status string
		if err := rows.Scan(&e.ID, &action, &e.Event, &e.Label, &e.Signature, &status, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan submission: %w", err)
		}
		e.Action = domain.ActionKind(action)
		e.Status = domain.JournalStatus(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate submissions: %w", err)
	}
	return entries, nil
}
