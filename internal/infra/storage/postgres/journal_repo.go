package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/catfeed/internal/infra/storage"
)

// JournalRepo implements storage.JournalRepository using PostgreSQL.
type JournalRepo struct {
	db *DB
}

// NewJournalRepo creates a new PostgreSQL journal repository.
func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Append inserts an entry.
func (r *JournalRepo) Append(ctx context.Context, entry *storage.Entry) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO journal_entries (id, subscription, kind, fact, message, published_at)
		VALUES (:id, :subscription, :kind, :fact, :message, :published_at)`,
		entry,
	)
	if err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries first. A limit <= 0 returns every entry.
func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]*storage.Entry, error) {
	query := `
		SELECT id, subscription, kind, fact, message, published_at
		FROM journal_entries
		ORDER BY published_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var entries []*storage.Entry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries.
func (r *JournalRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM journal_entries`); err != nil {
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes entries published before t.
func (r *JournalRepo) DeleteOlderThan(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE published_at < $1`, t.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal entries: %w", err)
	}
	return res.RowsAffected()
}
