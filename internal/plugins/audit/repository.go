package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AuditRepository defines the data access contract for the access audit log.
// All SQL lives in the concrete implementation.
type AuditRepository interface {
	// Log inserts a new entry and sets its ID.
	Log(ctx context.Context, e *Entry) error

	// ListRecent returns the newest entries for an administrator, most
	// recent first.
	ListRecent(ctx context.Context, adminID string, limit int) ([]Entry, error)
}

// auditRepository implements AuditRepository with MariaDB queries.
type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new repository backed by the given DB pool.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Log inserts a new access audit entry.
func (r *auditRepository) Log(ctx context.Context, e *Entry) error {
	query := `INSERT INTO access_audit (admin_id, action, purpose, profile_id, reason, path, remote_ip, attempts, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, query,
		e.AdminID, string(e.Action), e.Purpose, e.ProfileID,
		e.Reason, e.Path, e.RemoteIP, e.Attempts, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting audit entry id: %w", err)
	}
	e.ID = id

	return nil
}

// ListRecent returns an administrator's newest entries.
func (r *auditRepository) ListRecent(ctx context.Context, adminID string, limit int) ([]Entry, error) {
	query := `SELECT id, admin_id, action, purpose, profile_id, reason, path, remote_ip, attempts, created_at
	          FROM access_audit
	          WHERE admin_id = ?
	          ORDER BY created_at DESC, id DESC
	          LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, adminID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var action string
		if err := rows.Scan(
			&e.ID, &e.AdminID, &action, &e.Purpose, &e.ProfileID,
			&e.Reason, &e.Path, &e.RemoteIP, &e.Attempts, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Action = Action(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	return entries, nil
}
