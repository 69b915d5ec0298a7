package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"clinicore/internal/audit"
)

// Store persists audit entries in the audit_entries table.
//
// Schema (managed externally):
//
//	CREATE TABLE audit_entries (
//	    id         UUID PRIMARY KEY,
//	    user_id    TEXT NOT NULL,
//	    action     TEXT NOT NULL,
//	    payload    JSONB,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    seq        BIGSERIAL
//	);
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes one entry. Duplicate IDs are ignored so a retried write
// cannot double-record an action.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_entries (id, user_id, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Action,
		payload,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns the most recent entries visible to scope.
func (s *Store) List(ctx context.Context, scope audit.Scope, limit int) ([]audit.Entry, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if userID, restricted := scope.UserID(); restricted {
		query := `
			SELECT id, user_id, action, payload, created_at, seq
			FROM audit_entries
			WHERE user_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		`
		rows, err = s.db.QueryContext(ctx, query, userID, limit)
	} else {
		query := `
			SELECT id, user_id, action, payload, created_at, seq
			FROM audit_entries
			ORDER BY created_at DESC, seq DESC
			LIMIT $1
		`
		rows, err = s.db.QueryContext(ctx, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry

	for rows.Next() {
		var (
			entry   audit.Entry
			payload []byte
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &payload, &entry.CreatedAt, &entry.Seq); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &entry.Payload); err != nil {
				return nil, fmt.Errorf("decode audit payload: %w", err)
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
