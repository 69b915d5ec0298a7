package store

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"clinicore/internal/identity"
	dErrors "clinicore/pkg/domain-errors"
	"clinicore/pkg/platform/sentinel"
)

// PostgresDirectory verifies credentials and resolves display names against
// the employees table. Account provisioning itself is external; this side
// only reads.
//
// Schema (managed externally):
//
//	CREATE TABLE employees (
//	    id            TEXT PRIMARY KEY,
//	    username      TEXT UNIQUE NOT NULL,
//	    display_name  TEXT NOT NULL,
//	    role          TEXT NOT NULL,
//	    password_hash TEXT NOT NULL
//	);
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// Verify checks the password against the stored bcrypt hash. Unknown users
// and wrong passwords are indistinguishable to the caller.
func (d *PostgresDirectory) Verify(ctx context.Context, username, password string) (*identity.Account, error) {
	query := `
		SELECT id, display_name, role, password_hash
		FROM employees
		WHERE username = $1
	`
	var (
		account identity.Account
		hash    string
	)
	err := d.db.QueryRowContext(ctx, query, username).Scan(&account.ID, &account.DisplayName, &account.Role, &hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, fmt.Errorf("lookup employee: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	return &account, nil
}

// DisplayName resolves a user ID to its display name. A missing row is
// reported with sentinel.ErrNotFound so callers can degrade the display.
func (d *PostgresDirectory) DisplayName(ctx context.Context, userID string) (string, error) {
	var name string
	err := d.db.QueryRowContext(ctx, `SELECT display_name FROM employees WHERE id = $1`, userID).Scan(&name)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("employee %s: %w", userID, sentinel.ErrNotFound)
		}
		return "", fmt.Errorf("lookup display name: %w", err)
	}
	return name, nil
}
