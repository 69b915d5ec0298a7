//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicore/internal/audit"
	"clinicore/internal/audit/store/postgres"
	"clinicore/pkg/testutil/containers"
)

const auditSchema = `
CREATE TABLE audit_entries (
    id         UUID PRIMARY KEY,
    user_id    TEXT NOT NULL,
    action     TEXT NOT NULL,
    payload    JSONB,
    created_at TIMESTAMPTZ NOT NULL,
    seq        BIGSERIAL
);
CREATE INDEX audit_entries_user_created ON audit_entries (user_id, created_at DESC);
`

func TestPostgresAuditStore(t *testing.T) {
	pc := containers.NewPostgresContainer(t, auditSchema)
	st := postgres.New(pc.DB)
	ctx := context.Background()

	newEntry := func(userID, action string, at time.Time) audit.Entry {
		return audit.Entry{
			ID:        uuid.New(),
			UserID:    userID,
			Action:    action,
			Payload:   audit.Payload{"source": "integration"},
			CreatedAt: at,
		}
	}

	t.Run("append and list newest first", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Microsecond)
		first := newEntry("u1", "patient.created", base)
		second := newEntry("u1", "sale.created", base.Add(time.Minute))
		require.NoError(t, st.Append(ctx, first))
		require.NoError(t, st.Append(ctx, second))

		entries, err := st.List(ctx, audit.ScopeAll(), 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, second.ID, entries[0].ID)
		assert.Equal(t, first.ID, entries[1].ID)
		assert.Equal(t, "integration", entries[0].Payload["source"])
	})

	t.Run("duplicate id is a no-op", func(t *testing.T) {
		entry := newEntry("u1", "patient.updated", time.Now().UTC())
		require.NoError(t, st.Append(ctx, entry))

		dup := entry
		dup.Action = "something.else"
		require.NoError(t, st.Append(ctx, dup), "a retried write must not fail")

		entries, err := st.List(ctx, audit.ScopeAll(), 50)
		require.NoError(t, err)
		seen := 0
		for _, e := range entries {
			if e.ID == entry.ID {
				seen++
				assert.Equal(t, "patient.updated", e.Action, "the first write wins")
			}
		}
		assert.Equal(t, 1, seen)
	})

	t.Run("timestamp ties rank the later insert first", func(t *testing.T) {
		at := time.Now().UTC().Truncate(time.Microsecond).Add(time.Hour)
		older := newEntry("tie", "first", at)
		newer := newEntry("tie", "second", at)
		require.NoError(t, st.Append(ctx, older))
		require.NoError(t, st.Append(ctx, newer))

		entries, err := st.List(ctx, audit.ScopeUser("tie"), 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "second", entries[0].Action)
	})

	t.Run("user scope filters", func(t *testing.T) {
		require.NoError(t, st.Append(ctx, newEntry("u2", "employee.updated", time.Now().UTC())))

		entries, err := st.List(ctx, audit.ScopeUser("u2"), 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "u2", entries[0].UserID)
	})

	t.Run("limit caps the page", func(t *testing.T) {
		entries, err := st.List(ctx, audit.ScopeAll(), 2)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})
}
