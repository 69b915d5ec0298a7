//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicore/internal/identity"
	"clinicore/internal/identity/store"
	"clinicore/pkg/platform/sentinel"
	"clinicore/pkg/testutil/containers"
)

func TestRedisLoginSessionStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	st := store.NewRedis(rc.Client)
	ctx := context.Background()

	newSession := func(jti, userID string) identity.LoginSession {
		now := time.Now().UTC().Truncate(time.Second)
		return identity.LoginSession{
			JTI:       jti,
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}
	}

	t.Run("put then get round trips", func(t *testing.T) {
		session := newSession("jti-1", "u1")
		require.NoError(t, st.Put(ctx, session, time.Hour))

		got, err := st.Get(ctx, "jti-1")
		require.NoError(t, err)
		assert.Equal(t, session.UserID, got.UserID)
		assert.True(t, session.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("missing session reports not found", func(t *testing.T) {
		_, err := st.Get(ctx, "never-issued")
		require.Error(t, err)
		assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	})

	t.Run("delete revokes immediately", func(t *testing.T) {
		require.NoError(t, st.Put(ctx, newSession("jti-2", "u1"), time.Hour))
		require.NoError(t, st.Delete(ctx, "jti-2"))

		_, err := st.Get(ctx, "jti-2")
		assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	})

	t.Run("delete of an absent session is not an error", func(t *testing.T) {
		assert.NoError(t, st.Delete(ctx, "already-gone"))
	})

	t.Run("expired key disappears", func(t *testing.T) {
		require.NoError(t, st.Put(ctx, newSession("jti-3", "u1"), 200*time.Millisecond))
		time.Sleep(400 * time.Millisecond)

		_, err := st.Get(ctx, "jti-3")
		assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	})

	t.Run("corrupt payload reports corruption", func(t *testing.T) {
		require.NoError(t, rc.Client.Set(ctx, "login-session:mangled", "{not json", time.Hour).Err())

		_, err := st.Get(ctx, "mangled")
		require.Error(t, err)
		assert.True(t, errors.Is(err, sentinel.ErrCorrupt))
	})
}
