// ABOUTME: Tests for session persistence
// ABOUTME: Covers create/get/update/delete, expiry filtering and expired sweeps

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	session := &Session{
		ID:        "sess-1",
		Data:      []byte(`{"successMsg":"ok"}`),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, store.CreateSession(ctx, session))

	got, err := store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.ID)
	assert.JSONEq(t, `{"successMsg":"ok"}`, string(got.Data))
	assert.True(t, got.CreatedAt.Equal(now))
	assert.True(t, got.ExpiresAt.Equal(now.Add(time.Hour)))
}

func TestSession_NilDataStoredAsEmptyObject(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, &Session{
		ID:        "sess-empty",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	got, err := store.GetSession(ctx, "sess-empty")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got.Data))
}

func TestSession_GetMissing(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSession_GetExpired(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, &Session{
		ID:        "sess-old",
		Data:      []byte("{}"),
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	_, err := store.GetSession(ctx, "sess-old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSession_Update(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, &Session{
		ID:        "sess-1",
		Data:      []byte("{}"),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	newExpiry := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, store.UpdateSession(ctx, "sess-1", []byte(`{"errorMsg":"bad"}`), newExpiry))

	got, err := store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"errorMsg":"bad"}`, string(got.Data))
	assert.True(t, got.ExpiresAt.Equal(newExpiry))
}

func TestSession_UpdateMissing(t *testing.T) {
	store := setupTestStore(t)

	err := store.UpdateSession(context.Background(), "ghost", []byte("{}"), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSession_DeleteExpired(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, s := range []*Session{
		{ID: "live", ExpiresAt: time.Now().Add(time.Hour)},
		{ID: "dead-1", ExpiresAt: time.Now().Add(-time.Minute)},
		{ID: "dead-2", ExpiresAt: time.Now().Add(-time.Hour)},
	} {
		s.CreatedAt = time.Now().Add(-2 * time.Hour)
		require.NoError(t, store.CreateSession(ctx, s))
	}

	removed, err := store.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = store.GetSession(ctx, "live")
	require.NoError(t, err)
}
