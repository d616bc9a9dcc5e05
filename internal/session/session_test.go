// ABOUTME: Tests for flash sessions over a real SQLite store
// ABOUTME: Covers put/pop round trips, one-shot reads, cookies and expired sessions

package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/ledger-portal/internal/store"
)

const testCookie = "portal_test"

func setupTestManager(t *testing.T) (*Manager, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	m := NewManager(s, Options{CookieName: testCookie, TTL: time.Hour}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return m, s
}

// carryCookies copies Set-Cookie headers from a response onto a new request.
func carryCookies(t *testing.T, rec *httptest.ResponseRecorder, method, target string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestManager_PutThenPop(t *testing.T) {
	m, _ := setupTestManager(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	err := m.Put(rec, req, "input", Flash{
		Success:  "Product successfully created!\nok",
		Snapshot: Snapshot{"recipeID": "r1", "consumedAssetIDs": []string{"1", "2"}},
	})
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	rec2 := httptest.NewRecorder()
	f, err := m.Pop(rec2, carryCookies(t, rec, http.MethodGet, "/input"), "input")
	require.NoError(t, err)
	assert.Equal(t, "Product successfully created!\nok", f.Success)
	assert.Empty(t, f.Error)
	assert.Equal(t, "r1", f.Snapshot["recipeID"])
	assert.Equal(t, []string{"1", "2"}, f.Snapshot["consumedAssetIDs"])
}

func TestManager_PopIsOneShot(t *testing.T) {
	m, _ := setupTestManager(t)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Put(rec, httptest.NewRequest(http.MethodPost, "/submit", nil), "input", Flash{Error: "Error creating product!"}))

	_, err := m.Pop(httptest.NewRecorder(), carryCookies(t, rec, http.MethodGet, "/input"), "input")
	require.NoError(t, err)

	f, err := m.Pop(httptest.NewRecorder(), carryCookies(t, rec, http.MethodGet, "/input"), "input")
	require.NoError(t, err)
	assert.True(t, f.Empty())
}

func TestManager_SnapshotsArePerPage(t *testing.T) {
	m, _ := setupTestManager(t)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Put(rec, httptest.NewRequest(http.MethodPost, "/submit_transfer", nil), "transfer", Flash{
		Success:  "Transfer successfull!",
		Snapshot: Snapshot{"shippingID": "s1"},
	}))

	f, err := m.Pop(httptest.NewRecorder(), carryCookies(t, rec, http.MethodGet, "/emissions"), "emissions")
	require.NoError(t, err)
	assert.Equal(t, "Transfer successfull!", f.Success)
	assert.Nil(t, f.Snapshot)

	f, err = m.Pop(httptest.NewRecorder(), carryCookies(t, rec, http.MethodGet, "/transfer"), "transfer")
	require.NoError(t, err)
	assert.Empty(t, f.Success)
	assert.Equal(t, "s1", f.Snapshot["shippingID"])
}

func TestManager_ReusesExistingSession(t *testing.T) {
	m, _ := setupTestManager(t)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Put(rec, httptest.NewRequest(http.MethodPost, "/submit", nil), "input", Flash{Success: "one"}))
	first := rec.Result().Cookies()[0].Value

	rec2 := httptest.NewRecorder()
	require.NoError(t, m.Put(rec2, carryCookies(t, rec, http.MethodPost, "/submit"), "input", Flash{Success: "two"}))
	assert.Equal(t, first, rec2.Result().Cookies()[0].Value)

	f, err := m.Pop(httptest.NewRecorder(), carryCookies(t, rec2, http.MethodGet, "/input"), "input")
	require.NoError(t, err)
	assert.Equal(t, "two", f.Success)
}

func TestManager_ConcurrentPutsKeepEverySnapshot(t *testing.T) {
	m, _ := setupTestManager(t)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Put(rec, httptest.NewRequest(http.MethodPost, "/submit", nil), "input", Flash{Success: "start"}))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	const tabs = 16
	errs := make(chan error, tabs)
	var wg sync.WaitGroup
	for i := 0; i < tabs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			page := fmt.Sprintf("page-%d", i)
			req := httptest.NewRequest(http.MethodPost, "/"+page, nil)
			req.AddCookie(cookies[0])
			errs <- m.Put(httptest.NewRecorder(), req, page, Flash{Snapshot: Snapshot{"n": page}})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for i := 0; i < tabs; i++ {
		page := fmt.Sprintf("page-%d", i)
		f, err := m.Pop(httptest.NewRecorder(), carryCookies(t, rec, http.MethodGet, "/"+page), page)
		require.NoError(t, err)
		assert.Equal(t, page, f.Snapshot["n"], "snapshot for %s lost", page)
	}
}

func TestManager_PopWithoutSession(t *testing.T) {
	m, _ := setupTestManager(t)

	rec := httptest.NewRecorder()
	f, err := m.Pop(rec, httptest.NewRequest(http.MethodGet, "/input", nil), "input")
	require.NoError(t, err)
	assert.True(t, f.Empty())
	assert.Empty(t, rec.Result().Cookies())
}

func TestManager_UnknownCookieStartsFresh(t *testing.T) {
	m, _ := setupTestManager(t)

	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "forged-id"})

	rec := httptest.NewRecorder()
	require.NoError(t, m.Put(rec, req, "input", Flash{Success: "ok"}))
	assert.NotEqual(t, "forged-id", rec.Result().Cookies()[0].Value)
}

func TestManager_Sweep(t *testing.T) {
	m, s := setupTestManager(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, &store.Session{
		ID:        "expired",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, m.Sweep(ctx))

	n, err := s.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
