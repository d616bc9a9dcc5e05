// ABOUTME: Cookie-backed flash sessions persisted in the store
// ABOUTME: Carries success/error messages and per-page form snapshots across one redirect

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/ledger-portal/internal/store"
)

// Snapshot is the submitted form echoed back to a page. Values are strings
// or string lists.
type Snapshot map[string]any

// Flash is what one page shows once after a redirect.
type Flash struct {
	Success  string
	Error    string
	Result   string // raw query result, shown on the overview page
	Snapshot Snapshot
}

// Empty reports whether there is nothing to show.
func (f Flash) Empty() bool {
	return f.Success == "" && f.Error == "" && f.Result == "" && len(f.Snapshot) == 0
}

type payload struct {
	SuccessMsg string              `json:"successMsg,omitempty"`
	ErrorMsg   string              `json:"errorMsg,omitempty"`
	Result     string              `json:"result,omitempty"`
	Snapshots  map[string]Snapshot `json:"snapshots,omitempty"`
}

// Options configures a Manager.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// lockStripes bounds the per-session locks; sessions sharing a stripe
// serialize against each other.
const lockStripes = 64

// Manager reads and writes flash sessions. Put and Pop on the same session
// are serialized so two tabs cannot overwrite each other's flash.
type Manager struct {
	store  store.SessionStore
	opts   Options
	logger *slog.Logger
	now    func() time.Time
	locks  [lockStripes]sync.Mutex
}

// NewManager creates a Manager over the given session store.
func NewManager(s store.SessionStore, opts Options, logger *slog.Logger) *Manager {
	return &Manager{store: s, opts: opts, logger: logger, now: time.Now}
}

// Put stores the messages and the snapshot for page, replacing earlier
// messages. A session and its cookie are created when the request has none.
func (m *Manager) Put(w http.ResponseWriter, r *http.Request, page string, f Flash) error {
	ctx := r.Context()
	defer m.lock(r)()

	sess, p, err := m.load(ctx, r)
	if err != nil {
		return err
	}

	p.SuccessMsg = f.Success
	p.ErrorMsg = f.Error
	p.Result = f.Result
	if f.Snapshot != nil {
		if p.Snapshots == nil {
			p.Snapshots = make(map[string]Snapshot)
		}
		p.Snapshots[page] = f.Snapshot
	}

	if sess == nil {
		return m.create(ctx, w, p)
	}
	return m.save(ctx, w, sess.ID, p)
}

// Pop returns the messages and the snapshot for page and removes them from
// the session. A request without a session yields an empty Flash.
func (m *Manager) Pop(w http.ResponseWriter, r *http.Request, page string) (Flash, error) {
	ctx := r.Context()
	defer m.lock(r)()

	sess, p, err := m.load(ctx, r)
	if err != nil || sess == nil {
		return Flash{}, err
	}

	f := Flash{
		Success:  p.SuccessMsg,
		Error:    p.ErrorMsg,
		Result:   p.Result,
		Snapshot: p.Snapshots[page],
	}
	if f.Empty() {
		return f, nil
	}

	p.SuccessMsg = ""
	p.ErrorMsg = ""
	p.Result = ""
	delete(p.Snapshots, page)
	if err := m.save(ctx, w, sess.ID, p); err != nil {
		return f, err
	}
	return f, nil
}

// Sweep deletes expired sessions.
func (m *Manager) Sweep(ctx context.Context) error {
	_, err := m.store.DeleteExpiredSessions(ctx)
	return err
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.Sweep(ctx); err != nil && ctx.Err() == nil {
				m.logger.Warn("sweeping expired sessions", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// lock takes the stripe lock for the request's session cookie and returns
// its unlock. Requests without a cookie create a fresh session and need none.
func (m *Manager) lock(r *http.Request) func() {
	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return func() {}
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(cookie.Value))
	mu := &m.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// load returns the request's live session and its decoded payload. A missing
// cookie or an unknown/expired session yields a nil session and empty payload.
func (m *Manager) load(ctx context.Context, r *http.Request) (*store.Session, payload, error) {
	var p payload

	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, p, nil
	}

	sess, err := m.store.GetSession(ctx, cookie.Value)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, p, nil
	}
	if err != nil {
		return nil, p, fmt.Errorf("loading session: %w", err)
	}

	if err := json.Unmarshal(sess.Data, &p); err != nil {
		m.logger.Warn("discarding unreadable session data", "session_id", sess.ID, "error", err)
		return sess, payload{}, nil
	}
	for _, snap := range p.Snapshots {
		normalize(snap)
	}
	return sess, p, nil
}

func (m *Manager) create(ctx context.Context, w http.ResponseWriter, p payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	now := m.now()
	sess := &store.Session{
		ID:        uuid.New().String(),
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(m.opts.TTL),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	m.setCookie(w, sess.ID)
	return nil
}

func (m *Manager) save(ctx context.Context, w http.ResponseWriter, id string, p payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	if err := m.store.UpdateSession(ctx, id, data, m.now().Add(m.opts.TTL)); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	m.setCookie(w, id)
	return nil
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// normalize turns JSON-decoded string arrays back into []string.
func normalize(s Snapshot) {
	for k, v := range s {
		list, ok := v.([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(list))
		for _, item := range list {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		s[k] = out
	}
}
