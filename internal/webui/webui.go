// ABOUTME: Server-rendered pages and form handlers for the ledger portal
// ABOUTME: Each form calls one ledger operation, stores a flash message and redirects back

package webui

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sort"

	"github.com/yuin/goldmark"

	"github.com/2389/ledger-portal/internal/ledger"
	"github.com/2389/ledger-portal/internal/session"
	"github.com/2389/ledger-portal/internal/store"
	"github.com/2389/ledger-portal/internal/upload"
)

// Ledger is the subset of ledger.Service the pages call.
type Ledger interface {
	CreateProduct(ctx context.Context, in ledger.ProductInput) (string, error)
	CreateTransfer(ctx context.Context, in ledger.TransferInput) (string, error)
	ConfirmTransfer(ctx context.Context, in ledger.ConfirmInput) (string, error)
	RecordEmissions(ctx context.Context, in ledger.EmissionsInput) (string, error)
	Configure(ctx context.Context, cfg ledger.GatewayConfig) error
	QueryProduct(ctx context.Context, assetID string) (string, error)
	Current() (ledger.GatewayConfig, bool)
}

// Config holds page-surface settings.
type Config struct {
	// Presets are selectable on the settings page by name.
	Presets map[string]ledger.GatewayConfig

	// SettingsPasswordHash is a bcrypt hash guarding the settings form; empty
	// leaves the form open.
	SettingsPasswordHash string
}

// UI serves the portal pages.
type UI struct {
	ledger    Ledger
	sessions  *session.Manager
	activity  store.ActivityStore
	uploads   *upload.Saver
	config    Config
	logger    *slog.Logger
	templates map[string]*template.Template
	home      template.HTML
}

var pages = []string{"index", "input", "transfer", "emissions", "settings", "overview"}

// New parses the embedded templates and renders the home page markdown.
func New(l Ledger, sessions *session.Manager, activity store.ActivityStore, uploads *upload.Saver, cfg Config, logger *slog.Logger) (*UI, error) {
	u := &UI{
		ledger:    l,
		sessions:  sessions,
		activity:  activity,
		uploads:   uploads,
		config:    cfg,
		logger:    logger,
		templates: make(map[string]*template.Template, len(pages)),
	}

	for _, page := range pages {
		tmpl, err := template.New("base.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/base.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", page, err)
		}
		u.templates[page] = tmpl
	}

	md, err := docsFS.ReadFile("docs/home.md")
	if err != nil {
		return nil, fmt.Errorf("reading home page: %w", err)
	}
	var buf bytes.Buffer
	if err := goldmark.Convert(md, &buf); err != nil {
		return nil, fmt.Errorf("converting home page: %w", err)
	}
	u.home = template.HTML(buf.String())

	return u, nil
}

// RegisterRoutes registers all page routes on the given mux
func (u *UI) RegisterRoutes(mux *http.ServeMux) {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		// the embed directive guarantees the directory exists
		panic(err)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	mux.HandleFunc("GET /{$}", u.handleIndex)
	mux.HandleFunc("GET /input", u.page("input", "Create Product"))
	mux.HandleFunc("GET /transfer", u.page("transfer", "Transfer"))
	mux.HandleFunc("GET /emissions", u.page("emissions", "Emissions"))
	mux.HandleFunc("GET /settings", u.page("settings", "Settings"))
	mux.HandleFunc("GET /overview", u.page("overview", "Overview"))

	mux.HandleFunc("POST /submit", u.handleSubmitProduct)
	mux.HandleFunc("POST /submit_transfer", u.handleSubmitTransfer)
	mux.HandleFunc("POST /submit_transfer_confirm", u.handleSubmitTransferConfirm)
	mux.HandleFunc("POST /submit_emissions", u.handleSubmitEmissions)
	mux.HandleFunc("POST /submit_settings", u.handleSubmitSettings)
	mux.HandleFunc("POST /submit_overview", u.handleSubmitOverview)

	u.logger.Info("page routes registered")
}

func (u *UI) presetNames() []string {
	names := make([]string, 0, len(u.config.Presets))
	for name := range u.config.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// record appends the outcome of op to the activity log. Failures to record
// are logged and otherwise ignored.
func (u *UI) record(ctx context.Context, op ledger.Operation, result string, opErr error) {
	entry := &store.ActivityEntry{
		Operation: op.Name,
		Source:    store.SourceWeb,
		Status:    store.ActivitySucceeded,
		Result:    result,
	}
	if opErr != nil {
		entry.Status = store.ActivityFailed
		entry.Error = opErr.Error()
	}
	if err := u.activity.AppendActivity(ctx, entry); err != nil {
		u.logger.Warn("failed to record activity", "operation", op.Name, "error", err)
	}
}
