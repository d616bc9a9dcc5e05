// ABOUTME: Page rendering for the portal: template data, helper funcs and GET handlers
// ABOUTME: Each page pops its one-shot flash before rendering

package webui

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/2389/ledger-portal/internal/ledger"
	"github.com/2389/ledger-portal/internal/session"
	"github.com/2389/ledger-portal/internal/store"
)

var templateFuncs = template.FuncMap{
	"join":  joinValue,
	"value": snapshotValue,
	"lines": func(s string) []string { return strings.Split(s, "\n") },
}

// joinValue renders a snapshot value for an input field.
func joinValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	default:
		return ""
	}
}

// snapshotValue returns the echoed value of field, or "".
func snapshotValue(s session.Snapshot, field string) string {
	if s == nil {
		return ""
	}
	return joinValue(s[field])
}

type pageData struct {
	Title     string
	Page      string
	Success   string
	Error     string
	Result    string
	Snapshot  session.Snapshot
	Connected bool
	Gateway   ledger.GatewayConfig
	Presets   []string
	Activity  []store.ActivityEntry
	Home      template.HTML
}

func (u *UI) render(w http.ResponseWriter, page string, data pageData) {
	tmpl, ok := u.templates[page]
	if !ok {
		http.Error(w, "Page not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		u.logger.Error("failed to render page", "page", page, "error", err)
	}
}

// load builds the common data for page, consuming its flash.
func (u *UI) load(w http.ResponseWriter, r *http.Request, page, title string) pageData {
	flash, err := u.sessions.Pop(w, r, page)
	if err != nil {
		u.logger.Warn("failed to read flash", "page", page, "error", err)
	}

	gw, connected := u.ledger.Current()
	return pageData{
		Title:     title,
		Page:      page,
		Success:   flash.Success,
		Error:     flash.Error,
		Result:    flash.Result,
		Snapshot:  flash.Snapshot,
		Connected: connected,
		Gateway:   gw,
	}
}

func (u *UI) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := u.load(w, r, "index", "Home")
	data.Home = u.home
	u.render(w, "index", data)
}

// page returns a GET handler for a form page.
func (u *UI) page(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := u.load(w, r, name, title)

		switch name {
		case "settings":
			data.Presets = u.presetNames()
		case "overview":
			entries, err := u.activity.ListActivity(r.Context(), store.ActivityFilter{Limit: 20})
			if err != nil {
				u.logger.Warn("failed to list activity", "error", err)
			}
			data.Activity = entries
		}

		u.render(w, name, data)
	}
}
