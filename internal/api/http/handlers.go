// Package http exposes the tester over HTTP: a server-rendered UI and a JSON
// API, both scoped to the caller's workspace.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/mind-engage/everify-tester/internal/history"
	"github.com/mind-engage/everify-tester/internal/workspace"
)

// Session keys
const (
	sessionName         = "everify-tester"
	sessionKeyWorkspace = "workspace_id"
)

// HistoryLister is the read side of the exchange history.
type HistoryLister interface {
	List(ctx context.Context, workspaceID string, limit int) ([]history.Exchange, error)
}

type Handlers struct {
	Registry     *workspace.Registry
	Sessions     sessions.Store
	History      HistoryLister // nil hides the history tab content
	HistoryLimit int
	TokenTTL     time.Duration
	Templates    *template.Template
	Logger       *slog.Logger
}

// NewSessionStore builds the cookie store holding the workspace id.
func NewSessionStore(secret string, maxAge time.Duration, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

type ctxKey string

const ctxKeyWorkspace ctxKey = "workspace"

func withWorkspace(ctx context.Context, w *workspace.Workspace) context.Context {
	return context.WithValue(ctx, ctxKeyWorkspace, w)
}

func workspaceFrom(ctx context.Context) *workspace.Workspace {
	w, _ := ctx.Value(ctxKeyWorkspace).(*workspace.Workspace)
	return w
}

// WithWorkspace resolves the caller's workspace from the session cookie,
// creating one on first visit or after it was swept.
func (h *Handlers) WithWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A cookie signed with an old secret yields a fresh session and an
		// error; the fresh session is fine.
		sess, err := h.Sessions.Get(r, sessionName)
		if err != nil {
			h.logger().Debug("session cookie rejected", "error", err)
		}
		id, _ := sess.Values[sessionKeyWorkspace].(string)
		ws, created := h.Registry.GetOrCreate(id)
		if created {
			sess.Values[sessionKeyWorkspace] = ws.ID
			if err := sess.Save(r, w); err != nil {
				h.logger().Error("session save failed", "error", err)
				http.Error(w, "session error", http.StatusInternalServerError)
				return
			}
			h.logger().Info("workspace created", "workspace_id", ws.ID)
		}
		next.ServeHTTP(w, r.WithContext(withWorkspace(r.Context(), ws)))
	})
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *Handlers) historyLimit() int {
	if h.HistoryLimit > 0 {
		return h.HistoryLimit
	}
	return 50
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := h.Templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger().Error("template execution failed", "path", r.URL.Path, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
}

// ReadyHandler reports ready once every dependency answers a ping.
func ReadyHandler(deps ...Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, d := range deps {
			if d == nil {
				continue
			}
			if err := d.PingContext(ctx); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
