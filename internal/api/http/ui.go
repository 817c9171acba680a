package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/everify-tester/internal/everify"
	"github.com/mind-engage/everify-tester/internal/history"
	"github.com/mind-engage/everify-tester/internal/workspace"
)

const (
	tabConfig  = "config"
	tabAuth    = "auth"
	tabVerify  = "verify"
	tabQR      = "qr"
	tabHistory = "history"
)

var tabs = []tabView{
	{ID: tabConfig, Title: "Configuration"},
	{ID: tabAuth, Title: "Authentication"},
	{ID: tabVerify, Title: "Verification"},
	{ID: tabQR, Title: "QR Testing"},
	{ID: tabHistory, Title: "History"},
}

// MountUI registers the page and its form posts. Every post redirects back
// to the page so a reload never resends a request.
func MountUI(r chi.Router, h *Handlers) {
	r.Get("/", h.page)
	r.Post("/ui/config", h.uiConfig)
	r.Post("/ui/auth", h.uiAuth)
	r.Post("/ui/auth/clear", h.uiClearToken)
	r.Post("/ui/verify", h.uiVerify)
	r.Post("/ui/verify/sample", h.uiVerifySample)
	r.Post("/ui/qr/sample", h.uiQRSample)
	r.Post("/ui/qr/check", h.uiQRCheck)
	r.Post("/ui/qr/verify", h.uiQRVerify)
}

type tabView struct {
	ID    string
	Title string
}

type resultView struct {
	Method     string
	URL        string
	Request    string
	StatusCode int
	Outcome    string
	Notice     string
	Response   string
	Duration   string
	OK         bool
}

func newResultView(r everify.Result) *resultView {
	return &resultView{
		Method:     r.Method,
		URL:        r.URL,
		Request:    r.PrettyRequest(),
		StatusCode: r.StatusCode,
		Outcome:    string(r.Outcome),
		Notice:     r.Notice,
		Response:   r.Pretty(),
		Duration:   r.Duration.Round(time.Millisecond).String(),
		OK:         r.Outcome == everify.OutcomeOK,
	}
}

type pageView struct {
	Tab    string
	Tabs   []tabView
	Flash  []string
	Config everify.Config // secrets masked

	BaseURL         string
	TierLabel       string
	IsSandbox       bool
	CanAuthenticate bool
	HasCredential   bool
	Session         everify.SessionState
	TokenTTL        string

	AuthURL     string
	AuthPreview string

	Forms     workspace.Forms
	QRSamples []everify.QRSample

	Results  map[string]*resultView // keyed by action name
	InFlight map[string]bool

	History    []history.Exchange
	HistoryErr string
}

func (h *Handlers) page(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	tab := r.URL.Query().Get("tab")
	if !validTab(tab) {
		tab = tabConfig
	}

	cfg := ws.Store.Config()
	_, hasCred := ws.Dispatcher.Bearer()
	v := pageView{
		Tab:             tab,
		Tabs:            tabs,
		Flash:           h.flashes(w, r),
		Config:          cfg.Redacted(),
		BaseURL:         ws.Store.BaseURL(),
		TierLabel:       cfg.TierLabel(),
		IsSandbox:       cfg.Environment == everify.Sandbox,
		CanAuthenticate: cfg.CanAuthenticate(),
		HasCredential:   hasCred,
		Session:         ws.Session.State(),
		TokenTTL:        h.tokenTTL(),
		AuthURL:         ws.Store.BaseURL() + everify.PathAuth,
		AuthPreview:     authPreview(cfg),
		Forms:           ws.Forms(),
		QRSamples:       everify.SandboxQRSamples(),
		Results:         map[string]*resultView{},
		InFlight:        map[string]bool{},
	}
	for _, a := range everify.Actions {
		if res, ok := ws.Result(a); ok {
			v.Results[string(a)] = newResultView(res)
		}
		v.InFlight[string(a)] = ws.Dispatcher.InFlight(a)
	}
	if tab == tabHistory && h.History != nil {
		items, err := h.History.List(r.Context(), ws.ID, h.historyLimit())
		if err != nil {
			h.logger().Error("history list failed", "workspace_id", ws.ID, "error", err)
			v.HistoryErr = "History is unavailable."
		}
		v.History = items
	}
	h.render(w, r, "index.html", v)
}

func (h *Handlers) tokenTTL() string {
	if h.TokenTTL <= 0 {
		return everify.DefaultTokenTTL.String()
	}
	return h.TokenTTL.String()
}

func validTab(tab string) bool {
	for _, t := range tabs {
		if t.ID == tab {
			return true
		}
	}
	return false
}

// authPreview is the body the next authenticate will send, secret masked.
func authPreview(cfg everify.Config) string {
	req := everify.AuthRequest{ClientID: cfg.ClientID, ClientSecret: everify.Mask(cfg.ClientSecret)}
	b, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

func (h *Handlers) uiConfig(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	field := r.PostForm.Get("field")
	if err := ws.Store.Set(everify.Field(field), r.PostForm.Get("value")); err != nil {
		h.flash(w, r, err.Error())
	} else {
		h.logger().Info("config changed", "workspace_id", ws.ID, "field", field)
	}
	h.redirect(w, r, tabConfig)
}

func (h *Handlers) uiAuth(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	_, err := ws.Dispatcher.Authenticate(r.Context())
	h.flashDispatch(w, r, err)
	h.redirect(w, r, tabAuth)
}

func (h *Handlers) uiClearToken(w http.ResponseWriter, r *http.Request) {
	workspaceFrom(r.Context()).ClearToken()
	h.redirect(w, r, tabAuth)
}

func (h *Handlers) uiVerify(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	p := personFromForm(r.PostForm)
	ws.SetPerson(p)
	_, err := ws.Dispatcher.VerifyPerson(r.Context(), p)
	h.flashDispatch(w, r, err)
	h.redirect(w, r, tabVerify)
}

func (h *Handlers) uiVerifySample(w http.ResponseWriter, r *http.Request) {
	workspaceFrom(r.Context()).SetPerson(everify.SamplePerson())
	h.redirect(w, r, tabVerify)
}

func (h *Handlers) uiQRSample(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	samples := everify.SandboxQRSamples()
	i, err := strconv.Atoi(r.PostForm.Get("sample"))
	if err != nil || i < 0 || i >= len(samples) {
		http.Error(w, "unknown sample", http.StatusBadRequest)
		return
	}
	ws.SetQRValue(samples[i].Value)
	h.redirect(w, r, tabQR)
}

func (h *Handlers) uiQRCheck(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	value := r.PostForm.Get("value")
	ws.SetQRValue(value)
	_, err := ws.Dispatcher.CheckQR(r.Context(), value)
	h.flashDispatch(w, r, err)
	h.redirect(w, r, tabQR)
}

func (h *Handlers) uiQRVerify(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	value := r.PostForm.Get("value")
	liveness := r.PostForm.Get("face_liveness_session_id")
	ws.SetQR(value, liveness)
	_, err := ws.Dispatcher.VerifyQR(r.Context(), value, liveness)
	h.flashDispatch(w, r, err)
	h.redirect(w, r, tabQR)
}

func personFromForm(f url.Values) everify.Person {
	return everify.Person{
		FirstName:             f.Get("first_name"),
		MiddleName:            f.Get("middle_name"),
		LastName:              f.Get("last_name"),
		Suffix:                f.Get("suffix"),
		BirthDate:             f.Get("birth_date"),
		FaceLivenessSessionID: f.Get("face_liveness_session_id"),
	}
}

// flashDispatch turns dispatch failures into a one-line notice. The full
// payload is already in the lane's response pane.
func (h *Handlers) flashDispatch(w http.ResponseWriter, r *http.Request, err error) {
	var te *everify.TransportError
	switch {
	case err == nil:
	case errors.Is(err, everify.ErrBusy):
		h.flash(w, r, "A request for this action is already in progress.")
	case errors.Is(err, everify.ErrNoCredential):
		h.flash(w, r, everify.NoCredentialMessage)
	case errors.As(err, &te):
		h.flash(w, r, everify.NoticeNetworkError)
	case errors.Is(err, everify.ErrAuthFailed):
		h.flash(w, r, everify.NoticeAuthFailed)
	}
}

func (h *Handlers) flash(w http.ResponseWriter, r *http.Request, msg string) {
	sess, _ := h.Sessions.Get(r, sessionName)
	sess.AddFlash(msg)
	if err := sess.Save(r, w); err != nil {
		h.logger().Error("session save failed", "error", err)
	}
}

func (h *Handlers) flashes(w http.ResponseWriter, r *http.Request) []string {
	sess, _ := h.Sessions.Get(r, sessionName)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		h.logger().Error("session save failed", "error", err)
	}
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, tab string) {
	http.Redirect(w, r, "/?tab="+tab, http.StatusSeeOther)
}
