package everify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type Action string

const (
	ActionAuthenticate Action = "authenticate"
	ActionVerifyPerson Action = "verify-person"
	ActionQRCheck      Action = "qr-check"
	ActionQRVerify     Action = "qr-verify"
)

// Actions lists every lane in display order.
var Actions = []Action{ActionAuthenticate, ActionVerifyPerson, ActionQRCheck, ActionQRVerify}

func (a Action) Path() string {
	switch a {
	case ActionAuthenticate:
		return PathAuth
	case ActionVerifyPerson:
		return PathQuery
	case ActionQRCheck:
		return PathQRCheck
	case ActionQRVerify:
		return PathQRVerify
	}
	return ""
}

type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeUnsuccessful   Outcome = "unsuccessful"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeNoCredential   Outcome = "no_credential"
	OutcomeBusy           Outcome = "busy"
)

// Result is what the response pane shows for one dispatch. Response is
// either the API's JSON body verbatim or an {"error": ...} payload.
type Result struct {
	ID         string          `json:"id"`
	Action     Action          `json:"action"`
	Method     string          `json:"method"`
	URL        string          `json:"url"`
	Request    json.RawMessage `json:"request,omitempty"` // secrets masked
	StatusCode int             `json:"status_code,omitempty"`
	Response   json.RawMessage `json:"response"`
	Notice     string          `json:"notice,omitempty"`
	Outcome    Outcome         `json:"outcome"`
	StartedAt  time.Time       `json:"started_at"`
	Duration   time.Duration   `json:"duration"`
	Err        error           `json:"-"`
}

// Pretty renders Response with two-space indentation.
func (r Result) Pretty() string {
	return prettyJSON(r.Response)
}

func (r Result) PrettyRequest() string {
	return prettyJSON(r.Request)
}

func prettyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// Observer sees every finished dispatch, including rejected ones.
type Observer interface {
	Observe(ctx context.Context, r Result)
}

type ObserverFunc func(ctx context.Context, r Result)

func (f ObserverFunc) Observe(ctx context.Context, r Result) { f(ctx, r) }

type lane struct{ busy atomic.Bool }

// Dispatcher turns one operator action into exactly one HTTP request.
type Dispatcher struct {
	store   *Store
	session *Session
	client  *Client
	clock   clockwork.Clock

	lanes     map[Action]*lane
	observers []Observer
}

type Option func(*Dispatcher)

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observers = append(d.observers, o) }
}

func WithClock(c clockwork.Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

func NewDispatcher(store *Store, session *Session, client *Client, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:   store,
		session: session,
		client:  client,
		clock:   clockwork.NewRealClock(),
		lanes:   make(map[Action]*lane, len(Actions)),
	}
	for _, a := range Actions {
		d.lanes[a] = &lane{}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// InFlight reports whether a lane is waiting on the API.
func (d *Dispatcher) InFlight(a Action) bool {
	l, ok := d.lanes[a]
	return ok && l.busy.Load()
}

// Authenticate posts the configured client id/secret to {base}/auth and, on a
// 2xx response carrying data.access_token, stores the token in the session.
func (d *Dispatcher) Authenticate(ctx context.Context) (res Result, err error) {
	cfg := d.store.Config()
	req := AuthRequest{ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret}
	shown := AuthRequest{ClientID: cfg.ClientID, ClientSecret: Mask(cfg.ClientSecret)}

	l := d.lanes[ActionAuthenticate]
	if !l.busy.CompareAndSwap(false, true) {
		return d.reject(ctx, ActionAuthenticate, ErrBusy)
	}
	defer l.busy.Store(false)
	defer func() { d.observe(ctx, res) }()

	res, err = d.send(ctx, ActionAuthenticate, req, shown, "")
	var te *TransportError
	if errors.As(err, &te) {
		res.Notice = NoticeNetworkError
		return res, err
	}

	var ar authResponse
	_ = json.Unmarshal(res.Response, &ar)
	if err != nil || ar.Data.AccessToken == "" {
		res.Notice = NoticeAuthFailed
		if err == nil {
			err = fmt.Errorf("%w: response has no data.access_token", ErrAuthFailed)
		} else {
			err = fmt.Errorf("%w: %w", ErrAuthFailed, err)
		}
		res.Outcome = OutcomeUnsuccessful
		res.Err = err
		return res, err
	}

	d.session.set(ar.Data.AccessToken)
	return res, nil
}

func (d *Dispatcher) VerifyPerson(ctx context.Context, p Person) (Result, error) {
	return d.authorized(ctx, ActionVerifyPerson, p)
}

func (d *Dispatcher) CheckQR(ctx context.Context, value string) (Result, error) {
	return d.authorized(ctx, ActionQRCheck, QRCheckRequest{Value: value})
}

func (d *Dispatcher) VerifyQR(ctx context.Context, value, faceLivenessSessionID string) (Result, error) {
	return d.authorized(ctx, ActionQRVerify, QRVerifyRequest{Value: value, FaceLivenessSessionID: faceLivenessSessionID})
}

// Bearer resolves the Authorization credential: the session token when
// present, otherwise the configured API key.
func (d *Dispatcher) Bearer() (string, bool) {
	if tok := d.session.Token(); tok != "" {
		return tok, true
	}
	if key := d.store.Config().APIKey; key != "" {
		return key, true
	}
	return "", false
}

func (d *Dispatcher) authorized(ctx context.Context, action Action, payload any) (res Result, err error) {
	bearer, ok := d.Bearer()
	if !ok {
		return d.reject(ctx, action, ErrNoCredential)
	}

	l := d.lanes[action]
	if !l.busy.CompareAndSwap(false, true) {
		return d.reject(ctx, action, ErrBusy)
	}
	defer l.busy.Store(false)
	defer func() { d.observe(ctx, res) }()

	return d.send(ctx, action, payload, payload, bearer)
}

func (d *Dispatcher) send(ctx context.Context, action Action, payload, shown any, bearer string) (Result, error) {
	res := Result{
		ID:        uuid.NewString(),
		Action:    action,
		Method:    http.MethodPost,
		URL:       d.store.BaseURL() + action.Path(),
		StartedAt: d.clock.Now(),
	}
	res.Request, _ = json.Marshal(shown)

	status, body, err := d.client.Post(ctx, res.URL, payload, bearer)
	res.Duration = d.clock.Since(res.StartedAt)
	res.StatusCode = status
	if err == nil {
		var probe any
		if uerr := json.Unmarshal(body, &probe); uerr != nil {
			err = fmt.Errorf("decode response: %w", uerr)
		}
	}
	if err != nil {
		res.Err = &TransportError{Op: string(action), Err: err}
		res.Response = errorPayload(err.Error())
		res.Outcome = OutcomeTransportError
		return res, res.Err
	}

	res.Response = body
	if status/100 != 2 {
		res.Err = &StatusError{Op: string(action), StatusCode: status, Body: body}
		res.Outcome = OutcomeUnsuccessful
		return res, res.Err
	}
	res.Outcome = OutcomeOK
	return res, nil
}

// reject reports a failure that happened before any network I/O.
func (d *Dispatcher) reject(ctx context.Context, action Action, cause error) (Result, error) {
	res := Result{
		ID:        uuid.NewString(),
		Action:    action,
		Method:    http.MethodPost,
		URL:       d.store.BaseURL() + action.Path(),
		StartedAt: d.clock.Now(),
		Err:       cause,
	}
	switch {
	case errors.Is(cause, ErrNoCredential):
		res.Outcome = OutcomeNoCredential
		res.Response = errorPayload(NoCredentialMessage)
	default:
		res.Outcome = OutcomeBusy
		res.Response = errorPayload("Request already in progress")
	}
	d.observe(ctx, res)
	return res, cause
}

func (d *Dispatcher) observe(ctx context.Context, r Result) {
	for _, o := range d.observers {
		o.Observe(ctx, r)
	}
}

func errorPayload(msg string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return b
}
