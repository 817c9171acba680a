// Package workspace keeps one in-memory tester state per browser: its
// configuration store, token session, dispatcher, form values and the last
// response shown in each lane.
package workspace

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mind-engage/everify-tester/internal/everify"
)

// Forms holds what the operator typed into the verify and QR tabs.
type Forms struct {
	Person       everify.Person
	QRValue      string
	QRLivenessID string
}

func defaultForms() Forms {
	return Forms{
		Person:       everify.SamplePerson(),
		QRValue:      everify.DefaultQRValue,
		QRLivenessID: everify.DefaultQRLivenessID,
	}
}

type Workspace struct {
	ID         string
	Store      *everify.Store
	Session    *everify.Session
	Dispatcher *everify.Dispatcher

	mu       sync.Mutex
	forms    Forms
	results  map[everify.Action]everify.Result
	lastSeen time.Time
}

func (w *Workspace) Forms() Forms {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.forms
}

func (w *Workspace) SetPerson(p everify.Person) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.forms.Person = p
}

func (w *Workspace) SetQR(value, livenessID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.forms.QRValue = value
	w.forms.QRLivenessID = livenessID
}

// SetQRValue changes only the shared QR value, e.g. when loading a sample.
func (w *Workspace) SetQRValue(value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.forms.QRValue = value
}

// Result returns the last response recorded for a lane.
func (w *Workspace) Result(a everify.Action) (everify.Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.results[a]
	return r, ok
}

func (w *Workspace) ClearResult(a everify.Action) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.results, a)
}

// ClearToken drops the session token and the authenticate pane with it.
func (w *Workspace) ClearToken() {
	w.Session.Clear()
	w.ClearResult(everify.ActionAuthenticate)
}

// Observe keeps the latest result per lane. A rejected re-entry does not
// replace the pane of the call that is still running.
func (w *Workspace) Observe(_ context.Context, r everify.Result) {
	if errors.Is(r.Err, everify.ErrBusy) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results[r.Action] = r
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// Hook receives every finished dispatch along with the owning workspace.
type Hook func(ctx context.Context, workspaceID string, r everify.Result)

type Options struct {
	Endpoints everify.Endpoints
	Client    *everify.Client
	TokenTTL  time.Duration
	Clock     clockwork.Clock
	Hooks     []Hook
}

// Registry owns all workspaces. Nothing here is persisted.
type Registry struct {
	mu    sync.RWMutex
	items map[string]*Workspace
	opts  Options
	clock clockwork.Clock
}

func NewRegistry(opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Client == nil {
		opts.Client = everify.NewClient(everify.ClientConfig{})
	}
	return &Registry{items: map[string]*Workspace{}, opts: opts, clock: opts.Clock}
}

// Get returns an existing workspace and marks it as used.
func (r *Registry) Get(id string) (*Workspace, bool) {
	r.mu.RLock()
	w, ok := r.items[id]
	r.mu.RUnlock()
	if ok {
		w.touch(r.clock.Now())
	}
	return w, ok
}

// Create builds a workspace with the tier-1 sandbox defaults.
func (r *Registry) Create() *Workspace {
	w := &Workspace{
		ID:      uuid.NewString(),
		Store:   everify.NewStore(r.opts.Endpoints),
		Session: everify.NewSession(r.clock, r.opts.TokenTTL),
		forms:   defaultForms(),
		results: map[everify.Action]everify.Result{},
	}
	opts := []everify.Option{everify.WithClock(r.clock), everify.WithObserver(w)}
	for _, h := range r.opts.Hooks {
		opts = append(opts, everify.WithObserver(everify.ObserverFunc(func(ctx context.Context, res everify.Result) {
			h(ctx, w.ID, res)
		})))
	}
	w.Dispatcher = everify.NewDispatcher(w.Store, w.Session, r.opts.Client, opts...)
	w.touch(r.clock.Now())

	r.mu.Lock()
	r.items[w.ID] = w
	r.mu.Unlock()
	return w
}

// GetOrCreate returns the workspace for id, or a fresh one when id is unknown
// (first visit, expired or swept).
func (r *Registry) GetOrCreate(id string) (*Workspace, bool) {
	if id != "" {
		if w, ok := r.Get(id); ok {
			return w, false
		}
	}
	return r.Create(), true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Sweep drops workspaces idle for longer than maxIdle and returns how many
// were removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.clock.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, w := range r.items {
		if w.idleSince().Before(cutoff) {
			delete(r.items, id)
			n++
		}
	}
	return n
}

// Run sweeps on every interval tick until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, maxIdle time.Duration, onSweep func(removed int)) {
	t := r.clock.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			n := r.Sweep(maxIdle)
			if onSweep != nil && n > 0 {
				onSweep(n)
			}
		}
	}
}
