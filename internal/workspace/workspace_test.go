package workspace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/everify-tester/internal/everify"
)

func TestCreateUsesDefaults(t *testing.T) {
	r := NewRegistry(Options{Clock: clockwork.NewFakeClock()})
	w := r.Create()

	assert.NotEmpty(t, w.ID)
	assert.Equal(t, everify.DefaultConfig(), w.Store.Config())
	assert.Empty(t, w.Session.Token())
	assert.Equal(t, everify.SamplePerson(), w.Forms().Person)
	assert.Equal(t, everify.DefaultQRValue, w.Forms().QRValue)
	assert.Equal(t, 1, r.Len())
}

func TestWorkspacesAreIsolated(t *testing.T) {
	r := NewRegistry(Options{Clock: clockwork.NewFakeClock()})
	a, b := r.Create(), r.Create()

	require.NoError(t, a.Store.Set(everify.FieldTier, "tier2"))

	assert.Equal(t, everify.Tier2, a.Store.Config().Tier)
	assert.Equal(t, everify.Tier1, b.Store.Config().Tier)
}

func TestGetOrCreate(t *testing.T) {
	r := NewRegistry(Options{Clock: clockwork.NewFakeClock()})
	w := r.Create()

	got, created := r.GetOrCreate(w.ID)
	assert.False(t, created)
	assert.Same(t, w, got)

	fresh, created := r.GetOrCreate("unknown")
	assert.True(t, created)
	assert.NotEqual(t, w.ID, fresh.ID)
}

func TestSweepDropsIdle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRegistry(Options{Clock: clock})
	old := r.Create()
	clock.Advance(90 * time.Minute)
	recent := r.Create()
	clock.Advance(40 * time.Minute)

	removed := r.Sweep(time.Hour)

	assert.Equal(t, 1, removed)
	_, ok := r.Get(old.ID)
	assert.False(t, ok)
	_, ok = r.Get(recent.ID)
	assert.True(t, ok)
}

func TestRunSweepsOnTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRegistry(Options{Clock: clock})
	r.Create()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	swept := make(chan int, 1)
	go r.Run(ctx, time.Minute, time.Minute, func(n int) { swept <- n })

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(2 * time.Minute)

	select {
	case n := <-swept:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run")
	}
	assert.Equal(t, 0, r.Len())
}

func TestLastResultPerLaneAndHooks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"access_token":"tok"}}`))
	}))
	defer ts.Close()

	var mu sync.Mutex
	var hooked []string
	r := NewRegistry(Options{
		Clock:     clockwork.NewFakeClock(),
		Endpoints: everify.Endpoints{Sandbox: ts.URL},
		Hooks: []Hook{func(_ context.Context, id string, res everify.Result) {
			mu.Lock()
			hooked = append(hooked, id+":"+string(res.Action))
			mu.Unlock()
		}},
	})
	w := r.Create()

	_, err := w.Dispatcher.Authenticate(context.Background())
	require.NoError(t, err)

	res, ok := w.Result(everify.ActionAuthenticate)
	require.True(t, ok)
	assert.Equal(t, everify.OutcomeOK, res.Outcome)
	assert.Equal(t, []string{w.ID + ":authenticate"}, hooked)

	w.ClearToken()
	_, ok = w.Result(everify.ActionAuthenticate)
	assert.False(t, ok)
	assert.Empty(t, w.Session.Token())
}

func TestBusyResultDoesNotReplacePane(t *testing.T) {
	r := NewRegistry(Options{Clock: clockwork.NewFakeClock()})
	w := r.Create()
	prev := everify.Result{Action: everify.ActionQRCheck, Outcome: everify.OutcomeOK}
	w.Observe(context.Background(), prev)

	w.Observe(context.Background(), everify.Result{Action: everify.ActionQRCheck, Outcome: everify.OutcomeBusy, Err: everify.ErrBusy})

	got, _ := w.Result(everify.ActionQRCheck)
	assert.Equal(t, everify.OutcomeOK, got.Outcome)
}
