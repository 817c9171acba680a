package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/everify-tester/internal/db"
	"github.com/mind-engage/everify-tester/internal/everify"
)

func openRepo(t *testing.T) *Repo {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqlDB, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewRepo(sqlDB)
}

func TestAppendAndListNewestFirst(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	for i, action := range []everify.Action{everify.ActionAuthenticate, everify.ActionQRCheck, everify.ActionQRVerify} {
		require.NoError(t, repo.Append(ctx, Exchange{
			ID:          fmt.Sprintf("ex-%d", i),
			WorkspaceID: "ws-1",
			Action:      string(action),
			Method:      "POST",
			URL:         "https://ws.everify.gov.ph/api/dev" + action.Path(),
			StatusCode:  200,
			Outcome:     string(everify.OutcomeOK),
			Request:     `{}`,
			Response:    `{}`,
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			DurationMS:  12,
		}))
	}
	require.NoError(t, repo.Append(ctx, Exchange{ID: "other", WorkspaceID: "ws-2", Action: "authenticate", Method: "POST", URL: "u", Outcome: "ok", StartedAt: base}))

	got, err := repo.List(ctx, "ws-1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ex-2", got[0].ID)
	assert.Equal(t, "ex-1", got[1].ID)
	assert.Equal(t, base.Add(2*time.Minute), got[0].StartedAt)
	assert.Equal(t, int64(12), got[0].DurationMS)

	empty, err := repo.List(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFromResultMasksTokens(t *testing.T) {
	res := everify.Result{
		ID:         "r1",
		Action:     everify.ActionAuthenticate,
		Method:     "POST",
		URL:        "https://ws.everify.gov.ph/api/dev/auth",
		Request:    json.RawMessage(`{"client_id":"a","client_secret":"****cdef"}`),
		StatusCode: 200,
		Response:   json.RawMessage(`{"data":{"access_token":"eyJhbGciOiJIUzI1NiJ9.secret-token"}}`),
		Outcome:    everify.OutcomeOK,
		Duration:   1500 * time.Millisecond,
	}

	e := FromResult("ws-1", res)

	assert.NotContains(t, e.Response, "secret-token")
	assert.Contains(t, e.Response, "oken")
	assert.Equal(t, `{"client_id":"a","client_secret":"****cdef"}`, e.Request)
	assert.Equal(t, int64(1500), e.DurationMS)
	assert.Empty(t, e.Error)
}

func TestFromResultKeepsNonJSONAndErrors(t *testing.T) {
	res := everify.Result{
		Action:   everify.ActionQRCheck,
		Response: json.RawMessage(`{"error":"Network error occurred"}`),
		Outcome:  everify.OutcomeTransportError,
		Err:      &everify.TransportError{Op: "qr-check", Err: errors.New("connection refused")},
	}

	e := FromResult("ws-1", res)

	assert.Equal(t, `{"error":"Network error occurred"}`, e.Response)
	assert.Contains(t, e.Error, "connection refused")
}

func TestRecorderSkipsBusy(t *testing.T) {
	repo := openRepo(t)
	rec := &Recorder{Repo: repo}
	ctx := context.Background()

	rec.Hook(ctx, "ws-1", everify.Result{ID: "busy", Action: everify.ActionQRCheck, Outcome: everify.OutcomeBusy, Err: everify.ErrBusy})
	rec.Hook(ctx, "ws-1", everify.Result{ID: "done", Action: everify.ActionQRCheck, Method: "POST", URL: "u", Outcome: everify.OutcomeOK, StartedAt: time.Now()})

	got, err := repo.List(ctx, "ws-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "done", got[0].ID)
}

func TestRecorderSurvivesCancelledContext(t *testing.T) {
	repo := openRepo(t)
	rec := &Recorder{Repo: repo}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec.Hook(ctx, "ws-1", everify.Result{ID: "late", Action: everify.ActionAuthenticate, Method: "POST", URL: "u", Outcome: everify.OutcomeOK})

	got, err := repo.List(context.Background(), "ws-1", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
