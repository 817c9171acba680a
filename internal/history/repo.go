// Package history is an append-only audit trail of dispatched exchanges.
// Secrets and access tokens are masked before a row is written.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mind-engage/everify-tester/internal/everify"
)

type Exchange struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"-"`
	Action      string    `json:"action"`
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	StatusCode  int       `json:"status_code"`
	Outcome     string    `json:"outcome"`
	Request     string    `json:"request"`
	Response    string    `json:"response"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
}

type Repo struct{ db *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Append(ctx context.Context, e Exchange) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO exchanges (id, workspace_id, action, method, url, status_code, outcome,
		                        request_json, response_json, error, started_at, duration_ms)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.WorkspaceID, e.Action, e.Method, e.URL, e.StatusCode, e.Outcome,
		e.Request, e.Response, e.Error, e.StartedAt.UnixMilli(), e.DurationMS)
	return err
}

// List returns the newest exchanges of a workspace first.
func (r *Repo) List(ctx context.Context, workspaceID string, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, workspace_id, action, method, url, status_code, outcome,
		        request_json, response_json, error, started_at, duration_ms
		   FROM exchanges
		  WHERE workspace_id=$1
		  ORDER BY started_at DESC, id DESC
		  LIMIT $2`, workspaceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Exchange{}
	for rows.Next() {
		var e Exchange
		var started int64
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.Action, &e.Method, &e.URL, &e.StatusCode, &e.Outcome,
			&e.Request, &e.Response, &e.Error, &started, &e.DurationMS); err != nil {
			return nil, err
		}
		e.StartedAt = time.UnixMilli(started).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// FromResult converts a dispatch result into a row. Request bodies already
// arrive masked; access tokens inside responses are masked here.
func FromResult(workspaceID string, res everify.Result) Exchange {
	e := Exchange{
		ID:          res.ID,
		WorkspaceID: workspaceID,
		Action:      string(res.Action),
		Method:      res.Method,
		URL:         res.URL,
		StatusCode:  res.StatusCode,
		Outcome:     string(res.Outcome),
		Request:     string(res.Request),
		Response:    string(maskTokens(res.Response)),
		StartedAt:   res.StartedAt,
		DurationMS:  res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	return e
}

var tokenKeys = map[string]bool{"access_token": true, "refresh_token": true, "token": true}

func maskTokens(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	if !walkMask(v) {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}

func walkMask(v any) bool {
	changed := false
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if s, ok := child.(string); ok && tokenKeys[k] {
				t[k] = everify.Mask(s)
				changed = true
				continue
			}
			if walkMask(child) {
				changed = true
			}
		}
	case []any:
		for _, child := range t {
			if walkMask(child) {
				changed = true
			}
		}
	}
	return changed
}
