package history

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mind-engage/everify-tester/internal/everify"
)

// Recorder writes exchanges without letting a storage problem reach the
// operator's response pane.
type Recorder struct {
	Repo    *Repo
	Logger  *slog.Logger
	Timeout time.Duration
}

// Hook has the workspace.Hook signature.
func (rec *Recorder) Hook(ctx context.Context, workspaceID string, res everify.Result) {
	if errors.Is(res.Err, everify.ErrBusy) {
		return
	}
	timeout := rec.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	// The request context may already be cancelled by the time we get here.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := rec.Repo.Append(ctx, FromResult(workspaceID, res)); err != nil && rec.Logger != nil {
		rec.Logger.Warn("history append failed", "workspace_id", workspaceID, "action", res.Action, "error", err)
	}
}
