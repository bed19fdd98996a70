// Package sessions persists SessionState to a project-scoped history
// directory (§4.6): one JSON file per session, enumerated, loaded, saved,
// and deleted by id. The teacher's channel/agent-keyed, CockroachDB-backed
// Store is generalized here into a single-tenant, id-keyed file store — see
// DESIGN.md for what was dropped and why.
package sessions

import (
	"context"
	"errors"

	"github.com/volition-run/volition/pkg/models"
)

// ErrSessionNotFound distinguishes a missing session from a parse failure,
// as required by load's contract in §4.6.
var ErrSessionNotFound = errors.New("sessions: session not found")

// Store is the history-store interface (C7): enumerate, load, delete,
// resume.
type Store interface {
	// List enumerates sessions by metadata only (no message bodies),
	// newest updated_at first. limit <= 0 means unlimited.
	List(ctx context.Context, limit int) ([]models.SessionSummary, error)

	// Load reads and parses a single session. Returns ErrSessionNotFound if
	// no session with id exists.
	Load(ctx context.Context, id string) (*models.SessionState, error)

	// Save performs a full-rewrite of the session, creating it if absent.
	Save(ctx context.Context, state *models.SessionState) error

	// Delete removes a session. A missing id is not an error (best-effort).
	Delete(ctx context.Context, id string) error
}

// Preview renders a short, single-line human summary of a session, per
// §4.6's `preview(state) → string`. It has no store dependency, so it is a
// free function rather than a Store method.
func Preview(state *models.SessionState) string {
	if state == nil {
		return ""
	}
	task := state.Task
	if task == "" && len(state.Messages) > 0 {
		task = state.Messages[0].Content
	}
	const maxLen = 80
	if len(task) > maxLen {
		task = task[:maxLen-1] + "…"
	}
	if task == "" {
		task = "(empty session)"
	}
	return task
}
