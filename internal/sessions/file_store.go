package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/volition-run/volition/pkg/models"
)

const historyDirName = ".volition/history"

// FileStore is the on-disk Store: one JSON file per session under
// <project-root>/.volition/history/<id>.json, full-rewrite saves made
// atomic via a same-directory temp file plus os.Rename — the teacher's
// internal/sessions store conventions, generalized from a channel/agent-keyed
// Postgres table into a project-root-scoped, id-keyed file layout.
type FileStore struct {
	dir    string
	locker *writeLocker
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a FileStore rooted at <projectRoot>/.volition/history.
// The directory is created lazily on first Save, not here.
func NewFileStore(projectRoot string) *FileStore {
	return &FileStore{dir: filepath.Join(projectRoot, historyDirName), locker: newWriteLocker()}
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) List(ctx context.Context, limit int) ([]models.SessionSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("sessions: list history dir: %w", err)
	}

	summaries := make([]models.SessionSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		raw, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var state models.SessionState
		if err := json.Unmarshal(raw, &state); err != nil {
			continue
		}
		summaries = append(summaries, models.SessionSummary{
			ID:           state.ID,
			CreatedAt:    state.CreatedAt,
			UpdatedAt:    state.UpdatedAt,
			Task:         state.Task,
			MessageCount: len(state.Messages),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (s *FileStore) Load(ctx context.Context, id string) (*models.SessionState, error) {
	raw, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("sessions: read %s: %w", id, err)
	}

	var state models.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("sessions: parse %s: %w", id, err)
	}
	return &state, nil
}

func (s *FileStore) Save(ctx context.Context, state *models.SessionState) error {
	if state == nil {
		return fmt.Errorf("sessions: state is required")
	}
	if state.ID == "" {
		state.ID = NewID()
	}

	release, err := s.locker.acquire(ctx, state.ID)
	if err != nil {
		return err
	}
	defer release()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("sessions: create history dir: %w", err)
	}

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("sessions: marshal %s: %w", state.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+state.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("sessions: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sessions: write %s: %w", state.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("sessions: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(state.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("sessions: rename into place: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("sessions: delete %s: %w", id, err)
	}
	return nil
}
