package sessions

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volition-run/volition/pkg/models"
)

func TestFileStore_SaveThenLoadRoundTrips(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)

	state := &models.SessionState{
		Task:     "fix the bug",
		Messages: []models.ChatMessage{{Role: models.RoleUser, Content: "hi"}},
	}
	require.NoError(t, store.Save(context.Background(), state))
	require.NotEmpty(t, state.ID)

	loaded, err := store.Load(context.Background(), state.ID)
	require.NoError(t, err)
	assert.Equal(t, "fix the bug", loaded.Task)
	assert.Len(t, loaded.Messages, 1)
}

func TestFileStore_LoadMissingReturnsNotFound(t *testing.T) {
	store := NewFileStore(t.TempDir())
	_, err := store.Load(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFileStore_DeleteMissingIsSoftError(t *testing.T) {
	store := NewFileStore(t.TempDir())
	assert.NoError(t, store.Delete(context.Background(), "nonexistent"))
}

func TestFileStore_ListSortsByUpdatedAtDescending(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)

	older := &models.SessionState{ID: NewID(), UpdatedAt: time.Now().Add(-time.Hour), Task: "older"}
	newer := &models.SessionState{ID: NewID(), UpdatedAt: time.Now(), Task: "newer"}
	require.NoError(t, store.Save(context.Background(), older))
	require.NoError(t, store.Save(context.Background(), newer))

	list, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Task)
	assert.Equal(t, "older", list[1].Task)
}

func TestFileStore_ListRespectsLimit(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(context.Background(), &models.SessionState{ID: NewID()}))
	}

	list, err := store.List(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestFileStore_ListEmptyDirReturnsNoError(t *testing.T) {
	store := NewFileStore(t.TempDir())
	list, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFileStore_SaveIsAtomic(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)
	state := &models.SessionState{ID: NewID(), Task: "first"}
	require.NoError(t, store.Save(context.Background(), state))

	entries, err := os.ReadDir(filepath.Join(root, historyDirName))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestPreview_FallsBackToFirstMessage(t *testing.T) {
	state := &models.SessionState{Messages: []models.ChatMessage{{Role: models.RoleUser, Content: "do the thing"}}}
	assert.Equal(t, "do the thing", Preview(state))
}

func TestPreview_EmptySessionHasPlaceholder(t *testing.T) {
	assert.Equal(t, "(empty session)", Preview(&models.SessionState{}))
}
