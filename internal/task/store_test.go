package task

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
)

func storedTask(created time.Time) *domain.Task {
	return &domain.Task{
		ID:        uuid.NewString(),
		Artifact:  "def f(): pass",
		Goal:      "speed",
		Status:    constants.TaskStatusCompleted,
		Stage:     constants.StageCompleted,
		Progress:  100,
		CreatedAt: created,
		UpdatedAt: created,
		Results: &domain.TaskResults{
			Artifact:   "def f(): return 1",
			Iterations: 2,
			BestScore:  0.75,
			Reflections: []domain.Reflection{
				{Stage: "iteration_1", AgentName: "claude", Content: "tightened", Metadata: map[string]any{"diff_applied": true}},
			},
		},
	}
}

func TestFileStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	task := storedTask(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(ctx, task))

	got, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, constants.TaskSchemaVersion, got.SchemaVersion)
	assert.Equal(t, task.Results.Artifact, got.Results.Artifact)
	assert.Equal(t, true, got.Results.Reflections[0].Metadata["diff_applied"])
	assert.True(t, task.CreatedAt.Equal(got.CreatedAt))

	// saving again replaces the snapshot
	task.Goal = "speed and memory"
	require.NoError(t, store.Save(ctx, task))
	got, err = store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "speed and memory", got.Goal)

	_, err = os.Stat(filepath.Join(store.Dir(), task.ID+constants.TaskFileSuffix+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_Errors(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		_, err := store.Get(ctx, uuid.NewString())
		require.ErrorIs(t, err, evoerrors.ErrTaskNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := store.Get(ctx, "../etc/passwd")
		require.ErrorIs(t, err, evoerrors.ErrInvalidInput)
		require.ErrorIs(t, store.Save(ctx, &domain.Task{ID: "nope"}), evoerrors.ErrInvalidInput)
	})

	t.Run("nil task", func(t *testing.T) {
		require.ErrorIs(t, store.Save(ctx, nil), evoerrors.ErrEmptyValue)
	})

	t.Run("corrupted", func(t *testing.T) {
		id := uuid.NewString()
		require.NoError(t, os.MkdirAll(store.Dir(), 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), id+constants.TaskFileSuffix), []byte("{not json"), 0o600))

		_, err := store.Get(ctx, id)
		require.ErrorIs(t, err, evoerrors.ErrSnapshotCorrupted)
	})
}

func TestFileStore_List(t *testing.T) {
	ctx := context.Background()

	t.Run("missing directory", func(t *testing.T) {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		tasks, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("newest first, skipping unreadable files", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		older := storedTask(base)
		newer := storedTask(base.Add(time.Hour))
		require.NoError(t, store.Save(ctx, older))
		require.NoError(t, store.Save(ctx, newer))
		require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), uuid.NewString()+constants.TaskFileSuffix), []byte("garbage"), 0o600))

		tasks, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, newer.ID, tasks[0].ID)
		assert.Equal(t, older.ID, tasks[1].ID)
	})
}

func TestNewFileStore_DefaultDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	store, err := NewFileStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), constants.EvoHome, constants.TasksDir), store.Dir())
}
