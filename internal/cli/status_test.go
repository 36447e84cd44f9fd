package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/domain"
	"github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/task"
)

const failedTaskID = "2f6e9d41-5b7c-4e08-a3d2-91c4b6f0e7a5"

func seededStore(t *testing.T) *task.FileStore {
	t.Helper()
	store, err := task.NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, completedTask()))

	failed := &domain.Task{
		ID:        failedTaskID,
		Goal:      "a goal long enough that the table view has to shorten it somewhere",
		Status:    constants.TaskStatusFailed,
		Stage:     constants.StageError,
		Progress:  36,
		Error:     "no agents available",
		CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 2, 9, 1, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, failed))
	return store
}

func TestShowTask(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, showTask(ctx, NewOutput(&buf, OutputText), store, runTaskID))
		text := buf.String()
		assert.Contains(t, text, "completed")
		assert.Contains(t, text, "Goal:      make it faster")
		assert.Contains(t, text, "Iterations: 2  Best score: 0.8000  Final score: 0.8000")
	})

	t.Run("failed task shows its error", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, showTask(ctx, NewOutput(&buf, OutputText), store, failedTaskID))
		assert.Contains(t, buf.String(), "no agents available")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, showTask(ctx, NewOutput(&buf, OutputJSON), store, runTaskID))
		var got domain.Task
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, runTaskID, got.ID)
		require.NotNil(t, got.Results)
		assert.Equal(t, 2, got.Results.Iterations)
	})

	t.Run("unknown id", func(t *testing.T) {
		err := showTask(ctx, NewOutput(&bytes.Buffer{}, OutputText), store, "9a0e4a77-1111-4c2d-8e3f-000000000000")
		require.ErrorIs(t, err, errors.ErrTaskNotFound)
		assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
	})
}

func TestListTasks(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	t.Run("table, newest first", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, listTasks(ctx, NewOutput(&buf, OutputText), &buf, store))
		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		require.Len(t, lines, 3)
		assert.Contains(t, string(lines[0]), "STATUS")
		assert.Contains(t, string(lines[1]), failedTaskID)
		assert.Contains(t, string(lines[1]), "...")
		assert.Contains(t, string(lines[2]), runTaskID)
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, listTasks(ctx, NewOutput(&buf, OutputJSON), &buf, store))
		var snaps []domain.StatusSnapshot
		require.NoError(t, json.Unmarshal(buf.Bytes(), &snaps))
		require.Len(t, snaps, 2)
		assert.Equal(t, constants.TaskStatusFailed, snaps[0].Status)
	})

	t.Run("empty store", func(t *testing.T) {
		empty, err := task.NewFileStore(t.TempDir())
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, listTasks(ctx, NewOutput(&buf, OutputText), &buf, empty))
		assert.Contains(t, buf.String(), "no stored tasks")
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
