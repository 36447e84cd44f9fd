package task

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/flock"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// Store persists task snapshots.
type Store interface {
	// Save writes the task, replacing any earlier snapshot.
	Save(ctx context.Context, task *domain.Task) error

	// Get reads a task. Returns ErrTaskNotFound if no snapshot exists.
	Get(ctx context.Context, taskID string) (*domain.Task, error)

	// List returns every stored task, newest first.
	List(ctx context.Context) ([]*domain.Task, error)
}

// FileStore implements Store with one JSON file per task, written atomically
// under an advisory lock.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir. An empty dir means ~/.evo/tasks.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(home, constants.EvoHome, constants.TasksDir)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory snapshots are written to.
func (s *FileStore) Dir() string { return s.dir }

// Save writes task to <dir>/<id>.json.
func (s *FileStore) Save(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return fmt.Errorf("failed to save task: task %w", evoerrors.ErrEmptyValue)
	}
	if err := validateTaskID(task.ID); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create task directory: %w", err)
	}

	snapshot := task.Clone()
	snapshot.SchemaVersion = constants.TaskSchemaVersion
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to save task '%s': %w", task.ID, err)
	}

	unlock, err := s.lock(ctx, task.ID, flock.Exclusive)
	if err != nil {
		return fmt.Errorf("failed to save task '%s': %w", task.ID, err)
	}
	defer unlock()

	if err := atomicWrite(s.taskPath(task.ID), data); err != nil {
		return fmt.Errorf("failed to save task '%s': %w", task.ID, err)
	}
	return nil
}

// Get reads the snapshot of taskID.
func (s *FileStore) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	if err := validateTaskID(taskID); err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if _, err := os.Stat(s.taskPath(taskID)); os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to get task '%s': %w", taskID, evoerrors.ErrTaskNotFound)
	}

	unlock, err := s.lock(ctx, taskID, flock.Shared)
	if err != nil {
		return nil, fmt.Errorf("failed to get task '%s': %w", taskID, err)
	}
	defer unlock()

	return s.read(taskID)
}

// List returns every snapshot sorted by creation time, newest first.
// Unreadable files are skipped.
func (s *FileStore) List(ctx context.Context) ([]*domain.Task, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	var tasks []*domain.Task
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, constants.TaskFileSuffix) {
			continue
		}
		t, err := s.read(strings.TrimSuffix(name, constants.TaskFileSuffix))
		if err != nil {
			continue
		}
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

func (s *FileStore) read(taskID string) (*domain.Task, error) {
	data, err := os.ReadFile(s.taskPath(taskID)) //#nosec G304 -- path is validated and built from the store root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to get task '%s': %w", taskID, evoerrors.ErrTaskNotFound)
		}
		return nil, fmt.Errorf("failed to read task '%s': %w", taskID, err)
	}
	var t domain.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", evoerrors.ErrSnapshotCorrupted, taskID, err)
	}
	return &t, nil
}

func (s *FileStore) lock(ctx context.Context, taskID string, mode flock.LockFunc) (func(), error) {
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create task directory: %w", err)
	}
	f, err := os.OpenFile(s.taskPath(taskID)+".lock", os.O_RDWR|os.O_CREATE, filePerm) //#nosec G304 -- path is validated and built from the store root
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := flock.Acquire(ctx, f.Fd(), constants.LockTimeout, mode); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() {
		_ = flock.Unlock(f.Fd())
		_ = f.Close()
	}, nil
}

func (s *FileStore) taskPath(taskID string) string {
	return filepath.Join(s.dir, taskID+constants.TaskFileSuffix)
}

func validateTaskID(taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task ID %w", evoerrors.ErrEmptyValue)
	}
	if _, err := uuid.Parse(taskID); err != nil {
		return fmt.Errorf("%w: invalid task ID %q", evoerrors.ErrInvalidInput, taskID)
	}
	return nil
}

// atomicWrite writes data to a temp file and renames it over path.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
