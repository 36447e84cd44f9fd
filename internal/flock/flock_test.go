//go:build unix

package flock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	evoerrors "github.com/mrz1836/evo/internal/errors"
)

func openLockFile(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600) //#nosec G304 -- test temp path
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestAcquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "task.lock")

	t.Run("free lock is acquired immediately", func(t *testing.T) {
		f := openLockFile(t, path)
		require.NoError(t, Acquire(context.Background(), f.Fd(), time.Second, Exclusive))
		require.NoError(t, Unlock(f.Fd()))
	})

	t.Run("held lock times out", func(t *testing.T) {
		holder := openLockFile(t, path)
		require.NoError(t, Exclusive(holder.Fd()))
		defer func() { _ = Unlock(holder.Fd()) }()

		waiter := openLockFile(t, path)
		err := Acquire(context.Background(), waiter.Fd(), 120*time.Millisecond, Exclusive)
		require.ErrorIs(t, err, evoerrors.ErrLockTimeout)
	})

	t.Run("canceled context stops waiting", func(t *testing.T) {
		f := openLockFile(t, path)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Acquire(ctx, f.Fd(), time.Second, Exclusive)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("shared locks coexist", func(t *testing.T) {
		a := openLockFile(t, path)
		b := openLockFile(t, path)
		require.NoError(t, Shared(a.Fd()))
		require.NoError(t, Shared(b.Fd()))
		require.NoError(t, Unlock(a.Fd()))
		require.NoError(t, Unlock(b.Fd()))
	})
}
