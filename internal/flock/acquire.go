package flock

import (
	"context"
	"fmt"
	"time"

	"github.com/mrz1836/evo/internal/constants"
	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// LockFunc is Exclusive or Shared.
type LockFunc func(fd uintptr) error

// Acquire retries lock on fd until it succeeds, ctx is done, or timeout elapses.
func Acquire(ctx context.Context, fd uintptr, timeout time.Duration, lock LockFunc) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := lock(fd); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: after %s", evoerrors.ErrLockTimeout, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(constants.LockRetryInterval):
		}
	}
}
