// Package flock provides cross-platform advisory file locks for the task
// snapshot store.
//
//	f, _ := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
//	if err := flock.Acquire(ctx, f.Fd(), constants.LockTimeout, flock.Exclusive); err != nil {
//	    return err
//	}
//	defer flock.Unlock(f.Fd())
package flock
