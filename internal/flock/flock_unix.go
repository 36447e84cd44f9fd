//go:build unix

package flock

import "golang.org/x/sys/unix"

// Exclusive takes a non-blocking exclusive lock on fd.
func Exclusive(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_EX|unix.LOCK_NB)
}

// Shared takes a non-blocking shared lock on fd. Readers of a snapshot use it
// so they never observe a half-written file.
func Shared(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_SH|unix.LOCK_NB)
}

// Unlock releases any lock held on fd.
func Unlock(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_UN)
}
