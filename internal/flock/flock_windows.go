//go:build windows

package flock

import "golang.org/x/sys/windows"

// LockFileEx byte range covering the first byte; enough for advisory use.
const (
	lockReserved  = 0
	lockBytesLow  = 1
	lockBytesHigh = 0
)

// Exclusive takes a non-blocking exclusive lock on fd.
func Exclusive(fd uintptr) error {
	return lockFile(fd, windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY)
}

// Shared takes a non-blocking shared lock on fd.
func Shared(fd uintptr) error {
	return lockFile(fd, windows.LOCKFILE_FAIL_IMMEDIATELY)
}

// Unlock releases any lock held on fd.
func Unlock(fd uintptr) error {
	return windows.UnlockFileEx(windows.Handle(fd), lockReserved, lockBytesLow, lockBytesHigh, &windows.Overlapped{})
}

func lockFile(fd uintptr, flags uint32) error {
	return windows.LockFileEx(windows.Handle(fd), flags, lockReserved, lockBytesLow, lockBytesHigh, &windows.Overlapped{})
}
