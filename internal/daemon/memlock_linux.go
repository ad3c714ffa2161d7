package daemon

import "golang.org/x/sys/unix"

// lockMemory keeps the process out of swap; it handles typed passwords.
func lockMemory() error {
	return unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE)
}
