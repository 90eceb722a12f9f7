//go:build unix

package launcher

import "golang.org/x/sys/unix"

// processAlive checks for process existence with the null signal.
func processAlive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}

func terminateProcess(pid int) error { return unix.Kill(pid, unix.SIGTERM) }
func killProcess(pid int) error      { return unix.Kill(pid, unix.SIGKILL) }
