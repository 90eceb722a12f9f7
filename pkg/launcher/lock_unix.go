//go:build unix

package launcher

import (
	"os"

	"golang.org/x/sys/unix"
)

// instanceLock is an exclusive flock held for the launcher's lifetime, so
// that a restarting editor waits for the previous instance to let go of
// sclang instead of spawning a competing one. The kernel releases it if the
// launcher dies.
type instanceLock struct{ f *os.File }

func acquireInstanceLock() (*instanceLock, error) {
	f, err := os.OpenFile(lockFilePath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		logger.Println("waiting for previous instance to release the lock")
		if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &instanceLock{f}, nil
}

func (l *instanceLock) release() {
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	l.f.Close()
}
