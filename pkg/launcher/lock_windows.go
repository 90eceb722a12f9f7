//go:build !unix

package launcher

import "os"

// Advisory locking is not implemented here; the in-process guard still
// prevents duplicate spawns from one launcher binary.
type instanceLock struct{ f *os.File }

func acquireInstanceLock() (*instanceLock, error) {
	f, err := os.OpenFile(lockFilePath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &instanceLock{f}, nil
}

func (l *instanceLock) release() { l.f.Close() }
