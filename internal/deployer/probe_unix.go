//go:build unix

package deployer

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

type lockHandle struct {
	f *os.File
}

func (h *lockHandle) tryLock(dir string) (bool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	f, err := os.OpenFile(filepath.Join(dir, LockFileName), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return false, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return false, nil
		}
		return false, err
	}
	h.f = f
	return true, nil
}

func (h *lockHandle) unlock() error {
	f := h.f
	h.f = nil
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
