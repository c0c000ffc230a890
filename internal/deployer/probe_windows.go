//go:build windows

package deployer

import (
	"errors"

	"golang.org/x/sys/windows"
)

type lockHandle struct {
	h windows.Handle
}

// tryLock ignores dir: the mutex is named per session.
func (h *lockHandle) tryLock(string) (bool, error) {
	name, err := windows.UTF16PtrFromString(MutexName)
	if err != nil {
		return false, err
	}
	handle, err := windows.CreateMutex(nil, false, name)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		if handle != 0 {
			windows.CloseHandle(handle)
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	h.h = handle
	return true, nil
}

func (h *lockHandle) unlock() error {
	handle := h.h
	h.h = 0
	return windows.CloseHandle(handle)
}
