//go:build windows

package ipc

import (
	"net"
	"os"
)

// SetSocketPermissions is a no-op: AF_UNIX sockets on windows inherit the
// directory's ACL.
func SetSocketPermissions(path string, mode os.FileMode) error {
	return nil
}

// CleanupSocket removes a stale socket file.
func CleanupSocket(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsSocketListening reports whether a server already answers on path.
func IsSocketListening(path string) bool {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
