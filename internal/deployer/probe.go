// Package deployer coordinates the server with the configuration deployer.
//
// The deployer holds an exclusive, system-wide lock while it rebuilds the
// engine's data. The server probes the same lock at startup and stays in
// maintenance mode while someone else holds it.
package deployer

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// LockFileName is the lock file created in the user data directory on
	// unix systems.
	LockFileName = "weasel-deployer.lock"

	// MutexName is the named mutex used on windows.
	MutexName = "WeaselDeployerMutex"
)

// ErrDeployerRunning is returned by Acquire when another deployer holds the
// lock.
var ErrDeployerRunning = errors.New("deployer: another deployer is running")

// Probe tests for, and can hold, the deployer lock. It satisfies
// ime.PresenceProbe.
type Probe struct {
	dir string

	mu   sync.Mutex
	held bool
	h    lockHandle
}

// NewProbe returns the platform probe for the lock under dir.
func NewProbe(dir string) *Probe {
	return &Probe{dir: dir}
}

// TryAcquire takes the lock without blocking. It reports false when another
// holder has it. Acquiring a lock the probe already holds succeeds.
func (p *Probe) TryAcquire() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.held {
		return true, nil
	}
	ok, err := p.h.tryLock(p.dir)
	if err != nil {
		return false, fmt.Errorf("probe deployer lock: %w", err)
	}
	p.held = ok
	return ok, nil
}

// Release drops the lock if held.
func (p *Probe) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.held {
		return nil
	}
	p.held = false
	if err := p.h.unlock(); err != nil {
		return fmt.Errorf("release deployer lock: %w", err)
	}
	return nil
}

// Held reports whether this probe currently holds the lock.
func (p *Probe) Held() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.held
}

// Lock is a deployer lock held for the duration of a deployment.
type Lock struct {
	p *Probe
}

// Acquire takes the deployer lock for dir, failing with ErrDeployerRunning
// if it is already held.
func Acquire(dir string) (*Lock, error) {
	p := NewProbe(dir)
	ok, err := p.TryAcquire()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDeployerRunning
	}
	return &Lock{p: p}, nil
}

// Release ends the deployment.
func (l *Lock) Release() error {
	return l.p.Release()
}
