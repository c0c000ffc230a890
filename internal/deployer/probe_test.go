//go:build unix

package deployer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestProbeFreeLock(t *testing.T) {
	dir := t.TempDir()
	p := NewProbe(dir)

	ok, err := p.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if !ok {
		t.Fatal("expected to acquire a free lock")
	}
	if !p.Held() {
		t.Error("Held() = false after acquire")
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); err != nil {
		t.Errorf("lock file missing: %v", err)
	}
	if err := p.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if p.Held() {
		t.Error("Held() = true after release")
	}
}

func TestProbeSeesDeployer(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	p := NewProbe(dir)
	ok, err := p.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if ok {
		t.Fatal("probe acquired a lock held by the deployer")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	ok, err = p.TryAcquire()
	if err != nil || !ok {
		t.Fatalf("TryAcquire after release = %v, %v", ok, err)
	}
	p.Release()
}

func TestAcquireTwice(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer first.Release()

	if _, err := Acquire(dir); !errors.Is(err, ErrDeployerRunning) {
		t.Errorf("second Acquire error = %v, want ErrDeployerRunning", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	p := NewProbe(t.TempDir())
	if err := p.Release(); err != nil {
		t.Errorf("Release without lock: %v", err)
	}

	if ok, _ := p.TryAcquire(); !ok {
		t.Fatal("acquire failed")
	}
	if ok, _ := p.TryAcquire(); !ok {
		t.Error("re-acquire by the holder failed")
	}
	if err := p.Release(); err != nil {
		t.Errorf("Release: %v", err)
	}
	if err := p.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
}

func TestProbeBadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewProbe(filepath.Join(file, "sub"))
	if _, err := p.TryAcquire(); err == nil {
		t.Error("expected an error for a directory under a regular file")
	}
}
