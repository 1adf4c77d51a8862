package server

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"fleetctl/internal/storage"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *storage.GormStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "fleetctl-port-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := storage.NewGormStore(filepath.Join(tempDir, "test.db"), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	return store
}

func TestFindAvailablePortScansUpwardFromRequested(t *testing.T) {
	store := newTestStore(t)

	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to bind probe listener: %v", err)
	}
	busyPort := ln.Addr().(*net.TCPAddr).Port
	defer ln.Close()

	port, err := FindAvailablePort(store, busyPort)
	if err != nil {
		t.Fatalf("FindAvailablePort failed: %v", err)
	}
	if port == busyPort {
		t.Errorf("expected a port other than the busy one %d, got %d", busyPort, port)
	}
	if port < busyPort {
		t.Errorf("expected scan to move upward from %d, got %d", busyPort, port)
	}
}

func TestFindAvailablePortDefaultsWhenRequestedIsZero(t *testing.T) {
	store := newTestStore(t)

	port, err := FindAvailablePort(store, 0)
	if err != nil {
		t.Fatalf("FindAvailablePort failed: %v", err)
	}
	if port < 25565 {
		t.Errorf("expected a port at or above the default 25565, got %d", port)
	}
}
