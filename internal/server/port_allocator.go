package server

import (
	"fmt"
	"net"

	"fleetctl/internal/apperr"
	"fleetctl/internal/storage"
)

// AllocatePort picks the lowest free port in the configured range that is
// neither recorded as in-use by another server nor already bound on the
// host, closing the probe listener immediately so the caller's own bind
// wins the race.
func AllocatePort(store *storage.GormStore) (int, error) {
	startPort, endPort, err := store.GetPortRange()
	if err != nil {
		return 0, fmt.Errorf("error reading port range: %w", err)
	}

	usedList, err := store.ListUsedPorts()
	if err != nil {
		return 0, err
	}

	usedPorts := make(map[int]bool, len(usedList))
	for _, p := range usedList {
		usedPorts[p] = true
	}

	for port := startPort; port <= endPort; port++ {
		if usedPorts[port] {
			continue
		}
		if isPortAvailable(port) {
			return port, nil
		}
	}

	return 0, apperr.New(apperr.ConflictPort, fmt.Sprintf("no free ports in range %d-%d", startPort, endPort))
}

// FindAvailablePort scans upward from requested until it finds a port that
// is neither reserved by another server nor already bound on the host,
// ignoring the configured port range entirely — callers that already know
// which port they want (modpack provisioning) use this instead of
// AllocatePort's range-scan.
func FindAvailablePort(store *storage.GormStore, requested int) (int, error) {
	if requested <= 0 {
		requested = 25565
	}

	usedList, err := store.ListUsedPorts()
	if err != nil {
		return 0, err
	}
	usedPorts := make(map[int]bool, len(usedList))
	for _, p := range usedList {
		usedPorts[p] = true
	}

	for port := requested; port <= 65535; port++ {
		if usedPorts[port] {
			continue
		}
		if isPortAvailable(port) {
			return port, nil
		}
	}

	return 0, apperr.New(apperr.ConflictPort, fmt.Sprintf("no free ports found starting from %d", requested))
}

func isPortAvailable(port int) bool {
	conn, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
