package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"fleetctl/internal/apperr"
	"fleetctl/internal/domain"
	"fleetctl/internal/installer"
	"fleetctl/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateServerOpts carries everything CreateServer needs beyond name and
// engine/version, so new optional fields land here instead of growing the
// function signature indefinitely.
type CreateServerOpts struct {
	Description string
	RAM         int
	CustomArgs  string
	AutoStart   bool
	GameOptions domain.GameOptions
	ModpackID   string
}

type Manager struct {
	ServersPath string
	Store       *storage.GormStore
	Installer   *installer.Installer
	log         *zap.SugaredLogger
}

func NewManager(serversPath string, store *storage.GormStore, inst *installer.Installer, log *zap.SugaredLogger) *Manager {
	return &Manager{
		ServersPath: serversPath,
		Store:       store,
		Installer:   inst,
		log:         log,
	}
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func sanitizeFolderName(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	reg := regexp.MustCompile(`[^a-zA-Z0-9_.-]`)
	sanitized := reg.ReplaceAllString(name, "")
	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}
	return sanitized
}

// CreateServer allocates a port, fetches the engine-family artifact,
// writes the initial configuration, and persists the new server record.
// Any failure after the directory is created rolls the directory back out;
// a failure after the DB row is created is not expected since SaveServer
// is the last step.
func (m *Manager) CreateServer(name string, engine domain.EngineFamily, version string, opts CreateServerOpts, progressChan chan<- domain.ProgressEvent) (*domain.Server, error) {
	if strings.ContainsAny(name, "\\/:*?\"<>|") || strings.Contains(name, "..") {
		return nil, apperr.New(apperr.InvalidRequest, "invalid server name: contains forbidden characters")
	}

	id := uuid.New().String()
	folderName := sanitizeFolderName(name)
	serverDir := filepath.Join(m.ServersPath, folderName)

	if _, err := os.Stat(serverDir); !os.IsNotExist(err) {
		folderName = fmt.Sprintf("%s-%s", folderName, id[:8])
		serverDir = filepath.Join(m.ServersPath, folderName)
	}

	if progressChan != nil {
		progressChan <- domain.ProgressEvent{ServerID: id, Message: "Allocating port..."}
	}
	assignedPort, err := AllocatePort(m.Store)
	if err != nil {
		return nil, fmt.Errorf("error allocating port: %w", err)
	}
	m.log.Infow("port allocated", "server", name, "port", assignedPort)

	if err := os.MkdirAll(serverDir, 0755); err != nil {
		return nil, fmt.Errorf("filesystem error: %w", err)
	}

	desc, err := m.Installer.Install(serverDir, engine, version, func(ev domain.ProgressEvent) {
		if progressChan != nil {
			ev.ServerID = id
			progressChan <- ev
		}
	})
	if err != nil {
		_ = os.RemoveAll(serverDir)
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "error fetching server artifact", err)
	}

	if progressChan != nil {
		progressChan <- domain.ProgressEvent{ServerID: id, Message: "Configuring server..."}
	}
	if err := os.WriteFile(filepath.Join(serverDir, "eula.txt"), []byte("eula=true"), 0644); err != nil {
		m.log.Warnw("could not write eula.txt", "error", err)
	}

	rconPassword, err := randomHex(16)
	if err != nil {
		m.log.Warnw("could not generate rcon password", "error", err)
		rconPassword = "changeme"
	}
	if err := EnableRemoteConsole(serverDir, assignedPort, rconPassword, opts.GameOptions); err != nil {
		m.log.Warnw("could not write server.properties", "error", err)
	}

	if desc.Kind == installer.KindScript && (engine == domain.EngineForge || engine == domain.EngineNeoForge) {
		if err := WriteUserJVMArgs(serverDir, opts.RAM, opts.CustomArgs); err != nil {
			m.log.Warnw("could not write user_jvm_args.txt", "error", err)
		}
	}

	now := time.Now()
	newServer := &domain.Server{
		ID:             id,
		Name:           name,
		Description:    opts.Description,
		FolderName:     folderName,
		Engine:         engine,
		Version:        version,
		Port:           assignedPort,
		RAM:            opts.RAM,
		Status:         domain.StateStopped,
		CustomArgs:     opts.CustomArgs,
		AutoStart:      opts.AutoStart,
		BackupEligible: true,
		StorageKind:    domain.StorageBindPath,
		StoragePath:    serverDir,
		GameOptions:    opts.GameOptions,
		ModpackID:      opts.ModpackID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := m.Store.SaveServer(newServer); err != nil {
		_ = os.RemoveAll(serverDir)
		return nil, fmt.Errorf("error saving server record: %w", err)
	}

	if progressChan != nil {
		progressChan <- domain.ProgressEvent{ServerID: id, Message: "Server created.", Progress: 100}
	}

	return newServer, nil
}

func (m *Manager) GetServer(id string) (*domain.Server, error) {
	return m.Store.GetServerByID(id)
}

func (m *Manager) ListServers() ([]domain.Server, error) {
	return m.Store.ListServers()
}

func (m *Manager) DeleteServer(id string) error {
	srv, err := m.Store.GetServerByID(id)
	if err != nil {
		return err
	}

	folderName := srv.FolderName
	if folderName == "" {
		folderName = id
		if _, err := os.Stat(filepath.Join(m.ServersPath, folderName)); os.IsNotExist(err) {
			folderName = sanitizeFolderName(srv.Name)
		}
	}

	serverDir := filepath.Join(m.ServersPath, folderName)

	if err := os.RemoveAll(serverDir); err != nil {
		return fmt.Errorf("error deleting server files: %w", err)
	}

	if err := m.Store.DeleteServer(id); err != nil {
		return fmt.Errorf("error deleting server from database: %w", err)
	}

	return nil
}
