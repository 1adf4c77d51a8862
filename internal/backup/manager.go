package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"fleetctl/internal/apperr"
	"fleetctl/internal/archive"
	"fleetctl/internal/domain"
	"fleetctl/internal/server"
	"fleetctl/internal/storage"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Manager struct {
	ServersPath     string
	BackupsPath     string
	RetentionDays   int
	Store           *storage.GormStore
	log             *zap.SugaredLogger

	cron *cron.Cron
}

func NewManager(serversPath, backupsPath string, retentionDays int, store *storage.GormStore, log *zap.SugaredLogger) *Manager {
	return &Manager{
		ServersPath:   serversPath,
		BackupsPath:   backupsPath,
		RetentionDays: retentionDays,
		Store:         store,
		log:           log,
	}
}

// StartScheduler registers a cron job at the given spec (standard 5-field
// cron syntax) that backs up every BackupEligible server. Stop it via
// StopScheduler at shutdown.
func (m *Manager) StartScheduler(spec string) error {
	m.cron = cron.New()
	_, err := m.cron.AddFunc(spec, func() {
		m.runScheduledBackups()
	})
	if err != nil {
		return fmt.Errorf("invalid backup cron schedule %q: %w", spec, err)
	}
	m.cron.Start()
	return nil
}

func (m *Manager) StopScheduler() {
	if m.cron != nil {
		m.cron.Stop()
	}
}

func (m *Manager) runScheduledBackups() {
	servers, err := m.Store.ListServers()
	if err != nil {
		m.log.Errorw("scheduled backup: could not list servers", "error", err)
		return
	}
	for _, srv := range servers {
		if !srv.BackupEligible {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		if _, err := m.CreateBackup(ctx, srv.ID, "", domain.BackupScheduled, nil); err != nil {
			m.log.Errorw("scheduled backup failed", "server", srv.ID, "error", err)
		}
		cancel()

		if err := m.pruneExpired(srv.ID); err != nil {
			m.log.Warnw("backup retention prune failed", "server", srv.ID, "error", err)
		}
	}
}

// pruneExpired deletes every completed backup of serverID older than
// RetentionDays, per the BACKUP_RETENTION_DAYS environment contract. A
// non-positive RetentionDays disables pruning entirely.
func (m *Manager) pruneExpired(serverID string) error {
	if m.RetentionDays <= 0 {
		return nil
	}
	backups, err := m.Store.ListBackupsByServer(serverID)
	if err != nil {
		return err
	}
	cutoff := time.Now().AddDate(0, 0, -m.RetentionDays)
	for _, b := range backups {
		if b.Status != domain.BackupCompleted || b.CreatedAt.After(cutoff) {
			continue
		}
		if err := m.DeleteBackup(b.ID); err != nil {
			m.log.Warnw("could not delete expired backup", "backup", b.ID, "error", err)
		}
	}
	return nil
}

func (m *Manager) DeleteBackup(id string) error {
	rec, err := m.Store.GetBackupByID(id)
	if err != nil {
		return err
	}
	if err := os.Remove(rec.ArchivePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete backup file: %w", err)
	}
	return m.Store.DeleteBackupRecord(id)
}

func (m *Manager) ListBackups(serverID string) ([]domain.Backup, error) {
	return m.Store.ListBackupsByServer(serverID)
}

// CreateBackup archives a server's storage directory into BackupsPath and
// writes a durable Backup record: it is saved as IN_PROGRESS and moved to
// COMPLETED or FAILED once the archive is built.
func (m *Manager) CreateBackup(ctx context.Context, serverID string, name string, kind domain.BackupType, progressChan chan<- domain.ProgressEvent) (*domain.Backup, error) {
	srv, err := m.Store.GetServerByID(serverID)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(srv.StoragePath); os.IsNotExist(err) {
		return nil, apperr.New(apperr.NotFound, "server storage directory does not exist")
	}

	if name == "" {
		name = fmt.Sprintf("%s-%s", srv.Name, time.Now().Format("20060102-150405"))
	}
	safeName := sanitizeFileName(name)

	if err := os.MkdirAll(m.BackupsPath, 0755); err != nil {
		return nil, fmt.Errorf("could not create backups directory: %w", err)
	}
	archivePath := filepath.Join(m.BackupsPath, safeName+".zip")

	rec := &domain.Backup{
		ID:          uuid.New().String(),
		ServerID:    serverID,
		Name:        name,
		Status:      domain.BackupInProgress,
		Type:        kind,
		ArchivePath: archivePath,
		CreatedAt:   time.Now(),
	}
	if err := m.Store.SaveBackup(rec); err != nil {
		return nil, fmt.Errorf("could not save backup record: %w", err)
	}

	err = archive.CreateZip(ctx, srv.StoragePath, archivePath, func(processed, total int64) {
		if progressChan == nil || total == 0 {
			return
		}
		progressChan <- domain.ProgressEvent{
			ServerID:     serverID,
			Message:      "Backing up...",
			Progress:     (float64(processed) / float64(total)) * 100,
			CurrentBytes: processed,
			TotalBytes:   total,
		}
	})

	now := time.Now()
	if err != nil {
		_ = m.Store.UpdateBackupStatus(rec.ID, domain.BackupFailed, 0, &now)
		return nil, fmt.Errorf("error creating backup: %w", err)
	}

	info, statErr := os.Stat(archivePath)
	var size int64
	if statErr == nil {
		size = info.Size()
	}

	if err := m.Store.UpdateBackupStatus(rec.ID, domain.BackupCompleted, size, &now); err != nil {
		m.log.Warnw("could not finalize backup status", "backup", rec.ID, "error", err)
	}

	rec.Status = domain.BackupCompleted
	rec.ArchivePath = archivePath
	rec.Size = size
	rec.CompletedAt = &now
	return rec, nil
}

// RestoreBackup extracts a completed backup into an existing stopped server,
// or into a brand-new server when targetServerID is empty.
func (m *Manager) RestoreBackup(backupID string, targetServerID string, newServerName string, newServerRAM int, newServerEngine domain.EngineFamily, newServerVersion string) error {
	rec, err := m.Store.GetBackupByID(backupID)
	if err != nil {
		return err
	}
	if rec.Status != domain.BackupCompleted {
		return apperr.New(apperr.InvalidRequest, "backup has not completed successfully")
	}
	if _, err := os.Stat(rec.ArchivePath); os.IsNotExist(err) {
		return apperr.New(apperr.NotFound, "backup archive file is missing")
	}

	var targetDir string
	var targetPort int
	var gameOptions domain.GameOptions

	if targetServerID != "" {
		srv, err := m.Store.GetServerByID(targetServerID)
		if err != nil {
			return err
		}
		if srv.Status != domain.StateStopped {
			return apperr.New(apperr.InvalidRequest, "server must be stopped to restore a backup")
		}

		targetDir = srv.StoragePath
		targetPort = srv.Port
		gameOptions = srv.GameOptions

		entries, err := os.ReadDir(targetDir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			_ = os.RemoveAll(filepath.Join(targetDir, entry.Name()))
		}

	} else {
		if newServerName == "" {
			return apperr.New(apperr.InvalidRequest, "server name is required for a new server")
		}

		id := uuid.New().String()
		targetDir = filepath.Join(m.ServersPath, sanitizeFileName(newServerName)+"-"+id[:8])

		port, err := server.AllocatePort(m.Store)
		if err != nil {
			return err
		}
		targetPort = port

		if err := os.MkdirAll(targetDir, 0755); err != nil {
			return err
		}

		now := time.Now()
		newServer := &domain.Server{
			ID:             id,
			Name:           newServerName,
			FolderName:     filepath.Base(targetDir),
			Version:        newServerVersion,
			Engine:         newServerEngine,
			Port:           targetPort,
			RAM:            newServerRAM,
			Status:         domain.StateStopped,
			BackupEligible: true,
			StorageKind:    domain.StorageBindPath,
			StoragePath:    targetDir,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := m.Store.SaveServer(newServer); err != nil {
			_ = os.RemoveAll(targetDir)
			return err
		}
	}

	if err := archive.Extract(rec.ArchivePath, targetDir); err != nil {
		return fmt.Errorf("failed to extract backup: %w", err)
	}

	if err := server.UpdateServerProperties(targetDir, targetPort, gameOptions); err != nil {
		return fmt.Errorf("failed to update server properties: %w", err)
	}

	return nil
}

func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, " ", "-")
	reg := regexp.MustCompile(`[^a-zA-Z0-9_.-]`)
	sanitized := reg.ReplaceAllString(name, "")
	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}
	return sanitized
}
