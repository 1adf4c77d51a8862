// Package storage is the durable persistence layer, backed by GORM over a
// pure-Go SQLite driver so the control plane never needs cgo to build.
package storage

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"fleetctl/internal/apperr"
	"fleetctl/internal/domain"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Server is the row shape for domain.Server. Column names are explicit
// rather than left to GORM's pluralization so the schema reads the same as
// the JSON wire shape.
type Server struct {
	ID             string `gorm:"primaryKey"`
	Name           string `gorm:"uniqueIndex"`
	Description    string
	FolderName     string
	Engine         string
	Version        string
	Port           int `gorm:"uniqueIndex"`
	RAM            int
	Status         string
	CustomArgs     string
	AutoStart      bool
	BackupEligible bool
	StorageKind    string
	StoragePath    string
	GameOptions    string // JSON-encoded domain.GameOptions
	ModpackID      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

// Modpack is the row shape for domain.Modpack's locally cached catalog view.
type Modpack struct {
	ID          string `gorm:"primaryKey"`
	CatalogID   string `gorm:"uniqueIndex"`
	Name        string
	Authors     string // comma-joined
	GameVersion string
	Modloader   string
	DownloadURL string
	IconURL     string
	UpdatedAt   time.Time
}

// Backup is the row shape for domain.Backup.
type Backup struct {
	ID          string `gorm:"primaryKey"`
	ServerID    string `gorm:"index"`
	Name        string
	Status      string
	Type        string
	ArchivePath string
	Size        int64
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// CacheEntry is the row shape for the artifact cache's (engine, version) →
// content-hash convenience index; the content itself lives on disk keyed by
// hash, this table only resolves a lookup key to that hash.
type CacheEntry struct {
	Engine    string `gorm:"primaryKey"`
	Version   string `gorm:"primaryKey"`
	Hash      string
	Size      int64
	CreatedAt time.Time
}

// zapGormWriter adapts zap to gorm's io.Writer-shaped logger.Writer interface.
type zapGormWriter struct {
	log *zap.SugaredLogger
}

func (w zapGormWriter) Printf(format string, args ...interface{}) {
	w.log.Infof(format, args...)
}

// GormStore is the concrete domain.Repository implementation. mu guards the
// name/port uniqueness check-then-insert critical section; GORM's unique
// indexes are the backstop, mu is what turns a would-be race into a clean
// apperr.ConflictName/apperr.ConflictPort instead of a raw constraint error.
type GormStore struct {
	db  *gorm.DB
	mu  sync.Mutex
	log *zap.SugaredLogger
}

func NewGormStore(path string, log *zap.SugaredLogger) (*GormStore, error) {
	gormLogger := gormlogger.New(
		zapGormWriter{log: log},
		gormlogger.Config{
			IgnoreRecordNotFoundError: true,
			LogLevel:                  gormlogger.Error,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Server{}, &Setting{}, &Modpack{}, &Backup{}, &User{}, &Permission{}, &PublicLink{}, &CacheEntry{}); err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	store := &GormStore{db: db, log: log}

	if err := store.initDefaultSettings(); err != nil {
		return nil, fmt.Errorf("error initializing settings: %w", err)
	}

	return store, nil
}

func (s *GormStore) initDefaultSettings() error {
	defaults := map[string]string{
		"port_range_start": "25565",
		"port_range_end":   "25600",
	}

	for key, value := range defaults {
		var setting Setting
		result := s.db.First(&setting, "key = ?", key)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				if err := s.db.Create(&Setting{Key: key, Value: value}).Error; err != nil {
					return err
				}
			} else {
				return result.Error
			}
		}
	}

	return nil
}

func toRow(srv *domain.Server) (*Server, error) {
	opts, err := encodeGameOptions(srv.GameOptions)
	if err != nil {
		return nil, err
	}
	return &Server{
		ID:             srv.ID,
		Name:           srv.Name,
		Description:    srv.Description,
		FolderName:     srv.FolderName,
		Engine:         string(srv.Engine),
		Version:        srv.Version,
		Port:           srv.Port,
		RAM:            srv.RAM,
		Status:         string(srv.Status),
		CustomArgs:     srv.CustomArgs,
		AutoStart:      srv.AutoStart,
		BackupEligible: srv.BackupEligible,
		StorageKind:    string(srv.StorageKind),
		StoragePath:    srv.StoragePath,
		GameOptions:    opts,
		ModpackID:      srv.ModpackID,
		CreatedAt:      srv.CreatedAt,
		UpdatedAt:      srv.UpdatedAt,
	}, nil
}

func fromRow(row *Server) *domain.Server {
	return &domain.Server{
		ID:             row.ID,
		Name:           row.Name,
		Description:    row.Description,
		FolderName:     row.FolderName,
		Engine:         domain.EngineFamily(row.Engine),
		Version:        row.Version,
		Port:           row.Port,
		RAM:            row.RAM,
		Status:         domain.ServerState(row.Status),
		CustomArgs:     row.CustomArgs,
		AutoStart:      row.AutoStart,
		BackupEligible: row.BackupEligible,
		StorageKind:    domain.StorageKind(row.StorageKind),
		StoragePath:    row.StoragePath,
		GameOptions:    decodeGameOptions(row.GameOptions),
		ModpackID:      row.ModpackID,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func (s *GormStore) SaveServer(srv *domain.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	if err := s.db.Model(&Server{}).Where("name = ?", srv.Name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.New(apperr.ConflictName, fmt.Sprintf("a server named %q already exists", srv.Name))
	}
	if err := s.db.Model(&Server{}).Where("port = ?", srv.Port).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.New(apperr.ConflictPort, fmt.Sprintf("port %d is already assigned", srv.Port))
	}

	row, err := toRow(srv)
	if err != nil {
		return err
	}
	if err := s.db.Create(row).Error; err != nil {
		return err
	}
	return nil
}

func (s *GormStore) UpdateServer(id string, patch domain.ServerPatch) error {
	updates := make(map[string]interface{})
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.RAM != nil {
		updates["ram"] = *patch.RAM
	}
	if patch.CustomArgs != nil {
		updates["custom_args"] = *patch.CustomArgs
	}
	if patch.AutoStart != nil {
		updates["auto_start"] = *patch.AutoStart
	}
	if patch.GameOptions != nil {
		opts, err := encodeGameOptions(*patch.GameOptions)
		if err != nil {
			return err
		}
		updates["game_options"] = opts
	}
	if len(updates) == 0 {
		return apperr.New(apperr.InvalidRequest, "no fields to update")
	}
	updates["updated_at"] = time.Now()

	result := s.db.Model(&Server{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, fmt.Sprintf("server %q not found", id))
	}
	return nil
}

func (s *GormStore) UpdateServerPort(id string, port int) error {
	result := s.db.Model(&Server{}).Where("id = ?", id).Updates(map[string]interface{}{"port": port, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, fmt.Sprintf("server %q not found", id))
	}
	return nil
}

func (s *GormStore) ListServers() ([]domain.Server, error) {
	var rows []Server
	if err := s.db.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	servers := make([]domain.Server, 0, len(rows))
	for i := range rows {
		servers = append(servers, *fromRow(&rows[i]))
	}
	return servers, nil
}

func (s *GormStore) GetServerByID(id string) (*domain.Server, error) {
	var row Server
	result := s.db.First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, fmt.Sprintf("server %q not found", id))
		}
		return nil, fmt.Errorf("error querying server: %w", result.Error)
	}
	return fromRow(&row), nil
}

func (s *GormStore) GetServerByName(name string) (*domain.Server, error) {
	var row Server
	result := s.db.First(&row, "name = ?", name)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, fmt.Sprintf("server %q not found", name))
		}
		return nil, fmt.Errorf("error querying server: %w", result.Error)
	}
	return fromRow(&row), nil
}

func (s *GormStore) DeleteServer(id string) error {
	result := s.db.Delete(&Server{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, fmt.Sprintf("server %q not found", id))
	}
	return nil
}

func (s *GormStore) UpdateStatus(id string, status domain.ServerState) error {
	result := s.db.Model(&Server{}).Where("id = ?", id).Updates(map[string]interface{}{"status": string(status), "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, fmt.Sprintf("server %q not found", id))
	}
	return nil
}

func (s *GormStore) ListUsedPorts() ([]int, error) {
	var ports []int
	if err := s.db.Model(&Server{}).Pluck("port", &ports).Error; err != nil {
		return nil, err
	}
	return ports, nil
}

func (s *GormStore) GetSetting(key string) (string, error) {
	var setting Setting
	result := s.db.First(&setting, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", apperr.New(apperr.NotFound, fmt.Sprintf("setting %q not found", key))
		}
		return "", result.Error
	}
	return setting.Value, nil
}

func (s *GormStore) SetSetting(key string, value string) error {
	var setting Setting
	result := s.db.First(&setting, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return s.db.Create(&Setting{Key: key, Value: value}).Error
		}
		return result.Error
	}

	return s.db.Model(&setting).Update("value", value).Error
}

func (s *GormStore) GetPortRange() (int, int, error) {
	startStr, err := s.GetSetting("port_range_start")
	if err != nil {
		return 0, 0, err
	}

	endStr, err := s.GetSetting("port_range_end")
	if err != nil {
		return 0, 0, err
	}

	start, err := strconv.Atoi(startStr)
	if err != nil {
		return 0, 0, fmt.Errorf("error parsing port_range_start: %w", err)
	}

	end, err := strconv.Atoi(endStr)
	if err != nil {
		return 0, 0, fmt.Errorf("error parsing port_range_end: %w", err)
	}

	return start, end, nil
}

func (s *GormStore) SetPortRange(start int, end int) error {
	if start <= 0 || end <= 0 || start > end {
		return apperr.New(apperr.InvalidRequest, fmt.Sprintf("invalid port range: %d-%d", start, end))
	}

	if err := s.SetSetting("port_range_start", fmt.Sprintf("%d", start)); err != nil {
		return err
	}

	if err := s.SetSetting("port_range_end", fmt.Sprintf("%d", end)); err != nil {
		return err
	}

	return nil
}

// UpsertModpack stores or refreshes the locally cached view of an upstream
// catalog modpack, keyed by CatalogID.
func (s *GormStore) UpsertModpack(m *domain.Modpack) error {
	row := Modpack{
		ID:          m.ID,
		CatalogID:   m.CatalogID,
		Name:        m.Name,
		Authors:     joinAuthors(m.Authors),
		GameVersion: m.GameVersion,
		Modloader:   m.Modloader,
		DownloadURL: m.DownloadURL,
		IconURL:     m.IconURL,
		UpdatedAt:   m.UpdatedAt,
	}

	var existing Modpack
	result := s.db.First(&existing, "catalog_id = ?", m.CatalogID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return s.db.Create(&row).Error
		}
		return result.Error
	}
	row.ID = existing.ID
	return s.db.Model(&existing).Updates(row).Error
}

func (s *GormStore) GetModpackByCatalogID(catalogID string) (*domain.Modpack, error) {
	var row Modpack
	result := s.db.First(&row, "catalog_id = ?", catalogID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, fmt.Sprintf("modpack %q not found", catalogID))
		}
		return nil, result.Error
	}
	return &domain.Modpack{
		ID:          row.ID,
		CatalogID:   row.CatalogID,
		Name:        row.Name,
		Authors:     splitAuthors(row.Authors),
		GameVersion: row.GameVersion,
		Modloader:   row.Modloader,
		DownloadURL: row.DownloadURL,
		IconURL:     row.IconURL,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func (s *GormStore) SaveBackup(b *domain.Backup) error {
	row := Backup{
		ID:          b.ID,
		ServerID:    b.ServerID,
		Name:        b.Name,
		Status:      string(b.Status),
		Type:        string(b.Type),
		ArchivePath: b.ArchivePath,
		Size:        b.Size,
		CreatedAt:   b.CreatedAt,
		CompletedAt: b.CompletedAt,
	}
	return s.db.Create(&row).Error
}

func (s *GormStore) UpdateBackupStatus(id string, status domain.BackupStatus, size int64, completedAt *time.Time) error {
	updates := map[string]interface{}{
		"status": string(status),
		"size":   size,
	}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	result := s.db.Model(&Backup{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, fmt.Sprintf("backup %q not found", id))
	}
	return nil
}

func (s *GormStore) GetBackupByID(id string) (*domain.Backup, error) {
	var row Backup
	result := s.db.First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, fmt.Sprintf("backup %q not found", id))
		}
		return nil, result.Error
	}
	return &domain.Backup{
		ID:          row.ID,
		ServerID:    row.ServerID,
		Name:        row.Name,
		Status:      domain.BackupStatus(row.Status),
		Type:        domain.BackupType(row.Type),
		ArchivePath: row.ArchivePath,
		Size:        row.Size,
		CreatedAt:   row.CreatedAt,
		CompletedAt: row.CompletedAt,
	}, nil
}

func (s *GormStore) ListBackupsByServer(serverID string) ([]domain.Backup, error) {
	var rows []Backup
	if err := s.db.Where("server_id = ?", serverID).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	backups := make([]domain.Backup, 0, len(rows))
	for _, row := range rows {
		backups = append(backups, domain.Backup{
			ID:          row.ID,
			ServerID:    row.ServerID,
			Name:        row.Name,
			Status:      domain.BackupStatus(row.Status),
			Type:        domain.BackupType(row.Type),
			ArchivePath: row.ArchivePath,
			Size:        row.Size,
			CreatedAt:   row.CreatedAt,
			CompletedAt: row.CompletedAt,
		})
	}
	return backups, nil
}

func (s *GormStore) DeleteBackupRecord(id string) error {
	result := s.db.Delete(&Backup{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, fmt.Sprintf("backup %q not found", id))
	}
	return nil
}

// GetCacheEntry resolves the content hash cached for (engine, version), if any.
func (s *GormStore) GetCacheEntry(engine, version string) (*CacheEntry, error) {
	var row CacheEntry
	result := s.db.First(&row, "engine = ? AND version = ?", engine, version)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "no cache entry for "+engine+" "+version)
		}
		return nil, result.Error
	}
	return &row, nil
}

// PutCacheEntry records that (engine, version) resolves to hash, overwriting
// any prior mapping — upstream artifacts can be republished under the same
// version string.
func (s *GormStore) PutCacheEntry(engine, version, hash string, size int64) error {
	row := CacheEntry{Engine: engine, Version: version, Hash: hash, Size: size, CreatedAt: time.Now()}
	return s.db.Save(&row).Error
}
