package domain

import "time"

// ServerRepository is the durable interface over ServerRecord storage.
// Uniqueness of name and port is enforced by the implementation, not by
// callers.
type ServerRepository interface {
	SaveServer(srv *Server) error
	UpdateServer(id string, patch ServerPatch) error
	UpdateServerPort(id string, port int) error
	ListServers() ([]Server, error)
	GetServerByID(id string) (*Server, error)
	GetServerByName(name string) (*Server, error)
	DeleteServer(id string) error
	UpdateStatus(id string, status ServerState) error
	ListUsedPorts() ([]int, error)
}

// ServerPatch carries optional field updates; nil fields are left untouched.
type ServerPatch struct {
	Name        *string
	Description *string
	RAM         *int
	CustomArgs  *string
	AutoStart   *bool
	GameOptions *GameOptions
}

type UserRepository interface {
	CreateUser(user *User) error
	GetUserByUsername(username string) (*User, error)
	GetUserByID(id string) (*User, error)
	ListUsers() ([]User, error)
	DeleteUser(id string) error
	SetPermissions(permissions []Permission) error
	GetPermissions(userID string) ([]Permission, error)
	UpdatePassword(userID string, hashedPassword string) error
}

type SettingRepository interface {
	GetSetting(key string) (string, error)
	SetSetting(key string, value string) error
	GetPortRange() (int, int, error)
	SetPortRange(start int, end int) error
}

type PublicLinkRepository interface {
	CreatePublicLink(link *PublicLink) error
	GetPublicLink(token string) (*PublicLink, error)
	GetPublicLinkByServerID(serverID string) (*PublicLink, error)
	DeletePublicLink(token string) error
}

// ModpackRepository caches resolved upstream catalog modpacks.
type ModpackRepository interface {
	UpsertModpack(m *Modpack) error
	GetModpackByCatalogID(catalogID string) (*Modpack, error)
}

// BackupRepository is the durable interface over Backup records.
type BackupRepository interface {
	SaveBackup(b *Backup) error
	UpdateBackupStatus(id string, status BackupStatus, size int64, completedAt *time.Time) error
	GetBackupByID(id string) (*Backup, error)
	ListBackupsByServer(serverID string) ([]Backup, error)
	DeleteBackupRecord(id string) error
}

type Repository interface {
	ServerRepository
	UserRepository
	SettingRepository
	PublicLinkRepository
	ModpackRepository
	BackupRepository
}
