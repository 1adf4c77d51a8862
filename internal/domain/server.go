package domain

import "time"

// EngineFamily identifies the flavor of game server, determining jar/script
// layout, install pipeline, and configuration conventions.
type EngineFamily string

const (
	EngineVanilla  EngineFamily = "vanilla"
	EnginePaper    EngineFamily = "paper"
	EngineSpigot   EngineFamily = "spigot"
	EngineBukkit   EngineFamily = "bukkit"
	EngineFabric   EngineFamily = "fabric"
	EngineForge    EngineFamily = "forge"
	EngineNeoForge EngineFamily = "neoforge"
	EngineQuilt    EngineFamily = "quilt"
	EnginePurpur   EngineFamily = "purpur"
	EngineFolia    EngineFamily = "folia"
)

// ServerState is the lifecycle state of a Server, following the state
// machine owned by the process supervisor.
type ServerState string

const (
	StateStopped  ServerState = "STOPPED"
	StateStarting ServerState = "STARTING"
	StateRunning  ServerState = "RUNNING"
	StateStopping ServerState = "STOPPING"
	StateExited   ServerState = "EXITED"
	StateError    ServerState = "ERROR"
)

// StorageKind distinguishes how a server's files are addressed on the host.
type StorageKind string

const (
	StorageNamedVolume StorageKind = "named_volume"
	StorageBindPath    StorageKind = "bind_path"
)

// GameOptions mirrors the handful of server.properties fields the control
// plane treats as first-class instead of free-form key/value pairs.
type GameOptions struct {
	Seed       string `json:"seed,omitempty"`
	Difficulty string `json:"difficulty"`
	Gamemode   string `json:"gamemode"`
	PVP        bool   `json:"pvp"`
	Whitelist  bool   `json:"whitelist"`
	OnlineMode bool   `json:"onlineMode"`
	MaxPlayers int    `json:"maxPlayers"`
	MOTD       string `json:"motd"`
}

// Server is a durable fleet record: one game-server child process this
// control plane knows how to provision, start, stop, and observe.
type Server struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	FolderName     string       `json:"folderName"`
	Engine         EngineFamily `json:"engine"`
	Version        string       `json:"version"`
	Port           int          `json:"port"`
	RAM            int          `json:"ram"`
	Status         ServerState  `json:"status"`
	CustomArgs     string       `json:"customArgs"`
	AutoStart      bool         `json:"autoStart"`
	BackupEligible bool         `json:"backupEligible"`
	StorageKind    StorageKind  `json:"storageKind"`
	StoragePath    string       `json:"storagePath"`
	GameOptions    GameOptions  `json:"gameOptions"`
	ModpackID      string       `json:"modpackId,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Modpack is the locally cached view of an upstream catalog modpack,
// refreshed whenever the provisioning orchestrator resolves one.
type Modpack struct {
	ID          string    `json:"id"`
	CatalogID   string    `json:"catalogId"`
	Name        string    `json:"name"`
	Authors     []string  `json:"authors"`
	GameVersion string    `json:"gameVersion"`
	Modloader   string    `json:"modloader"`
	DownloadURL string    `json:"downloadUrl"`
	IconURL     string    `json:"iconUrl"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BackupStatus is the lifecycle of one Backup record.
type BackupStatus string

const (
	BackupPending    BackupStatus = "PENDING"
	BackupInProgress BackupStatus = "IN_PROGRESS"
	BackupCompleted  BackupStatus = "COMPLETED"
	BackupFailed     BackupStatus = "FAILED"
)

// BackupType distinguishes operator-triggered from cron-triggered backups.
type BackupType string

const (
	BackupManual    BackupType = "MANUAL"
	BackupScheduled BackupType = "SCHEDULED"
)

// Backup is a durable record of one archive of a server's storage directory.
type Backup struct {
	ID          string       `json:"id"`
	ServerID    string       `json:"serverId"`
	Name        string       `json:"name"`
	Status      BackupStatus `json:"status"`
	Type        BackupType   `json:"type"`
	ArchivePath string       `json:"archivePath"`
	Size        int64        `json:"size"`
	CreatedAt   time.Time    `json:"createdAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// BackupInfo is a name-and-size view of a backup archive. The API's backup
// listings return Backup records, not BackupInfo.
type BackupInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ProgressEvent is a single tick of a long-running operation, delivered over
// either the per-server console hub (install progress) or the session-keyed
// progress channel (provisioning).
type ProgressEvent struct {
	ServerID     string  `json:"serverId,omitempty"`
	SessionID    string  `json:"sessionId,omitempty"`
	Step         string  `json:"step,omitempty"`
	Message      string  `json:"message"`
	Progress     float64 `json:"progress"`
	CurrentBytes int64   `json:"currentBytes,omitempty"`
	TotalBytes   int64   `json:"totalBytes,omitempty"`
	Current      int     `json:"current,omitempty"`
	Total        int     `json:"total,omitempty"`
}

// ServerStats is a point-in-time resource sample for a running server's
// process tree, sourced from gopsutil.
type ServerStats struct {
	CPU  float64 `json:"cpu"`
	RAM  uint64  `json:"ram"`
	Disk int64   `json:"disk"`
}
