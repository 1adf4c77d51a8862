package app

import (
	"fleetctl/internal/backup"
	"fleetctl/internal/cache"
	"fleetctl/internal/catalog"
	"fleetctl/internal/config"
	"fleetctl/internal/installer"
	"fleetctl/internal/jvm"
	"fleetctl/internal/progress"
	"fleetctl/internal/provision"
	"fleetctl/internal/runner"
	"fleetctl/internal/server"
	"fleetctl/internal/storage"
	"fleetctl/internal/ws"
)

// Container holds every long-lived component of the daemon, wired once at
// startup in cmd/server. The CLI does not build one; it talks to the daemon
// over HTTP through pkg/sdk.
type Container struct {
	Config        *config.Config
	Store         *storage.GormStore
	JvmManager    *jvm.Manager
	ServerManager *server.Manager
	HubManager    *ws.HubManager
	Supervisor    *runner.Supervisor
	BackupManager *backup.Manager
	Catalog       *catalog.Client
	Cache         *cache.Cache
	Installer     *installer.Installer
	Orchestrator  *provision.Orchestrator
	ProgressHub   *progress.Hub
}
