package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"fleetctl/internal/api"
	"fleetctl/internal/app"
	"fleetctl/internal/backup"
	"fleetctl/internal/cache"
	"fleetctl/internal/catalog"
	"fleetctl/internal/config"
	"fleetctl/internal/installer"
	"fleetctl/internal/jvm"
	"fleetctl/internal/logging"
	"fleetctl/internal/progress"
	"fleetctl/internal/provision"
	"fleetctl/internal/runner"
	"fleetctl/internal/server"
	"fleetctl/internal/storage"
	"fleetctl/internal/ws"
)

const consoleHistorySize = 1000

func main() {
	fmt.Println("Starting fleetctl daemon...")

	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("Error getting user config directory: %v", err)
	}
	appName := "fleetctl"
	dev := config.IsDev()
	if dev {
		appName = "fleetctl-dev"
	}
	configDir := filepath.Join(userConfigDir, appName)

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	cfg.JWTSecret = config.LoadOrGenerateSecret(configDir)

	logger, err := logging.New(configDir, dev)
	if err != nil {
		log.Fatalf("Error setting up logger: %v", err)
	}
	defer logger.Sync()

	logger.Infow("starting fleetctl daemon",
		"database", cfg.DatabasePath,
		"servers", cfg.ServersPath,
		"runtimes", cfg.RuntimesPath,
		"backups", cfg.BackupsPath,
	)

	for _, path := range []string{cfg.ServersPath, cfg.BackupsPath, cfg.RuntimesPath, cfg.CachePath} {
		if err := os.MkdirAll(path, 0755); err != nil {
			log.Fatalf("Fatal: could not create directory %q: %v", path, err)
		}
	}

	store, err := storage.NewGormStore(cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Fatal: could not connect to DB: %v", err)
	}

	artifactCache, err := cache.New(cfg.CachePath, store, logger)
	if err != nil {
		log.Fatalf("Fatal: could not open artifact cache: %v", err)
	}
	catalogClient := catalog.New(cfg.CatalogAPIKey, logger)
	inst := installer.New(artifactCache, logger)
	progressHub := progress.NewHub()

	jvmMgr := jvm.NewManager(cfg.RuntimesPath, logger)
	srvMgr := server.NewManager(cfg.ServersPath, store, inst, logger)
	hubManager := ws.NewHubManager(consoleHistorySize)
	supervisor := runner.NewSupervisor(store, jvmMgr, hubManager, cfg.ServersPath, logger)
	backupManager := backup.NewManager(cfg.ServersPath, cfg.BackupsPath, cfg.BackupRetention, store, logger)
	orchestrator := provision.New(catalogClient, artifactCache, store, inst, progressHub, cfg.ServersPath, logger)

	container := &app.Container{
		Config:        cfg,
		Store:         store,
		JvmManager:    jvmMgr,
		ServerManager: srvMgr,
		HubManager:    hubManager,
		Supervisor:    supervisor,
		BackupManager: backupManager,
		Catalog:       catalogClient,
		Cache:         artifactCache,
		Installer:     inst,
		Orchestrator:  orchestrator,
		ProgressHub:   progressHub,
	}

	if err := supervisor.ResetRunningStates(); err != nil {
		logger.Warnw("failed to reset server states", "error", err)
	}

	if err := backupManager.StartScheduler(cfg.BackupCron); err != nil {
		logger.Warnw("failed to start backup scheduler", "error", err)
	}
	defer backupManager.StopScheduler()

	apiServer := api.NewAPIServer(container)

	listenAddr := fmt.Sprintf(":%d", config.GetPort())
	logger.Infow("api server listening", "addr", listenAddr)

	if err := apiServer.Start(listenAddr); err != nil {
		log.Fatalf("API error: %v", err)
	}
}
