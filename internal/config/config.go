package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

const (
	defaultConfigName     = "config.json"
	defaultServersDir     = "servers"
	defaultBackupsDir     = "backups"
	defaultRuntimesDir    = "runtimes"
	defaultCacheDir       = "cache"
	defaultDatabaseFile   = "manager.db"
	defaultPort           = 8080
	defaultBackupCron     = "0 3 * * *"
	defaultBackupRetention = 7
)

type Config struct {
	ServersPath     string `json:"servers_path"`
	HostServersPath string `json:"host_servers_path,omitempty"`
	BackupsPath     string `json:"backups_path"`
	RuntimesPath    string `json:"runtimes_path"`
	CachePath       string `json:"cache_path"`
	DatabasePath    string `json:"database_path"`
	Port            int    `json:"port"`
	BackupCron      string `json:"backup_cron"`
	BackupRetention int    `json:"backup_retention_days"`
	CatalogAPIKey   string `json:"-"`
	DefaultJavaOpts string `json:"default_java_opts,omitempty"`
	JWTSecret       string `json:"-"`
}

// applyEnvOverrides layers the environment variables named in the spec's
// "Environment variables consumed by the core" section on top of whatever
// LoadConfig resolved from disk, so a container deployment can configure
// the daemon without touching the on-disk config file at all.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SERVERS_BASE_DIR"); v != "" {
		c.ServersPath = v
	}
	if v := os.Getenv("HOST_SERVERS_PATH"); v != "" {
		c.HostServersPath = v
	}
	if v := os.Getenv("CATALOG_API_KEY"); v != "" {
		c.CatalogAPIKey = v
	}
	if v := os.Getenv("DEFAULT_JAVA_OPTS"); v != "" {
		c.DefaultJavaOpts = v
	}
	if v := os.Getenv("BACKUP_CRON"); v != "" {
		c.BackupCron = v
	}
	if v := os.Getenv("BACKUP_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			c.BackupRetention = days
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabasePath = v
	}
}

// IsDev reports whether the daemon is running from a development build,
// used to keep dev and release installs in separate config directories.
func IsDev() bool {
	return os.Getenv("FLEETCTL_ENV") == "dev"
}

// GetPort returns the listen port: FLEETCTL_PORT when it holds a positive
// integer, otherwise defaultPort. It does not read the loaded Config.
func GetPort() int {
	if v := os.Getenv("FLEETCTL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			return p
		}
	}
	return defaultPort
}

func LoadConfig(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, defaultConfigName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath, configDir)
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.BackupCron == "" {
		cfg.BackupCron = defaultBackupCron
	}
	if cfg.BackupRetention == 0 {
		cfg.BackupRetention = defaultBackupRetention
	}
	if cfg.CachePath == "" {
		cfg.CachePath = filepath.Join(configDir, defaultCacheDir)
	}

	cfg.applyEnvOverrides()
	return &cfg, nil
}

func createDefaultConfig(configPath, configDir string) (*Config, error) {
	cfg := Config{
		ServersPath:     filepath.Join(configDir, defaultServersDir),
		BackupsPath:     filepath.Join(configDir, defaultBackupsDir),
		RuntimesPath:    filepath.Join(configDir, defaultRuntimesDir),
		CachePath:       filepath.Join(configDir, defaultCacheDir),
		DatabasePath:    filepath.Join(configDir, defaultDatabaseFile),
		Port:            defaultPort,
		BackupCron:      defaultBackupCron,
		BackupRetention: defaultBackupRetention,
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()
	return &cfg, nil
}
