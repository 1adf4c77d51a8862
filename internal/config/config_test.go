package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigAppliesEnvOverrides(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "fleetctl-config-env-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	os.Setenv("SERVERS_BASE_DIR", filepath.Join(tempDir, "custom-servers"))
	os.Setenv("CATALOG_API_KEY", "test-api-key")
	os.Setenv("BACKUP_RETENTION_DAYS", "14")
	defer func() {
		os.Unsetenv("SERVERS_BASE_DIR")
		os.Unsetenv("CATALOG_API_KEY")
		os.Unsetenv("BACKUP_RETENTION_DAYS")
	}()

	cfg, err := LoadConfig(tempDir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.ServersPath != filepath.Join(tempDir, "custom-servers") {
		t.Errorf("expected ServersPath override, got %q", cfg.ServersPath)
	}
	if cfg.CatalogAPIKey != "test-api-key" {
		t.Errorf("expected CatalogAPIKey override, got %q", cfg.CatalogAPIKey)
	}
	if cfg.BackupRetention != 14 {
		t.Errorf("expected BackupRetention override 14, got %d", cfg.BackupRetention)
	}
}

func TestLoadConfigDefaultsWithoutEnv(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "fleetctl-config-default-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	cfg, err := LoadConfig(tempDir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.BackupRetention != defaultBackupRetention {
		t.Errorf("expected default retention %d, got %d", defaultBackupRetention, cfg.BackupRetention)
	}
	if cfg.CachePath == "" {
		t.Error("expected CachePath to be populated by default")
	}
	if cfg.CatalogAPIKey != "" {
		t.Errorf("expected empty CatalogAPIKey without env, got %q", cfg.CatalogAPIKey)
	}
}
