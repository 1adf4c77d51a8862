package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
)

const secretFileName = ".fleetctl_secret"

// LoadOrGenerateSecret returns the JWT signing secret: the FLEETCTL_SECRET_KEY
// env var if set, otherwise a secret persisted under configDir, generated
// once on first run so tokens survive restarts.
func LoadOrGenerateSecret(configDir string) string {
	if v := os.Getenv("FLEETCTL_SECRET_KEY"); v != "" {
		return v
	}

	secretPath := filepath.Join(configDir, secretFileName)

	if data, err := os.ReadFile(secretPath); err == nil {
		return string(data)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("config: could not generate JWT secret: " + err.Error())
	}
	secret := hex.EncodeToString(buf)

	_ = os.MkdirAll(configDir, 0755)
	_ = os.WriteFile(secretPath, []byte(secret), 0600)

	return secret
}
