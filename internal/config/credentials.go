package config

import (
	"encoding/hex"
	"fmt"
	"os"
)

const EnvCredentialsMasterKey = "INKWELL_CREDENTIALS_MASTER_KEY"

// CredentialsConfig holds the master key for credential encryption at rest.
// The key is hex-encoded and must decode to 32 bytes (AES-256).
type CredentialsConfig struct {
	MasterKey string `toml:"master_key"`
}

// MasterKeyBytes returns the decoded master key.
func (c *CredentialsConfig) MasterKeyBytes() []byte {
	key, _ := hex.DecodeString(c.MasterKey)
	return key
}

// Finalize applies environment variable overrides and validation.
func (c *CredentialsConfig) Finalize() error {
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *CredentialsConfig) Merge(overlay *CredentialsConfig) {
	if overlay.MasterKey != "" {
		c.MasterKey = overlay.MasterKey
	}
}

func (c *CredentialsConfig) loadEnv() {
	if v := os.Getenv(EnvCredentialsMasterKey); v != "" {
		c.MasterKey = v
	}
}

func (c *CredentialsConfig) validate() error {
	if c.MasterKey == "" {
		return fmt.Errorf("master_key required")
	}

	key, err := hex.DecodeString(c.MasterKey)
	if err != nil {
		return fmt.Errorf("master_key must be hex-encoded: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("master_key must decode to 32 bytes, got %d", len(key))
	}
	return nil
}
