package keyring

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	zkr "github.com/zalando/go-keyring"
)

const (
	serviceName = "inkd"
	accountName = "master-encryption-key"
)

// Get retrieves the master encryption key from the OS keychain.
func Get() ([]byte, error) {
	hexKey, err := zkr.Get(serviceName, accountName)
	if err != nil {
		return nil, fmt.Errorf("keychain get: %w", err)
	}
	return hex.DecodeString(hexKey)
}

// Set stores the master encryption key in the OS keychain.
func Set(key []byte) error {
	return zkr.Set(serviceName, accountName, hex.EncodeToString(key))
}

// Delete removes the master encryption key from the OS keychain.
func Delete() error {
	return zkr.Delete(serviceName, accountName)
}

// Available returns true if the OS keychain is functional.
// Returns false if INKD_KEYRING_DISABLED=1 is set (headless/CI/Docker).
// Otherwise probes the keychain with a test write/delete cycle.
func Available() bool {
	if os.Getenv("INKD_KEYRING_DISABLED") == "1" {
		return false
	}
	testService := "inkd-keyring-probe"
	testAccount := "probe"
	if err := zkr.Set(testService, testAccount, "ok"); err != nil {
		return false
	}
	_ = zkr.Delete(testService, testAccount)
	return true
}

// LoadOrCreate returns the 32-byte master key, generating one on first run.
// Prefers the OS keychain; falls back to a key file under dataDir when the
// keychain is unavailable or disabled.
func LoadOrCreate(dataDir string) ([]byte, error) {
	if Available() {
		if key, err := Get(); err == nil && len(key) == 32 {
			return key, nil
		}
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate master key: %w", err)
		}
		if err := Set(key); err != nil {
			return nil, fmt.Errorf("keychain set: %w", err)
		}
		return key, nil
	}

	keyFile := filepath.Join(dataDir, ".inkd-key")
	if data, err := os.ReadFile(keyFile); err == nil {
		if decoded, err := hex.DecodeString(string(data)); err == nil && len(decoded) == 32 {
			return decoded, nil
		}
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(keyFile, []byte(hex.EncodeToString(key)), 0600); err != nil {
		return nil, fmt.Errorf("failed to persist master key: %w", err)
	}
	return key, nil
}
