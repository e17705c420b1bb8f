// Package credential seals provider API keys at rest. Secrets are write-once
// through the API: they can be replaced or deleted but never read back in
// plaintext; callers only learn whether one exists.
package credential

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/inkos/inkd/internal/db"
)

const encPrefix = "enc:"

// Vault encrypts and stores per-provider secrets with a master key.
type Vault struct {
	key   []byte
	store *db.Store
}

// New creates a Vault. The key must be 32 bytes (AES-256).
func New(key []byte, store *db.Store) (*Vault, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(key))
	}
	return &Vault{key: key, store: store}, nil
}

// Seal encrypts a plaintext string with AES-256-GCM and prepends the
// "enc:" prefix. Empty input stays empty.
func (v *Vault) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return encPrefix + hex.EncodeToString(ciphertext), nil
}

// Open decrypts a sealed value.
func (v *Vault) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}

	data, err := hex.DecodeString(strings.TrimPrefix(sealed, encPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, cipherdata := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, cipherdata, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// SetSecret seals and stores a provider's API key
func (v *Vault) SetSecret(ctx context.Context, providerID, plaintext string) error {
	sealed, err := v.Seal(plaintext)
	if err != nil {
		return err
	}
	return v.store.SetCredential(ctx, providerID, sealed)
}

// GetSecret opens a provider's API key for internal use (never exposed via API)
func (v *Vault) GetSecret(ctx context.Context, providerID string) (string, error) {
	sealed, err := v.store.GetCredential(ctx, providerID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v.Open(sealed)
}

// DeleteSecret removes a provider's API key
func (v *Vault) DeleteSecret(ctx context.Context, providerID string) error {
	return v.store.DeleteCredential(ctx, providerID)
}

// HasSecret reports whether a provider has a stored key
func (v *Vault) HasSecret(ctx context.Context, providerID string) (bool, error) {
	return v.store.HasCredential(ctx, providerID)
}
