package keyring

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrCreateFileFallback(t *testing.T) {
	t.Setenv("INKD_KEYRING_DISABLED", "1")
	dataDir := t.TempDir()

	key, err := LoadOrCreate(dataDir)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("key length = %d, want 32", len(key))
	}

	// the key file is created with owner-only permissions
	info, err := os.Stat(filepath.Join(dataDir, ".inkd-key"))
	if err != nil {
		t.Fatalf("stat key file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("key file mode = %o, want 0600", info.Mode().Perm())
	}

	// stable across loads
	again, err := LoadOrCreate(dataDir)
	if err != nil {
		t.Fatalf("second LoadOrCreate: %v", err)
	}
	if !bytes.Equal(key, again) {
		t.Error("reload produced a different key")
	}
}

func TestLoadOrCreateIgnoresCorruptKeyFile(t *testing.T) {
	t.Setenv("INKD_KEYRING_DISABLED", "1")
	dataDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dataDir, ".inkd-key"), []byte("not hex"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	key, err := LoadOrCreate(dataDir)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("key length = %d, want 32", len(key))
	}
}
