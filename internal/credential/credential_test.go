package credential

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inkos/inkd/internal/db"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	store, err := db.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	v, err := New(bytes.Repeat([]byte{42}, 32), store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestNewRejectsBadKey(t *testing.T) {
	if _, err := New([]byte("too short"), nil); err == nil {
		t.Error("expected an error for a short key")
	}
}

func TestSealOpenRoundtrip(t *testing.T) {
	v := newTestVault(t)

	sealed, err := v.Seal("sk-very-secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !strings.HasPrefix(sealed, "enc:") {
		t.Errorf("sealed value missing prefix: %q", sealed)
	}
	if strings.Contains(sealed, "very-secret") {
		t.Error("plaintext leaked into the sealed value")
	}

	plain, err := v.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if plain != "sk-very-secret" {
		t.Errorf("roundtrip = %q", plain)
	}

	// a fresh nonce per seal: same input, different ciphertext
	again, err := v.Seal("sk-very-secret")
	if err != nil {
		t.Fatalf("Seal again: %v", err)
	}
	if again == sealed {
		t.Error("nonce reuse: identical ciphertexts")
	}

	if s, err := v.Seal(""); err != nil || s != "" {
		t.Errorf("empty plaintext should seal to empty, got %q, %v", s, err)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	v := newTestVault(t)
	for _, bad := range []string{"enc:zzzz", "enc:abcd"} {
		if _, err := v.Open(bad); err == nil {
			t.Errorf("Open(%q) should fail", bad)
		}
	}
}

func TestSecretLifecycle(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()

	has, err := v.HasSecret(ctx, "openai")
	if err != nil || has {
		t.Errorf("fresh vault has a secret: %v, %v", has, err)
	}

	if err := v.SetSecret(ctx, "openai", "sk-1"); err != nil {
		t.Fatalf("SetSecret: %v", err)
	}
	if has, _ = v.HasSecret(ctx, "openai"); !has {
		t.Error("HasSecret false after store")
	}
	got, err := v.GetSecret(ctx, "openai")
	if err != nil || got != "sk-1" {
		t.Errorf("GetSecret = %q, %v", got, err)
	}

	// replace
	if err := v.SetSecret(ctx, "openai", "sk-2"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got, _ = v.GetSecret(ctx, "openai"); got != "sk-2" {
		t.Errorf("after replace = %q", got)
	}

	// delete
	if err := v.DeleteSecret(ctx, "openai"); err != nil {
		t.Fatalf("DeleteSecret: %v", err)
	}
	if got, _ = v.GetSecret(ctx, "openai"); got != "" {
		t.Errorf("secret survived deletion: %q", got)
	}
}
