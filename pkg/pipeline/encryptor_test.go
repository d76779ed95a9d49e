package pipeline

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateKeyProducesValidKeys(t *testing.T) {
	a, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	b, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	if !IsValidKey(a) || !IsValidKey(b) {
		t.Error("generated keys must self-validate")
	}
	if a == b {
		t.Error("two generated keys should differ")
	}
}

func TestIsValidKey(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"not base64", "???", false},
		{"empty", "", false},
		{"wrong length", base64.StdEncoding.EncodeToString(make([]byte, 16)), false},
		{"exact 32 bytes", base64.StdEncoding.EncodeToString(make([]byte, 32)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidKey(tt.value); got != tt.want {
				t.Errorf("IsValidKey(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	plaintext := "✨ Check-in GRACE\n- G: G3 — Conectada (Yin (0))"
	ciphertext, nonce, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if ciphertext == "" || nonce == "" {
		t.Fatal("ciphertext and nonce must not be empty")
	}
	if strings.Contains(ciphertext, "Conectada") {
		t.Error("ciphertext leaks plaintext")
	}

	got, err := Decrypt(ciphertext, key, nonce)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != plaintext {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	key, _ := GenerateKey()
	other, _ := GenerateKey()

	ciphertext, nonce, err := Encrypt("secreto", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := Decrypt(ciphertext, other, nonce); err == nil {
		t.Error("decrypting with the wrong key must fail")
	}
}

func TestEncryptNoncesNeverRepeat(t *testing.T) {
	key, _ := GenerateKey()

	_, n1, err := Encrypt("igual", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	_, n2, err := Encrypt("igual", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if n1 == n2 {
		t.Error("nonces must be random per entry")
	}
}

func TestEnsureKeyPrefersEnvironment(t *testing.T) {
	key, _ := GenerateKey()
	t.Setenv("GRACE_TEST_JOURNAL_KEY", key)

	got, err := EnsureKey(context.Background(), nil, filepath.Join(t.TempDir(), "key"), "GRACE_TEST_JOURNAL_KEY")
	if err != nil {
		t.Fatalf("EnsureKey: %v", err)
	}
	if got != key {
		t.Error("environment key should win over the file")
	}
}

func TestEnsureKeyRejectsInvalidEnvironmentKey(t *testing.T) {
	t.Setenv("GRACE_TEST_JOURNAL_KEY", "not-a-key")

	_, err := EnsureKey(context.Background(), nil, filepath.Join(t.TempDir(), "key"), "GRACE_TEST_JOURNAL_KEY")
	if err == nil {
		t.Fatal("invalid environment key must be refused, not silently replaced")
	}
}

func TestEnsureKeyGeneratesAndPersists(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "secrets", "journal.key")

	first, err := EnsureKey(context.Background(), nil, keyPath, "")
	if err != nil {
		t.Fatalf("EnsureKey: %v", err)
	}
	if !IsValidKey(first) {
		t.Fatal("generated key is invalid")
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("key file missing: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key file mode = %o, want 600", info.Mode().Perm())
	}

	// Second resolution reads the same key back.
	second, err := EnsureKey(context.Background(), nil, keyPath, "")
	if err != nil {
		t.Fatalf("EnsureKey: %v", err)
	}
	if second != first {
		t.Error("persisted key should be stable across resolutions")
	}
}
