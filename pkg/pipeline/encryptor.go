package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// The journal speaks the same wire shape as the original encryption module:
// base64 256-bit key, base64 ciphertext, base64 random nonce.

// GenerateKey returns a fresh base64-encoded 256-bit key.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// IsValidKey reports whether value is a base64-encoded 256-bit key.
func IsValidKey(value string) bool {
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return false
	}
	return len(decoded) == chacha20poly1305.KeySize
}

// Encrypt seals plaintext with the base64 key and returns base64 ciphertext
// and nonce.
func Encrypt(plaintext, keyB64 string) (ciphertext, nonce string, err error) {
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return "", "", fmt.Errorf("decode key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", "", fmt.Errorf("init cipher: %w", err)
	}

	nonceBytes := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonceBytes, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed),
		base64.StdEncoding.EncodeToString(nonceBytes),
		nil
}

// Decrypt opens base64 ciphertext with the base64 key and nonce.
func Decrypt(ciphertext, keyB64, nonce string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return "", fmt.Errorf("decode key: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	nonceBytes, err := base64.StdEncoding.DecodeString(nonce)
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonceBytes, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

// EnsureKey resolves the journal key: environment variable first, then the key
// file, generating and persisting a new key (0600) when neither exists. A key
// file tracked by git is refused outright.
func EnsureKey(ctx context.Context, git *GitRunner, keyPath, envVar string) (string, error) {
	if envVar != "" {
		if value := strings.TrimSpace(os.Getenv(envVar)); value != "" {
			if !IsValidKey(value) {
				return "", fmt.Errorf("environment variable %s does not contain a valid base64-encoded 256-bit key", envVar)
			}
			return value, nil
		}
	}

	if raw, err := os.ReadFile(keyPath); err == nil {
		value := strings.TrimSpace(string(raw))
		if value != "" && IsValidKey(value) {
			if err := checkUntracked(ctx, git, keyPath); err != nil {
				return "", err
			}
			return value, nil
		}
		// An invalid key on disk is replaced below.
	}

	value, err := GenerateKey()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o755); err != nil {
		return "", fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(value+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write key file: %w", err)
	}
	if err := checkUntracked(ctx, git, keyPath); err != nil {
		return "", err
	}
	return value, nil
}

func checkUntracked(ctx context.Context, git *GitRunner, keyPath string) error {
	if git == nil {
		return nil
	}
	rel, err := filepath.Rel(git.RepoRoot, keyPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil
	}
	if git.IsTracked(ctx, rel) {
		return fmt.Errorf("key file %s is tracked by git; remove it from version control to protect the secret", rel)
	}
	return nil
}
