// Package pipeline implements the journal write-back: encrypt the entry,
// append it to the jsonl journal inside a git repository, optionally mirror
// the plaintext locally, and optionally commit and push.
package pipeline

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PassphraseEnvVar is where the deploy-key passphrase is injected for git
// push/pull subprocesses.
const PassphraseEnvVar = "GRACE_DEPLOY_KEY_PASSPHRASE"

// EntryProcessor is the write-back contract consumed by the session engine.
// The returned string is a human-readable status relayed verbatim to the
// user; a non-nil error means the pipeline could not even be invoked.
type EntryProcessor interface {
	Process(ctx context.Context, text string, metadata map[string]interface{}, allowCommit bool, passphrase string) (string, error)
}

// Options locates the journal inside its git repository.
type Options struct {
	RepoRoot      string
	DataPath      string // encrypted jsonl, relative to RepoRoot
	PlaintextPath string // optional local mirror, relative to RepoRoot
	KeyPath       string
	KeyEnvVar     string
	KeyLabel      string
	PushRemote    string
	PushBranch    string
}

// Processor is the concrete EntryProcessor.
type Processor struct {
	opts Options
	git  *GitRunner
}

func NewProcessor(opts Options) *Processor {
	return &Processor{
		opts: opts,
		git:  NewGitRunner(opts.RepoRoot),
	}
}

// Process appends one encrypted record and, when allowCommit is set, commits
// and pushes it. The passphrase, when present, only ever reaches the git
// subprocess environment.
func (p *Processor) Process(ctx context.Context, text string, metadata map[string]interface{}, allowCommit bool, passphrase string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Empty message; please send the text you want to save.", nil
	}

	keyPath := p.resolve(p.opts.KeyPath)
	key, err := EnsureKey(ctx, p.git, keyPath, p.opts.KeyEnvVar)
	if err != nil {
		return "", fmt.Errorf("ensure journal key: %w", err)
	}

	ciphertext, nonce, err := Encrypt(text, key)
	if err != nil {
		return "", fmt.Errorf("encrypt entry: %w", err)
	}

	id := uuid.New()
	entryID := hex.EncodeToString(id[:])
	timestamp := time.Now().UTC().Format(time.RFC3339)

	record := Record{
		SchemaVersion: SchemaVersion,
		EntryID:       entryID,
		Timestamp:     timestamp,
		Ciphertext:    ciphertext,
		Nonce:         nonce,
		KeyLabel:      p.opts.KeyLabel,
		Metadata:      metadata,
	}
	if err := appendLine(p.resolve(p.opts.DataPath), record); err != nil {
		return "", fmt.Errorf("append encrypted record: %w", err)
	}

	if p.opts.PlaintextPath != "" {
		mirror := PlainRecord{
			SchemaVersion: SchemaVersion,
			EntryID:       entryID,
			Timestamp:     timestamp,
			Text:          text,
			Metadata:      metadata,
		}
		if err := appendLine(p.resolve(p.opts.PlaintextPath), mirror); err != nil {
			return "", fmt.Errorf("append plaintext mirror: %w", err)
		}
	}

	if err := p.git.Add(ctx, p.opts.DataPath); err != nil {
		return "Error while processing entry.\n" + err.Error(), nil
	}

	if !allowCommit {
		return fmt.Sprintf("Entry %s stored and encrypted (local only).", entryID), nil
	}

	if err := p.git.Commit(ctx, "Encrypted entry "+timestamp); err != nil {
		return "Error while processing entry.\n" + err.Error(), nil
	}

	env := map[string]string{}
	if passphrase != "" {
		env[PassphraseEnvVar] = passphrase
	}
	if err := p.git.Push(ctx, env, p.opts.PushRemote, p.opts.PushBranch); err != nil {
		return "Error while processing entry.\n" + err.Error(), nil
	}

	return fmt.Sprintf("Entry %s stored, encrypted and pushed.", entryID), nil
}

// LastCommitShort exposes the repository HEAD for the status command.
func (p *Processor) LastCommitShort(ctx context.Context) (string, error) {
	return p.git.RevParseShort(ctx)
}

// RecordCounts returns (plaintext, encrypted) journal record counts.
func (p *Processor) RecordCounts() (int, int) {
	plain := -1
	if p.opts.PlaintextPath != "" {
		if n, err := LineCount(p.resolve(p.opts.PlaintextPath)); err == nil {
			plain = n
		}
	}
	encrypted := -1
	if n, err := LineCount(p.resolve(p.opts.DataPath)); err == nil {
		encrypted = n
	}
	return plain, encrypted
}

func (p *Processor) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.opts.RepoRoot, path)
}
