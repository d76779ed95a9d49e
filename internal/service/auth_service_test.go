package service

import (
	"strings"
	"testing"

	"grace-checkin-bot/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(allowPush, requirePassphrase bool) (IAuthService, *fakeReplier) {
	cfg := testConfig()
	cfg.Bot.AllowPush = allowPush
	cfg.Bot.RequirePassphrase = requirePassphrase
	replier := &fakeReplier{}
	return NewAuthService(cfg, replier, nopLogger{}), replier
}

func TestNewCommitCodeIsPrefixedAndUnique(t *testing.T) {
	auth, _ := newAuthFixture(false, false)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := auth.NewCommitCode()
		assert.True(t, strings.HasPrefix(code, "grace-"), "code %q missing prefix", code)
		assert.False(t, seen[code], "code %q repeated", code)
		seen[code] = true
	}
}

func TestHandleCodeSkipDisablesCommit(t *testing.T) {
	auth, replier := newAuthFixture(true, true)
	session := store.NewSession("alice", "grace-abc123")

	settled := auth.HandleCode(session, "SKIP")

	require.True(t, settled)
	assert.False(t, session.CommitAuthorized)
	assert.Contains(t, replier.last("alice"), "solo en local")
}

func TestHandleCodeWrongCodeReprompts(t *testing.T) {
	auth, replier := newAuthFixture(false, false)
	session := store.NewSession("alice", "grace-abc123")

	settled := auth.HandleCode(session, "grace-zzz999")

	assert.False(t, settled)
	assert.False(t, session.CommitAuthorized)
	assert.Contains(t, replier.last("alice"), "incorrecto")

	// The code is not consumed by a failed attempt.
	settled = auth.HandleCode(session, "grace-abc123")
	assert.True(t, settled)
	assert.True(t, session.CommitAuthorized)
}

func TestHandleCodeMatchIsCaseInsensitive(t *testing.T) {
	auth, _ := newAuthFixture(false, false)
	session := store.NewSession("alice", "grace-abc123")

	assert.True(t, auth.HandleCode(session, "GRACE-ABC123"))
	assert.True(t, session.CommitAuthorized)
}

func TestHandleCodeEscalatesToPassphrase(t *testing.T) {
	auth, replier := newAuthFixture(true, true)
	session := store.NewSession("alice", "grace-abc123")

	settled := auth.HandleCode(session, "grace-abc123")

	assert.False(t, settled, "handshake must wait for the passphrase")
	assert.False(t, session.CommitAuthorized, "code alone must not authorize when a passphrase is required")
	assert.Equal(t, store.PhaseAwaitingPassphrase, session.Phase)
	assert.Contains(t, replier.last("alice"), "passphrase")
}

func TestHandleCodeNoPassphraseWhenPushDisabled(t *testing.T) {
	// RequirePassphrase without AllowPush never asks for the passphrase.
	auth, _ := newAuthFixture(false, true)
	session := store.NewSession("alice", "grace-abc123")

	settled := auth.HandleCode(session, "grace-abc123")

	assert.True(t, settled)
	assert.True(t, session.CommitAuthorized)
	assert.NotEqual(t, store.PhaseAwaitingPassphrase, session.Phase)
}

func TestHandlePassphraseStoresAndAuthorizes(t *testing.T) {
	auth, _ := newAuthFixture(true, true)
	session := store.NewSession("alice", "grace-abc123")
	session.Phase = store.PhaseAwaitingPassphrase

	settled := auth.HandlePassphrase(session, "hunter2")

	assert.True(t, settled)
	assert.True(t, session.CommitAuthorized)
	assert.Equal(t, "hunter2", session.DeployPassphrase)
}

func TestHandlePassphraseSkipRevokes(t *testing.T) {
	auth, replier := newAuthFixture(true, true)
	session := store.NewSession("alice", "grace-abc123")
	session.Phase = store.PhaseAwaitingPassphrase

	settled := auth.HandlePassphrase(session, "skip")

	assert.True(t, settled)
	assert.False(t, session.CommitAuthorized)
	assert.Empty(t, session.DeployPassphrase)
	assert.Contains(t, replier.last("alice"), "solo en local")
}
