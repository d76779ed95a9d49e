package service

import (
	"context"
	"strings"
	"sync"

	"grace-checkin-bot/internal/catalog"
	"grace-checkin-bot/internal/config"
)

// fakeReplier records everything the services send, per user.
type fakeReplier struct {
	mu   sync.Mutex
	sent []sentMessage
}

type sentMessage struct {
	UserID string
	Text   string
}

func (f *fakeReplier) SendText(userID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{UserID: userID, Text: text})
}

func (f *fakeReplier) messages(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.UserID == userID {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeReplier) last(userID string) string {
	msgs := f.messages(userID)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

func (f *fakeReplier) contains(userID, fragment string) bool {
	for _, m := range f.messages(userID) {
		if strings.Contains(m, fragment) {
			return true
		}
	}
	return false
}

// fakeProcessor is a pipeline stand-in that records its invocations.
type fakeProcessor struct {
	mu     sync.Mutex
	calls  []processCall
	result string
	err    error
}

type processCall struct {
	Text        string
	AllowCommit bool
	Passphrase  string
}

func (f *fakeProcessor) Process(ctx context.Context, text string, metadata map[string]interface{}, allowCommit bool, passphrase string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, processCall{Text: text, AllowCommit: allowCommit, Passphrase: passphrase})
	return f.result, f.err
}

func (f *fakeProcessor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeProcessor) lastCall() processCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

// fakeSyncer is a repo-sync stand-in with a fixed outcome.
type fakeSyncer struct {
	mu      sync.Mutex
	calls   int
	success bool
	output  string
}

func (f *fakeSyncer) Sync(ctx context.Context, branch string, envOverrides map[string]string) (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.success, f.output
}

func (f *fakeSyncer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeStatus answers the status command with canned values.
type fakeStatus struct{}

func (fakeStatus) LastCommitShort(ctx context.Context) (string, error) { return "abc1234", nil }
func (fakeStatus) RecordCounts() (int, int)                            { return 3, 5 }

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Bot: config.BotConfig{
			OwnerID:           "owner",
			WakePhrase:        "hola grace",
			WakeTimeoutSecs:   900,
			CommandPrefix:     "!",
			CommitCodePrefix:  "grace-",
			RequirePassphrase: false,
			AllowPush:         false,
			SyncBranch:        "prepare-to-collaborate",
		},
	}
}

func testStates() *catalog.Catalog {
	return catalog.New(map[string]map[string]string{
		"G": {"G1": "Disfórica", "G2": "Incómoda", "G3": "Conectada", "G4": "Afirmada", "G5": "Eufórica"},
		"R": {"R1": "Aislada", "R2": "Tensa", "R3": "Neutral", "R4": "Acompañada", "R5": "Nutrida"},
		"A": {"A1": "Bloqueada", "A2": "Dispersa", "A3": "Estable", "A4": "Curiosa", "A5": "Lúcida"},
		"C": {"C1": "Agotada", "C2": "Pesada", "C3": "Presente", "C4": "Activa", "C5": "Vital"},
		"E": {"E1": "Apagada", "E2": "Inquieta", "E3": "Serena", "E4": "Ilusionada", "E5": "Plena"},
	})
}
