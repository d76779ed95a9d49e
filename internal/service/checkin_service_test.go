package service

import (
	"sync"
	"testing"

	"grace-checkin-bot/internal/catalog"
	"grace-checkin-bot/internal/repository/memory"
	"grace-checkin-bot/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFinalizer struct {
	mu       sync.Mutex
	sessions []*store.Session
}

func (f *fakeFinalizer) Finalize(session *store.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, session)
}

func (f *fakeFinalizer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func newCheckinFixture() (ICheckinService, *memory.SessionRepository, *fakeReplier, *fakeFinalizer) {
	sessions := memory.NewSessionRepository()
	replier := &fakeReplier{}
	finalizer := &fakeFinalizer{}
	svc := NewCheckinService(testStates(), sessions, replier, finalizer, nopLogger{})
	return svc, sessions, replier, finalizer
}

func activeSession(sessions *memory.SessionRepository) *store.Session {
	session := store.NewSession("alice", "grace-abc123")
	sessions.Save(session)
	return session
}

func TestStartPromptsSendsFirstDimension(t *testing.T) {
	svc, sessions, replier, _ := newCheckinFixture()
	session := activeSession(sessions)

	svc.StartPrompts(session)

	assert.Equal(t, store.PhasePrompting, session.Phase)
	assert.True(t, session.PromptsStarted)
	assert.Contains(t, replier.last("alice"), "**G**")
	require.Len(t, session.LastOptions, 5)
	assert.Equal(t, "G1", session.LastOptions[0].Code)
}

func TestHandleAnswerByNumeral(t *testing.T) {
	svc, sessions, _, _ := newCheckinFixture()
	session := activeSession(sessions)
	svc.StartPrompts(session)

	svc.HandleAnswer(session, "5")

	assert.Equal(t, "G5", session.Answers["G"])
	assert.Equal(t, 1, session.Bits["G"])
	assert.Equal(t, 1, session.StepIndex, "should advance to R")
}

func TestHandleAnswerByCode(t *testing.T) {
	svc, sessions, _, _ := newCheckinFixture()
	session := activeSession(sessions)
	svc.StartPrompts(session)

	svc.HandleAnswer(session, "g2")

	assert.Equal(t, "G2", session.Answers["G"])
	assert.Equal(t, 0, session.Bits["G"])
}

func TestHandleAnswerRepopulatesOptionsCache(t *testing.T) {
	svc, sessions, _, _ := newCheckinFixture()
	session := activeSession(sessions)
	session.Phase = store.PhasePrompting
	session.PromptsStarted = true
	require.Empty(t, session.LastOptions)

	// A neutral answer resolved through the fallback leaves the session
	// waiting on the collapse, so the recomputed list must be cached.
	svc.HandleAnswer(session, "3")

	assert.Equal(t, "G3", session.Answers["G"])
	require.Len(t, session.LastOptions, 5)
	assert.Equal(t, "G1", session.LastOptions[0].Code)
}

func TestHandleAnswerInvalidReprompts(t *testing.T) {
	svc, sessions, replier, _ := newCheckinFixture()
	session := activeSession(sessions)
	svc.StartPrompts(session)

	svc.HandleAnswer(session, "me siento bien")

	assert.Equal(t, 0, session.StepIndex, "invalid answer must not advance")
	assert.Empty(t, session.Answers["G"])
	assert.True(t, replier.contains("alice", "Respuesta no válida"))
	assert.Contains(t, replier.last("alice"), "**G**", "prompt should be re-sent")
}

func TestNeutralAnswerOpensCollapse(t *testing.T) {
	svc, sessions, replier, _ := newCheckinFixture()
	session := activeSession(sessions)
	svc.StartPrompts(session)

	svc.HandleAnswer(session, "3")

	assert.Equal(t, "G3", session.Answers["G"])
	assert.Equal(t, store.PhaseAwaitingCollapse, session.Phase)
	assert.Equal(t, "G", session.PendingCollapseDim)
	assert.Equal(t, 0, session.StepIndex, "collapse must resolve before advancing")
	assert.Contains(t, replier.last("alice"), "Neutral")
}

func TestHandleCollapseResolvesAndAdvances(t *testing.T) {
	svc, sessions, replier, _ := newCheckinFixture()
	session := activeSession(sessions)
	svc.StartPrompts(session)
	svc.HandleAnswer(session, "3")

	// Anything but 0/1 re-asks without side effects.
	svc.HandleCollapse(session, "si")
	assert.Equal(t, store.PhaseAwaitingCollapse, session.Phase)
	assert.Contains(t, replier.last("alice"), "0 o 1")

	svc.HandleCollapse(session, "1")
	assert.Equal(t, 1, session.Bits["G"])
	assert.Empty(t, session.PendingCollapseDim)
	assert.Equal(t, store.PhasePrompting, session.Phase)
	assert.Equal(t, 1, session.StepIndex)
}

func TestNoteSkipLeavesEmptyNote(t *testing.T) {
	svc, sessions, _, finalizer := newCheckinFixture()
	session := activeSession(sessions)
	svc.StartPrompts(session)

	for range catalog.DimOrder {
		svc.HandleAnswer(session, "4")
	}
	require.Equal(t, len(catalog.DimOrder), session.StepIndex, "should sit on the note step")

	svc.HandleAnswer(session, "skip")

	assert.Empty(t, session.Note)
	assert.Equal(t, 1, finalizer.count(), "completing the sequence finalizes exactly once")
}

func TestFullSequenceFinalizesWithNote(t *testing.T) {
	svc, sessions, _, finalizer := newCheckinFixture()
	session := activeSession(sessions)
	svc.StartPrompts(session)

	answers := []string{"1", "2", "3", "4", "5"}
	for _, a := range answers {
		svc.HandleAnswer(session, a)
		if session.Phase == store.PhaseAwaitingCollapse {
			svc.HandleCollapse(session, "0")
		}
	}
	svc.HandleAnswer(session, "hoy fue un día tranquilo")

	assert.Equal(t, "hoy fue un día tranquilo", session.Note)
	assert.Equal(t, map[string]string{
		"G": "G1", "R": "R2", "A": "A3", "C": "C4", "E": "E5",
	}, session.Answers)
	assert.Equal(t, map[string]int{
		"G": 0, "R": 0, "A": 0, "C": 1, "E": 1,
	}, session.Bits)
	assert.Equal(t, 1, finalizer.count())
}
