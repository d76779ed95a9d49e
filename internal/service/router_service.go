package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"grace-checkin-bot/internal/config"
	"grace-checkin-bot/internal/model"
	"grace-checkin-bot/internal/pkg/logger"
	"grace-checkin-bot/internal/repository/memory"
	"grace-checkin-bot/pkg/events"
	pktNats "grace-checkin-bot/pkg/nats"
	"grace-checkin-bot/pkg/pipeline"
	"grace-checkin-bot/pkg/store"

	"github.com/ThreeDotsLabs/watermill/message"
)

// IRouterService is the top-level dispatch for inbound chat events: wake
// gating, command handling, session creation and sub-flow routing. Consume
// must be started once so offloaded sync/pipeline results find their way
// back to the user.
type IRouterService interface {
	HandleMessage(msg model.InboundMessage)
	Consume(ctx context.Context) error
}

// StatusProvider exposes repository facts for the status command.
type StatusProvider interface {
	LastCommitShort(ctx context.Context) (string, error)
	RecordCounts() (plaintext, encrypted int)
}

type routerService struct {
	cfg       *config.Config
	wake      *memory.WakeRegistry
	sessions  *memory.SessionRepository
	auth      IAuthService
	checkin   ICheckinService
	syncSvc   ISyncService
	processor pipeline.EntryProcessor
	status    StatusProvider
	replier   Replier
	pubSub    message.Subscriber
	natsPub   *pktNats.Publisher // optional, may be nil
	logger    logger.ILogger

	// One mutex per user: a user's messages are processed strictly one at a
	// time, unrelated users never block each other.
	locks sync.Map
}

func NewRouterService(
	cfg *config.Config,
	wake *memory.WakeRegistry,
	sessions *memory.SessionRepository,
	auth IAuthService,
	checkin ICheckinService,
	syncSvc ISyncService,
	processor pipeline.EntryProcessor,
	status StatusProvider,
	replier Replier,
	pubSub message.Subscriber,
	natsPub *pktNats.Publisher,
	log logger.ILogger,
) IRouterService {
	return &routerService{
		cfg:       cfg,
		wake:      wake,
		sessions:  sessions,
		auth:      auth,
		checkin:   checkin,
		syncSvc:   syncSvc,
		processor: processor,
		status:    status,
		replier:   replier,
		pubSub:    pubSub,
		natsPub:   natsPub,
		logger:    log,
	}
}

func (r *routerService) userLock(userID string) *sync.Mutex {
	lock, _ := r.locks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (r *routerService) HandleMessage(msg model.InboundMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	lock := r.userLock(msg.SenderID)
	lock.Lock()
	defer lock.Unlock()

	// 1. Wake phrase: always activates, never counts as session input.
	if r.matchesWakePhrase(text) {
		r.wake.Activate(msg.SenderID)
		r.replier.SendText(msg.SenderID, "👋 Estoy despierta. Tienes "+
			fmt.Sprint(r.cfg.Bot.WakeTimeoutSecs)+" segundos de ventana activa.")
		return
	}

	// 2. Commands bypass the conversational flow and carry their own gate.
	if strings.HasPrefix(text, r.cfg.Bot.CommandPrefix) {
		r.handleCommand(msg, strings.TrimPrefix(text, r.cfg.Bot.CommandPrefix))
		return
	}

	// Conversational input only flows on direct channels.
	if msg.Channel == model.ChannelGroup {
		return
	}

	// 3. An in-progress session keeps flowing even after the wake window
	// lapses; wakefulness only gates entry, not mid-session answers.
	if session, ok := r.sessions.Get(msg.SenderID); ok {
		r.dispatch(session, text)
		return
	}

	// 4. Dormant users get a notice, nothing else.
	if !r.wake.IsAwake(msg.SenderID) {
		r.replier.SendText(msg.SenderID, "😴 Estoy dormida. Usa la frase de activación para despertarme.")
		return
	}

	r.startSession(msg.SenderID)
}

func (r *routerService) dispatch(session *store.Session, text string) {
	// Cancellation applies outside the collapse/authorization sub-flows,
	// including while an offloaded call is in flight.
	if isCancelToken(text) && cancellable(session.Phase) {
		r.cancelSession(session)
		return
	}

	if session.Busy() {
		r.replier.SendText(session.UserID, "⏳ Dame un momento, sigo procesando tu sesión...")
		return
	}

	switch session.Phase {
	case store.PhaseAwaitingCode:
		if r.auth.HandleCode(session, text) {
			r.afterHandshake(session)
		}
		r.sessions.Save(session)
	case store.PhaseAwaitingPassphrase:
		if r.auth.HandlePassphrase(session, text) {
			r.afterHandshake(session)
		}
		r.sessions.Save(session)
	case store.PhaseAwaitingCollapse:
		r.checkin.HandleCollapse(session, text)
	case store.PhasePrompting:
		r.checkin.HandleAnswer(session, text)
	default:
		r.logger.Warn("Router", "Session in unknown phase", map[string]interface{}{
			"user_id": session.UserID, "phase": session.Phase,
		})
	}
}

// afterHandshake routes a settled authorization: authorized sessions sync
// first, everything else goes straight to the prompts.
func (r *routerService) afterHandshake(session *store.Session) {
	if session.CommitAuthorized && !session.SyncAttempted {
		r.syncSvc.Launch(session)
		return
	}
	r.checkin.StartPrompts(session)
}

func (r *routerService) startSession(userID string) {
	session := store.NewSession(userID, r.auth.NewCommitCode())
	r.sessions.Save(session)

	r.replier.SendText(userID,
		"Iniciamos un check-in guiado GRACE. Responde con número o código. Escribe 'cancel' para salir.")
	r.auth.PromptForCode(session)

	r.publishLifecycle(events.NewSessionStarted(userID))
	r.logger.Info("Router", "Session started", map[string]interface{}{"user_id": userID})
}

func (r *routerService) cancelSession(session *store.Session) {
	r.sessions.Delete(session.UserID)
	r.replier.SendText(session.UserID, "Sesión cancelada. Escribe cualquier cosa para iniciar de nuevo.")
	r.logger.Info("Router", "Session cancelled", map[string]interface{}{"user_id": session.UserID})
}

// handleCommand authorizes command-style messages with the simpler
// owner-and-awake check, refreshing the wake window as a side effect.
func (r *routerService) handleCommand(msg model.InboundMessage, body string) {
	if msg.SenderID != r.cfg.Bot.OwnerID {
		// Commands from anyone else are dropped without acknowledgment.
		return
	}
	if !r.wake.IsAwake(msg.SenderID) {
		r.replier.SendText(msg.SenderID, "😴 Estoy dormida. Usa la frase de activación para despertarme.")
		return
	}
	r.wake.Activate(msg.SenderID)

	name, rest := splitCommand(body)
	switch name {
	case "status":
		r.commandStatus(msg.SenderID)
	case "checkin":
		r.commandCheckin(msg)
	case "grace":
		r.commandGrace(msg.SenderID, rest)
	default:
		r.replier.SendText(msg.SenderID, "Comando no reconocido.")
	}
}

func (r *routerService) commandStatus(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	commit, err := r.status.LastCommitShort(ctx)
	if err != nil {
		commit = "unknown"
	}
	plaintext, encrypted := r.status.RecordCounts()

	r.replier.SendText(userID, fmt.Sprintf(
		"Last commit: %s\nPlaintext records: %s\nEncrypted records: %s",
		commit, countText(plaintext), countText(encrypted)))
}

func (r *routerService) commandCheckin(msg model.InboundMessage) {
	if _, ok := r.sessions.Get(msg.SenderID); ok {
		r.replier.SendText(msg.SenderID, "Ya hay un check-in en curso. Escribe 'cancel' para descartarlo.")
		return
	}
	if msg.Channel == model.ChannelGroup {
		r.replier.SendText(msg.SenderID, "Por privacidad, seguimos el check-in por mensaje directo.")
	}
	r.startSession(msg.SenderID)
}

func (r *routerService) commandGrace(userID, entry string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		r.replier.SendText(userID, "Escribe la entrada después del comando, p. ej. `!grace hoy fue un buen día`.")
		return
	}

	allowCommit := r.cfg.Bot.AllowPush
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
		defer cancel()

		metadata := map[string]interface{}{"source": "grace_command"}
		result, err := r.processor.Process(ctx, entry, metadata, allowCommit, "")
		if err != nil {
			r.logger.Error("Router", "Command entry failed", map[string]interface{}{"error": err.Error()})
			result = "No se pudo ejecutar el pipeline de registro."
		}
		r.replier.SendText(userID, result)
	}()
}

// Consume subscribes to the offloaded-call result topics and routes each
// outcome back into the owning user's session under that user's lock.
func (r *routerService) Consume(ctx context.Context) error {
	syncMessages, err := r.pubSub.Subscribe(ctx, TopicSyncCompleted)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicSyncCompleted, err)
	}
	entryMessages, err := r.pubSub.Subscribe(ctx, TopicEntryProcessed)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicEntryProcessed, err)
	}

	go func() {
		for msg := range syncMessages {
			r.handleSyncCompleted(msg)
		}
	}()
	go func() {
		for msg := range entryMessages {
			r.handleEntryProcessed(msg)
		}
	}()

	return nil
}

func (r *routerService) handleSyncCompleted(msg *message.Message) {
	defer msg.Ack()

	var payload SyncCompletedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		r.logger.Error("Router", "Bad sync result payload", map[string]interface{}{"error": err.Error()})
		return
	}

	lock := r.userLock(payload.UserID)
	lock.Lock()
	defer lock.Unlock()

	session, ok := r.sessions.Get(payload.UserID)
	if !ok || session.Phase != store.PhaseSyncing {
		// Session cancelled while the sync was in flight: the result is
		// discarded, never retried, never surfaced.
		return
	}

	session.SyncSuccess = payload.Success
	session.SyncOutput = payload.Output
	r.replier.SendText(payload.UserID, "📥 Sync:\n"+payload.Output)
	r.publishLifecycle(events.NewSyncCompleted(payload.UserID, payload.Success, payload.Output))

	if !payload.Success {
		session.CommitAuthorized = false
		session.DeployPassphrase = ""
		r.replier.SendText(payload.UserID,
			"⚠️ La sincronización falló: esta sesión continuará guardando solo en local.")
	}

	r.checkin.StartPrompts(session)
}

func (r *routerService) handleEntryProcessed(msg *message.Message) {
	defer msg.Ack()

	var payload EntryProcessedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		r.logger.Error("Router", "Bad entry result payload", map[string]interface{}{"error": err.Error()})
		return
	}

	lock := r.userLock(payload.UserID)
	lock.Lock()
	defer lock.Unlock()

	session, ok := r.sessions.Get(payload.UserID)
	if !ok || session.Phase != store.PhaseFinalizing {
		// Cancelled mid-pipeline: discard the result.
		return
	}

	committed := session.CommitAuthorized
	r.replier.SendText(payload.UserID, payload.Result)
	r.sessions.Delete(payload.UserID)

	r.publishLifecycle(events.NewEntryProcessed(payload.UserID, payload.Result))
	r.publishLifecycle(events.NewSessionFinalized(payload.UserID, committed))
	r.logger.Info("Router", "Session finalized", map[string]interface{}{"user_id": payload.UserID})
}

func (r *routerService) publishLifecycle(event events.Event) {
	if r.natsPub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.natsPub.Publish(ctx, event); err != nil {
		r.logger.Warn("Router", "Failed to publish lifecycle event", map[string]interface{}{"error": err.Error()})
	}
}

func (r *routerService) matchesWakePhrase(text string) bool {
	phrase := normalizeText(r.cfg.Bot.WakePhrase)
	if phrase == "" {
		return false
	}
	return strings.Contains(normalizeText(text), phrase)
}

// normalizeText lowercases, strips punctuation and collapses whitespace so
// "¡Hola, GRACE!" matches the phrase "hola grace".
func normalizeText(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r > 127 && isLetterish(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func isLetterish(r rune) bool {
	// Accented latin letters common in Spanish phrases.
	return strings.ContainsRune("áéíóúüñ", r)
}

func isCancelToken(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "cancel", "stop", "salir":
		return true
	}
	return false
}

// cancellable reports whether cancellation tokens act in the given phase.
// The authorization and collapse sub-flows treat them as ordinary input.
func cancellable(phase string) bool {
	switch phase {
	case store.PhaseAwaitingCode, store.PhaseAwaitingPassphrase, store.PhaseAwaitingCollapse:
		return false
	}
	return true
}

func splitCommand(body string) (string, string) {
	body = strings.TrimSpace(body)
	if idx := strings.IndexAny(body, " \t"); idx >= 0 {
		return strings.ToLower(body[:idx]), strings.TrimSpace(body[idx+1:])
	}
	return strings.ToLower(body), ""
}

func countText(n int) string {
	if n < 0 {
		return "unknown"
	}
	return fmt.Sprint(n)
}
