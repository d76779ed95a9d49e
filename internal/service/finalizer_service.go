package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"grace-checkin-bot/internal/catalog"
	"grace-checkin-bot/internal/pkg/logger"
	"grace-checkin-bot/internal/repository/memory"
	"grace-checkin-bot/pkg/analysis"
	"grace-checkin-bot/pkg/pipeline"
	"grace-checkin-bot/pkg/store"

	"github.com/ThreeDotsLabs/watermill/message"
)

// pipelineTimeout bounds one write-back invocation (git push included).
const pipelineTimeout = 2 * time.Minute

// IFinalizerService renders the accumulated record, hands it to the
// write-back pipeline off the router path, and publishes the result back
// into the event stream.
type IFinalizerService interface {
	Finalize(session *store.Session)
}

type finalizerService struct {
	states     *catalog.Catalog
	circumplex *analysis.Circumplex // nil when no map is configured
	sessions   *memory.SessionRepository
	replier    Replier
	processor  pipeline.EntryProcessor
	publisher  message.Publisher
	logger     logger.ILogger
}

func NewFinalizerService(
	states *catalog.Catalog,
	circumplex *analysis.Circumplex,
	sessions *memory.SessionRepository,
	replier Replier,
	processor pipeline.EntryProcessor,
	publisher message.Publisher,
	log logger.ILogger,
) IFinalizerService {
	return &finalizerService{
		states:     states,
		circumplex: circumplex,
		sessions:   sessions,
		replier:    replier,
		processor:  processor,
		publisher:  publisher,
		logger:     log,
	}
}

func (f *finalizerService) Finalize(session *store.Session) {
	entryText := f.renderRecord(session)
	metadata := map[string]interface{}{
		"source":       "grace_bot",
		"grace":        session.Answers,
		"bits":         session.Bits,
		"note_present": strings.TrimSpace(session.Note) != "",
	}

	allowCommit := session.CommitAuthorized
	passphrase := ""
	if session.CommitAuthorized {
		// A revoked authorization already discarded the passphrase; this
		// guard keeps it out of the pipeline even if a stale value survived.
		passphrase = session.DeployPassphrase
	}

	session.Phase = store.PhaseFinalizing
	f.sessions.Save(session)
	f.replier.SendText(session.UserID, "📤 Procesando tu check-in...")

	userID := session.UserID
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.logger.Error("Finalizer", "Pipeline panicked", map[string]interface{}{"recover": fmt.Sprint(r)})
				f.publishResult(userID, "Error interno al procesar la entrada. Inicia un nuevo check-in para reintentar.")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
		defer cancel()

		result, err := f.processor.Process(ctx, entryText, metadata, allowCommit, passphrase)
		if err != nil {
			f.logger.Error("Finalizer", "Pipeline invocation failed", map[string]interface{}{"error": err.Error()})
			result = "No se pudo ejecutar el pipeline de registro. Inicia un nuevo check-in para reintentar."
		}
		f.publishResult(userID, result)
	}()
}

func (f *finalizerService) publishResult(userID, result string) {
	err := publishJSON(f.publisher, TopicEntryProcessed, EntryProcessedPayload{
		UserID: userID,
		Result: result,
	})
	if err != nil {
		// Last resort: the event bus itself failed, deliver directly and drop
		// the session so it never dangles.
		f.logger.Error("Finalizer", "Failed to publish result event", map[string]interface{}{"error": err.Error()})
		f.replier.SendText(userID, result)
		f.sessions.Delete(userID)
	}
}

// renderRecord builds the human-readable entry from the resolved vector.
func (f *finalizerService) renderRecord(session *store.Session) string {
	lines := []string{"✨ **Check-in GRACE**"}

	for _, dim := range catalog.DimOrder {
		code := session.Answers[dim]
		label := f.states.Label(dim, code)

		suffix := ""
		if bit, ok := session.Bits[dim]; ok {
			if bit == 1 {
				suffix = " (Yang (1))"
			} else {
				suffix = " (Yin (0))"
			}
		}

		emoji := catalog.DimEmoji[dim]
		if emoji == "" {
			emoji = "•"
		}
		lines = append(lines, fmt.Sprintf("- %s **%s**: %s — %s%s", emoji, dim, code, label, suffix))
	}

	note := session.Note
	if note == "" {
		note = "(sin nota)"
	}
	lines = append(lines, "- **Nota**: "+note)

	if f.circumplex != nil {
		summary := f.circumplex.Analyze(session.Answers, session.Bits)
		lines = append(lines, fmt.Sprintf("- **Análisis**: Valencia %s, Activación %s. %s",
			summary.ValenceLabel, summary.ArousalLabel, summary.GlobalState))
	}

	return strings.Join(lines, "\n")
}
