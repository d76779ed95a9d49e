package service

import (
	"context"
	"time"

	"grace-checkin-bot/internal/config"
	"grace-checkin-bot/internal/pkg/logger"
	"grace-checkin-bot/internal/repository/memory"
	"grace-checkin-bot/pkg/pipeline"
	"grace-checkin-bot/pkg/store"

	"github.com/ThreeDotsLabs/watermill/message"
)

const syncTimeout = 2 * time.Minute

// ISyncService runs the pre-prompt repository synchronization, at most once
// per session, off the router path. Its outcome arrives back through the
// event stream.
type ISyncService interface {
	Launch(session *store.Session)
}

type syncService struct {
	cfg       *config.Config
	sessions  *memory.SessionRepository
	replier   Replier
	syncer    pipeline.RepoSyncer
	publisher message.Publisher
	logger    logger.ILogger
}

func NewSyncService(
	cfg *config.Config,
	sessions *memory.SessionRepository,
	replier Replier,
	syncer pipeline.RepoSyncer,
	publisher message.Publisher,
	log logger.ILogger,
) ISyncService {
	return &syncService{
		cfg:       cfg,
		sessions:  sessions,
		replier:   replier,
		syncer:    syncer,
		publisher: publisher,
		logger:    log,
	}
}

func (s *syncService) Launch(session *store.Session) {
	// One-shot gate: regardless of retries or stray messages, the sync
	// primitive runs at most once per session.
	if session.SyncAttempted {
		return
	}
	session.SyncAttempted = true
	session.Phase = store.PhaseSyncing
	s.sessions.Save(session)

	s.replier.SendText(session.UserID, "🔄 Sincronizando el repositorio antes de comenzar...")

	userID := session.UserID
	branch := s.cfg.Bot.SyncBranch
	env := map[string]string{}
	if session.DeployPassphrase != "" {
		env[pipeline.PassphraseEnvVar] = session.DeployPassphrase
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		success, output := s.syncer.Sync(ctx, branch, env)

		err := publishJSON(s.publisher, TopicSyncCompleted, SyncCompletedPayload{
			UserID:  userID,
			Success: success,
			Output:  output,
		})
		if err != nil {
			s.logger.Error("Sync", "Failed to publish sync result", map[string]interface{}{"error": err.Error()})
		}
	}()
}
