package service

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"grace-checkin-bot/internal/config"
	"grace-checkin-bot/internal/pkg/logger"
	"grace-checkin-bot/pkg/store"
)

// IAuthService runs the pre-prompt authorization handshake: a one-time commit
// code, then (by policy) the deploy-key passphrase. Neither secret is ever
// logged or persisted.
type IAuthService interface {
	// NewCommitCode mints a fresh one-time code for a new session.
	NewCommitCode() string

	// PromptForCode sends the code challenge for a just-created session.
	PromptForCode(session *store.Session)

	// HandleCode consumes input while the session awaits the commit code.
	// It returns true once the handshake step is settled (authorized or
	// skipped) and the session may move on; false means more input is needed.
	HandleCode(session *store.Session, input string) bool

	// HandlePassphrase consumes input while the session awaits the secondary
	// passphrase. Always settles the handshake.
	HandlePassphrase(session *store.Session, input string) bool
}

type authService struct {
	cfg     *config.Config
	replier Replier
	logger  logger.ILogger
}

func NewAuthService(cfg *config.Config, replier Replier, log logger.ILogger) IAuthService {
	return &authService{
		cfg:     cfg,
		replier: replier,
		logger:  log,
	}
}

func (a *authService) NewCommitCode() string {
	buf := make([]byte, 3)
	// rand.Read never fails on supported platforms
	_, _ = rand.Read(buf)
	return a.cfg.Bot.CommitCodePrefix + hex.EncodeToString(buf)
}

func (a *authService) PromptForCode(session *store.Session) {
	a.replier.SendText(session.UserID,
		"🔐 Código de autorización de esta sesión: `"+session.CommitCode+"`\n"+
			"Escríbelo para habilitar commit/push al finalizar, o responde 'skip' para guardar solo en local.")
}

func (a *authService) HandleCode(session *store.Session, input string) bool {
	input = strings.TrimSpace(input)

	if strings.EqualFold(input, "skip") {
		session.CommitAuthorized = false
		a.replier.SendText(session.UserID, "De acuerdo: esta sesión guardará la entrada solo en local.")
		a.logger.Info("Auth", "Commit authorization skipped", map[string]interface{}{"user_id": session.UserID})
		return true
	}

	if !strings.EqualFold(input, session.CommitCode) {
		// Wrong code is recoverable; the code is not consumed and there is
		// no retry limit.
		a.replier.SendText(session.UserID, "Código incorrecto. Inténtalo de nuevo o responde 'skip'.")
		return false
	}

	if a.passphraseRequired() {
		session.Phase = store.PhaseAwaitingPassphrase
		a.replier.SendText(session.UserID,
			"Código aceptado. Escribe la passphrase de la clave de despliegue, o 'skip' para continuar sin push.")
		return false
	}

	session.CommitAuthorized = true
	a.replier.SendText(session.UserID, "✅ Código aceptado: commit autorizado para esta sesión.")
	a.logger.Info("Auth", "Commit authorized", map[string]interface{}{"user_id": session.UserID})
	return true
}

func (a *authService) HandlePassphrase(session *store.Session, input string) bool {
	input = strings.TrimSpace(input)

	if strings.EqualFold(input, "skip") {
		session.DeployPassphrase = ""
		session.CommitAuthorized = false
		a.replier.SendText(session.UserID, "Sin passphrase: esta sesión guardará la entrada solo en local.")
		return true
	}

	// Presence of a passphrase is itself the confirmation.
	session.DeployPassphrase = input
	session.CommitAuthorized = true
	a.replier.SendText(session.UserID, "✅ Passphrase recibida: commit y push autorizados para esta sesión.")
	a.logger.Info("Auth", "Commit authorized with passphrase", map[string]interface{}{"user_id": session.UserID})
	return true
}

func (a *authService) passphraseRequired() bool {
	return a.cfg.Bot.AllowPush && a.cfg.Bot.RequirePassphrase
}
