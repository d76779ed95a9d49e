package service

import (
	"fmt"
	"strings"

	"grace-checkin-bot/internal/catalog"
	"grace-checkin-bot/internal/pkg/logger"
	"grace-checkin-bot/internal/repository/memory"
	"grace-checkin-bot/pkg/store"
)

// ICheckinService is the guided check-in state machine over the steps
// [G R A C E NOTE]. It owns prompt rendering, answer validation and the
// neutral-collapse sub-flow; finalization is delegated when the end of the
// step sequence is reached.
type ICheckinService interface {
	// StartPrompts moves an authorized-or-skipped session into the prompting
	// phase and sends the first dimension prompt.
	StartPrompts(session *store.Session)

	// HandleAnswer consumes input for the current dimension or NOTE step.
	HandleAnswer(session *store.Session, input string)

	// HandleCollapse consumes the 0/1 resolution of a neutral answer.
	HandleCollapse(session *store.Session, input string)
}

type checkinService struct {
	states    *catalog.Catalog
	sessions  *memory.SessionRepository
	replier   Replier
	finalizer IFinalizerService
	logger    logger.ILogger
}

func NewCheckinService(
	states *catalog.Catalog,
	sessions *memory.SessionRepository,
	replier Replier,
	finalizer IFinalizerService,
	log logger.ILogger,
) ICheckinService {
	return &checkinService{
		states:    states,
		sessions:  sessions,
		replier:   replier,
		finalizer: finalizer,
		logger:    log,
	}
}

func (c *checkinService) StartPrompts(session *store.Session) {
	session.Phase = store.PhasePrompting
	session.PromptsStarted = true
	c.promptStep(session)
	c.sessions.Save(session)
}

func (c *checkinService) HandleAnswer(session *store.Session, input string) {
	input = strings.TrimSpace(input)
	step := catalog.SessionSteps[session.StepIndex]

	if step == catalog.StepNote {
		if strings.EqualFold(input, "skip") {
			session.Note = ""
		} else {
			session.Note = input
		}
		c.advance(session)
		return
	}

	options := session.LastOptions
	if len(options) == 0 {
		options = c.states.Options(step)
		session.LastOptions = options
	}

	code, ok := catalog.ResolveAnswer(input, options)
	if !ok {
		c.replier.SendText(session.UserID, "Respuesta no válida. Usa un número de la lista o el código exacto.")
		c.promptStep(session)
		return
	}

	session.Answers[step] = code

	if catalog.IsNeutral(code) {
		session.PendingCollapseDim = step
		session.Phase = store.PhaseAwaitingCollapse
		c.replier.SendText(session.UserID, collapsePrompt(step))
		c.sessions.Save(session)
		return
	}

	bit, _ := catalog.BitForCode(code)
	session.Bits[step] = bit
	c.advance(session)
}

func (c *checkinService) HandleCollapse(session *store.Session, input string) {
	input = strings.TrimSpace(input)
	if input != "0" && input != "1" {
		c.replier.SendText(session.UserID, "Selecciona 0 o 1 para colapsar el estado Neutral.")
		return
	}

	dim := session.PendingCollapseDim
	if input == "1" {
		session.Bits[dim] = 1
	} else {
		session.Bits[dim] = 0
	}
	session.PendingCollapseDim = ""
	session.Phase = store.PhasePrompting
	c.advance(session)
}

// advance moves to the next step. Reaching the end of the step sequence is
// the sole finalize trigger.
func (c *checkinService) advance(session *store.Session) {
	session.StepIndex++
	if session.StepIndex >= len(catalog.SessionSteps) {
		c.finalizer.Finalize(session)
		return
	}
	c.promptStep(session)
	c.sessions.Save(session)
}

func (c *checkinService) promptStep(session *store.Session) {
	step := catalog.SessionSteps[session.StepIndex]

	if step == catalog.StepNote {
		c.replier.SendText(session.UserID, "📝 Nota opcional (puedes escribir cualquier cosa o enviar 'skip'):")
		return
	}

	options := c.states.Options(step)
	session.LastOptions = options
	c.replier.SendText(session.UserID, formatPrompt(step, options))
}

func formatPrompt(dim string, options []store.Option) string {
	if len(options) == 0 {
		return "No hay opciones configuradas para esta dimensión."
	}

	emoji := catalog.DimEmoji[dim]
	if emoji == "" {
		emoji = "•"
	}

	lines := []string{
		strings.TrimSpace(fmt.Sprintf("%s **%s** — %s", emoji, dim, catalog.DimDescriptions[dim])),
		"Elige con número o código:",
	}
	for idx, opt := range options {
		lines = append(lines, fmt.Sprintf("%d. **%s** — %s", idx+1, opt.Code, opt.Label))
	}
	return strings.Join(lines, "\n")
}

func collapsePrompt(dim string) string {
	emoji := catalog.DimEmoji[dim]
	if emoji == "" {
		emoji = "•"
	}
	return fmt.Sprintf(
		"%s Tu dimensión **%s** está en estado Neutral.\n"+
			"¿Cómo la sientes ahora?\n"+
			"0) Yin — Receptiv@ / reflexiv@ / tranquil@\n"+
			"1) Yang — Activ@ / expresiv@ / enérgic@\n"+
			"Responde 0 o 1:", emoji, dim)
}
