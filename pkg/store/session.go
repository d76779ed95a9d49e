package store

// Session is the in-memory state of one guided check-in. Owned by the
// session repository, keyed by user id, mutated only under that user's lock.
type Session struct {
	UserID string `json:"user_id"`

	// Phase is the single active sub-flow. Exactly one phase holds at a time,
	// which is what makes the step invariants checkable.
	Phase string `json:"phase"`

	StepIndex int               `json:"step_index"`
	Answers   map[string]string `json:"answers"`
	Bits      map[string]int    `json:"bits"`
	Note      string            `json:"note"`

	// LastOptions caches the option list shown for the current prompt so a
	// numeric answer resolves against exactly what the user saw.
	LastOptions []Option `json:"last_options"`

	// PendingCollapseDim is set while a neutral answer awaits its 0/1
	// resolution. Cleared before StepIndex advances.
	PendingCollapseDim string `json:"pending_collapse_dim"`

	// Authorization sub-state. CommitCode is a fresh one-time token per
	// session; DeployPassphrase lives only in memory until finalize/cancel.
	CommitCode       string `json:"-"`
	CommitAuthorized bool   `json:"commit_authorized"`
	DeployPassphrase string `json:"-"`

	// One-shot sync bookkeeping.
	PromptsStarted bool   `json:"prompts_started"`
	SyncAttempted  bool   `json:"sync_attempted"`
	SyncSuccess    bool   `json:"sync_success"`
	SyncOutput     string `json:"-"`
}

// Option is one selectable state for a dimension prompt.
type Option struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

const (
	PhaseAwaitingCode       = "AWAITING_CODE"
	PhaseAwaitingPassphrase = "AWAITING_PASSPHRASE"
	PhaseSyncing            = "SYNCING"
	PhasePrompting          = "PROMPTING"
	PhaseAwaitingCollapse   = "AWAITING_COLLAPSE"
	PhaseFinalizing         = "FINALIZING"
)

// NewSession creates a fresh session in the authorization phase.
func NewSession(userID, commitCode string) *Session {
	return &Session{
		UserID:     userID,
		Phase:      PhaseAwaitingCode,
		Answers:    make(map[string]string),
		Bits:       make(map[string]int),
		CommitCode: commitCode,
	}
}

// Busy reports whether the session is waiting on an offloaded external call.
// While busy the only accepted input is a cancellation token.
func (s *Session) Busy() bool {
	return s.Phase == PhaseSyncing || s.Phase == PhaseFinalizing
}
