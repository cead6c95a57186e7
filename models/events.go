package models

// Phases of a validate session, in execution order.
const (
	PhaseBootstrap = "bootstrap"
	PhaseDispatch  = "dispatch"
	PhaseHarvest   = "harvest"
)

// Outcomes of a single attempt within a phase.
const (
	// OutcomeOK means the attempt succeeded.
	OutcomeOK = "ok"

	// OutcomeMiss means the attempted selector/strategy did not match
	// anything on the page. Expected and non-fatal.
	OutcomeMiss = "miss"

	// OutcomeError means the attempt threw (timeout, eval failure, detached
	// element). Logged and non-fatal; the next strategy is tried.
	OutcomeError = "error"
)

// AttemptEvent is one entry in the per-request diagnostic log. Events are
// returned to the caller verbatim, in append order.
type AttemptEvent struct {
	Phase    string `json:"phase"`
	Strategy string `json:"strategy,omitempty"`
	Outcome  string `json:"outcome"`
	Detail   string `json:"detail,omitempty"`
}
