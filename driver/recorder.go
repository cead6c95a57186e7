package driver

import (
	"log/slog"

	"github.com/use-agent/stproxy/models"
)

// recorder accumulates the structured attempt log for one session. A session
// runs on a single goroutine, so no locking is needed. Every event is
// mirrored to slog at debug level.
type recorder struct {
	events []models.AttemptEvent
}

func newRecorder() *recorder {
	return &recorder{events: []models.AttemptEvent{}}
}

func (r *recorder) append(phase, strategy, outcome, detail string) {
	r.events = append(r.events, models.AttemptEvent{
		Phase:    phase,
		Strategy: strategy,
		Outcome:  outcome,
		Detail:   detail,
	})
	slog.Debug("attempt",
		"phase", phase,
		"strategy", strategy,
		"outcome", outcome,
		"detail", detail,
	)
}

// OK records a successful attempt.
func (r *recorder) OK(phase, strategy, detail string) {
	r.append(phase, strategy, models.OutcomeOK, detail)
}

// Miss records a strategy whose selector matched nothing.
func (r *recorder) Miss(phase, strategy string) {
	r.append(phase, strategy, models.OutcomeMiss, "")
}

// Error records a strategy that threw. Non-fatal by contract.
func (r *recorder) Error(phase, strategy string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	r.append(phase, strategy, models.OutcomeError, detail)
}

// Events returns the accumulated log in append order.
func (r *recorder) Events() []models.AttemptEvent {
	return r.events
}
