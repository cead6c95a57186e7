package driver

import (
	"context"
	"time"

	"github.com/use-agent/stproxy/extract"
	"github.com/use-agent/stproxy/models"
)

// harvest polls the working page until extraction yields sufficient text or
// the harvest window closes, then returns the last extraction plus a
// truncated snapshot of the final page HTML. Harvest never fails the
// request: an insufficient result is still a result.
func (s *session) harvest(ctx context.Context) (extract.Result, string) {
	cfg := s.drv.cfg.Harvest

	var last extract.Result
	pass := func() bool {
		html, err := s.working.HTML()
		if err != nil {
			s.rec.Error(models.PhaseHarvest, "snapshot", err)
			return false
		}
		last = extract.Outputs(html, cfg.OutputSelectors, cfg.MaxBodyText)
		return sufficient(last.Text, cfg.MinOutputLen)
	}

	got := pollUntil(ctx, cfg.Timeout, cfg.PollInterval, pass)

	for _, f := range last.Fragments {
		s.rec.OK(models.PhaseHarvest, "extract", f.Selector)
	}
	if last.BodyFallback {
		s.rec.OK(models.PhaseHarvest, "body-fallback", "")
	}
	if got {
		s.rec.OK(models.PhaseHarvest, "sufficient", "")
	} else {
		s.rec.Miss(models.PhaseHarvest, "sufficient")
	}

	snippet := ""
	if html, err := s.working.HTML(); err == nil {
		snippet = extract.Truncate(html, cfg.SnippetLen)
	}
	return last, snippet
}

// pollUntil runs pass at interval until it reports true, the window elapses,
// or ctx is canceled. The first pass runs immediately. Reports whether pass
// ever succeeded.
func pollUntil(ctx context.Context, window, interval time.Duration, pass func() bool) bool {
	deadline := time.Now().Add(window)
	for {
		if pass() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		if !sleepCtx(ctx, interval) {
			return false
		}
	}
}

// sufficient is the minimum-signal predicate: output shorter than min
// characters is treated as the page still rendering.
func sufficient(text string, min int) bool {
	return len(text) > min
}
