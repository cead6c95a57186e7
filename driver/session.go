package driver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/stproxy/extract"
	"github.com/use-agent/stproxy/models"
	"github.com/ysmood/gson"
)

// session is the per-request state: one fresh landing page, possibly a second
// page for a nested-frame working context, and the attempt log. Sessions are
// single-goroutine and never outlive their request.
type session struct {
	drv *Driver
	rec *recorder

	// page is the landing page created for this request.
	page *rod.Page

	// framePage is the second browsing context opened when frame entry
	// resolves an iframe src. Nil unless entered.
	framePage *rod.Page

	// working is the context-bound page all input/output selectors are
	// evaluated against: the landing page, or framePage once entered.
	working *rod.Page

	hijack *rod.HijackRouter
}

// Validate runs the three phases against a fresh browser session and always
// tears the session down before returning.
//
// Error contract: per-strategy failures are recorded in the log and never
// returned; only whole-session failures (page creation, navigation) produce
// an error, and even then the response carries the accumulated log and a
// trace so the caller can see how far the session got.
func (d *Driver) Validate(ctx context.Context, req *models.ValidateRequest) (*models.ValidateResponse, error) {
	totalStart := time.Now()

	timeout := time.Duration(req.Timeout) * time.Second
	if timeout <= 0 || timeout > d.cfg.Driver.MaxTimeout {
		timeout = d.cfg.Driver.MaxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d.activeSessions.Add(1)
	defer d.activeSessions.Add(-1)

	rec := newRecorder()

	page, err := d.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		perr := models.NewProxyError(models.ErrCodeBrowserCrash, "failed to create page", err)
		return failureResponse(rec, totalStart, perr), perr
	}

	s := &session{drv: d, rec: rec, page: page}
	defer s.close()

	s.prepare()

	// ── Bootstrap ───────────────────────────────────────────────────
	bootStart := time.Now()
	if err := s.bootstrap(ctx); err != nil {
		perr := categorizeError(err, "navigation to target failed")
		resp := failureResponse(rec, totalStart, perr)
		resp.Timing.BootstrapMs = time.Since(bootStart).Milliseconds()
		return resp, perr
	}
	bootstrapMs := time.Since(bootStart).Milliseconds()

	// ── Input dispatch ──────────────────────────────────────────────
	dispatchStart := time.Now()
	filledWith, filled, injected := s.fillInput(req.Text)
	clickedWith, clicked := s.clickTrigger(injected)
	dispatchMs := time.Since(dispatchStart).Milliseconds()

	// ── Output harvest ──────────────────────────────────────────────
	harvestStart := time.Now()
	result, snippet := s.harvest(ctx)
	harvestMs := time.Since(harvestStart).Milliseconds()

	resp := &models.ValidateResponse{
		Success:         true,
		Result:          result.Text,
		Filled:          filled,
		Clicked:         clicked,
		FilledWith:      filledWith,
		ClickedWith:     clickedWith,
		Log:             rec.Events(),
		SnapshotSnippet: snippet,
		Timing: models.TimingInfo{
			TotalMs:     time.Since(totalStart).Milliseconds(),
			BootstrapMs: bootstrapMs,
			DispatchMs:  dispatchMs,
			HarvestMs:   harvestMs,
		},
	}

	if req.Markdown && len(result.Fragments) > 0 {
		md, mdErr := extract.ToMarkdown(d.mdConv, result.JoinedHTML(), d.targetDomain)
		if mdErr != nil {
			rec.Error(models.PhaseHarvest, "markdown", mdErr)
		} else {
			resp.ResultMarkdown = strings.TrimSpace(md)
		}
		resp.Log = rec.Events()
	}

	return resp, nil
}

// prepare installs stealth JS, extra headers, and resource blocking on the
// landing page. All of it must happen before navigation; none of it is
// allowed to fail the request.
func (s *session) prepare() {
	cfg := s.drv.cfg

	if cfg.Browser.Stealth {
		if _, err := s.page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	if len(cfg.Target.ExtraHeaders) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(cfg.Target.ExtraHeaders),
		}.Call(s.page)
	}

	s.hijack = setupBlocking(s.page, cfg.Browser.BlockedResourceTypes)
}

// query returns the working page with the per-strategy deadline applied.
func (s *session) query() *rod.Page {
	return s.working.Timeout(s.drv.cfg.Driver.StrategyTimeout)
}

// settle pauses for a fixed duration to let client-side rendering finish,
// respecting context cancellation.
func (s *session) settle(ctx context.Context, d time.Duration) {
	sleepCtx(ctx, d)
}

func (s *session) close() {
	if s.hijack != nil {
		_ = s.hijack.Stop()
	}
	if s.framePage != nil {
		_ = s.framePage.Close()
	}
	_ = s.page.Close()
}

// failureResponse builds the error envelope for a whole-session failure,
// carrying whatever log was accumulated before it.
func failureResponse(rec *recorder, start time.Time, perr *models.ProxyError) *models.ValidateResponse {
	return &models.ValidateResponse{
		Success: false,
		Log:     rec.Events(),
		Trace:   perr.Error(),
		Error:   perr.ToDetail(),
		Timing: models.TimingInfo{
			TotalMs: time.Since(start).Milliseconds(),
		},
	}
}

// categorizeError wraps raw errors into typed ProxyErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.ProxyError {
	var perr *models.ProxyError
	if errors.As(err, &perr) {
		return perr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewProxyError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewProxyError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewProxyError(models.ErrCodeNavigation, msg, err)
	}
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// sleepCtx sleeps for d or until ctx is done. Reports whether the sleep
// completed normally.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
