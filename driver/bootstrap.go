package driver

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/stproxy/models"
)

// bootstrap navigates to the target URL and positions the working page where
// input controls are expected. Only the initial navigation can fail the
// request; frame entry and login are best-effort and merely logged.
func (s *session) bootstrap(ctx context.Context) error {
	cfg := s.drv.cfg

	navCtx, cancel := context.WithTimeout(ctx, cfg.Driver.NavigationTimeout)
	defer cancel()
	if err := s.page.Context(navCtx).Navigate(cfg.Target.URL); err != nil {
		s.rec.Error(models.PhaseBootstrap, "navigate", err)
		return err
	}

	p := s.page.Context(ctx)
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		// Streamlit apps keep a websocket open; an unconverged DOM is normal.
		s.rec.Error(models.PhaseBootstrap, "wait-stable", err)
	}
	s.settle(ctx, cfg.Driver.SettleDelay)
	s.working = p
	s.rec.OK(models.PhaseBootstrap, "navigate", cfg.Target.URL)

	if cfg.Target.EnterFrame {
		s.enterFrame(ctx)
	}
	if cfg.Target.Username != "" && cfg.Target.Password != "" {
		s.login(ctx)
	}
	return nil
}

// enterFrame resolves the first iframe's src to an absolute URL and opens it
// in a second browsing context, which becomes the working page.
func (s *session) enterFrame(ctx context.Context) {
	const strat = "enter-frame"

	has, el, err := s.query().Has("iframe")
	if err != nil {
		s.rec.Error(models.PhaseBootstrap, strat, err)
		return
	}
	if !has {
		s.rec.Miss(models.PhaseBootstrap, strat)
		return
	}

	src, err := el.Attribute("src")
	if err != nil {
		s.rec.Error(models.PhaseBootstrap, strat, err)
		return
	}
	if src == nil || strings.TrimSpace(*src) == "" {
		s.rec.Miss(models.PhaseBootstrap, strat)
		return
	}

	frameURL, err := resolveFrameURL(s.drv.cfg.Target.URL, *src)
	if err != nil {
		s.rec.Error(models.PhaseBootstrap, strat, err)
		return
	}

	fp, err := s.drv.browser.Page(proto.TargetCreateTarget{URL: frameURL})
	if err != nil {
		s.rec.Error(models.PhaseBootstrap, strat, err)
		return
	}
	s.framePage = fp

	wp := fp.Context(ctx)
	if err := wp.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		s.rec.Error(models.PhaseBootstrap, strat+"-wait", err)
	}
	s.settle(ctx, s.drv.cfg.Driver.SettleDelay)
	s.working = wp
	s.rec.OK(models.PhaseBootstrap, strat, frameURL)
}

// resolveFrameURL resolves an iframe src attribute against the page URL,
// covering protocol-relative ("//host/x"), root-relative ("/x"), bare-path
// ("x"), and already-absolute forms.
func resolveFrameURL(pageURL, src string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// loginUserSelectors locates the username field, tried in order.
var loginUserSelectors = []string{
	"input[type='email']",
	"input[autocomplete='username']",
	"input[name*='user']",
	"input[type='text']",
}

// loginSubmitStrategies locates the login control.
var loginSubmitStrategies = []clickStrategy{
	{"login-submit", "button[type='submit']", ""},
	{"login-labelled", "button", "/log ?in|sign ?in/i"},
	{"login-any-button", "button", ""},
}

// login fills a recognizable login form with the configured credentials and
// activates a login control. A password field is what identifies the form;
// absence is a miss, not an error.
func (s *session) login(ctx context.Context) {
	cfg := s.drv.cfg

	has, pw, err := s.query().Has("input[type='password']")
	if err != nil {
		s.rec.Error(models.PhaseBootstrap, "login", err)
		return
	}
	if !has {
		s.rec.Miss(models.PhaseBootstrap, "login")
		return
	}

	for _, sel := range loginUserSelectors {
		found, user, lookupErr := s.query().Has(sel)
		if lookupErr != nil || !found {
			continue
		}
		if fillErr := setFormValue(user, cfg.Target.Username); fillErr != nil {
			s.rec.Error(models.PhaseBootstrap, "login-user", fillErr)
		} else {
			s.rec.OK(models.PhaseBootstrap, "login-user", sel)
		}
		break
	}

	if err := setFormValue(pw, cfg.Target.Password); err != nil {
		s.rec.Error(models.PhaseBootstrap, "login-password", err)
		return
	}
	s.rec.OK(models.PhaseBootstrap, "login-password", "")

	_, clicked := firstHit(s.rec, models.PhaseBootstrap, loginSubmitStrategies,
		func(st clickStrategy) string { return "login:" + st.name },
		s.tryClick,
	)
	if clicked {
		s.settle(ctx, cfg.Driver.LoginSettleDelay)
	}
}
