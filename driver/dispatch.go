package driver

import (
	"errors"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/stproxy/models"
)

// fallbackInputID names the textarea synthesized when no fill strategy
// resolves an element. It exists so downstream extraction and manual
// inspection have something to find; filling it does not make the remote
// app process the text.
const fallbackInputID = "__stproxy_input"

// fillInput writes text into the first element any fill strategy resolves.
// At most one element is ever filled. If the whole table misses, an
// off-screen fallback textarea is injected and filled directly.
func (s *session) fillInput(text string) (strategyName string, filled, injected bool) {
	strategyName, filled = firstHit(s.rec, models.PhaseDispatch, fillStrategies,
		func(st fillStrategy) string { return "fill:" + st.name },
		func(st fillStrategy) (bool, error) {
			has, el, err := s.query().Has(st.selector)
			if err != nil {
				return false, err
			}
			if !has {
				return false, nil
			}
			// A resolved element whose fill throws still counts as a
			// failed strategy; the next one gets its chance.
			if st.method == fillEditableText {
				return true, setEditableText(el, text)
			}
			return true, setFormValue(el, text)
		})
	if filled {
		return strategyName, true, false
	}

	if err := s.injectFallback(text); err != nil {
		s.rec.Error(models.PhaseDispatch, "fill:inject", err)
		return "", false, false
	}
	s.rec.OK(models.PhaseDispatch, "fill:inject", "#"+fallbackInputID)
	return "fill:inject", true, true
}

// clickTrigger activates the first visible control any click strategy
// resolves. When the whole table misses and a fallback textarea was
// injected, it focuses that textarea and sends Enter as a last attempt to
// trigger processing.
func (s *session) clickTrigger(injected bool) (string, bool) {
	name, clicked := firstHit(s.rec, models.PhaseDispatch, clickStrategies,
		func(st clickStrategy) string { return "click:" + st.name },
		s.tryClick,
	)
	if clicked {
		return name, true
	}
	if !injected {
		return "", false
	}

	has, el, err := s.query().Has("#" + fallbackInputID)
	if err != nil || !has {
		return "", false
	}
	if err := el.Focus(); err != nil {
		s.rec.Error(models.PhaseDispatch, "click:enter", err)
		return "", false
	}
	if err := s.working.Keyboard.Press(input.Enter); err != nil {
		s.rec.Error(models.PhaseDispatch, "click:enter", err)
		return "", false
	}
	s.rec.OK(models.PhaseDispatch, "click:enter", "#"+fallbackInputID)
	return "click:enter", true
}

// tryClick resolves a click strategy to a visible element, scrolls it into
// view, and clicks it. Shared by trigger dispatch and login.
func (s *session) tryClick(st clickStrategy) (bool, error) {
	el, err := s.findControl(st)
	if err != nil {
		return false, err
	}
	if el == nil {
		return false, nil
	}

	visible, err := el.Visible()
	if err != nil {
		return false, err
	}
	if !visible {
		return false, nil
	}

	if err := el.ScrollIntoView(); err != nil {
		return false, err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, err
	}
	return true, nil
}

// findControl locates the strategy's element without waiting. A nil element
// with nil error means the selector matched nothing.
func (s *session) findControl(st clickStrategy) (*rod.Element, error) {
	p := s.query()
	if st.labels == "" {
		has, el, err := p.Has(st.selector)
		if err != nil || !has {
			return nil, err
		}
		return el, nil
	}

	el, err := p.Sleeper(rod.NotFoundSleeper).ElementR(st.selector, st.labels)
	if err != nil {
		var notFound *rod.ElementNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return el, nil
}

// setFormValue assigns the element's value and dispatches a bubbling input
// event, which is what form frameworks listen for. Direct typing is avoided:
// it is slower and breaks on elements that re-render mid-keystroke.
func setFormValue(el *rod.Element, text string) error {
	_, err := el.Eval(`(value) => {
		this.focus();
		this.value = value;
		this.dispatchEvent(new Event('input', { bubbles: true }));
	}`, text)
	return err
}

// setEditableText assigns textContent for contenteditable containers.
func setEditableText(el *rod.Element, text string) error {
	_, err := el.Eval(`(value) => {
		this.focus();
		this.textContent = value;
		this.dispatchEvent(new InputEvent('input', { bubbles: true }));
	}`, text)
	return err
}

// injectFallback synthesizes an off-screen textarea and assigns the text
// into it, bypassing any application logic.
func (s *session) injectFallback(text string) error {
	_, err := s.query().Eval(`(id, value) => {
		const ta = document.createElement('textarea');
		ta.id = id;
		ta.style.position = 'fixed';
		ta.style.left = '-10000px';
		ta.style.top = '0';
		document.body.appendChild(ta);
		ta.value = value;
	}`, fallbackInputID, text)
	return err
}
