package driver

import (
	"errors"
	"testing"

	"github.com/use-agent/stproxy/models"
)

func TestFillStrategies_Order(t *testing.T) {
	// The plain textarea must be tried before the wrapper selectors, and the
	// contenteditable rule must be last.
	if fillStrategies[0].selector != "textarea" {
		t.Errorf("first fill strategy = %q, want textarea", fillStrategies[0].selector)
	}
	last := fillStrategies[len(fillStrategies)-1]
	if last.method != fillEditableText {
		t.Error("last fill strategy should target contenteditable")
	}
	for _, st := range fillStrategies[:len(fillStrategies)-1] {
		if st.method != fillFormValue {
			t.Errorf("strategy %q should use form-value fill", st.name)
		}
	}
}

func TestClickStrategies_BareButtonLast(t *testing.T) {
	last := clickStrategies[len(clickStrategies)-1]
	if last.selector != "button" || last.labels != "" {
		t.Errorf("last click strategy should be the unconditional button, got %+v", last)
	}
	// Every labelled rule must use a case-insensitive regex.
	for _, st := range clickStrategies {
		if st.labels != "" && st.labels[len(st.labels)-1] != 'i' {
			t.Errorf("strategy %q label regex %q is not case-insensitive", st.name, st.labels)
		}
	}
}

func TestFirstHit_StopsAtFirstSuccess(t *testing.T) {
	rec := newRecorder()
	tried := []string{}

	name, ok := firstHit(rec, models.PhaseDispatch,
		[]string{"a", "b", "c"},
		func(s string) string { return s },
		func(s string) (bool, error) {
			tried = append(tried, s)
			return s == "b", nil
		})

	if !ok || name != "b" {
		t.Fatalf("firstHit = (%q, %v), want (b, true)", name, ok)
	}
	if len(tried) != 2 {
		t.Errorf("evaluation should stop at first success, tried %v", tried)
	}

	events := rec.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Outcome != models.OutcomeMiss || events[1].Outcome != models.OutcomeOK {
		t.Errorf("event outcomes = %q, %q", events[0].Outcome, events[1].Outcome)
	}
}

func TestFirstHit_ErrorsAreSkippedNotFatal(t *testing.T) {
	rec := newRecorder()

	name, ok := firstHit(rec, models.PhaseDispatch,
		[]string{"broken", "works"},
		func(s string) string { return s },
		func(s string) (bool, error) {
			if s == "broken" {
				return false, errors.New("element detached")
			}
			return true, nil
		})

	if !ok || name != "works" {
		t.Fatalf("firstHit = (%q, %v), want (works, true)", name, ok)
	}

	events := rec.Events()
	if events[0].Outcome != models.OutcomeError {
		t.Errorf("first event outcome = %q, want error", events[0].Outcome)
	}
	if events[0].Detail != "element detached" {
		t.Errorf("error detail = %q", events[0].Detail)
	}
}

func TestFirstHit_Exhausted(t *testing.T) {
	rec := newRecorder()

	name, ok := firstHit(rec, models.PhaseDispatch,
		[]string{"a", "b"},
		func(s string) string { return s },
		func(s string) (bool, error) { return false, nil })

	if ok || name != "" {
		t.Errorf("exhausted table should report (\"\", false), got (%q, %v)", name, ok)
	}
	if len(rec.Events()) != 2 {
		t.Errorf("every miss should be recorded, got %d events", len(rec.Events()))
	}
}
