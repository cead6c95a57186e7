package driver

// The fallback chains for locating elements on the working page are data
// tables, not control flow: each table is an ordered list of named selector
// strategies evaluated by firstHit, which stops at the first success. There
// is no contract with the target page, so every entry is best-effort and
// order is the only priority mechanism.

// fillMethod selects how text is written into a resolved input element.
type fillMethod int

const (
	// fillFormValue assigns element.value and dispatches a bubbling
	// "input" event, the shape form frameworks listen for.
	fillFormValue fillMethod = iota

	// fillEditableText assigns element.textContent and dispatches a
	// bubbling InputEvent, for contenteditable containers.
	fillEditableText
)

// fillStrategy is one candidate rule for locating an editable element.
type fillStrategy struct {
	name     string
	selector string
	method   fillMethod
}

// fillStrategies is the fixed priority order for input elements: generic
// textarea first, then the Streamlit wrappers, then generic fallbacks.
var fillStrategies = []fillStrategy{
	{"textarea", "textarea", fillFormValue},
	{"st-textarea", "div[data-testid='stTextArea'] textarea", fillFormValue},
	{"st-textinput", "div[data-testid='stTextInput'] input", fillFormValue},
	{"text-input", "input[type='text']", fillFormValue},
	{"contenteditable", "div[contenteditable='true']", fillEditableText},
}

// clickStrategy is one candidate rule for locating a trigger control.
// labels, when non-empty, is a JS regex the element's visible text must
// match; empty accepts any element the selector finds.
type clickStrategy struct {
	name     string
	selector string
	labels   string
}

// clickStrategies is the fixed priority order for trigger controls. The bare
// "button" entry is the unconditional last resort.
var clickStrategies = []clickStrategy{
	{"st-button", "button[data-testid='stButton']", ""},
	{"labelled-analyze", "button", "/Analyze/i"},
	{"labelled-submit", "button", "/Submit/i"},
	{"labelled-run", "button", "/Run/i"},
	{"any-button", "button", ""},
}

// firstHit evaluates strategies in order and stops at the first one whose
// try callback reports success. Misses and errors are recorded and skipped;
// exhausting the table is reported to the caller, never escalated.
func firstHit[S any](rec *recorder, phase string, strategies []S, name func(S) string, try func(S) (bool, error)) (string, bool) {
	for _, s := range strategies {
		hit, err := try(s)
		switch {
		case err != nil:
			rec.Error(phase, name(s), err)
		case !hit:
			rec.Miss(phase, name(s))
		default:
			rec.OK(phase, name(s), "")
			return name(s), true
		}
	}
	return "", false
}
