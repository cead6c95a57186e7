// Package extract evaluates the output-container selector table against
// rendered HTML. It is deliberately browser-free: the driver feeds it DOM
// snapshots, so every fallback rule here is testable against plain fixtures.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Separator joins distinct output fragments in the final result.
const Separator = "\n\n---\n\n"

// Fragment is one de-duplicated piece of output text, tagged with the
// selector that matched it.
type Fragment struct {
	Selector string
	Text     string
	HTML     string
}

// Result is the outcome of one extraction pass.
type Result struct {
	// Fragments holds the matched containers in first-seen order.
	Fragments []Fragment

	// Text is the joined fragment text, or the body fallback.
	Text string

	// BodyFallback is true when no selector matched and Text holds the
	// truncated visible body text instead.
	BodyFallback bool
}

// Outputs runs the ordered selector list over rawHTML and collects the
// trimmed text of every match across every selector. Duplicate texts are
// dropped, preserving first-seen order. If nothing matches, the whole
// document's visible text (capped at maxBodyText) is returned as a single
// fallback.
//
// Selectors must have been validated with cascadia beforehand; goquery
// panics on selectors it cannot parse.
func Outputs(rawHTML string, selectors []string, maxBodyText int) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Result{}
	}

	seen := make(map[string]struct{})
	var fragments []Fragment
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text == "" {
				return
			}
			if _, dup := seen[text]; dup {
				return
			}
			seen[text] = struct{}{}

			outer, _ := goquery.OuterHtml(s)
			fragments = append(fragments, Fragment{Selector: sel, Text: text, HTML: outer})
		})
	}

	if len(fragments) == 0 {
		body := Truncate(VisibleText([]byte(rawHTML)), maxBodyText)
		return Result{Text: body, BodyFallback: body != ""}
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}
	return Result{Fragments: fragments, Text: strings.Join(texts, Separator)}
}

// JoinedHTML concatenates the raw markup of all matched fragments, for
// Markdown rendering.
func (r Result) JoinedHTML() string {
	var sb strings.Builder
	for _, f := range r.Fragments {
		sb.WriteString(f.HTML)
		sb.WriteString("\n")
	}
	return sb.String()
}
