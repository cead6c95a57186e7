package extract

import (
	"strings"
	"testing"
)

func TestOutputs_SelectorOrder(t *testing.T) {
	html := `<html><body>
		<pre>second</pre>
		<div class="stMarkdown">first</div>
	</body></html>`

	res := Outputs(html, []string{"div.stMarkdown", "pre"}, 20000)

	if len(res.Fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(res.Fragments))
	}
	if res.Fragments[0].Text != "first" || res.Fragments[1].Text != "second" {
		t.Errorf("selector order not preserved: %q, %q", res.Fragments[0].Text, res.Fragments[1].Text)
	}
	if res.Text != "first"+Separator+"second" {
		t.Errorf("joined text wrong: %q", res.Text)
	}
	if res.BodyFallback {
		t.Error("body fallback should not trigger when selectors match")
	}
}

func TestOutputs_DeduplicatesExactText(t *testing.T) {
	html := `<html><body>
		<div class="stMarkdown">Verdict: true</div>
		<div class="stMarkdown">Verdict: true</div>
		<pre>Verdict: true</pre>
		<pre>extra detail</pre>
	</body></html>`

	res := Outputs(html, []string{"div.stMarkdown", "pre"}, 20000)

	if len(res.Fragments) != 2 {
		t.Fatalf("expected 2 fragments after dedupe, got %d", len(res.Fragments))
	}
	if res.Fragments[0].Text != "Verdict: true" {
		t.Errorf("first-seen order lost: %q", res.Fragments[0].Text)
	}
	if res.Fragments[0].Selector != "div.stMarkdown" {
		t.Errorf("first fragment should keep the first matching selector, got %q", res.Fragments[0].Selector)
	}
	if res.Fragments[1].Text != "extra detail" {
		t.Errorf("second fragment wrong: %q", res.Fragments[1].Text)
	}
}

func TestOutputs_SkipsEmptyContainers(t *testing.T) {
	html := `<html><body>
		<div class="stMarkdown">   </div>
		<div class="stMarkdown">content</div>
	</body></html>`

	res := Outputs(html, []string{"div.stMarkdown"}, 20000)

	if len(res.Fragments) != 1 {
		t.Fatalf("whitespace-only container should be skipped, got %d fragments", len(res.Fragments))
	}
}

func TestOutputs_BodyFallback(t *testing.T) {
	html := `<html><head><script>var x = 1;</script></head><body>
		<div id="other">plain page text</div>
	</body></html>`

	res := Outputs(html, []string{"div.stMarkdown", "pre"}, 20000)

	if len(res.Fragments) != 0 {
		t.Fatalf("no selector should match, got %d fragments", len(res.Fragments))
	}
	if !res.BodyFallback {
		t.Error("expected body fallback")
	}
	if res.Text != "plain page text" {
		t.Errorf("fallback text wrong: %q", res.Text)
	}
}

func TestOutputs_BodyFallbackTruncated(t *testing.T) {
	long := strings.Repeat("x", 500)
	html := "<html><body><p>" + long + "</p></body></html>"

	res := Outputs(html, []string{"div.stMarkdown"}, 100)

	if !res.BodyFallback {
		t.Fatal("expected body fallback")
	}
	if len(res.Text) != 100 {
		t.Errorf("fallback should be capped at 100 bytes, got %d", len(res.Text))
	}
}

func TestOutputs_EmptyDocument(t *testing.T) {
	res := Outputs("", []string{"div.stMarkdown"}, 20000)

	if res.BodyFallback {
		t.Error("empty document should not report a body fallback")
	}
	if res.Text != "" {
		t.Errorf("expected empty text, got %q", res.Text)
	}
}

func TestJoinedHTML(t *testing.T) {
	html := `<html><body>
		<div class="stMarkdown"><strong>bold</strong></div>
		<pre>code</pre>
	</body></html>`

	res := Outputs(html, []string{"div.stMarkdown", "pre"}, 20000)
	joined := res.JoinedHTML()

	if !strings.Contains(joined, "<strong>bold</strong>") {
		t.Errorf("joined HTML missing fragment markup: %q", joined)
	}
	if !strings.Contains(joined, "<pre>code</pre>") {
		t.Errorf("joined HTML missing second fragment: %q", joined)
	}
}
