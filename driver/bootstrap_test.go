package driver

import "testing"

func TestResolveFrameURL(t *testing.T) {
	const page = "https://app.example.com/dashboard/view"

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"absolute", "https://other.example.com/embed", "https://other.example.com/embed"},
		{"protocol-relative", "//cdn.example.com/frame", "https://cdn.example.com/frame"},
		{"root-relative", "/embed/app", "https://app.example.com/embed/app"},
		{"bare path", "frame.html", "https://app.example.com/dashboard/frame.html"},
		{"leading whitespace", "  /embed/app", "https://app.example.com/embed/app"},
		{"query preserved", "/embed?k=v", "https://app.example.com/embed?k=v"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveFrameURL(page, tt.src)
			if err != nil {
				t.Fatalf("resolveFrameURL error: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveFrameURL(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestResolveFrameURL_BadInputs(t *testing.T) {
	if _, err := resolveFrameURL("://broken", "/x"); err == nil {
		t.Error("unparseable page URL should error")
	}
	if _, err := resolveFrameURL("https://a.example.com", "http://[::1"); err == nil {
		t.Error("unparseable src should error")
	}
}
