package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func authRouter(keys []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(keys))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestAuth_NoKeysIsOpen(t *testing.T) {
	r := authRouter(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAuth_MissingKey(t *testing.T) {
	r := authRouter([]string{"valid-key"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestMatchKey(t *testing.T) {
	keys := [][]byte{[]byte("alpha"), []byte("longer-key")}

	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{"first key", "alpha", true},
		{"second key", "longer-key", true},
		{"wrong same length", "bravo", false},
		{"prefix of a key", "alph", false},
		{"key plus suffix", "alphaX", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchKey(keys, []byte(tt.candidate)); got != tt.want {
				t.Errorf("matchKey(%q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}

func TestAuth_HeaderStyles(t *testing.T) {
	r := authRouter([]string{"valid-key"})

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{"x-api-key valid", "X-API-Key", "valid-key", http.StatusOK},
		{"x-api-key invalid", "X-API-Key", "wrong", http.StatusUnauthorized},
		{"bearer valid", "Authorization", "Bearer valid-key", http.StatusOK},
		{"bearer invalid", "Authorization", "Bearer wrong", http.StatusUnauthorized},
		{"bare authorization", "Authorization", "valid-key", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set(tt.header, tt.value)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
