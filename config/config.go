package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Target    TargetConfig
	Driver    DriverConfig
	Harvest   HarvestConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all browser traffic and probes.
	Proxy string

	// Stealth injects anti-bot-detection JS before navigation.
	Stealth bool // default: false

	// BlockedResourceTypes lists resource types to block during navigation.
	// Empty by default: the target app is interactive and blocking its CSS
	// or media can change element visibility.
	BlockedResourceTypes []string
}

// TargetConfig describes the remote web application being driven.
type TargetConfig struct {
	// URL is the fixed remote application URL.
	URL string // default: "https://bharatvision.streamlit.app"

	// Username and Password, when both set, are filled into a login form
	// if the working page exposes one.
	Username string
	Password string

	// EnterFrame resolves the first iframe's src on the landing page and
	// treats it as the working page.
	EnterFrame bool // default: false

	// ExtraHeaders are sent with every browser request to the target,
	// parsed from "Key=Value,Key2=Value2".
	ExtraHeaders map[string]string
}

// DriverConfig controls per-session browser behavior.
type DriverConfig struct {
	// NavigationTimeout is the max time for the initial navigation alone.
	NavigationTimeout time.Duration // default: 15s

	// SettleDelay is the fixed wait after navigation or frame entry to let
	// client-side rendering finish before querying the DOM.
	SettleDelay time.Duration // default: 1200ms

	// LoginSettleDelay is the fixed wait after activating a login control.
	LoginSettleDelay time.Duration // default: 2s

	// StrategyTimeout is the per-strategy deadline for element lookup,
	// fill, and click attempts.
	StrategyTimeout time.Duration // default: 5s

	// MaxTimeout is the maximum allowed request timeout from the client.
	MaxTimeout time.Duration // default: 120s
}

// HarvestConfig controls the output poll loop and extraction.
type HarvestConfig struct {
	// Timeout bounds the poll loop.
	Timeout time.Duration // default: 45s

	// PollInterval is the sleep between extraction passes.
	PollInterval time.Duration // default: 1s

	// MinOutputLen is the sufficiency threshold: polling stops once the
	// joined output text is longer than this.
	MinOutputLen int // default: 10

	// OutputSelectors is the ordered output-container selector list.
	// Validated with cascadia at startup.
	OutputSelectors []string

	// MaxBodyText caps the whole-document text fallback.
	MaxBodyText int // default: 20000

	// SnippetLen caps the snapshot snippet returned to the caller.
	SnippetLen int // default: 5000
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting and the global cap on
// concurrent browser sessions.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5

	// MaxConcurrentSessions caps how many validate requests may hold a
	// browser page at once, across all callers. Zero or negative disables
	// the cap.
	MaxConcurrentSessions int // default: 4
}

// WebhookConfig controls result delivery notifications.
type WebhookConfig struct {
	// URL receives a POST for every completed or failed validation.
	// Empty disables delivery.
	URL string

	// Secret signs the payload with HMAC-SHA256 when non-empty.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultOutputSelectors is the fixed priority order of output containers
// recognized on the target app's rendered page.
var DefaultOutputSelectors = []string{
	"div.stMarkdown",
	"div[data-testid='stMarkdown']",
	"div[class*='stText']",
	"pre",
	"div.stAlert",
	"div[data-testid='stExpander']",
	"div[role='region']",
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("STPROXY_HOST", "0.0.0.0"),
			Port: envIntOr("STPROXY_PORT", 8080),
			Mode: envOr("STPROXY_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:             envBoolOr("STPROXY_HEADLESS", true),
			NoSandbox:            envBoolOr("STPROXY_NO_SANDBOX", false),
			BrowserBin:           os.Getenv("STPROXY_BROWSER_BIN"),
			Proxy:                os.Getenv("STPROXY_PROXY"),
			Stealth:              envBoolOr("STPROXY_STEALTH", false),
			BlockedResourceTypes: envSliceOr("STPROXY_BLOCKED_RESOURCES", nil),
		},
		Target: TargetConfig{
			URL:          envOr("STPROXY_TARGET_URL", "https://bharatvision.streamlit.app"),
			Username:     os.Getenv("STPROXY_TARGET_USERNAME"),
			Password:     os.Getenv("STPROXY_TARGET_PASSWORD"),
			EnterFrame:   envBoolOr("STPROXY_ENTER_FRAME", false),
			ExtraHeaders: envHeadersOr("STPROXY_EXTRA_HEADERS"),
		},
		Driver: DriverConfig{
			NavigationTimeout: envDurationOr("STPROXY_NAV_TIMEOUT", 15*time.Second),
			SettleDelay:       envDurationOr("STPROXY_SETTLE_DELAY", 1200*time.Millisecond),
			LoginSettleDelay:  envDurationOr("STPROXY_LOGIN_SETTLE_DELAY", 2*time.Second),
			StrategyTimeout:   envDurationOr("STPROXY_STRATEGY_TIMEOUT", 5*time.Second),
			MaxTimeout:        envDurationOr("STPROXY_MAX_TIMEOUT", 120*time.Second),
		},
		Harvest: HarvestConfig{
			Timeout:         envDurationOr("STPROXY_HARVEST_TIMEOUT", 45*time.Second),
			PollInterval:    envDurationOr("STPROXY_POLL_INTERVAL", time.Second),
			MinOutputLen:    envIntOr("STPROXY_MIN_OUTPUT_LEN", 10),
			OutputSelectors: envSliceOr("STPROXY_OUTPUT_SELECTORS", DefaultOutputSelectors),
			MaxBodyText:     envIntOr("STPROXY_MAX_BODY_TEXT", 20000),
			SnippetLen:      envIntOr("STPROXY_SNIPPET_LEN", 5000),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("STPROXY_AUTH_ENABLED", false),
			APIKeys: envSliceOr("STPROXY_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond:     envFloatOr("STPROXY_RATE_RPS", 2.0),
			Burst:                 envIntOr("STPROXY_RATE_BURST", 5),
			MaxConcurrentSessions: envIntOr("STPROXY_MAX_SESSIONS", 4),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("STPROXY_WEBHOOK_URL"),
			Secret: os.Getenv("STPROXY_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("STPROXY_LOG_LEVEL", "info"),
			Format: envOr("STPROXY_LOG_FORMAT", "json"),
		},
	}
}

// Validate rejects configuration that would only fail mid-request: an empty
// target URL and output selectors cascadia cannot parse (goquery panics on
// invalid selectors, so they must be caught here).
func (c *Config) Validate() error {
	if c.Target.URL == "" {
		return fmt.Errorf("config: target URL must not be empty")
	}
	if len(c.Harvest.OutputSelectors) == 0 {
		return fmt.Errorf("config: output selector list must not be empty")
	}
	for _, sel := range c.Harvest.OutputSelectors {
		if _, err := cascadia.Parse(sel); err != nil {
			return fmt.Errorf("config: invalid output selector %q: %w", sel, err)
		}
	}
	if c.Harvest.PollInterval <= 0 {
		return fmt.Errorf("config: poll interval must be positive")
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

func envHeadersOr(key string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	result := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			continue
		}
		result[k] = val
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
