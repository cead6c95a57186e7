package models

// ValidateResponse is the response for POST /api/v1/validate.
type ValidateResponse struct {
	// Success indicates whether a browser session ran to completion. It is
	// true even when no input was filled or no output was harvested; those
	// partial outcomes are reported through the flags and the log.
	Success bool `json:"success"`

	// Result is the harvested output text: the de-duplicated, joined text of
	// all matched output containers, or the truncated visible body text when
	// no container ever matched.
	Result string `json:"result"`

	// ResultMarkdown is the matched output rendered as Markdown. Only set
	// when the request asked for it and at least one container matched.
	ResultMarkdown string `json:"result_markdown,omitempty"`

	// Filled reports whether any input element received the caller's text,
	// including the injected fallback textarea.
	Filled bool `json:"filled"`

	// Clicked reports whether any trigger control was activated.
	Clicked bool `json:"clicked"`

	// FilledWith and ClickedWith name the strategy that succeeded.
	FilledWith  string `json:"filled_with,omitempty"`
	ClickedWith string `json:"clicked_with,omitempty"`

	// Log is the ordered diagnostic log accumulated across all phases.
	Log []AttemptEvent `json:"log"`

	// SnapshotSnippet is a truncated capture of the rendered markup taken
	// after polling ended. Best-effort; may be empty.
	SnapshotSnippet string `json:"snapshot_snippet,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Trace carries the error chain of a whole-session failure.
	Trace string `json:"trace,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// BootstrapMs covers navigation, frame entry, and login.
	BootstrapMs int64 `json:"bootstrap_ms"`

	// DispatchMs covers input filling and trigger clicking.
	DispatchMs int64 `json:"dispatch_ms"`

	// HarvestMs covers the output poll loop and snapshot capture.
	HarvestMs int64 `json:"harvest_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status   string       `json:"status"` // "healthy" or "degraded"
	Uptime   string       `json:"uptime"`
	Sessions SessionStats `json:"sessions"`
	Target   TargetStatus `json:"target"`
	Version  string       `json:"version"`
}

// SessionStats reports in-flight browser sessions.
type SessionStats struct {
	ActiveSessions int `json:"active_sessions"`
}

// TargetStatus reports the last reachability probe of the remote application.
type TargetStatus struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
	Title     string `json:"title,omitempty"`
	Error     string `json:"error,omitempty"`
}
