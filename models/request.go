package models

// ValidateRequest is the payload for POST /api/v1/validate.
type ValidateRequest struct {
	// Text is written into the remote application's input field. Required;
	// empty or whitespace-only text is rejected before any browser work.
	Text string `json:"text" binding:"required"`

	// Timeout is the maximum duration in seconds for the entire operation
	// (navigation + dispatch + harvest). Default: 60. The upper bound is the
	// configured MaxTimeout, enforced by the handler.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1"`

	// Markdown also returns the matched output containers rendered as
	// Markdown in the result_markdown field. Default: false.
	Markdown bool `json:"markdown,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ValidateRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 60
	}
}
