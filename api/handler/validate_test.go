package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/stproxy/config"
	"github.com/use-agent/stproxy/models"
)

type stubValidator struct {
	called bool
	resp   *models.ValidateResponse
	err    error
}

func (s *stubValidator) Validate(ctx context.Context, req *models.ValidateRequest) (*models.ValidateResponse, error) {
	s.called = true
	return s.resp, s.err
}

func doValidateWith(t *testing.T, v Validator, cfg *config.Config, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/validate", Validate(v, cfg))

	req := httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doValidate(t *testing.T, v Validator, body string) *httptest.ResponseRecorder {
	t.Helper()
	cfg := &config.Config{}
	cfg.Driver.MaxTimeout = 120 * time.Second
	return doValidateWith(t, v, cfg, body)
}

func TestValidate_MissingText(t *testing.T) {
	stub := &stubValidator{}
	w := doValidate(t, stub, `{}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if stub.called {
		t.Error("validator must not run for invalid input")
	}

	var resp models.ValidateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeInvalidInput {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestValidate_WhitespaceOnlyText(t *testing.T) {
	stub := &stubValidator{}
	w := doValidate(t, stub, `{"text": "   \n\t  "}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if stub.called {
		t.Error("validator must not run for whitespace-only text")
	}
}

func TestValidate_TimeoutOutOfRange(t *testing.T) {
	stub := &stubValidator{}
	w := doValidate(t, stub, `{"text": "claim", "timeout": 500}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if stub.called {
		t.Error("validator must not run for out-of-range timeout")
	}
}

func TestValidate_TimeoutBoundTracksConfig(t *testing.T) {
	stub := &stubValidator{resp: &models.ValidateResponse{Success: true, Log: []models.AttemptEvent{}}}
	cfg := &config.Config{}
	cfg.Driver.MaxTimeout = 300 * time.Second

	w := doValidateWith(t, stub, cfg, `{"text": "claim", "timeout": 200}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !stub.called {
		t.Error("timeouts within the configured bound must reach the validator")
	}

	over := doValidateWith(t, &stubValidator{}, cfg, `{"text": "claim", "timeout": 301}`)
	if over.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 past the configured bound", over.Code)
	}
}

func TestValidate_Success(t *testing.T) {
	stub := &stubValidator{
		resp: &models.ValidateResponse{
			Success: true,
			Result:  "Verdict: plausible",
			Filled:  true,
			Clicked: true,
			Log:     []models.AttemptEvent{},
		},
	}
	w := doValidate(t, stub, `{"text": "the earth is round"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !stub.called {
		t.Fatal("validator was not invoked")
	}

	var resp models.ValidateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if !resp.Success || resp.Result != "Verdict: plausible" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Log == nil {
		t.Error("log should serialize as [], not null")
	}
}

func TestValidate_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		code       string
		wantStatus int
	}{
		{models.ErrCodeTimeout, http.StatusGatewayTimeout},
		{models.ErrCodeNavigation, http.StatusBadGateway},
		{models.ErrCodeBrowserCrash, http.StatusInternalServerError},
		{models.ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			perr := models.NewProxyError(tt.code, "failed", nil)
			stub := &stubValidator{
				resp: &models.ValidateResponse{Success: false, Error: perr.ToDetail()},
				err:  perr,
			}
			w := doValidate(t, stub, `{"text": "claim"}`)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestValidate_FailureCarriesPartialResponse(t *testing.T) {
	perr := models.NewProxyError(models.ErrCodeNavigation, "navigation to target failed", nil)
	stub := &stubValidator{
		resp: &models.ValidateResponse{
			Success: false,
			Log: []models.AttemptEvent{
				{Phase: models.PhaseBootstrap, Strategy: "navigate", Outcome: models.OutcomeError, Detail: "dns failure"},
			},
			Trace: perr.Error(),
			Error: perr.ToDetail(),
		},
		err: perr,
	}
	w := doValidate(t, stub, `{"text": "claim"}`)

	var resp models.ValidateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if len(resp.Log) != 1 {
		t.Errorf("partial log should be returned, got %d events", len(resp.Log))
	}
	if resp.Trace == "" {
		t.Error("trace should survive the error path")
	}
}

func TestValidate_UntypedErrorBecomesInternal(t *testing.T) {
	stub := &stubValidator{err: context.DeadlineExceeded}
	w := doValidate(t, stub, `{"text": "claim"}`)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("untyped error status = %d, want 500", w.Code)
	}
}
