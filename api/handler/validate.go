package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/stproxy/config"
	"github.com/use-agent/stproxy/models"
	"github.com/use-agent/stproxy/webhook"
)

// Validator runs one browser session for a request.
type Validator interface {
	Validate(ctx context.Context, req *models.ValidateRequest) (*models.ValidateResponse, error)
}

// Validate returns a handler for POST /api/v1/validate.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Validator.Validate → full phase run (bootstrap, dispatch, harvest).
//  3. Respond 200 on completion; on whole-session failure, map the typed
//     error to a status code and return the partial response with its log.
//  4. Webhook delivery (if configured) happens after the response is decided.
func Validate(v Validator, cfg *config.Config) gin.HandlerFunc {
	maxTimeout := int(cfg.Driver.MaxTimeout.Seconds())

	return func(c *gin.Context) {
		var req models.ValidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			badRequest(c, "text must not be empty or whitespace-only")
			return
		}
		if req.Timeout > maxTimeout {
			badRequest(c, fmt.Sprintf("timeout must not exceed %d seconds", maxTimeout))
			return
		}
		req.Defaults()

		resp, err := v.Validate(c.Request.Context(), &req)
		if err != nil {
			respondError(c, resp, err)
			notify(cfg.Webhook, "validate.failed", resp)
			return
		}

		c.JSON(http.StatusOK, resp)
		notify(cfg.Webhook, "validate.completed", resp)
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.ValidateResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeInvalidInput,
			Message: msg,
		},
	})
}

// respondError maps a ProxyError to the correct HTTP status code. The
// response from the validator (when present) already carries the attempt log
// and trace for the failed session, so it is returned as-is.
func respondError(c *gin.Context, resp *models.ValidateResponse, err error) {
	var perr *models.ProxyError
	if !errors.As(err, &perr) {
		perr = models.NewProxyError(models.ErrCodeInternal, err.Error(), err)
	}

	if resp == nil {
		resp = &models.ValidateResponse{
			Success: false,
			Error:   perr.ToDetail(),
			Trace:   perr.Error(),
		}
	}
	c.JSON(mapErrorToStatus(perr), resp)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ProxyError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}

func notify(whCfg config.WebhookConfig, eventType string, resp *models.ValidateResponse) {
	if whCfg.URL == "" {
		return
	}
	webhook.DeliverAsync(whCfg.URL, whCfg.Secret, &webhook.Event{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      resp,
	})
}
