package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/stproxy/models"
)

// Auth returns API-key authentication middleware. Keys arrive either as
// X-API-Key or as Authorization: Bearer. An empty key list disables the
// check entirely (open access).
//
// Candidate keys are checked against every configured key in constant time,
// with no early exit, so response timing leaks neither key prefixes nor
// which configured key matched.
func Auth(apiKeys []string) gin.HandlerFunc {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}
	if len(keys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := apiKeyFrom(c)
		if key == "" {
			unauthorized(c, "missing API key: provide X-API-Key header or Authorization: Bearer <key>")
			return
		}
		if !matchKey(keys, []byte(key)) {
			unauthorized(c, "invalid API key")
			return
		}

		c.Set("api_key", key)
		c.Next()
	}
}

// matchKey reports whether candidate equals any configured key. Every key is
// compared even after a match is found.
func matchKey(keys [][]byte, candidate []byte) bool {
	matched := 0
	for _, k := range keys {
		if len(k) == len(candidate) {
			matched |= subtle.ConstantTimeCompare(k, candidate)
		}
	}
	return matched == 1
}

// apiKeyFrom tries X-API-Key first, then Authorization: Bearer.
func apiKeyFrom(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ValidateResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeUnauthorized,
			Message: msg,
		},
	})
}
