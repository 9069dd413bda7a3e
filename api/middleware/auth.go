// Package middleware holds the auth and rate-limit layers in front of the
// analyze endpoints.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/agentlens/models"
)

// identityKey is where the authenticated key is stashed in the gin context
// for the rate limiter to use as the caller identity.
const identityKey = "api_key"

// Auth validates the caller's API key against the configured set. Keys are
// accepted from either header:
//
//	X-API-Key: <key>
//	Authorization: Bearer <key>
//
// With no keys configured the handler chain runs open.
func Auth(apiKeys []string) gin.HandlerFunc {
	valid := make([]string, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			valid = append(valid, k)
		}
	}
	if len(valid) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := callerKey(c)
		if key == "" {
			unauthorized(c, "missing API key: set X-API-Key or Authorization: Bearer <key>")
			return
		}
		if !keyMatches(key, valid) {
			unauthorized(c, "invalid API key")
			return
		}
		c.Set(identityKey, key)
		c.Next()
	}
}

// callerKey reads the API key from the request, X-API-Key taking precedence.
func callerKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return bearer
	}
	return ""
}

// keyMatches compares in constant time so response timing doesn't leak how
// much of a guessed key was right.
func keyMatches(key string, valid []string) bool {
	match := false
	for _, v := range valid {
		if subtle.ConstantTimeCompare([]byte(key), []byte(v)) == 1 {
			match = true
		}
	}
	return match
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.AnalyzeResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeUnauthorized,
			Message: msg,
		},
	})
}
