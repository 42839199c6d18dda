// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/xelfe/geekcraft/internal/auth"
	"github.com/xelfe/geekcraft/internal/observability"
)

// MaxBodyBytes is the global request body ceiling (1 MiB). It applies to
// every route, ahead of auth and parsing.
const MaxBodyBytes = 1 << 20

// usernameKey is the gin context key holding the authenticated username.
const usernameKey = "auth.username"

// bearerPrefix is matched case-insensitively per RFC 6750.
const bearerPrefix = "bearer "

// response is the uniform JSON envelope for status responses.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// BodyLimit rejects request bodies larger than max bytes. A declared
// oversize Content-Length is rejected immediately with 413; chunked
// bodies are capped with MaxBytesReader, which makes the read fail once
// the limit is crossed.
func BodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > max {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, response{
				Success: false,
				Message: "Request body too large",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}

// RequireAuth enforces bearer-token authentication. A missing or
// malformed Authorization header and an invalid or expired token both
// produce 401; a credential store outage produces 500, never 401, so
// clients cannot mistake an outage for a revoked session. On success the
// resolved username is stored in the request context.
func RequireAuth(svc *auth.Service, metrics *observability.Metrics, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response{
				Success: false,
				Message: "Authentication required",
			})
			return
		}

		username, err := svc.Validate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrUnavailable) {
				logger.Error("session validation failed", "error", err)
				metrics.RecordStoreError("validate")
				c.AbortWithStatusJSON(http.StatusInternalServerError, response{
					Success: false,
					Message: "Internal server error",
				})
				return
			}
			metrics.RecordAuthAttempt("validate", "failure")
			c.AbortWithStatusJSON(http.StatusUnauthorized, response{
				Success: false,
				Message: "Invalid or expired session",
			})
			return
		}

		metrics.RecordAuthAttempt("validate", "success")
		c.Set(usernameKey, username)
		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) (string, bool) {
	if len(header) <= len(bearerPrefix) {
		return "", false
	}
	if !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

// Username returns the authenticated username set by RequireAuth.
func Username(c *gin.Context) (string, error) {
	v, ok := c.Get(usernameKey)
	if !ok {
		return "", oops.Errorf("no authenticated username in context")
	}
	username, ok := v.(string)
	if !ok {
		return "", oops.Errorf("unexpected username type in context")
	}
	return username, nil
}
