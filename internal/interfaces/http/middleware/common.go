// Package middleware provides the HTTP middleware of the billing API.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/condo/backend/internal/infrastructure/logger"
	"github.com/condo/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header and context keys shared by the middleware and handlers
const (
	RequestIDHeader = "X-Request-ID"
	ActorIDHeader   = "X-Actor-ID"

	RequestIDKey = "request_id"
	ActorIDKey   = "actor_id"
)

// MaxRequestIDLength bounds client-supplied request IDs
const MaxRequestIDLength = 128

// RequestID adds a unique request ID to each request.
// A client-supplied X-Request-ID is kept when it is short enough.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" || len(requestID) > MaxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}

// Actor reads the trusted X-Actor-ID header set by the upstream gateway.
// A missing header means an anonymous caller (actor 0); anything other than a
// positive integer is rejected.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(ActorIDHeader))
		if raw == "" {
			c.Next()
			return
		}
		actorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || actorID <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
				dto.ErrCodeActorInvalid,
				ActorIDHeader+" must be a positive integer",
				GetRequestID(c),
			))
			return
		}

		c.Set(ActorIDKey, actorID)
		ctx, _ := logger.WithActorID(c.Request.Context(), logger.FromContext(c.Request.Context()), actorID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// GetActorID returns the actor set by Actor, or 0 for anonymous callers
func GetActorID(c *gin.Context) int64 {
	return c.GetInt64(ActorIDKey)
}
