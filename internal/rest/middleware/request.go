package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/curaflow/curaflow/internal/types"
)

const (
	headerRequestID = "X-Request-ID"
	headerCompanyID = "X-Company-ID"
	headerUserID    = "X-User-ID"
)

// RequestIDMiddleware attaches a request ID to the context and echoes it back
func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(headerRequestID)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Header(headerRequestID, requestID)

	c.Next()
}

// CompanyScopeMiddleware copies the company and user scope resolved by the
// auth layer into the request context. Authentication itself lives outside
// this service; the gateway forwards the resolved identifiers as headers.
func CompanyScopeMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	if companyID := c.GetHeader(headerCompanyID); companyID != "" {
		ctx = types.SetCompanyID(ctx, companyID)
	}
	if userID := c.GetHeader(headerUserID); userID != "" {
		ctx = types.SetUserID(ctx, userID)
	}

	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
