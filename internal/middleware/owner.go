package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/planforge/planforge-backend/internal/platform/logger"
)

const (
	// OwnerHeader identifies the anonymous owner session. The frontend mints
	// it once and sends it on every request.
	OwnerHeader = "X-Owner-Session-ID"

	// OwnerQueryParam is the fallback for EventSource connections, which
	// cannot set request headers.
	OwnerQueryParam = "owner_session_id"

	ownerContextKey = "owner_session_id"
)

type OwnerMiddleware struct {
	log *logger.Logger
}

func NewOwnerMiddleware(log *logger.Logger) *OwnerMiddleware {
	return &OwnerMiddleware{log: log.With("middleware", "owner")}
}

// RequireOwner rejects requests that carry no owner session id.
func (m *OwnerMiddleware) RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(OwnerHeader))
		if owner == "" {
			owner = strings.TrimSpace(c.Query(OwnerQueryParam))
		}
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing owner session id", "code": "missing_owner"},
			})
			return
		}
		c.Set(ownerContextKey, owner)
		c.Next()
	}
}

// OwnerSessionID returns the owner session id set by RequireOwner.
func OwnerSessionID(c *gin.Context) string {
	return c.GetString(ownerContextKey)
}
