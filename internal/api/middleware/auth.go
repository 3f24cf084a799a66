package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/warbler/internal/authz"
	"github.com/d60-Lab/warbler/pkg/logger"
)

const keyIdentity = "identity"

// Identifier resolves a bearer token to an identity.
type Identifier interface {
	Identify(ctx context.Context, token string) (authz.Identity, error)
}

// Auth attaches the caller identity to the context. Requests without a usable
// token continue as anonymous; the services decide what anonymous may do.
func Auth(ids Identifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		who := authz.Anonymous()
		if token := BearerToken(c); token != "" {
			id, err := ids.Identify(c.Request.Context(), token)
			if err != nil {
				logger.Debug("ignoring bearer token", zap.Error(err), zap.String("request_id", c.GetString(KeyRequestID)))
			} else {
				who = id
			}
		}
		c.Set(keyIdentity, who)
		c.Next()
	}
}

// Identity 返回当前请求的身份，未经过 Auth 中间件时为匿名
func Identity(c *gin.Context) authz.Identity {
	if v, ok := c.Get(keyIdentity); ok {
		if who, ok := v.(authz.Identity); ok {
			return who
		}
	}
	return authz.Anonymous()
}

func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
