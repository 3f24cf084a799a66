package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/warbler/internal/authz"
	"github.com/d60-Lab/warbler/pkg/jwt"
	"github.com/d60-Lab/warbler/pkg/logger"
)

var ErrRevoked = errors.New("session revoked")

// Manager ties signed tokens to the revocation store. A request identity is
// derived from the bearer token on every call; nothing else is remembered.
type Manager struct {
	tokens  *jwt.Manager
	revoked RevocationStore
	now     func() time.Time
}

func NewManager(tokens *jwt.Manager, revoked RevocationStore) *Manager {
	return &Manager{tokens: tokens, revoked: revoked, now: time.Now}
}

// Issue 登录成功后签发令牌
func (m *Manager) Issue(userID uint) (token string, expiresAt time.Time, err error) {
	token, claims, err := m.tokens.Generate(userID)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// Identify resolves a bearer token. An empty token is anonymous; a bad,
// expired or revoked token is an error.
func (m *Manager) Identify(ctx context.Context, token string) (authz.Identity, error) {
	if token == "" {
		return authz.Anonymous(), nil
	}
	claims, err := m.tokens.Parse(token)
	if err != nil {
		return authz.Anonymous(), err
	}
	revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return authz.Anonymous(), err
	}
	if revoked {
		return authz.Anonymous(), ErrRevoked
	}
	return authz.Authenticated(claims.UserID), nil
}

// Logout 注销令牌；重复注销无副作用
func (m *Manager) Logout(ctx context.Context, token string) error {
	claims, err := m.tokens.Parse(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Time.Sub(m.now())
	if err := m.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return err
	}
	logger.Info("user logged out", zap.Uint("user_id", claims.UserID), zap.String("jti", claims.ID))
	return nil
}
