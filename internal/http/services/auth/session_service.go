package auth

import (
	"context"
	"strings"

	"github.com/pisciapp/backend/internal/audit"
	"github.com/pisciapp/backend/internal/observability/logger"
	"github.com/pisciapp/backend/internal/session"
)

type sessionService struct {
	deps Deps
}

// Refresh canjea la credencial de refresh por un par nuevo (un solo uso).
func (s *sessionService) Refresh(ctx context.Context, credential string, meta session.Meta) (*session.Pair, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrMissingRefresh
	}
	return s.deps.Sessions.Rotate(ctx, credential, meta)
}

// Logout revoca la sesión de la credencial. Siempre termina bien para el
// cliente: una credencial desconocida o un fallo de storage solo se loguean.
func (s *sessionService) Logout(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil
	}
	log := serviceLog(ctx, "auth.session", "Logout")
	revoked, err := s.deps.Sessions.RevokeByCredential(ctx, credential)
	if err != nil {
		log.Warn("logout revoke failed", logger.Err(err))
		return nil
	}
	log.Debug("logout", logger.Bool("revoked", revoked))
	if revoked {
		audit.Log(ctx, audit.Logout)
	}
	return nil
}
