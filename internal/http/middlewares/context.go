package middlewares

import (
	"context"
	"net/http"

	jwtx "github.com/pisciapp/backend/internal/jwt"
)

// Middleware decora un http.Handler; chi los acepta tal cual en Use/With.
type Middleware func(http.Handler) http.Handler

type ctxKey string

const (
	// ctxClaimsKey guarda las claims del bearer ya validado
	ctxClaimsKey ctxKey = "claims"
	// ctxUserIDKey guarda el user ID extraído del token
	ctxUserIDKey ctxKey = "user_id"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// WithClaims inyecta claims en el contexto
func WithClaims(ctx context.Context, claims *jwtx.AccessClaims) context.Context {
	ctx = context.WithValue(ctx, ctxClaimsKey, claims)
	if claims != nil && claims.Subject != "" {
		ctx = context.WithValue(ctx, ctxUserIDKey, claims.Subject)
	}
	return ctx
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetClaims retorna nil si RequireAuth no corrió.
func GetClaims(ctx context.Context) *jwtx.AccessClaims {
	c, _ := ctx.Value(ctxClaimsKey).(*jwtx.AccessClaims)
	return c
}

// GetUserID obtiene el user ID del contexto.
func GetUserID(ctx context.Context) string {
	s, _ := ctx.Value(ctxUserIDKey).(string)
	return s
}

// GetRequestID obtiene el request ID del contexto.
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}
