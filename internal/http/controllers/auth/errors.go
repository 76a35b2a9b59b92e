package auth

import (
	"errors"
	"net/http"

	httperrors "github.com/pisciapp/backend/internal/http/errors"
	svc "github.com/pisciapp/backend/internal/http/services/auth"
	"github.com/pisciapp/backend/internal/session"
	"github.com/pisciapp/backend/internal/twofactor"
)

// ─── Error Mapping ───

func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *httperrors.AppError
	switch {
	case errors.As(err, &appErr):
		httperrors.WriteError(w, appErr)

	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields)
	case errors.Is(err, svc.ErrWeakPassword):
		httperrors.WriteError(w, httperrors.ErrPasswordTooWeak)
	case errors.Is(err, svc.ErrEmailTaken):
		httperrors.WriteError(w, httperrors.ErrEmailTaken)
	case errors.Is(err, svc.ErrInvalidOrExpiredCode):
		httperrors.WriteError(w, httperrors.ErrInvalidOrExpiredCode)

	case errors.Is(err, svc.ErrUserNotFound), errors.Is(err, svc.ErrWrongPassword):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, svc.ErrNotVerified):
		httperrors.WriteError(w, httperrors.ErrAccountNotVerified)
	case errors.Is(err, svc.ErrNoPassword):
		httperrors.WriteError(w, httperrors.ErrFederatedOnly)

	case errors.Is(err, svc.ErrGoogleDisabled):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithMessage("Login con Google no habilitado"))
	case errors.Is(err, svc.ErrInvalidGoogleToken):
		httperrors.WriteError(w, httperrors.ErrGoogleTokenInvalid)

	case errors.Is(err, twofactor.ErrNoChallenge):
		httperrors.WriteError(w, httperrors.ErrInvalidTwoFactorCode.WithDetail("sin login pendiente de 2FA o intentos agotados"))
	case errors.Is(err, twofactor.ErrNotEnabled):
		httperrors.WriteError(w, httperrors.ErrTwoFactorNotEnabled)
	case errors.Is(err, twofactor.ErrInvalidProof):
		httperrors.WriteError(w, httperrors.ErrInvalidTwoFactorCode)

	case errors.Is(err, svc.ErrMissingRefresh):
		httperrors.WriteError(w, httperrors.ErrRefreshMissing)
	case errors.Is(err, session.ErrInvalidRotationCredential),
		errors.Is(err, session.ErrRotationCredentialExpired):
		httperrors.WriteError(w, httperrors.ErrRefreshInvalid)

	case errors.Is(err, svc.ErrInvalidResetToken):
		httperrors.WriteError(w, httperrors.ErrResetTokenInvalid)

	default:
		httperrors.WriteErrorCtx(w, r, httperrors.ErrInternalServerError.WithCause(err))
	}
}
