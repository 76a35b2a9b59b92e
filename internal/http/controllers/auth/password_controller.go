package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/pisciapp/backend/internal/http/dto/auth"
	httperrors "github.com/pisciapp/backend/internal/http/errors"
	"github.com/pisciapp/backend/internal/http/helpers"
	svc "github.com/pisciapp/backend/internal/http/services/auth"
)

// PasswordController maneja la recuperación de contraseña.
type PasswordController struct {
	service svc.PasswordService
}

func NewPasswordController(service svc.PasswordService) *PasswordController {
	return &PasswordController{service: service}
}

// Forgot handles POST /usuarios/forgot-password
func (c *PasswordController) Forgot(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := helpers.DecodeJSON(w, r, maxBodySize, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	if err := c.service.ForgotPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, svc.ErrUserNotFound) {
			httperrors.WriteError(w, httperrors.ErrUserNotFound)
			return
		}
		writeAuthError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "Se envió un link de recuperación"})
}

// Reset handles POST /usuarios/reset-password/{token}
func (c *PasswordController) Reset(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := helpers.DecodeJSON(w, r, maxBodySize, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	if err := c.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password); err != nil {
		writeAuthError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "Contraseña restablecida con éxito"})
}
