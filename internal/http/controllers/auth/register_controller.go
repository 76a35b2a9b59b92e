package auth

import (
	"net/http"

	dto "github.com/pisciapp/backend/internal/http/dto/auth"
	httperrors "github.com/pisciapp/backend/internal/http/errors"
	"github.com/pisciapp/backend/internal/http/helpers"
	svc "github.com/pisciapp/backend/internal/http/services/auth"
	"github.com/pisciapp/backend/internal/observability/logger"
)

// RegisterController maneja POST /auth/register y POST /auth/verify.
type RegisterController struct {
	service svc.RegisterService
}

func NewRegisterController(service svc.RegisterService) *RegisterController {
	return &RegisterController{service: service}
}

// Register handles POST /auth/register
func (c *RegisterController) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RegisterController.Register"))

	var req dto.RegisterRequest
	if err := helpers.DecodeJSON(w, r, maxBodySize, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	userID, err := c.service.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		log.Debug("register failed", logger.Err(err))
		writeAuthError(w, r, err)
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, dto.RegisterResponse{
		Message: "Usuario registrado, se envió un código de verificación",
		UserID:  userID,
	})
}

// Verify handles POST /auth/verify
func (c *RegisterController) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyRequest
	if err := helpers.DecodeJSON(w, r, maxBodySize, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	if err := c.service.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		writeAuthError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "Correo verificado con éxito"})
}
