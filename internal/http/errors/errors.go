package errors

import (
	"encoding/json"
	"net/http"

	"github.com/pisciapp/backend/internal/observability/logger"
)

// errorResponse controla exactamente qué campos se envían al cliente.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe la respuesta HTTP para err. Los errores que no son
// *AppError salen como 500 genérico; la causa se loguea y nunca se expone.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorCtx(w, nil, err)
}

// WriteErrorCtx es WriteError usando el logger del request (si r != nil).
func WriteErrorCtx(w http.ResponseWriter, r *http.Request, err error) {
	appErr := FromError(err)

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log := logger.L()
		if r != nil {
			log = logger.From(r.Context())
		}
		log.Error("request failed", logger.String("code", appErr.Code), logger.Err(appErr.Err))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}
