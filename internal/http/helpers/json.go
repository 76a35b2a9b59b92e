package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	httperrors "github.com/pisciapp/backend/internal/http/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

// WriteJSON serializa v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON limita el body a max bytes y lo decodifica en v. Un body vacío
// no es error (los handlers validan campos requeridos). Retorna un *AppError.
func DecodeJSON(w http.ResponseWriter, r *http.Request, max int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, max)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.As(err, &tooLarge):
			return httperrors.ErrBodyTooLarge
		default:
			return httperrors.ErrInvalidJSON
		}
	}
	return nil
}
