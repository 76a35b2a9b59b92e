package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	httperrors "github.com/pisciapp/backend/internal/http/errors"
	"github.com/pisciapp/backend/internal/observability/logger"
)

// WithRecover convierte un panic del handler en un 500 con el formato de
// error habitual. http.ErrAbortHandler se re-lanza: net/http lo usa para
// cortar la respuesta a propósito.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}
				logger.From(r.Context()).Error("handler panic",
					logger.Layer("http"),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.Any("panic", v),
					logger.String("stack", string(debug.Stack())),
				)
				httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(fmt.Errorf("panic: %v", v)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
