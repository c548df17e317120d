package httpx

import (
	"net/http"

	"go.uber.org/zap"
)

func RecoveryMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("panic recovered",
						zap.Any("panic", err),
						zap.String("request_id", RequestIDFrom(r)),
						zap.Stack("stack"),
					)

					var wroteHeader bool
					if rw, ok := w.(*responseWriter); ok {
						wroteHeader = rw.wroteHeader()
					}

					if !wroteHeader {
						JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
					}
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
