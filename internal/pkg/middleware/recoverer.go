package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"goescola/internal/api/httpx"
	apperror "goescola/internal/errors"
	"goescola/internal/pkg/logger"
)

// Recoverer converte panics em 500 com a mensagem genérica e registra a stack.
func Recoverer(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("Panic durante a requisição.", fmt.Errorf("%v\n%s", rec, debug.Stack()))
					httpx.WriteError(w, r, log, apperror.NewInternalError("panic", fmt.Errorf("%v", rec)))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestLogger registra método, rota, status e duração de cada requisição.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(sw, r)

			log.Info("Requisição atendida.", map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      sw.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}
