package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/blablablasealsaresoft/infofi/pkg/logger"
)

// Recovery перехватывает panic в handler и отвечает 500.
// onPanic вызывается после логирования (например, для метрик).
func Recovery(log *logger.Logger, onPanic ...func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// http.ErrAbortHandler должен дойти до net/http
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error("Panic recovered", fmt.Errorf("%v", rec),
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", RequestIDFromContext(r.Context()),
					"stack", string(debug.Stack()),
				)
				for _, fn := range onPanic {
					fn()
				}

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
