package httpapi

import (
	"net/http"
	"time"

	"delive/storefront/internal/access"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per request with its id, status and latency.
func RequestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			entry := logger.WithFields(logrus.Fields{
				"request_id":  requestID,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_addr": r.RemoteAddr,
			})
			switch {
			case rec.status >= 500:
				entry.Error("request completed")
			case rec.status >= 400:
				entry.Warn("request completed")
			default:
				entry.Info("request completed")
			}
		})
	}
}

// guard adapts an access predicate to a handler wrapper: RedirectLogin sends
// the client to /login/, Forbidden answers 403.
func guard(g access.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch g(currentSession(r)) {
			case access.Allow:
				next.ServeHTTP(w, r)
			case access.RedirectLogin:
				http.Redirect(w, r, "/login/", http.StatusFound)
			default:
				writeError(w, http.StatusForbidden, "Access denied")
			}
		})
	}
}

func requireSession(h http.HandlerFunc) http.Handler {
	return guard(access.RequiresSession)(h)
}

func requireAdmin(h http.HandlerFunc) http.Handler {
	return guard(access.RequiresAdmin)(h)
}
