package server

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"goa.design/goa/v3/middleware"

	"brhygiene/internal/config"
	"brhygiene/internal/logging"
)

// logger returns the http logger tagged with the request id, if any.
func logger(ctx context.Context) *logrus.Entry {
	log := logging.For("http")
	if id, ok := ctx.Value(middleware.RequestIDKey).(string); ok {
		log = log.WithField("request_id", id)
	}
	return log
}

// securityHeaders adds security headers to responses
func securityHeaders(handler http.Handler, debug bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		// HSTS (only in production with HTTPS)
		if !debug && r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		handler.ServeHTTP(w, r)
	})
}

// cors answers preflight requests and sets CORS headers. Outside debug mode
// an origin not in the allow list is refused unless "*" is allowed.
func cors(handler http.Handler, cfg config.CORSConfig, debug bool) http.Handler {
	wildcard := slices.Contains(cfg.AllowedOrigins, "*")
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := fmt.Sprintf("%d", cfg.MaxAge)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && !debug && !wildcard && !slices.Contains(cfg.AllowedOrigins, origin) {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		switch {
		case origin != "":
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		case wildcard || debug:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.Header().Set("Access-Control-Allow-Headers", headers)
		w.Header().Set("Access-Control-Expose-Headers", "Content-Type, X-Request-Id")
		w.Header().Set("Access-Control-Max-Age", maxAge)

		// Preflight never reaches the services.
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		handler.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLogging logs every request except health checks. Bodies are never
// logged: they carry submitter contact details.
func requestLogging(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			handler.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		handler.ServeHTTP(wrapped, r)

		entry := logger(r.Context()).WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		})
		switch {
		case wrapped.statusCode >= 500:
			entry.Error("request failed")
		case wrapped.statusCode >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	})
}

// methodNotAllowed answers a method the route does not support.
func methodNotAllowed(allow string, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := jsonContext(r.Context(), "", "")
		w.Header().Set("Allow", allow+", OPTIONS")
		enc := responseEncoder(ctx, w)
		w.WriteHeader(http.StatusMethodNotAllowed)
		if err := enc.Encode(body); err != nil {
			logger(ctx).WithError(err).Error("failed to encode response")
		}
	}
}
