package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"brhygiene/internal/auth"
	"brhygiene/internal/logging"
)

// RequireScope guards an operations endpoint with a bearer token carrying
// scope. A nil issuer leaves the endpoint open.
func RequireScope(issuer *auth.TokenIssuer, scope string, next http.Handler) http.Handler {
	if issuer == nil {
		return next
	}
	log := logging.For("auth")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeUnauthorized(w, "Authorization header required")
			return
		}

		// Check Bearer token format
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeUnauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := issuer.Authorize(parts[1], scope)
		if err != nil {
			log.WithFields(logrus.Fields{
				"path":  r.URL.Path,
				"scope": scope,
			}).WithError(err).Warn("rejected operations token")
			if errors.Is(err, auth.ErrMissingScope) {
				http.Error(w, "Insufficient permissions", http.StatusForbidden)
				return
			}
			writeUnauthorized(w, "Invalid or expired token")
			return
		}

		log.WithField("subject", claims.Subject).Debug("operations token accepted")
		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="operations"`)
	http.Error(w, msg, http.StatusUnauthorized)
}
