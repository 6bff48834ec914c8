package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"anemiatrack/internal/infrastructure"
)

// CredentialVerifier checks a username/password pair against the
// credential store.
type CredentialVerifier interface {
	Authenticate(ctx context.Context, username, password string) error
}

// usernameKey carries the authenticated username through the context.
type usernameKey struct{}

// BasicAuth guards mutating endpoints with HTTP Basic credentials
// verified against the user collection.
func BasicAuth(verifier CredentialVerifier, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			username, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w, r, "Missing credentials")
				return
			}

			if err := verifier.Authenticate(ctx, username, password); err != nil {
				// A store outage is the server's fault, not the caller's.
				var stErr interface{ StoreError() }
				if errors.As(err, &stErr) {
					logger.ErrorContext(ctx, "credential store unavailable",
						"error", err,
						"path", r.URL.Path,
					)
					problem := ProblemFromStatus(
						http.StatusServiceUnavailable,
						"Credential store is unavailable",
						infrastructure.GetTraceID(ctx),
					)
					problem.Render(w, r)
					return
				}

				logger.WarnContext(ctx, "authentication failed",
					"username", username,
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				unauthorized(w, r, "Invalid username or password")
				return
			}

			ctx = context.WithValue(ctx, usernameKey{}, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticatedUser returns the username set by BasicAuth, if any.
func AuthenticatedUser(ctx context.Context) string {
	if username, ok := ctx.Value(usernameKey{}).(string); ok {
		return username
	}
	return ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="anemiatrack"`)
	problem := ProblemFromStatus(
		http.StatusUnauthorized,
		detail,
		infrastructure.GetTraceID(r.Context()),
	)
	problem.Render(w, r)
}
