package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"almoner/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the caller address.
type TokenValidator interface {
	Validate(tokenString string) (string, error)
}

// RequireCaller authenticates the request and injects the caller address
// into the context via requestcontext. Requests without a valid bearer token
// get 401: every ledger operation, even the deliberately open ones, needs an
// attributable caller identity.
func RequireCaller(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeAuthError(w, "missing bearer token")
				return
			}
			addr, err := validator.Validate(raw)
			if err != nil {
				logger.Warn("rejected token",
					"error", err, "request_id", requestcontext.RequestID(r.Context()))
				writeAuthError(w, "invalid token")
				return
			}
			ctx := requestcontext.WithCaller(r.Context(), addr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             "unauthorized",
		"error_description": desc,
	})
}
