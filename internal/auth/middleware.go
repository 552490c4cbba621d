// Package auth guards the admin API with a shared bearer token.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

var ErrUnauthorized = errors.New("unauthorized")

type Authenticator struct {
	token  []byte
	logger *slog.Logger
}

// NewAuthenticator returns an authenticator for token. An empty token
// rejects every request.
func NewAuthenticator(token string, logger *slog.Logger) *Authenticator {
	return &Authenticator{token: []byte(token), logger: logger}
}

// Check validates the Authorization header of r.
func (a *Authenticator) Check(r *http.Request) error {
	if len(a.token) == 0 {
		return ErrUnauthorized
	}
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(raw)), a.token) != 1 {
		return ErrUnauthorized
	}
	return nil
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.Check(r); err != nil {
			a.logger.Warn("rejected unauthenticated request", "method", r.Method, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			if err := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); err != nil {
				a.logger.Error("failed to encode error response", "error", err)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}
