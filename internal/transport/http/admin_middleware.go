package httptransport

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"storefront-tma-backend/internal/app/auth"
)

type AdminAuthenticator interface {
	AuthenticateAdmin(ctx context.Context, authorization string) (auth.AdminIdentity, error)
}

type AdminAuthMiddleware struct {
	Auth   AdminAuthenticator
	Logger *zap.Logger
}

// Wrap rejects the request unless it carries a valid admin bearer token.
func (m AdminAuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, err := m.Auth.AuthenticateAdmin(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, r, m.Logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithAdmin(r.Context(), admin)))
	})
}

// Optional attaches the admin when the token checks out and otherwise lets
// the request through untouched. Every failure is swallowed, configuration
// errors included.
func (m AdminAuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		admin, err := m.Auth.AuthenticateAdmin(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			requestLog(m.Logger, r).Debug("optional admin auth skipped", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithAdmin(r.Context(), admin)))
	})
}
