package httptransport

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"storefront-tma-backend/internal/app/auth"
)

const InitDataHeader = "X-Telegram-Init-Data"

type TelegramAuthenticator interface {
	AuthenticateTelegram(ctx context.Context, initData string) (auth.TelegramIdentity, error)
}

type TelegramAuthMiddleware struct {
	Auth   TelegramAuthenticator
	Logger *zap.Logger
}

func (m TelegramAuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.Auth.AuthenticateTelegram(r.Context(), r.Header.Get(InitDataHeader))
		if err != nil {
			writeError(w, r, m.Logger, err)
			return
		}

		ctx := auth.WithTelegramUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
