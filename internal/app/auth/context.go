package auth

import "context"

type adminCtxKey struct{}

type telegramCtxKey struct{}

func WithAdmin(ctx context.Context, a AdminIdentity) context.Context {
	return context.WithValue(ctx, adminCtxKey{}, a)
}

func AdminFromContext(ctx context.Context) (AdminIdentity, bool) {
	a, ok := ctx.Value(adminCtxKey{}).(AdminIdentity)
	return a, ok
}

func WithTelegramUser(ctx context.Context, u TelegramIdentity) context.Context {
	return context.WithValue(ctx, telegramCtxKey{}, u)
}

func TelegramUserFromContext(ctx context.Context) (TelegramIdentity, bool) {
	u, ok := ctx.Value(telegramCtxKey{}).(TelegramIdentity)
	return u, ok
}
