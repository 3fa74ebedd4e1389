package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront-tma-backend/internal/app/auth"
	"storefront-tma-backend/internal/apperror"
)

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

// mockAuthService implements AuthService for tests. Each method field can be
// overridden per test; the zero value returns an empty result and no error.
type mockAuthService struct {
	authenticateTelegramFn func(ctx context.Context, initData string) (auth.TelegramIdentity, error)
	authenticateAdminFn    func(ctx context.Context, authorization string) (auth.AdminIdentity, error)
	loginFn                func(ctx context.Context, in auth.LoginInput) (auth.LoginResult, error)
	meFn                   func(ctx context.Context, adminID uint) (auth.AdminProfile, error)
	seedAdminFn            func(ctx context.Context) (auth.AdminIdentity, error)
}

func (m *mockAuthService) AuthenticateTelegram(ctx context.Context, initData string) (auth.TelegramIdentity, error) {
	if m.authenticateTelegramFn != nil {
		return m.authenticateTelegramFn(ctx, initData)
	}
	return auth.TelegramIdentity{}, nil
}

func (m *mockAuthService) AuthenticateAdmin(ctx context.Context, authorization string) (auth.AdminIdentity, error) {
	if m.authenticateAdminFn != nil {
		return m.authenticateAdminFn(ctx, authorization)
	}
	return auth.AdminIdentity{}, nil
}

func (m *mockAuthService) Login(ctx context.Context, in auth.LoginInput) (auth.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, in)
	}
	return auth.LoginResult{}, nil
}

func (m *mockAuthService) Me(ctx context.Context, adminID uint) (auth.AdminProfile, error) {
	if m.meFn != nil {
		return m.meFn(ctx, adminID)
	}
	return auth.AdminProfile{}, nil
}

func (m *mockAuthService) SeedAdmin(ctx context.Context) (auth.AdminIdentity, error) {
	if m.seedAdminFn != nil {
		return m.seedAdminFn(ctx)
	}
	return auth.AdminIdentity{}, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// captureNext records whether it was reached and what identities it saw.
type captureNext struct {
	called bool
	admin  *auth.AdminIdentity
	user   *auth.TelegramIdentity
}

func (c *captureNext) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.called = true
	if a, ok := auth.AdminFromContext(r.Context()); ok {
		c.admin = &a
	}
	if u, ok := auth.TelegramUserFromContext(r.Context()); ok {
		c.user = &u
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// TelegramAuthMiddleware
// ---------------------------------------------------------------------------

func TestTelegramAuthMiddleware_AttachesIdentity(t *testing.T) {
	var gotInitData string
	svc := &mockAuthService{
		authenticateTelegramFn: func(_ context.Context, initData string) (auth.TelegramIdentity, error) {
			gotInitData = initData
			return auth.TelegramIdentity{ID: 3, TelegramID: 42}, nil
		},
	}
	next := &captureNext{}
	mw := TelegramAuthMiddleware{Auth: svc, Logger: zap.NewNop()}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set(InitDataHeader, "auth_date=1&hash=abc")
	rec := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "auth_date=1&hash=abc", gotInitData)
	require.NotNil(t, next.user)
	assert.Equal(t, int64(42), next.user.TelegramID)
}

func TestTelegramAuthMiddleware_RejectsWithEnvelope(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperror.ErrConfiguration, http.StatusInternalServerError},
		{apperror.ErrUnauthorized, http.StatusUnauthorized},
		{apperror.ErrInvalidInitData, http.StatusUnauthorized},
		{apperror.ErrInitDataExpired, http.StatusUnauthorized},
		{apperror.ErrNoUserData, http.StatusUnauthorized},
		{apperror.ErrInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(apperror.From(tt.err).Code, func(t *testing.T) {
			svc := &mockAuthService{
				authenticateTelegramFn: func(context.Context, string) (auth.TelegramIdentity, error) {
					return auth.TelegramIdentity{}, tt.err
				},
			}
			next := &captureNext{}
			rec := httptest.NewRecorder()
			TelegramAuthMiddleware{Auth: svc, Logger: zap.NewNop()}.Wrap(next).
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.False(t, next.called)
			assert.Equal(t, tt.status, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, apperror.From(tt.err).Code, env.Error.Code)
		})
	}
}

// ---------------------------------------------------------------------------
// AdminAuthMiddleware
// ---------------------------------------------------------------------------

func TestAdminAuthMiddleware_Wrap(t *testing.T) {
	svc := &mockAuthService{
		authenticateAdminFn: func(_ context.Context, authorization string) (auth.AdminIdentity, error) {
			if authorization != "Bearer good" {
				return auth.AdminIdentity{}, apperror.ErrInvalidToken
			}
			return auth.AdminIdentity{ID: 1, Username: "admin"}, nil
		},
	}
	mw := AdminAuthMiddleware{Auth: svc, Logger: zap.NewNop()}

	next := &captureNext{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rec, req)
	require.NotNil(t, next.admin)
	assert.Equal(t, "admin", next.admin.Username)

	next = &captureNext{}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec = httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rec, req)
	assert.False(t, next.called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperror.CodeInvalidToken, decodeEnvelope(t, rec).Error.Code)
}

func TestAdminAuthMiddleware_OptionalSwallowsEverything(t *testing.T) {
	for _, err := range []error{apperror.ErrConfiguration, apperror.ErrTokenExpired, apperror.ErrInternal} {
		svc := &mockAuthService{
			authenticateAdminFn: func(context.Context, string) (auth.AdminIdentity, error) {
				return auth.AdminIdentity{}, err
			},
		}
		next := &captureNext{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer whatever")
		rec := httptest.NewRecorder()
		AdminAuthMiddleware{Auth: svc, Logger: zap.NewNop()}.Optional(next).ServeHTTP(rec, req)

		assert.True(t, next.called, err.Error())
		assert.Nil(t, next.admin)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestAdminAuthMiddleware_OptionalAttachesWhenValid(t *testing.T) {
	svc := &mockAuthService{
		authenticateAdminFn: func(context.Context, string) (auth.AdminIdentity, error) {
			return auth.AdminIdentity{ID: 9, Username: "ops"}, nil
		},
	}
	next := &captureNext{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	AdminAuthMiddleware{Auth: svc, Logger: zap.NewNop()}.Optional(next).ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, next.admin)
	assert.Equal(t, uint(9), next.admin.ID)
}

func TestAdminAuthMiddleware_OptionalWithoutHeaderSkipsLookup(t *testing.T) {
	svc := &mockAuthService{
		authenticateAdminFn: func(context.Context, string) (auth.AdminIdentity, error) {
			t.Fatal("authenticator must not be called without a header")
			return auth.AdminIdentity{}, nil
		},
	}
	next := &captureNext{}
	AdminAuthMiddleware{Auth: svc, Logger: zap.NewNop()}.Optional(next).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, next.called)
}

// ---------------------------------------------------------------------------
// Request id / recovery
// ---------------------------------------------------------------------------

func TestRequestLogger_SetsRequestID(t *testing.T) {
	var seen string
	h := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	const supplied = "5b0f4a7e-8d0c-4c59-9a3e-3f1f0b6f3a11"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, supplied)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, supplied, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not a uuid\nInjected: yes")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "not a uuid\nInjected: yes", seen)
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, apperror.CodeInternal, env.Error.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}
