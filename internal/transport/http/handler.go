package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"storefront-tma-backend/internal/app/auth"
	"storefront-tma-backend/internal/apperror"
)

// AuthService is the interface that the auth domain service must satisfy.
// *auth.Service implements it; tests inject a stub.
type AuthService interface {
	TelegramAuthenticator
	AdminAuthenticator
	Login(ctx context.Context, in auth.LoginInput) (auth.LoginResult, error)
	Me(ctx context.Context, adminID uint) (auth.AdminProfile, error)
	SeedAdmin(ctx context.Context) (auth.AdminIdentity, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

const maxBodyBytes = 1 << 20

type Handler struct {
	Auth        AuthService
	DB          Pinger
	Logger      *zap.Logger
	SeedEnabled bool
}

// RegisterRoutes mounts the API on router. Guards are attached per route
// group so public routes never see them.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	tgAuth := TelegramAuthMiddleware{Auth: h.Auth, Logger: h.Logger}
	adminAuth := AdminAuthMiddleware{Auth: h.Auth, Logger: h.Logger}

	router.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	// Every /admin path lives on this one subrouter, guarded per route, so a
	// wrong method on any of them reaches the 405 handler.
	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/login", h.handleLogin).Methods(http.MethodPost)
	if h.SeedEnabled {
		admin.HandleFunc("/seed", h.handleSeed).Methods(http.MethodPost)
	}
	admin.Handle("/session", adminAuth.Optional(http.HandlerFunc(h.handleSession))).Methods(http.MethodGet)
	admin.Handle("/me", adminAuth.Wrap(http.HandlerFunc(h.handleMe))).Methods(http.MethodGet)
	admin.Handle("/logout", adminAuth.Wrap(http.HandlerFunc(h.handleLogout))).Methods(http.MethodPost)

	// Telegram user routes.
	users := api.PathPrefix("/users").Subrouter()
	users.Use(tgAuth.Wrap)
	users.HandleFunc("/me", h.handleProfile).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, h.Logger, apperror.ErrNotFound.WithMessage("Route not found"))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, h.Logger, apperror.New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed"))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.Ping(r.Context()); err != nil {
		writeError(w, r, h.Logger, apperror.ErrInternal.WithMessage("Database unavailable").Wrap(err))
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	res, err := h.Auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeData(w, http.StatusOK, res, "Login successful")
}

func (h *Handler) handleSeed(w http.ResponseWriter, r *http.Request) {
	admin, err := h.Auth.SeedAdmin(r.Context())
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	requestLog(h.Logger, r).Warn("bootstrap admin created through the seed endpoint; change its password",
		zap.Uint("admin_id", admin.ID))
	writeData(w, http.StatusOK, admin, "Admin created. Username: "+admin.Username)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	admin, ok := auth.AdminFromContext(r.Context())
	resp := struct {
		Authenticated bool                `json:"authenticated"`
		Admin         *auth.AdminIdentity `json:"admin,omitempty"`
	}{Authenticated: ok}
	if ok {
		resp.Admin = &admin
	}
	writeData(w, http.StatusOK, resp, "")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	admin, ok := auth.AdminFromContext(r.Context())
	if !ok {
		writeError(w, r, h.Logger, apperror.ErrUnauthorized)
		return
	}

	profile, err := h.Auth.Me(r.Context(), admin.ID)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeData(w, http.StatusOK, profile, "")
}

func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	// Tokens are stateless; the client drops its copy.
	writeData(w, http.StatusOK, nil, "Logout successful")
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.TelegramUserFromContext(r.Context())
	if !ok {
		writeError(w, r, h.Logger, apperror.ErrUnauthorized)
		return
	}
	writeData(w, http.StatusOK, user, "")
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ErrValidation.WithMessage("Request body is required")
		}
		return apperror.ErrValidation.WithMessage("Request body must be valid JSON")
	}
	return nil
}

// NewRouter assembles the full handler chain: request logging, panic
// recovery, CORS and the API routes.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	var handler http.Handler = router
	handler = CORS(allowedOrigins)(handler)
	handler = Recoverer(h.Logger)(handler)
	handler = RequestLogger(h.Logger)(handler)
	return handler
}
