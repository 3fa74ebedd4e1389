package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"storefront-tma-backend/internal/apperror"
	"storefront-tma-backend/internal/password"
	"storefront-tma-backend/internal/store"
	"storefront-tma-backend/internal/telegram"
	"storefront-tma-backend/internal/token"
)

// ---------------------------------------------------------------------------
// Domain types (passed to/from handlers)
// ---------------------------------------------------------------------------

type AdminIdentity struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type AdminProfile struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type TelegramIdentity struct {
	ID         uint    `json:"id"`
	TelegramID int64   `json:"telegramId"`
	Username   *string `json:"username"`
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	PhotoURL   *string `json:"photoUrl"`
}

type LoginInput struct {
	Username string `json:"username" validate:"notblank,max=255"`
	Password string `json:"password" validate:"notblank,maxbytes=72"`
}

type LoginResult struct {
	Token string        `json:"token"`
	Admin AdminIdentity `json:"admin"`
}

// SeedUsername is the login of the admin created by SeedAdmin.
const SeedUsername = "admin"

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Store is the identity storage the service needs. *store.Store implements
// it; tests substitute a stub.
type Store interface {
	UpsertTelegramUser(ctx context.Context, p store.TelegramProfile) (store.User, error)
	AdminByID(ctx context.Context, id uint) (store.Admin, error)
	AdminByUsername(ctx context.Context, username string) (store.Admin, error)
	CreateFirstAdmin(ctx context.Context, username, passwordHash string) (store.Admin, error)
}

type Options struct {
	BotToken       string
	JWTSecret      string
	InitDataMaxAge time.Duration
	SeedPassword   string
	// PasswordCost is the bcrypt cost for new hashes; 0 means password.DefaultCost.
	PasswordCost int
	Now          func() time.Time
}

type Service struct {
	store          Store
	tokens         *token.Manager
	botToken       string
	initDataMaxAge time.Duration
	seedPassword   string
	passwordCost   int
	now            func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewService(st Store, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.InitDataMaxAge <= 0 {
		opts.InitDataMaxAge = telegram.DefaultMaxAge
	}
	if opts.PasswordCost == 0 {
		opts.PasswordCost = password.DefaultCost
	}
	return &Service{
		store:          st,
		tokens:         token.NewManager(opts.JWTSecret).WithClock(opts.Now),
		botToken:       opts.BotToken,
		initDataMaxAge: opts.InitDataMaxAge,
		seedPassword:   opts.SeedPassword,
		passwordCost:   opts.PasswordCost,
		now:            opts.Now,
	}
}

// ---------------------------------------------------------------------------
// Telegram session
// ---------------------------------------------------------------------------

// AuthenticateTelegram verifies initData and returns the stored identity of
// its user, creating or refreshing the row. Expiry is only reported for
// payloads whose signature is valid.
func (s *Service) AuthenticateTelegram(ctx context.Context, initData string) (TelegramIdentity, error) {
	if s.botToken == "" {
		return TelegramIdentity{}, apperror.ErrConfiguration.WithMessage("Telegram bot token is not configured")
	}
	if initData == "" {
		return TelegramIdentity{}, apperror.ErrUnauthorized.WithMessage("Telegram initData is required")
	}
	if !telegram.Validate(initData, s.botToken) {
		return TelegramIdentity{}, apperror.ErrInvalidInitData
	}
	if telegram.IsExpiredAt(initData, s.initDataMaxAge, s.now()) {
		return TelegramIdentity{}, apperror.ErrInitDataExpired
	}

	user, err := telegram.ParseUser(initData)
	if errors.Is(err, telegram.ErrNoUserData) {
		return TelegramIdentity{}, apperror.ErrNoUserData
	}
	if err != nil {
		return TelegramIdentity{}, apperror.ErrInvalidInitData.Wrap(err)
	}

	row, err := s.store.UpsertTelegramUser(ctx, store.TelegramProfile{
		TelegramID: user.ID,
		Username:   user.Username,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		PhotoURL:   user.PhotoURL,
	})
	if err != nil {
		return TelegramIdentity{}, apperror.ErrInternal.Wrap(err)
	}
	return TelegramIdentity{
		ID:         row.ID,
		TelegramID: row.TelegramID,
		Username:   row.Username,
		FirstName:  row.FirstName,
		LastName:   row.LastName,
		PhotoURL:   row.PhotoURL,
	}, nil
}

// ---------------------------------------------------------------------------
// Admin session
// ---------------------------------------------------------------------------

// AuthenticateAdmin resolves the value of an Authorization header to an
// active admin.
func (s *Service) AuthenticateAdmin(ctx context.Context, authorization string) (AdminIdentity, error) {
	raw, ok := bearerToken(authorization)
	if !ok {
		return AdminIdentity{}, apperror.ErrUnauthorized.WithMessage("Authorization token is required")
	}
	if !s.tokens.Configured() {
		return AdminIdentity{}, apperror.ErrConfiguration.WithMessage("JWT secret is not configured")
	}

	claims, err := s.tokens.Parse(raw)
	if errors.Is(err, token.ErrExpired) {
		return AdminIdentity{}, apperror.ErrTokenExpired
	}
	if err != nil {
		return AdminIdentity{}, apperror.ErrInvalidToken.Wrap(err)
	}

	admin, err := s.store.AdminByID(ctx, claims.AdminID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !admin.IsActive) {
		return AdminIdentity{}, apperror.ErrUnauthorized.WithMessage("Admin not found or inactive")
	}
	if err != nil {
		return AdminIdentity{}, apperror.ErrInternal.Wrap(err)
	}
	return AdminIdentity{ID: admin.ID, Username: admin.Username}, nil
}

func bearerToken(header string) (string, bool) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// Login checks the credentials and issues a token valid for token.TTL.
// Unknown user, inactive user and wrong password are indistinguishable.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if details := validateStruct(in); details != nil {
		return LoginResult{}, apperror.ErrValidation.WithDetails(details)
	}
	if !s.tokens.Configured() {
		return LoginResult{}, apperror.ErrConfiguration.WithMessage("JWT secret is not configured")
	}

	admin, err := s.store.AdminByUsername(ctx, in.Username)
	if errors.Is(err, store.ErrNotFound) {
		// Same bcrypt work as a real comparison so timing does not reveal
		// whether the username exists.
		_ = password.Compare(s.dummyPasswordHash(), in.Password)
		return LoginResult{}, apperror.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, apperror.ErrInternal.Wrap(err)
	}

	err = password.Compare(admin.Password, in.Password)
	if errors.Is(err, password.ErrMismatchedPassword) || (err == nil && !admin.IsActive) {
		return LoginResult{}, apperror.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, apperror.ErrInternal.Wrap(err)
	}

	signed, _, err := s.tokens.Issue(admin.ID, admin.Username)
	if err != nil {
		return LoginResult{}, apperror.ErrInternal.Wrap(err)
	}
	return LoginResult{
		Token: signed,
		Admin: AdminIdentity{ID: admin.ID, Username: admin.Username},
	}, nil
}

func (s *Service) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = password.HashWithCost("not-a-real-password", s.passwordCost)
	})
	return s.dummyHash
}

func (s *Service) Me(ctx context.Context, adminID uint) (AdminProfile, error) {
	admin, err := s.store.AdminByID(ctx, adminID)
	if errors.Is(err, store.ErrNotFound) {
		return AdminProfile{}, apperror.ErrNotFound.WithMessage("Admin not found")
	}
	if err != nil {
		return AdminProfile{}, apperror.ErrInternal.Wrap(err)
	}
	return AdminProfile{
		ID:        admin.ID,
		Username:  admin.Username,
		IsActive:  admin.IsActive,
		CreatedAt: admin.CreatedAt,
	}, nil
}

// SeedAdmin creates the bootstrap admin. It succeeds at most once: as soon
// as any admin exists it returns ALREADY_EXISTS.
func (s *Service) SeedAdmin(ctx context.Context) (AdminIdentity, error) {
	if s.seedPassword == "" {
		return AdminIdentity{}, apperror.ErrConfiguration.WithMessage("Seed password is not configured")
	}

	hash, err := password.HashWithCost(s.seedPassword, s.passwordCost)
	if err != nil {
		return AdminIdentity{}, apperror.ErrInternal.Wrap(err)
	}

	admin, err := s.store.CreateFirstAdmin(ctx, SeedUsername, hash)
	if errors.Is(err, store.ErrAdminExists) {
		return AdminIdentity{}, apperror.ErrAlreadyExists.WithMessage("Admin already exists")
	}
	if err != nil {
		return AdminIdentity{}, apperror.ErrInternal.Wrap(err)
	}
	return AdminIdentity{ID: admin.ID, Username: admin.Username}, nil
}
