package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/platform/logger"
	"github.com/phrazzld/taskboard/internal/service/auth"
	"github.com/phrazzld/taskboard/internal/store"
)

// Password length bounds in characters. MaxPasswordLength also bounds the
// byte length since bcrypt ignores input beyond 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// TokenName is the name recorded on every issued access token.
const TokenName = "auth_token"

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// LoginInput carries the fields of a login request.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is returned to a client after a successful login.
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Principal identifies the caller of an authenticated request.
type Principal struct {
	UserID  int64
	TokenID uuid.UUID
}

// UserService provides account and session operations.
type UserService interface {
	// Register validates in and creates the user.
	// Returns store.ErrEmailExists if the email is taken.
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)

	// Login checks credentials and issues an access token.
	// Returns ErrInvalidCredentials for an unknown email or a wrong password.
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)

	// Logout revokes every access token of the user.
	Logout(ctx context.Context, userID int64) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID int64) (*domain.User, error)

	// Authenticate validates a bearer token and checks that it has not been revoked.
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

type userServiceImpl struct {
	db       *sqlx.DB
	users    store.UserStore
	tokens   store.TokenStore
	jwt      auth.JWTService
	hasher   auth.PasswordHasher
	verifier auth.PasswordVerifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewUserService creates a new UserService.
// It returns an error if any of the required dependencies are nil.
func NewUserService(
	db *sqlx.DB,
	users store.UserStore,
	tokens store.TokenStore,
	jwtService auth.JWTService,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	logger *slog.Logger,
) (UserService, error) {
	switch {
	case db == nil:
		return nil, domain.NewValidationError("db", "cannot be nil")
	case users == nil:
		return nil, domain.NewValidationError("users", "cannot be nil")
	case tokens == nil:
		return nil, domain.NewValidationError("tokens", "cannot be nil")
	case jwtService == nil:
		return nil, domain.NewValidationError("jwtService", "cannot be nil")
	case hasher == nil:
		return nil, domain.NewValidationError("hasher", "cannot be nil")
	case verifier == nil:
		return nil, domain.NewValidationError("verifier", "cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &userServiceImpl{
		db:       db,
		users:    users,
		tokens:   tokens,
		jwt:      jwtService,
		hasher:   hasher,
		verifier: verifier,
		logger:   logger.With(slog.String("component", "user_service")),
		now:      time.Now,
	}, nil
}

func (s *userServiceImpl) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	v := &domain.ValidationError{}
	switch n := utf8.RuneCountInString(in.Password); {
	case n == 0:
		v.Add("password", "The password field is required.")
	case n < MinPasswordLength:
		v.Add("password", fmt.Sprintf("The password must be at least %d characters.", MinPasswordLength))
	case n > MaxPasswordLength:
		v.Add("password", fmt.Sprintf("The password may not be greater than %d characters.", MaxPasswordLength))
	case len(in.Password) > MaxPasswordLength:
		v.Add("password", fmt.Sprintf("The password may not be greater than %d bytes.", MaxPasswordLength))
	case in.Password != in.PasswordConfirmation:
		v.Add("password", "The password confirmation does not match.")
	}

	var hash string
	if v.Empty() {
		var err error
		if hash, err = s.hasher.Hash(in.Password); err != nil {
			log.Error("failed to hash password", slog.String("error", err.Error()))
			return nil, NewServiceError("user", "register", "failed to hash password", err)
		}
	}

	user, err := domain.NewUser(in.Name, in.Email, hash, s.now())
	if err := mergeMissing(v, err); err != nil {
		return nil, err
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return s.users.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			log.Debug("attempted to register with existing email")
		} else {
			log.Error("failed to save user", slog.String("error", err.Error()))
		}
		return nil, NewServiceError("user", "register", "failed to save user", err)
	}

	log.Info("user registered", slog.Int64("user_id", user.ID))
	return user, nil
}

func (s *userServiceImpl) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	v := &domain.ValidationError{}
	if domain.NormalizeEmail(in.Email) == "" {
		v.Add("email", "The email field is required.")
	}
	if in.Password == "" {
		v.Add("password", "The password field is required.")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("login attempt for unknown email")
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to look up user", slog.String("error", err.Error()))
		return nil, NewServiceError("user", "login", "failed to look up user", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			log.Debug("login attempt with wrong password", slog.Int64("user_id", user.ID))
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to compare password", slog.String("error", err.Error()))
		return nil, NewServiceError("user", "login", "failed to verify password", err)
	}

	issued, err := s.jwt.GenerateToken(ctx, user.ID)
	if err != nil {
		log.Error("failed to generate token", slog.String("error", err.Error()))
		return nil, NewServiceError("user", "login", "failed to generate token", err)
	}

	record := &domain.AccessToken{
		UserID:    user.ID,
		TokenID:   issued.TokenID,
		Name:      TokenName,
		ExpiresAt: issued.ExpiresAt,
		CreatedAt: s.now().UTC(),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		log.Error("failed to record access token", slog.String("error", err.Error()))
		return nil, NewServiceError("user", "login", "failed to record token", err)
	}

	log.Info("user logged in", slog.Int64("user_id", user.ID))
	return &LoginResult{
		AccessToken: issued.Token,
		TokenType:   "Bearer",
		ExpiresAt:   issued.ExpiresAt,
	}, nil
}

func (s *userServiceImpl) Logout(ctx context.Context, userID int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	n, err := s.tokens.DeleteAllForUser(ctx, userID)
	if err != nil {
		log.Error("failed to revoke tokens",
			slog.String("error", err.Error()),
			slog.Int64("user_id", userID))
		return NewServiceError("user", "logout", "failed to revoke tokens", err)
	}

	log.Info("user logged out",
		slog.Int64("user_id", userID),
		slog.Int64("revoked_tokens", n))
	return nil
}

func (s *userServiceImpl) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !store.IsNotFoundError(err) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to retrieve user",
				slog.String("error", err.Error()),
				slog.Int64("user_id", userID))
		}
		return nil, NewServiceError("user", "get", "failed to retrieve user", err)
	}
	return user, nil
}

func (s *userServiceImpl) Authenticate(ctx context.Context, token string) (*Principal, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	claims, err := s.jwt.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	record, err := s.tokens.GetByTokenID(ctx, claims.TokenID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, auth.ErrRevokedToken
		}
		log.Error("failed to look up access token", slog.String("error", err.Error()))
		return nil, NewServiceError("user", "authenticate", "failed to look up token", err)
	}
	if record.UserID != claims.UserID {
		return nil, auth.ErrRevokedToken
	}

	now := s.now()
	if record.Expired(now) {
		return nil, auth.ErrExpiredToken
	}
	if err := s.tokens.Touch(ctx, claims.TokenID, now.UTC()); err != nil {
		log.Warn("failed to record token use", slog.String("error", err.Error()))
	}

	return &Principal{UserID: claims.UserID, TokenID: claims.TokenID}, nil
}
