package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

// Human-readable failure reasons surfaced to the browser through flash state.
const (
	reasonUserExists      = "user already exists"
	reasonUserMissing     = "user does not exist"
	reasonWrongPassword   = "incorrect password"
	reasonOAuthOnly       = "this account signs in with GitHub"
	reasonAdminReset      = "the admin account cannot be reset"
	reasonNoProviderEmail = "the GitHub account has no verified email"
)

// ErrUnknownIdentity marks a session identity that no longer resolves.
var ErrUnknownIdentity = errors.New("session identity no longer exists")

// Service maps credential strategies onto principals.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Principal, error)
	Login(ctx context.Context, req LoginRequest) (*Principal, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	OAuthLogin(ctx context.Context, profile Profile) (*Principal, error)
	Resolve(ctx context.Context, identity string) (*Principal, error)
}

type userRepository interface {
	Create(ctx context.Context, dto users.NewUser) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	AdminConfig    config.AdminConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	users     userRepository
	admin     config.AdminConfig
	passwords *security.Hasher
	logg      *logger.Logger
}

// NewService constructs the auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if strings.TrimSpace(params.AdminConfig.Email) == "" {
		return nil, fmt.Errorf("admin email required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		users:     params.UserRepo,
		admin:     params.AdminConfig,
		passwords: security.NewHasher(params.PasswordConfig),
		logg:      logg,
	}, nil
}

func (s *service) isAdminEmail(email string) bool {
	return strings.EqualFold(strings.TrimSpace(email), strings.TrimSpace(s.admin.Email))
}

func authFailure(reason string) error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, reason)
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Principal, error) {
	if s.isAdminEmail(req.Email) {
		return nil, authFailure(reasonUserExists)
	}
	email := users.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	var birth *time.Time
	if v := strings.TrimSpace(req.BirthDate); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "birthDate must be YYYY-MM-DD")
		}
		birth = &parsed
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, reasonUserExists)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find user")
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.NewUser{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        email,
		BirthDate:    birth,
		PasswordHash: hash,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, reasonUserExists)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create user")
	}
	return userPrincipal(user), nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Principal, error) {
	if s.isAdminEmail(req.Email) {
		if s.admin.Password == "" || subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.admin.Password)) != 1 {
			return nil, authFailure(reasonWrongPassword)
		}
		return adminPrincipal(s.admin.Email), nil
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authFailure(reasonUserMissing)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find user")
	}
	if user.PasswordHash == "" {
		return nil, authFailure(reasonOAuthOnly)
	}

	ok, err := s.passwords.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, authFailure(reasonWrongPassword)
	}
	if s.passwords.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, req.Password)
	}
	return userPrincipal(user), nil
}

// rehash upgrades a stored hash to the current costs. The login already
// succeeded, so failures are only logged.
func (s *service) rehash(ctx context.Context, userID uuid.UUID, password string) {
	hash, err := s.passwords.Hash(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"user_id": userID.String(),
			"error":   err.Error(),
		}), "auth.rehash_failed")
	}
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if s.isAdminEmail(req.Email) {
		return authFailure(reasonAdminReset)
	}
	if req.Password == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, reasonUserMissing)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find user")
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update password")
	}
	return nil
}

// OAuthLogin finds the account for the provider email, creating a shadow
// account without a password on first sign-in.
func (s *service) OAuthLogin(ctx context.Context, profile Profile) (*Principal, error) {
	email := users.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, authFailure(reasonNoProviderEmail)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return userPrincipal(user), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find user")
	}

	first, last := profile.Names()
	user, err = s.users.Create(ctx, users.NewUser{FirstName: first, LastName: last, Email: email})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_users_email") {
			if existing, findErr := s.users.FindByEmail(ctx, email); findErr == nil {
				return userPrincipal(existing), nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create user")
	}
	return userPrincipal(user), nil
}

// Resolve re-fetches the principal for a session identity.
func (s *service) Resolve(ctx context.Context, identity string) (*Principal, error) {
	if identity == AdminIdentity {
		return adminPrincipal(s.admin.Email), nil
	}
	id, err := uuid.Parse(identity)
	if err != nil {
		return nil, ErrUnknownIdentity
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownIdentity
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find user")
	}
	return userPrincipal(user), nil
}
