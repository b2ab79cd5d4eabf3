package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/internal/entitlements"
	"github.com/sinavhub/sinavhub-backend/internal/users"
	pkgAuth "github.com/sinavhub/sinavhub-backend/pkg/auth"
	"github.com/sinavhub/sinavhub-backend/pkg/auth/session"
	"github.com/sinavhub/sinavhub-backend/pkg/claims"
	"github.com/sinavhub/sinavhub-backend/pkg/config"
	"github.com/sinavhub/sinavhub-backend/pkg/db"
	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

const emailUniqueConstraint = "idx_users_email"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error)
	Logout(ctx context.Context, accessID string) error
}

type service struct {
	users        userRepository
	entitlements entitlementRepository
	tx           txRunner
	session      sessionManager
	claims       claimsReader
	jwtCfg       config.JWTConfig
	pwCfg        config.PasswordConfig
	now          func() time.Time
}

type userRepository interface {
	WithTx(tx *gorm.DB) users.Repository
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type entitlementRepository interface {
	WithTx(tx *gorm.DB) entitlements.Repository
	Save(ctx context.Context, ent *models.Entitlement) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionManager interface {
	Generate(ctx context.Context, userID, accessID string) (string, error)
	Rotate(ctx context.Context, userID, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type claimsReader interface {
	GetCustomClaims(ctx context.Context, userID string) (map[string]any, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo        userRepository
	EntitlementRepo entitlementRepository
	Tx              txRunner
	SessionManager sessionManager
	Claims         claimsReader
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Now            func() time.Time
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.EntitlementRepo == nil {
		return nil, fmt.Errorf("entitlement repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Claims == nil {
		return nil, fmt.Errorf("claims reader is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		users:        params.UserRepo,
		entitlements: params.EntitlementRepo,
		tx:           params.Tx,
		session:      params.SessionManager,
		claims:       params.Claims,
		jwtCfg:       params.JWTConfig,
		pwCfg:        params.PasswordConfig,
		now:          now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	hash, err := security.HashPassword(req.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         enums.MemberRoleStudent,
	}

	// The account and its entitlement row are created together so every
	// user has an entitlement record from the first request onward.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)
		created, err := repo.Create(ctx, user)
		if err != nil {
			if db.IsUniqueViolation(err, emailUniqueConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		user = created
		ent := &models.Entitlement{
			UserID:             user.ID,
			OwnedPackages:      map[string]bool{},
			PackageExpiryDates: map[string]*time.Time{},
			LastUpdated:        s.now(),
		}
		if err := s.entitlements.WithTx(tx).Save(ctx, ent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create entitlement")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error) {
	parsed, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	if parsed.UserID == uuid.Nil || parsed.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	userID := parsed.UserID.String()
	newAccessID, newRefresh, err := s.session.Rotate(ctx, userID, parsed.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	premium, premiumExp := s.premiumAttrs(ctx, userID)
	tokenPayload := pkgAuth.AccessTokenPayload{
		UserID:     parsed.UserID,
		Role:       parsed.Role,
		Premium:    premium,
		PremiumExp: premiumExp,
		JTI:        newAccessID,
	}
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), tokenPayload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
	}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access id is required")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

func (s *service) issueTokens(ctx context.Context, user *models.User) (*LoginResponse, error) {
	premium, premiumExp := s.premiumAttrs(ctx, user.ID.String())

	accessID := session.NewAccessID()
	tokenPayload := pkgAuth.AccessTokenPayload{
		UserID:     user.ID,
		Role:       user.Role,
		Premium:    premium,
		PremiumExp: premiumExp,
		JTI:        accessID,
	}
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), tokenPayload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, user.ID.String(), accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

// premiumAttrs reads the cached credential attributes. A read failure never
// blocks login; the token is simply minted without the premium flag.
func (s *service) premiumAttrs(ctx context.Context, userID string) (bool, *int64) {
	attrs, err := s.claims.GetCustomClaims(ctx, userID)
	if err != nil {
		return false, nil
	}
	return claims.PremiumFromClaims(attrs)
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}
