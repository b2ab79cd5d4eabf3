package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/internal/entitlements"
	"github.com/sinavhub/sinavhub-backend/internal/users"
	pkgAuth "github.com/sinavhub/sinavhub-backend/pkg/auth"
	"github.com/sinavhub/sinavhub-backend/pkg/auth/session"
	"github.com/sinavhub/sinavhub-backend/pkg/claims"
	"github.com/sinavhub/sinavhub-backend/pkg/config"
	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "sinavhub",
		ExpirationMinutes: 30,
	}
}

func TestServiceRegisterCreatesUserAndEntitlement(t *testing.T) {
	userRepo := newStubUserRepo()
	entRepo := &stubEntRepo{}
	sessionMgr := &stubSessionManager{refreshToken: "refresh-token"}
	cfg := testJWTConfig()

	svc := buildTestService(t, userRepo, entRepo, sessionMgr, &stubClaimsReader{}, cfg)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "Aday@Example.com",
		Password: "correct horse",
		FullName: "Aday Deneme",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(userRepo.created) != 1 {
		t.Fatalf("expected 1 user created, got %d", len(userRepo.created))
	}
	created := userRepo.created[0]
	if created.Email != "aday@example.com" {
		t.Fatalf("expected lowercased email, got %q", created.Email)
	}
	if created.Role != enums.MemberRoleStudent {
		t.Fatalf("expected student role, got %s", created.Role)
	}
	if len(entRepo.saved) != 1 {
		t.Fatalf("expected 1 entitlement created, got %d", len(entRepo.saved))
	}
	if entRepo.saved[0].UserID != created.ID {
		t.Fatalf("entitlement bound to wrong user")
	}

	parsed, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if parsed.Premium {
		t.Fatalf("fresh account must not carry premium claim")
	}
	if resp.RefreshToken != "refresh-token" {
		t.Fatalf("expected refresh token from session manager")
	}
	if sessionMgr.generatedUserID != created.ID.String() {
		t.Fatalf("session generated for wrong user %q", sessionMgr.generatedUserID)
	}
}

func TestServiceRegisterDuplicateEmail(t *testing.T) {
	userRepo := newStubUserRepo()
	userRepo.createErr = errDuplicateEmail{}
	svc := buildTestService(t, userRepo, &stubEntRepo{}, &stubSessionManager{}, &stubClaimsReader{}, testJWTConfig())

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "aday@example.com",
		Password: "correct horse",
		FullName: "Aday Deneme",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestServiceLoginMintsPremiumClaims(t *testing.T) {
	password := "student-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "student@example.com",
		PasswordHash: mustHashPassword(t, password),
		FullName:     "Premium Student",
		Role:         enums.MemberRoleStudent,
	}
	userRepo := newStubUserRepo()
	userRepo.byEmail[user.Email] = user

	exp := time.Now().Add(30 * 24 * time.Hour).Unix()
	claimsReader := &stubClaimsReader{attrs: map[string]any{
		claims.AttrPremium:    true,
		claims.AttrPremiumExp: exp,
	}}
	sessionMgr := &stubSessionManager{refreshToken: "refresh-token"}
	cfg := testJWTConfig()
	svc := buildTestService(t, userRepo, &stubEntRepo{}, sessionMgr, claimsReader, cfg)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	parsed, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if !parsed.Premium {
		t.Fatalf("expected premium claim on token")
	}
	if parsed.PremiumExp == nil || *parsed.PremiumExp != exp {
		t.Fatalf("expected premium expiry %d, got %v", exp, parsed.PremiumExp)
	}
	if parsed.ID == "" {
		t.Fatalf("expected jti on token")
	}
	if sessionMgr.generatedAccessID != parsed.ID {
		t.Fatalf("session access id does not match token jti")
	}
}

func TestServiceLoginWrongPassword(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "student@example.com",
		PasswordHash: mustHashPassword(t, "right"),
		Role:         enums.MemberRoleStudent,
	}
	userRepo := newStubUserRepo()
	userRepo.byEmail[user.Email] = user
	svc := buildTestService(t, userRepo, &stubEntRepo{}, &stubSessionManager{}, &stubClaimsReader{}, testJWTConfig())

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: "wrong",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceLoginUnknownEmail(t *testing.T) {
	svc := buildTestService(t, newStubUserRepo(), &stubEntRepo{}, &stubSessionManager{}, &stubClaimsReader{}, testJWTConfig())

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceRefreshRotatesSession(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()
	oldToken, err := pkgAuth.MintAccessToken(cfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   enums.MemberRoleStudent,
		JTI:    "old-access",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	sessionMgr := &stubSessionManager{refreshToken: "refresh-token"}
	svc := buildTestService(t, newStubUserRepo(), &stubEntRepo{}, sessionMgr, &stubClaimsReader{}, cfg)

	resp, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  oldToken,
		RefreshToken: "refresh-token",
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	parsed, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if parsed.ID != "new-access" {
		t.Fatalf("expected rotated jti, got %q", parsed.ID)
	}
	if parsed.UserID != userID {
		t.Fatalf("rotated token bound to wrong user")
	}
	if resp.RefreshToken != "new-refresh" {
		t.Fatalf("expected rotated refresh token, got %q", resp.RefreshToken)
	}
	if sessionMgr.rotatedOldAccessID != "old-access" {
		t.Fatalf("rotate called with wrong access id %q", sessionMgr.rotatedOldAccessID)
	}
}

func TestServiceRefreshRejectsBadRefreshToken(t *testing.T) {
	cfg := testJWTConfig()
	oldToken, err := pkgAuth.MintAccessToken(cfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.MemberRoleStudent,
		JTI:    "old-access",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	svc := buildTestService(t, newStubUserRepo(), &stubEntRepo{}, &stubSessionManager{refreshToken: "refresh-token"}, &stubClaimsReader{}, cfg)

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  oldToken,
		RefreshToken: "stolen",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceLogoutRevokesSession(t *testing.T) {
	sessionMgr := &stubSessionManager{}
	svc := buildTestService(t, newStubUserRepo(), &stubEntRepo{}, sessionMgr, &stubClaimsReader{}, testJWTConfig())

	if err := svc.Logout(context.Background(), "access-123"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if sessionMgr.revokedAccessID != "access-123" {
		t.Fatalf("expected revoke of access-123, got %q", sessionMgr.revokedAccessID)
	}
}

func buildTestService(t *testing.T, userRepo *stubUserRepo, entRepo *stubEntRepo, sessionMgr *stubSessionManager, claimsReader *stubClaimsReader, cfg config.JWTConfig) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:        userRepo,
		EntitlementRepo: entRepo,
		Tx:              stubTx{},
		SessionManager:  sessionMgr,
		Claims:          claimsReader,
		JWTConfig:       cfg,
		PasswordConfig:  config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type errDuplicateEmail struct{}

func (errDuplicateEmail) Error() string {
	return `duplicate key value violates unique constraint "idx_users_email"`
}

type stubUserRepo struct {
	byEmail   map[string]*models.User
	created   []*models.User
	createErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: map[string]*models.User{}}
}

func (s *stubUserRepo) WithTx(tx *gorm.DB) users.Repository {
	return s
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.created = append(s.created, user)
	s.byEmail[user.Email] = user
	return user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubEntRepo struct {
	saved []*models.Entitlement
}

func (s *stubEntRepo) WithTx(tx *gorm.DB) entitlements.Repository {
	return s
}

func (s *stubEntRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Entitlement, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubEntRepo) FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Entitlement, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubEntRepo) Save(ctx context.Context, ent *models.Entitlement) error {
	s.saved = append(s.saved, ent)
	return nil
}

func (s *stubEntRepo) ListPremium(ctx context.Context, limit int, afterUserID uuid.UUID) ([]models.Entitlement, error) {
	return nil, nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubSessionManager struct {
	refreshToken       string
	generatedUserID    string
	generatedAccessID  string
	rotatedOldAccessID string
	revokedAccessID    string
}

func (s *stubSessionManager) Generate(ctx context.Context, userID, accessID string) (string, error) {
	s.generatedUserID = userID
	s.generatedAccessID = accessID
	return s.refreshToken, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, userID, oldAccessID, provided string) (string, string, error) {
	s.rotatedOldAccessID = oldAccessID
	if provided != s.refreshToken {
		return "", "", session.ErrInvalidRefreshToken
	}
	return "new-access", "new-refresh", nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revokedAccessID = accessID
	return nil
}

type stubClaimsReader struct {
	attrs map[string]any
}

func (s *stubClaimsReader) GetCustomClaims(ctx context.Context, userID string) (map[string]any, error) {
	if s.attrs == nil {
		return map[string]any{}, nil
	}
	return s.attrs, nil
}
