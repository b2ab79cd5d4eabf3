package entitlements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/pkg/claims"
	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type claimsService interface {
	GetCustomClaims(ctx context.Context, userID string) (map[string]any, error)
	SetCustomClaims(ctx context.Context, userID string, attrs map[string]any) error
}

// Service exposes the admin-facing package grant operations.
type Service interface {
	AddPackage(ctx context.Context, userID uuid.UUID, key enums.PackageKey, durationHours int) (*models.Entitlement, error)
	ExtendPackage(ctx context.Context, userID uuid.UUID, key enums.PackageKey, additionalHours int) (*models.Entitlement, error)
	RemovePackage(ctx context.Context, userID uuid.UUID, key enums.PackageKey) (*models.Entitlement, error)
	GetEntitlement(ctx context.Context, userID uuid.UUID) (*models.Entitlement, error)
}

// ServiceParams wires the entitlement service dependencies.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Claims claimsService
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo   Repository
	tx     txRunner
	claims claimsService
	logger *logger.Logger
	now    func() time.Time
}

// NewService validates the dependencies and builds the service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("entitlements repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Claims == nil {
		return nil, fmt.Errorf("claims service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		claims: params.Claims,
		logger: params.Logger,
		now:    now,
	}, nil
}

func (s *service) AddPackage(ctx context.Context, userID uuid.UUID, key enums.PackageKey, durationHours int) (*models.Entitlement, error) {
	if err := validateGrantInput(userID, key); err != nil {
		return nil, err
	}
	if durationHours <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration_hours must be positive")
	}

	now := s.now()
	ent, err := s.mutate(ctx, userID, func(ent *models.Entitlement) error {
		ApplyGrant(ent, key, ComputeExpiry(now, durationHours), now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithFields(ctx, map[string]any{"package_key": key.String(), "duration_hours": durationHours})
	s.logger.Info(s.logger.WithUserID(ctx, userID.String()), "package granted")

	s.refreshPremiumClaims(ctx, userID, ent)
	return ent, nil
}

func (s *service) ExtendPackage(ctx context.Context, userID uuid.UUID, key enums.PackageKey, additionalHours int) (*models.Entitlement, error) {
	if err := validateGrantInput(userID, key); err != nil {
		return nil, err
	}
	if additionalHours <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "additional_hours must be positive")
	}

	now := s.now()
	ent, err := s.mutate(ctx, userID, func(ent *models.Entitlement) error {
		if !ent.OwnedPackages[key.String()] {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "package not owned")
		}
		ApplyGrant(ent, key, ExtendExpiry(ent.PackageExpiryDates[key.String()], now, additionalHours), now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithFields(ctx, map[string]any{"package_key": key.String(), "additional_hours": additionalHours})
	s.logger.Info(s.logger.WithUserID(ctx, userID.String()), "package extended")

	s.refreshPremiumClaims(ctx, userID, ent)
	return ent, nil
}

func (s *service) RemovePackage(ctx context.Context, userID uuid.UUID, key enums.PackageKey) (*models.Entitlement, error) {
	if err := validateGrantInput(userID, key); err != nil {
		return nil, err
	}

	now := s.now()
	ent, err := s.mutate(ctx, userID, func(ent *models.Entitlement) error {
		if !ent.OwnedPackages[key.String()] {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "package not owned")
		}
		ApplyRevoke(ent, key, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithField(ctx, "package_key", key.String())
	s.logger.Info(s.logger.WithUserID(ctx, userID.String()), "package removed")

	s.refreshPremiumClaims(ctx, userID, ent)
	return ent, nil
}

func (s *service) GetEntitlement(ctx context.Context, userID uuid.UUID) (*models.Entitlement, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	ent, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "entitlement record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup entitlement")
	}
	return ent, nil
}

// mutate loads the entitlement row under a FOR UPDATE lock, applies fn, and
// saves the result inside one transaction.
func (s *service) mutate(ctx context.Context, userID uuid.UUID, fn func(ent *models.Entitlement) error) (*models.Entitlement, error) {
	var result *models.Entitlement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ent, err := repo.FindByUserIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "entitlement record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup entitlement")
		}
		if err := fn(ent); err != nil {
			return err
		}
		if err := repo.Save(ctx, ent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save entitlement")
		}
		result = ent
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// refreshPremiumClaims merges the premium state into the user's custom
// credential attributes. Best effort: the entitlement row is already the
// source of truth, so a claims write failure is logged, not surfaced.
func (s *service) refreshPremiumClaims(ctx context.Context, userID uuid.UUID, ent *models.Entitlement) {
	attrs, err := s.claims.GetCustomClaims(ctx, userID.String())
	if err != nil {
		s.logger.Error(s.logger.WithUserID(ctx, userID.String()), "fetch custom claims", err)
		return
	}

	if _, ok := attrs[claims.AttrAdmin]; ok {
		s.logger.Info(s.logger.WithUserID(ctx, userID.String()), "custom claims carry admin marker, preserving it")
	}

	if ent.IsPremium && ent.PremiumExpiryDate != nil {
		attrs[claims.AttrPremium] = true
		attrs[claims.AttrPremiumExp] = ent.PremiumExpiryDate.UnixMilli()
	} else {
		attrs[claims.AttrPremium] = false
		delete(attrs, claims.AttrPremiumExp)
	}

	if err := s.claims.SetCustomClaims(ctx, userID.String(), attrs); err != nil {
		s.logger.Error(s.logger.WithUserID(ctx, userID.String()), "write custom claims", err)
	}
}

func validateGrantInput(userID uuid.UUID, key enums.PackageKey) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if !key.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid package key")
	}
	return nil
}
