package paytrwebhook

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/internal/entitlements"
	"github.com/sinavhub/sinavhub-backend/internal/orders"
	"github.com/sinavhub/sinavhub-backend/pkg/claims"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
	"github.com/sinavhub/sinavhub-backend/pkg/paytr"
)

// Outcome describes how a notification was resolved.
type Outcome string

const (
	OutcomePaid      Outcome = "paid"
	OutcomeFailed    Outcome = "failed"
	OutcomeDuplicate Outcome = "duplicate"
)

type notificationVerifier interface {
	VerifyNotification(n paytr.Notification) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type claimsService interface {
	GetCustomClaims(ctx context.Context, userID string) (map[string]any, error)
	SetCustomClaims(ctx context.Context, userID string, attrs map[string]any) error
}

// ServiceParams wires the PayTR notification handler dependencies.
type ServiceParams struct {
	Verifier          notificationVerifier
	OrderRepo         orders.Repository
	EntitlementRepo   entitlements.Repository
	Claims            claimsService
	TransactionRunner txRunner
	Logger            *logger.Logger
	Now               func() time.Time
}

// Service settles orders from PayTR payment notifications.
type Service struct {
	verifier notificationVerifier
	orders   orders.Repository
	ents     entitlements.Repository
	claims   claimsService
	txRunner txRunner
	logger   *logger.Logger
	now      func() time.Time
}

// NewService validates the dependencies and builds the handler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notification verifier required")
	}
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repo required")
	}
	if params.EntitlementRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "entitlement repo required")
	}
	if params.Claims == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "claims service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		verifier: params.Verifier,
		orders:   params.OrderRepo,
		ents:     params.EntitlementRepo,
		claims:   params.Claims,
		txRunner: params.TransactionRunner,
		logger:   params.Logger,
		now:      now,
	}, nil
}

// HandleNotification verifies and settles one PayTR callback. The hash check
// runs before any store access; an unverifiable payload must not even leak
// whether the order exists. Redeliveries of an already-settled order return
// OutcomeDuplicate without writing anything.
func (s *Service) HandleNotification(ctx context.Context, n paytr.Notification) (Outcome, error) {
	if n.MerchantOID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "merchant_oid is required")
	}
	if err := s.verifier.VerifyNotification(n); err != nil {
		return "", err
	}

	ctx = s.logger.WithProvider(s.logger.WithOrderID(ctx, n.MerchantOID), enums.ProviderPayTR.String())

	var (
		outcome Outcome
		userID  uuid.UUID
	)
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		order, err := orderRepo.FindByIDForUpdate(ctx, n.MerchantOID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// A missing order answers 5xx so the provider keeps
				// retrying past the order-creation race.
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
		}
		userID = order.UserID

		if order.Status.IsTerminal() {
			outcome = OutcomeDuplicate
			return nil
		}

		now := s.now()
		if !n.Succeeded() {
			outcome = OutcomeFailed
			reason := failureReason(n)
			if err := orderRepo.MarkFailed(ctx, order.ID, reason, "", now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order failed")
			}
			return nil
		}

		entRepo := s.ents.WithTx(tx)
		ent, err := entRepo.FindByUserIDForUpdate(ctx, order.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "entitlement record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup entitlement")
		}

		for _, item := range order.Items {
			expiry := entitlements.MonthsExpiry(now, item.PeriodMonths)
			entitlements.ApplyGrant(ent, item.PackageKey, expiry, now)
		}
		if err := entRepo.Save(ctx, ent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save entitlement")
		}
		if err := orderRepo.MarkPaid(ctx, order.ID, n.PaymentType, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}

		outcome = OutcomePaid
		return nil
	})
	if err != nil {
		return "", err
	}

	switch outcome {
	case OutcomePaid:
		s.logger.Info(ctx, "order settled as paid")
		s.refreshPremiumClaims(ctx, userID)
	case OutcomeFailed:
		s.logger.Info(ctx, "order settled as failed")
	case OutcomeDuplicate:
		s.logger.Info(ctx, "duplicate notification ignored")
	}
	return outcome, nil
}

// refreshPremiumClaims re-reads the entitlement outside the transaction and
// merges the premium flag into the user's custom credential attributes. No
// session revocation here: the claim surfaces on the next token refresh.
func (s *Service) refreshPremiumClaims(ctx context.Context, userID uuid.UUID) {
	ent, err := s.ents.FindByUserID(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "re-read entitlement for claims refresh", err)
		return
	}
	if !entitlements.IsPackageActive(ent, enums.PremiumPackageKey, s.now()) {
		return
	}

	attrs, err := s.claims.GetCustomClaims(ctx, userID.String())
	if err != nil {
		s.logger.Error(ctx, "fetch custom claims", err)
		return
	}
	attrs[claims.AttrPremium] = true
	attrs[claims.AttrPremiumExp] = ent.PackageExpiryDates[enums.PremiumPackageKey.String()].UnixMilli()
	if err := s.claims.SetCustomClaims(ctx, userID.String(), attrs); err != nil {
		s.logger.Error(ctx, "write custom claims", err)
	}
}

func failureReason(n paytr.Notification) string {
	switch {
	case n.FailedReasonMsg != "" && n.FailedReasonCode != "":
		return n.FailedReasonCode + ": " + n.FailedReasonMsg
	case n.FailedReasonMsg != "":
		return n.FailedReasonMsg
	case n.FailedReasonCode != "":
		return n.FailedReasonCode
	default:
		return "payment failed"
	}
}
