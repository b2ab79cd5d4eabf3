package iyzicowebhook

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
	"github.com/sinavhub/sinavhub-backend/pkg/iyzico"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
)

// Outcome describes how a callback was resolved.
type Outcome string

const (
	OutcomePaid      Outcome = "paid"
	OutcomeFailed    Outcome = "failed"
	OutcomeDuplicate Outcome = "duplicate"
)

type checkoutFormRetriever interface {
	RetrieveCheckoutForm(ctx context.Context, conversationID, token string) (*iyzico.CheckoutFormResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type claimsService interface {
	GetCustomClaims(ctx context.Context, userID string) (map[string]any, error)
	SetCustomClaims(ctx context.Context, userID string, attrs map[string]any) error
}

type sessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID string) error
}

// ServiceParams wires the iyzico callback handler dependencies.
type ServiceParams struct {
	Retriever         checkoutFormRetriever
	OrderRepo         orders.Repository
	EntitlementRepo   entitlements.Repository
	Claims            claimsService
	Sessions          sessionRevoker
	TransactionRunner txRunner
	Logger            *logger.Logger
	Now               func() time.Time
}

// Service settles orders from iyzico checkout form callbacks. The inbound
// callback carries only a token; the authoritative payment result comes from
// a signed server-to-server retrieve.
type Service struct {
	retriever checkoutFormRetriever
	orders    orders.Repository
	ents      entitlements.Repository
	claims    claimsService
	sessions  sessionRevoker
	txRunner  txRunner
	logger    *logger.Logger
	now       func() time.Time
}

// NewService validates the dependencies and builds the handler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Retriever == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout form retriever required")
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
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session revoker required")
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
		retriever: params.Retriever,
		orders:    params.OrderRepo,
		ents:      params.EntitlementRepo,
		claims:    params.Claims,
		sessions:  params.Sessions,
		txRunner:  params.TransactionRunner,
		logger:    params.Logger,
		now:       now,
	}, nil
}

// HandleCallback retrieves the payment result for the token and settles the
// referenced order. Duplicate deliveries return OutcomeDuplicate without
// writing. Success additionally refreshes the premium claim and revokes all
// outstanding sessions so the next login carries a fresh token; PayTR
// deliberately skips that revocation, so do not unify the two handlers
// without a product decision.
func (s *Service) HandleCallback(ctx context.Context, token string) (Outcome, error) {
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	result, err := s.retriever.RetrieveCheckoutForm(ctx, token, token)
	if err != nil {
		return "", err
	}
	if result.BasketID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "basket id missing from payment result")
	}

	ctx = s.logger.WithProvider(s.logger.WithOrderID(ctx, result.BasketID), enums.ProviderIyzico.String())

	var (
		outcome Outcome
		userID  uuid.UUID
	)
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		order, err := orderRepo.FindByIDForUpdate(ctx, result.BasketID)
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
		if !result.Succeeded() {
			outcome = OutcomeFailed
			if err := orderRepo.MarkFailed(ctx, order.ID, "payment not completed: "+result.PaymentStatus, token, now); err != nil {
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

		// single-plan order shape: one grant duration at the order level
		expiry := entitlements.MonthsExpiry(now, order.PeriodMonths)
		for _, item := range order.Items {
			entitlements.ApplyGrant(ent, item.PackageKey, expiry, now)
		}
		if err := entRepo.Save(ctx, ent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save entitlement")
		}
		if err := orderRepo.MarkPaid(ctx, order.ID, result.PaymentID, now); err != nil {
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
		s.logger.Info(ctx, "duplicate callback ignored")
	}
	return outcome, nil
}

// refreshPremiumClaims merges the premium flag into the user's custom
// credential attributes and then revokes every outstanding session, forcing a
// re-login that picks up the fresh claim immediately.
func (s *Service) refreshPremiumClaims(ctx context.Context, userID uuid.UUID) {
	ent, err := s.ents.FindByUserID(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "re-read entitlement for claims refresh", err)
		return
	}
	if ent.PremiumExpiryDate == nil || !ent.IsPremium {
		return
	}

	attrs, err := s.claims.GetCustomClaims(ctx, userID.String())
	if err != nil {
		s.logger.Error(ctx, "fetch custom claims", err)
		return
	}
	attrs[claims.AttrPremium] = true
	attrs[claims.AttrPremiumExp] = ent.PremiumExpiryDate.UnixMilli()
	if err := s.claims.SetCustomClaims(ctx, userID.String(), attrs); err != nil {
		s.logger.Error(ctx, "write custom claims", err)
		return
	}

	if err := s.sessions.RevokeAllForUser(ctx, userID.String()); err != nil {
		s.logger.Error(ctx, "revoke sessions", err)
	}
}
