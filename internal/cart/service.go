package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
)

// Service manages the user's cart.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error)
	AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartView, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, rawKey string) (*CartView, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

type planResolver interface {
	ResolvePlan(ctx context.Context, rawKey string, periodMonths int) (*models.Package, *models.PackagePlan, error)
}

type service struct {
	repo  Repository
	plans planResolver
}

// ServiceParams bundles the dependencies required to build a cart service.
type ServiceParams struct {
	Repo     Repository
	Packages planResolver
}

// NewService constructs a cart service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.Packages == nil {
		return nil, fmt.Errorf("plan resolver is required")
	}
	return &service{repo: params.Repo, plans: params.Packages}, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}
	return viewFrom(items), nil
}

// AddItem prices the selection against the catalogue before storing it. A
// second add of the same package replaces the previous duration.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartView, error) {
	pkg, plan, err := s.plans.ResolvePlan(ctx, req.PackageKey, req.PeriodMonths)
	if err != nil {
		return nil, err
	}

	item := &models.CartItem{
		UserID:       userID,
		PackageKey:   pkg.Key,
		PeriodMonths: plan.PeriodMonths,
		PriceCents:   plan.PriceCents,
	}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert cart item")
	}
	return s.GetCart(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, rawKey string) (*CartView, error) {
	key, err := enums.ParsePackageKey(rawKey)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	removed, err := s.repo.Delete(ctx, userID, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart item")
	}
	if removed == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.GetCart(ctx, userID)
}

func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func viewFrom(items []models.CartItem) *CartView {
	view := &CartView{
		Items:    make([]CartItemView, 0, len(items)),
		Currency: "TRY",
	}
	for _, item := range items {
		view.Items = append(view.Items, CartItemView{
			PackageKey:   item.PackageKey,
			PeriodMonths: item.PeriodMonths,
			PriceCents:   item.PriceCents,
		})
		view.TotalCents += item.PriceCents
	}
	return view
}
