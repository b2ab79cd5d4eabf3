package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
)

func TestServiceAddItemPricesFromCatalogue(t *testing.T) {
	userID := uuid.New()
	repo := newStubRepo()
	resolver := &stubResolver{
		pkg:  &models.Package{Key: enums.PackageKPSSFull},
		plan: &models.PackagePlan{PeriodMonths: 6, PriceCents: 129900},
	}
	svc := buildTestService(t, repo, resolver)

	view, err := svc.AddItem(context.Background(), userID, AddItemRequest{
		PackageKey:   "KPSS_FULL",
		PeriodMonths: 6,
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(view.Items))
	}
	if view.Items[0].PriceCents != 129900 {
		t.Fatalf("expected catalogue price, got %d", view.Items[0].PriceCents)
	}
	if view.TotalCents != 129900 {
		t.Fatalf("expected total 129900, got %d", view.TotalCents)
	}
}

func TestServiceAddItemReplacesDuration(t *testing.T) {
	userID := uuid.New()
	repo := newStubRepo()
	resolver := &stubResolver{
		pkg:  &models.Package{Key: enums.PackageKPSSFull},
		plan: &models.PackagePlan{PeriodMonths: 1, PriceCents: 29900},
	}
	svc := buildTestService(t, repo, resolver)

	repo.items[enums.PackageKPSSFull] = models.CartItem{
		UserID:       userID,
		PackageKey:   enums.PackageKPSSFull,
		PeriodMonths: 6,
		PriceCents:   129900,
	}

	view, err := svc.AddItem(context.Background(), userID, AddItemRequest{
		PackageKey:   "KPSS_FULL",
		PeriodMonths: 1,
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("expected replacement not duplication, got %d items", len(view.Items))
	}
	if view.Items[0].PeriodMonths != 1 {
		t.Fatalf("expected duration replaced, got %d", view.Items[0].PeriodMonths)
	}
}

func TestServiceAddItemInvalidPlan(t *testing.T) {
	resolver := &stubResolver{err: pkgerrors.New(pkgerrors.CodeValidation, "no plan with the requested duration")}
	svc := buildTestService(t, newStubRepo(), resolver)

	_, err := svc.AddItem(context.Background(), uuid.New(), AddItemRequest{
		PackageKey:   "KPSS_FULL",
		PeriodMonths: 4,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceRemoveItemNotInCart(t *testing.T) {
	svc := buildTestService(t, newStubRepo(), &stubResolver{})

	_, err := svc.RemoveItem(context.Background(), uuid.New(), "KPSS_FULL")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceRemoveItem(t *testing.T) {
	userID := uuid.New()
	repo := newStubRepo()
	repo.items[enums.PackageKPSSFull] = models.CartItem{
		UserID:     userID,
		PackageKey: enums.PackageKPSSFull,
		PriceCents: 29900,
	}
	svc := buildTestService(t, repo, &stubResolver{})

	view, err := svc.RemoveItem(context.Background(), userID, "KPSS_FULL")
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(view.Items))
	}
}

func buildTestService(t *testing.T, repo Repository, resolver planResolver) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo, Packages: resolver})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

type stubRepo struct {
	items map[enums.PackageKey]models.CartItem
}

func newStubRepo() *stubRepo {
	return &stubRepo{items: map[enums.PackageKey]models.CartItem{}}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	out := make([]models.CartItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	return out, nil
}

func (s *stubRepo) Upsert(ctx context.Context, item *models.CartItem) error {
	s.items[item.PackageKey] = *item
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, userID uuid.UUID, key enums.PackageKey) (int64, error) {
	if _, ok := s.items[key]; !ok {
		return 0, nil
	}
	delete(s.items, key)
	return 1, nil
}

func (s *stubRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	s.items = map[enums.PackageKey]models.CartItem{}
	return nil
}

type stubResolver struct {
	pkg  *models.Package
	plan *models.PackagePlan
	err  error
}

func (s *stubResolver) ResolvePlan(ctx context.Context, rawKey string, periodMonths int) (*models.Package, *models.PackagePlan, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.pkg, s.plan, nil
}
