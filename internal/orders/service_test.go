package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/pagination"
)

type stubOrdersRepo struct {
	order      *models.Order
	lastFilter SearchFilter
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubOrdersRepo) FindByID(_ context.Context, id string) (*models.Order, error) {
	if s.order != nil && s.order.ID == id {
		return s.order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return s.FindByID(ctx, id)
}

func (s *stubOrdersRepo) MarkPaid(_ context.Context, _ string, _ string, _ time.Time) error {
	return nil
}

func (s *stubOrdersRepo) MarkFailed(_ context.Context, _ string, _ string, _ string, _ time.Time) error {
	return nil
}

func (s *stubOrdersRepo) ListByUser(_ context.Context, _ uuid.UUID, _ int) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrdersRepo) Search(_ context.Context, filter SearchFilter) ([]models.Order, error) {
	s.lastFilter = filter
	return nil, nil
}

func TestGetOrderHidesOtherUsers(t *testing.T) {
	owner := uuid.New()
	repo := &stubOrdersRepo{order: &models.Order{
		ID:       "SH20260310120000AB12",
		UserID:   owner,
		Provider: enums.ProviderPayTR,
		Status:   enums.OrderStatusPending,
	}}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if _, err := svc.GetOrder(context.Background(), owner, "SH20260310120000AB12"); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}

	_, err = svc.GetOrder(context.Background(), uuid.New(), "SH20260310120000AB12")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("foreign order must read as not found, got %v", err)
	}
}

func TestSearchOrdersNormalizesLimit(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if _, err := svc.SearchOrders(context.Background(), SearchFilter{}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if repo.lastFilter.Limit != pagination.DefaultLimit {
		t.Fatalf("expected default limit, got %d", repo.lastFilter.Limit)
	}

	if _, err := svc.SearchOrders(context.Background(), SearchFilter{Limit: 10000}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if repo.lastFilter.Limit != pagination.MaxLimit {
		t.Fatalf("expected capped limit, got %d", repo.lastFilter.Limit)
	}
}
