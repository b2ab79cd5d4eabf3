package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/pagination"
)

// Service exposes the read-only order surface for account holders and the
// back-office search for operators.
type Service interface {
	GetOrder(ctx context.Context, userID uuid.UUID, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	SearchOrders(ctx context.Context, filter SearchFilter) ([]models.Order, error)
}

type service struct {
	repo Repository
}

// NewService builds the order query service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetOrder(ctx context.Context, userID uuid.UUID, orderID string) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
	}
	// hide other users' orders rather than confirming they exist
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	rows, err := s.repo.ListByUser(ctx, userID, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) SearchOrders(ctx context.Context, filter SearchFilter) ([]models.Order, error) {
	filter.Limit = pagination.NormalizeLimit(filter.Limit)

	rows, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search orders")
	}
	return rows, nil
}
