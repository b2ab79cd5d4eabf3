package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// SearchFilter narrows the back-office order search. Zero values mean
// "no filter".
type SearchFilter struct {
	UserID   uuid.UUID
	Status   enums.OrderStatus
	Provider enums.PaymentProvider
	Limit    int
	Offset   int
}

// Repository defines order persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id string) (*models.Order, error)
	MarkPaid(ctx context.Context, id string, providerRef string, paidAt time.Time) error
	MarkFailed(ctx context.Context, id string, reason string, providerRef string, failedAt time.Time) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	Search(ctx context.Context, filter SearchFilter) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row for the rest of the transaction.
// Concurrent webhook deliveries for the same order serialize on this lock;
// whichever loses sees the terminal status and backs off.
func (r *repository) FindByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}

	// Preload cannot ride along with a locking clause on some drivers; load
	// the items separately inside the same transaction.
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) MarkPaid(ctx context.Context, id string, providerRef string, paidAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.OrderStatusPaid,
			"provider_ref": providerRef,
			"paid_at":      paidAt,
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, id string, reason string, providerRef string, failedAt time.Time) error {
	updates := map[string]any{
		"status":        enums.OrderStatusFailed,
		"failed_reason": reason,
		"failed_at":     failedAt,
	}
	if providerRef != "" {
		updates["provider_ref"] = providerRef
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Search(ctx context.Context, filter SearchFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	if filter.UserID != uuid.Nil {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []models.Order
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
