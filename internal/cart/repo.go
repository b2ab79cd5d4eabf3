package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// Repository defines cart persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Upsert(ctx context.Context, item *models.CartItem) error
	Delete(ctx context.Context, userID uuid.UUID, key enums.PackageKey) (int64, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Upsert inserts the item or, when the user already carries the package,
// replaces its duration and price.
func (r *repository) Upsert(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "package_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"period_months", "price_cents"}),
		}).
		Create(item).Error
}

func (r *repository) Delete(ctx context.Context, userID uuid.UUID, key enums.PackageKey) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND package_key = ?", userID, key).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *repository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}
