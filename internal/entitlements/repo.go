package entitlements

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
)

// Repository defines entitlement persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Entitlement, error)
	FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Entitlement, error)
	Save(ctx context.Context, ent *models.Entitlement) error
	ListPremium(ctx context.Context, limit int, afterUserID uuid.UUID) ([]models.Entitlement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an entitlements repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Entitlement, error) {
	var ent models.Entitlement
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&ent).Error
	if err != nil {
		return nil, err
	}
	return &ent, nil
}

// FindByUserIDForUpdate locks the row for the rest of the transaction. Only
// meaningful when the repository was rebound with WithTx.
func (r *repository) FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Entitlement, error) {
	var ent models.Entitlement
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&ent).Error
	if err != nil {
		return nil, err
	}
	return &ent, nil
}

func (r *repository) Save(ctx context.Context, ent *models.Entitlement) error {
	return r.db.WithContext(ctx).Save(ent).Error
}

// ListPremium pages through rows with the premium mirror set, ordered by user
// id so the cron sweep can walk the table in stable batches.
func (r *repository) ListPremium(ctx context.Context, limit int, afterUserID uuid.UUID) ([]models.Entitlement, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Entitlement{}).
		Where("is_premium = ?", true)
	if afterUserID != uuid.Nil {
		query = query.Where("user_id > ?", afterUserID)
	}

	var rows []models.Entitlement
	if err := query.Order("user_id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
