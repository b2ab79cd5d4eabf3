package packages

import (
	"context"

	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// Repository defines read access to the sellable package catalogue.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActive(ctx context.Context) ([]models.Package, error)
	FindByKey(ctx context.Context, key enums.PackageKey) (*models.Package, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a packages repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListActive(ctx context.Context) ([]models.Package, error) {
	var pkgs []models.Package
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Preload("Plans", func(db *gorm.DB) *gorm.DB {
			return db.Order("period_months ASC")
		}).
		Order("key ASC").
		Find(&pkgs).Error
	if err != nil {
		return nil, err
	}
	return pkgs, nil
}

func (r *repository) FindByKey(ctx context.Context, key enums.PackageKey) (*models.Package, error) {
	var pkg models.Package
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		Preload("Plans", func(db *gorm.DB) *gorm.DB {
			return db.Order("period_months ASC")
		}).
		First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}
