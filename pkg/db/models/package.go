package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// Package is a sellable study package definition shown in the storefront.
type Package struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Key         enums.PackageKey `gorm:"column:key;type:text;not null;uniqueIndex"`
	Title       string           `gorm:"column:title;not null"`
	Description string           `gorm:"column:description;not null;default:''"`
	Active      bool             `gorm:"column:active;not null;default:true"`
	Plans       []PackagePlan    `gorm:"foreignKey:PackageID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// PackagePlan is one purchasable duration option for a package.
type PackagePlan struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PackageID    uuid.UUID `gorm:"column:package_id;type:uuid;not null;index"`
	PeriodMonths int       `gorm:"column:period_months;not null"`
	PriceCents   int       `gorm:"column:price_cents;not null"`
}
