package models

import (
	"time"

	"github.com/google/uuid"
)

// Entitlement is the per-user package ownership record.
//
// OwnedPackages means "ever granted", not "currently active"; activity is
// always derived from PackageExpiryDates. IsPremium/PremiumExpiryDate mirror
// the privileged package entry for legacy clients; they are an eventually
// consistent cache maintained on every mutation and by the cron sweep, never
// a source of truth.
type Entitlement struct {
	UserID             uuid.UUID             `gorm:"column:user_id;type:uuid;primaryKey"`
	OwnedPackages      map[string]bool       `gorm:"column:owned_packages;type:jsonb;serializer:json"`
	PackageExpiryDates map[string]*time.Time `gorm:"column:package_expiry_dates;type:jsonb;serializer:json"`
	IsPremium          bool                  `gorm:"column:is_premium;not null;default:false"`
	PremiumExpiryDate  *time.Time            `gorm:"column:premium_expiry_date"`
	LastUpdated        time.Time             `gorm:"column:last_updated;not null"`
}
