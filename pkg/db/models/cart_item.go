package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// CartItem is one package/duration selection sitting in a user's cart.
// A user holds at most one entry per package key.
type CartItem struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_cart_user_package"`
	PackageKey   enums.PackageKey `gorm:"column:package_key;type:text;not null;uniqueIndex:idx_cart_user_package"`
	PeriodMonths int              `gorm:"column:period_months;not null"`
	PriceCents   int              `gorm:"column:price_cents;not null"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
}
