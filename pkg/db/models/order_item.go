package models

import (
	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// OrderItem is one purchased package line inside an order.
type OrderItem struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      string           `gorm:"column:order_id;not null;index"`
	PackageKey   enums.PackageKey `gorm:"column:package_key;type:text;not null"`
	PeriodMonths int              `gorm:"column:period_months;not null"`
	PriceCents   int              `gorm:"column:price_cents;not null"`
}
