package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// Order is a checkout attempt keyed by the merchant order id handed to the
// payment provider. Status moves pending -> paid or pending -> failed exactly
// once; webhook handlers refuse to leave a terminal state.
type Order struct {
	ID     string    `gorm:"column:id;primaryKey"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`

	Provider enums.PaymentProvider `gorm:"column:provider;type:text;not null"`
	Status   enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`

	// PeriodMonths is the order-level grant duration used by the single-plan
	// iyzico flow. The PayTR flow carries per-item durations instead.
	PeriodMonths int `gorm:"column:period_months;not null;default:0"`

	TotalCents int    `gorm:"column:total_cents;not null"`
	Currency   string `gorm:"column:currency;type:text;not null;default:'TRY'"`

	ProviderRef  *string `gorm:"column:provider_ref"`
	FailedReason *string `gorm:"column:failed_reason"`

	PaidAt   *time.Time `gorm:"column:paid_at"`
	FailedAt *time.Time `gorm:"column:failed_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
