package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// Notification is a per-user announcement surfaced in the app.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Kind      enums.NotificationKind `gorm:"column:kind;type:text;not null"`
	Title     string                 `gorm:"column:title;not null"`
	Body      string                 `gorm:"column:body;not null;default:''"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
