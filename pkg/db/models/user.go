package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// User is an account on the platform, student or admin.
type User struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string           `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	FullName     string           `gorm:"column:full_name;not null"`
	Role         enums.MemberRole `gorm:"column:role;type:text;not null;default:'student'"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
