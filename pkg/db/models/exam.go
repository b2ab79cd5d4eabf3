package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// PracticeExam is a timed question set in the catalogue.
type PracticeExam struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title           string             `gorm:"column:title;not null"`
	Category        enums.ExamCategory `gorm:"column:category;type:text;not null;index"`
	DurationMinutes int                `gorm:"column:duration_minutes;not null;default:0"`
	// PackageKey gates access; nil means the exam is free for everyone.
	PackageKey *enums.PackageKey `gorm:"column:package_key;type:text"`
	Published  bool              `gorm:"column:published;not null;default:false"`
	Questions  []Question        `gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// Question is one multiple-choice entry belonging to a practice exam.
type Question struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ExamID       uuid.UUID `gorm:"column:exam_id;type:uuid;not null;index"`
	Position     int       `gorm:"column:position;not null"`
	Prompt       string    `gorm:"column:prompt;not null"`
	Choices      []string  `gorm:"column:choices;type:jsonb;serializer:json"`
	CorrectIndex int       `gorm:"column:correct_index;not null"`
	Explanation  *string   `gorm:"column:explanation"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
