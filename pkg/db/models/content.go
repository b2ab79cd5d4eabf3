package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// PDFDocument is downloadable study material stored in external blob storage;
// only the reference and gating metadata live here.
type PDFDocument struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title      string             `gorm:"column:title;not null"`
	Category   enums.ExamCategory `gorm:"column:category;type:text;not null;index"`
	FileURL    string             `gorm:"column:file_url;not null"`
	PageCount  int                `gorm:"column:page_count;not null;default:0"`
	PackageKey *enums.PackageKey  `gorm:"column:package_key;type:text"`
	Published  bool               `gorm:"column:published;not null;default:false"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Video is a lecture recording in the catalogue.
type Video struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title           string             `gorm:"column:title;not null"`
	Category        enums.ExamCategory `gorm:"column:category;type:text;not null;index"`
	VideoURL        string             `gorm:"column:video_url;not null"`
	DurationSeconds int                `gorm:"column:duration_seconds;not null;default:0"`
	PackageKey      *enums.PackageKey  `gorm:"column:package_key;type:text"`
	Published       bool               `gorm:"column:published;not null;default:false"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// StudyProgram is a week-by-week preparation plan.
type StudyProgram struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title      string             `gorm:"column:title;not null"`
	Category   enums.ExamCategory `gorm:"column:category;type:text;not null;index"`
	WeekCount  int                `gorm:"column:week_count;not null;default:0"`
	Body       string             `gorm:"column:body;not null;default:''"`
	PackageKey *enums.PackageKey  `gorm:"column:package_key;type:text"`
	Published  bool               `gorm:"column:published;not null;default:false"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
