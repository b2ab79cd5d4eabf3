package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// ListFilter narrows catalogue listings. Zero values mean "no filter".
type ListFilter struct {
	Category enums.ExamCategory
	Limit    int
	Offset   int
}

// Repository defines access to the study content. Read methods only surface
// published rows; the write side and the *Any finders are for the back office
// and see drafts too.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListExams(ctx context.Context, filter ListFilter) ([]models.PracticeExam, error)
	FindExam(ctx context.Context, id uuid.UUID) (*models.PracticeExam, error)

	ListPDFs(ctx context.Context, filter ListFilter) ([]models.PDFDocument, error)
	FindPDF(ctx context.Context, id uuid.UUID) (*models.PDFDocument, error)

	ListVideos(ctx context.Context, filter ListFilter) ([]models.Video, error)
	FindVideo(ctx context.Context, id uuid.UUID) (*models.Video, error)

	ListStudyPrograms(ctx context.Context, filter ListFilter) ([]models.StudyProgram, error)
	FindStudyProgram(ctx context.Context, id uuid.UUID) (*models.StudyProgram, error)

	CreateExam(ctx context.Context, exam *models.PracticeExam) error
	FindExamAny(ctx context.Context, id uuid.UUID) (*models.PracticeExam, error)
	ReplaceExam(ctx context.Context, exam *models.PracticeExam) error
	DeleteExam(ctx context.Context, id uuid.UUID) error

	CreatePDF(ctx context.Context, doc *models.PDFDocument) error
	FindPDFAny(ctx context.Context, id uuid.UUID) (*models.PDFDocument, error)
	SavePDF(ctx context.Context, doc *models.PDFDocument) error
	DeletePDF(ctx context.Context, id uuid.UUID) error

	CreateVideo(ctx context.Context, video *models.Video) error
	FindVideoAny(ctx context.Context, id uuid.UUID) (*models.Video, error)
	SaveVideo(ctx context.Context, video *models.Video) error
	DeleteVideo(ctx context.Context, id uuid.UUID) error

	CreateStudyProgram(ctx context.Context, program *models.StudyProgram) error
	FindStudyProgramAny(ctx context.Context, id uuid.UUID) (*models.StudyProgram, error)
	SaveStudyProgram(ctx context.Context, program *models.StudyProgram) error
	DeleteStudyProgram(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) listQuery(ctx context.Context, filter ListFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Where("published = ?", true)
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	return query.Order("created_at DESC")
}

func (r *repository) ListExams(ctx context.Context, filter ListFilter) ([]models.PracticeExam, error) {
	var exams []models.PracticeExam
	if err := r.listQuery(ctx, filter).Find(&exams).Error; err != nil {
		return nil, err
	}
	return exams, nil
}

// FindExam loads the exam with its questions in position order.
func (r *repository) FindExam(ctx context.Context, id uuid.UUID) (*models.PracticeExam, error) {
	var exam models.PracticeExam
	err := r.db.WithContext(ctx).
		Where("id = ? AND published = ?", id, true).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&exam).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *repository) ListPDFs(ctx context.Context, filter ListFilter) ([]models.PDFDocument, error) {
	var docs []models.PDFDocument
	if err := r.listQuery(ctx, filter).Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repository) FindPDF(ctx context.Context, id uuid.UUID) (*models.PDFDocument, error) {
	var doc models.PDFDocument
	err := r.db.WithContext(ctx).
		Where("id = ? AND published = ?", id, true).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *repository) ListVideos(ctx context.Context, filter ListFilter) ([]models.Video, error) {
	var videos []models.Video
	if err := r.listQuery(ctx, filter).Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

func (r *repository) FindVideo(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	var video models.Video
	err := r.db.WithContext(ctx).
		Where("id = ? AND published = ?", id, true).
		First(&video).Error
	if err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *repository) ListStudyPrograms(ctx context.Context, filter ListFilter) ([]models.StudyProgram, error) {
	var programs []models.StudyProgram
	if err := r.listQuery(ctx, filter).Find(&programs).Error; err != nil {
		return nil, err
	}
	return programs, nil
}

func (r *repository) FindStudyProgram(ctx context.Context, id uuid.UUID) (*models.StudyProgram, error) {
	var program models.StudyProgram
	err := r.db.WithContext(ctx).
		Where("id = ? AND published = ?", id, true).
		First(&program).Error
	if err != nil {
		return nil, err
	}
	return &program, nil
}

func createRecord[T any](ctx context.Context, db *gorm.DB, record *T) error {
	return db.WithContext(ctx).Create(record).Error
}

func saveRecord[T any](ctx context.Context, db *gorm.DB, record *T) error {
	return db.WithContext(ctx).Save(record).Error
}

func findRecordAny[T any](ctx context.Context, db *gorm.DB, id uuid.UUID) (*T, error) {
	var record T
	if err := db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func deleteRecord[T any](ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	result := db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CreateExam(ctx context.Context, exam *models.PracticeExam) error {
	return createRecord(ctx, r.db, exam)
}

func (r *repository) FindExamAny(ctx context.Context, id uuid.UUID) (*models.PracticeExam, error) {
	var exam models.PracticeExam
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&exam).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

// ReplaceExam overwrites the exam row and swaps its full question set in one
// transaction, so a half-applied edit never becomes visible.
func (r *repository) ReplaceExam(ctx context.Context, exam *models.PracticeExam) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", exam.ID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Questions").Save(exam).Error; err != nil {
			return err
		}
		if len(exam.Questions) == 0 {
			return nil
		}
		for i := range exam.Questions {
			exam.Questions[i].ID = uuid.Nil
			exam.Questions[i].ExamID = exam.ID
		}
		return tx.Create(&exam.Questions).Error
	})
}

func (r *repository) DeleteExam(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", id).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		return deleteRecord[models.PracticeExam](ctx, tx, id)
	})
}

func (r *repository) CreatePDF(ctx context.Context, doc *models.PDFDocument) error {
	return createRecord(ctx, r.db, doc)
}

func (r *repository) FindPDFAny(ctx context.Context, id uuid.UUID) (*models.PDFDocument, error) {
	return findRecordAny[models.PDFDocument](ctx, r.db, id)
}

func (r *repository) SavePDF(ctx context.Context, doc *models.PDFDocument) error {
	return saveRecord(ctx, r.db, doc)
}

func (r *repository) DeletePDF(ctx context.Context, id uuid.UUID) error {
	return deleteRecord[models.PDFDocument](ctx, r.db, id)
}

func (r *repository) CreateVideo(ctx context.Context, video *models.Video) error {
	return createRecord(ctx, r.db, video)
}

func (r *repository) FindVideoAny(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	return findRecordAny[models.Video](ctx, r.db, id)
}

func (r *repository) SaveVideo(ctx context.Context, video *models.Video) error {
	return saveRecord(ctx, r.db, video)
}

func (r *repository) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	return deleteRecord[models.Video](ctx, r.db, id)
}

func (r *repository) CreateStudyProgram(ctx context.Context, program *models.StudyProgram) error {
	return createRecord(ctx, r.db, program)
}

func (r *repository) FindStudyProgramAny(ctx context.Context, id uuid.UUID) (*models.StudyProgram, error) {
	return findRecordAny[models.StudyProgram](ctx, r.db, id)
}

func (r *repository) SaveStudyProgram(ctx context.Context, program *models.StudyProgram) error {
	return saveRecord(ctx, r.db, program)
}

func (r *repository) DeleteStudyProgram(ctx context.Context, id uuid.UUID) error {
	return deleteRecord[models.StudyProgram](ctx, r.db, id)
}
