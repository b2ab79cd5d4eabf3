package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
)

// QuestionInput is one question in an exam write request. Question order in
// the slice becomes the stored position.
type QuestionInput struct {
	Prompt       string   `json:"prompt" validate:"required"`
	Choices      []string `json:"choices" validate:"required,min=2,max=6,dive,required"`
	CorrectIndex int      `json:"correct_index" validate:"min=0"`
	Explanation  *string  `json:"explanation,omitempty"`
}

// ExamInput carries the writable fields of a practice exam. Updates replace
// the whole record including its question set.
type ExamInput struct {
	Title           string          `json:"title" validate:"required,max=200"`
	Category        string          `json:"category" validate:"required"`
	DurationMinutes int             `json:"duration_minutes" validate:"min=0,max=600"`
	PackageKey      *string         `json:"package_key,omitempty"`
	Published       bool            `json:"published"`
	Questions       []QuestionInput `json:"questions" validate:"dive"`
}

// PDFInput carries the writable fields of a PDF document.
type PDFInput struct {
	Title      string  `json:"title" validate:"required,max=200"`
	Category   string  `json:"category" validate:"required"`
	FileURL    string  `json:"file_url" validate:"required,url"`
	PageCount  int     `json:"page_count" validate:"min=0"`
	PackageKey *string `json:"package_key,omitempty"`
	Published  bool    `json:"published"`
}

// VideoInput carries the writable fields of a lecture video.
type VideoInput struct {
	Title           string  `json:"title" validate:"required,max=200"`
	Category        string  `json:"category" validate:"required"`
	VideoURL        string  `json:"video_url" validate:"required,url"`
	DurationSeconds int     `json:"duration_seconds" validate:"min=0"`
	PackageKey      *string `json:"package_key,omitempty"`
	Published       bool    `json:"published"`
}

// StudyProgramInput carries the writable fields of a study program.
type StudyProgramInput struct {
	Title      string  `json:"title" validate:"required,max=200"`
	Category   string  `json:"category" validate:"required"`
	WeekCount  int     `json:"week_count" validate:"min=0,max=104"`
	Body       string  `json:"body"`
	PackageKey *string `json:"package_key,omitempty"`
	Published  bool    `json:"published"`
}

// AdminService is the back-office write surface of the catalogue. It sees
// drafts and published content alike; publication gating only applies to the
// member-facing Service.
type AdminService interface {
	CreateExam(ctx context.Context, input ExamInput) (*ExamDetail, error)
	UpdateExam(ctx context.Context, id uuid.UUID, input ExamInput) (*ExamDetail, error)
	DeleteExam(ctx context.Context, id uuid.UUID) error

	CreatePDF(ctx context.Context, input PDFInput) (*PDFView, error)
	UpdatePDF(ctx context.Context, id uuid.UUID, input PDFInput) (*PDFView, error)
	DeletePDF(ctx context.Context, id uuid.UUID) error

	CreateVideo(ctx context.Context, input VideoInput) (*VideoView, error)
	UpdateVideo(ctx context.Context, id uuid.UUID, input VideoInput) (*VideoView, error)
	DeleteVideo(ctx context.Context, id uuid.UUID) error

	CreateStudyProgram(ctx context.Context, input StudyProgramInput) (*StudyProgramView, error)
	UpdateStudyProgram(ctx context.Context, id uuid.UUID, input StudyProgramInput) (*StudyProgramView, error)
	DeleteStudyProgram(ctx context.Context, id uuid.UUID) error
}

type adminService struct {
	repo Repository
}

// NewAdminService constructs the back-office catalogue service.
func NewAdminService(repo Repository) (AdminService, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	return &adminService{repo: repo}, nil
}

func parseCategory(value string) (enums.ExamCategory, error) {
	category, err := enums.ParseExamCategory(value)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown exam category").
			WithDetails(map[string]any{"category": value})
	}
	return category, nil
}

func parseOptionalPackageKey(value *string) (*enums.PackageKey, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	key, err := enums.ParsePackageKey(*value)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown package key").
			WithDetails(map[string]any{"package_key": *value})
	}
	return &key, nil
}

func questionsFrom(inputs []QuestionInput) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(inputs))
	for i, q := range inputs {
		if q.CorrectIndex >= len(q.Choices) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "correct_index out of range").
				WithDetails(map[string]any{"question": i})
		}
		questions = append(questions, models.Question{
			Position:     i + 1,
			Prompt:       q.Prompt,
			Choices:      q.Choices,
			CorrectIndex: q.CorrectIndex,
			Explanation:  q.Explanation,
		})
	}
	return questions, nil
}

func applyExamInput(exam *models.PracticeExam, input ExamInput) error {
	category, err := parseCategory(input.Category)
	if err != nil {
		return err
	}
	packageKey, err := parseOptionalPackageKey(input.PackageKey)
	if err != nil {
		return err
	}
	questions, err := questionsFrom(input.Questions)
	if err != nil {
		return err
	}

	exam.Title = input.Title
	exam.Category = category
	exam.DurationMinutes = input.DurationMinutes
	exam.PackageKey = packageKey
	exam.Published = input.Published
	exam.Questions = questions
	return nil
}

func (s *adminService) CreateExam(ctx context.Context, input ExamInput) (*ExamDetail, error) {
	var exam models.PracticeExam
	if err := applyExamInput(&exam, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateExam(ctx, &exam); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create exam")
	}
	return examDetailFrom(&exam), nil
}

func (s *adminService) UpdateExam(ctx context.Context, id uuid.UUID, input ExamInput) (*ExamDetail, error) {
	exam, err := s.repo.FindExamAny(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "find exam")
	}
	if err := applyExamInput(exam, input); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceExam(ctx, exam); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update exam")
	}
	return examDetailFrom(exam), nil
}

func (s *adminService) DeleteExam(ctx context.Context, id uuid.UUID) error {
	return deleteOrNotFound(s.repo.DeleteExam(ctx, id), "delete exam")
}

func (s *adminService) CreatePDF(ctx context.Context, input PDFInput) (*PDFView, error) {
	var doc models.PDFDocument
	if err := applyPDFInput(&doc, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreatePDF(ctx, &doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create pdf")
	}
	view := pdfViewFrom(&doc, true)
	return &view, nil
}

func (s *adminService) UpdatePDF(ctx context.Context, id uuid.UUID, input PDFInput) (*PDFView, error) {
	doc, err := s.repo.FindPDFAny(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "find pdf")
	}
	if err := applyPDFInput(doc, input); err != nil {
		return nil, err
	}
	if err := s.repo.SavePDF(ctx, doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update pdf")
	}
	view := pdfViewFrom(doc, true)
	return &view, nil
}

func (s *adminService) DeletePDF(ctx context.Context, id uuid.UUID) error {
	return deleteOrNotFound(s.repo.DeletePDF(ctx, id), "delete pdf")
}

func (s *adminService) CreateVideo(ctx context.Context, input VideoInput) (*VideoView, error) {
	var video models.Video
	if err := applyVideoInput(&video, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateVideo(ctx, &video); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create video")
	}
	view := videoViewFrom(&video, true)
	return &view, nil
}

func (s *adminService) UpdateVideo(ctx context.Context, id uuid.UUID, input VideoInput) (*VideoView, error) {
	video, err := s.repo.FindVideoAny(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "find video")
	}
	if err := applyVideoInput(video, input); err != nil {
		return nil, err
	}
	if err := s.repo.SaveVideo(ctx, video); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update video")
	}
	view := videoViewFrom(video, true)
	return &view, nil
}

func (s *adminService) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	return deleteOrNotFound(s.repo.DeleteVideo(ctx, id), "delete video")
}

func (s *adminService) CreateStudyProgram(ctx context.Context, input StudyProgramInput) (*StudyProgramView, error) {
	var program models.StudyProgram
	if err := applyStudyProgramInput(&program, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateStudyProgram(ctx, &program); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create study program")
	}
	view := studyProgramViewFrom(&program, true)
	return &view, nil
}

func (s *adminService) UpdateStudyProgram(ctx context.Context, id uuid.UUID, input StudyProgramInput) (*StudyProgramView, error) {
	program, err := s.repo.FindStudyProgramAny(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "find study program")
	}
	if err := applyStudyProgramInput(program, input); err != nil {
		return nil, err
	}
	if err := s.repo.SaveStudyProgram(ctx, program); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update study program")
	}
	view := studyProgramViewFrom(program, true)
	return &view, nil
}

func (s *adminService) DeleteStudyProgram(ctx context.Context, id uuid.UUID) error {
	return deleteOrNotFound(s.repo.DeleteStudyProgram(ctx, id), "delete study program")
}

func applyPDFInput(doc *models.PDFDocument, input PDFInput) error {
	category, err := parseCategory(input.Category)
	if err != nil {
		return err
	}
	packageKey, err := parseOptionalPackageKey(input.PackageKey)
	if err != nil {
		return err
	}

	doc.Title = input.Title
	doc.Category = category
	doc.FileURL = input.FileURL
	doc.PageCount = input.PageCount
	doc.PackageKey = packageKey
	doc.Published = input.Published
	return nil
}

func applyVideoInput(video *models.Video, input VideoInput) error {
	category, err := parseCategory(input.Category)
	if err != nil {
		return err
	}
	packageKey, err := parseOptionalPackageKey(input.PackageKey)
	if err != nil {
		return err
	}

	video.Title = input.Title
	video.Category = category
	video.VideoURL = input.VideoURL
	video.DurationSeconds = input.DurationSeconds
	video.PackageKey = packageKey
	video.Published = input.Published
	return nil
}

func applyStudyProgramInput(program *models.StudyProgram, input StudyProgramInput) error {
	category, err := parseCategory(input.Category)
	if err != nil {
		return err
	}
	packageKey, err := parseOptionalPackageKey(input.PackageKey)
	if err != nil {
		return err
	}

	program.Title = input.Title
	program.Category = category
	program.WeekCount = input.WeekCount
	program.Body = input.Body
	program.PackageKey = packageKey
	program.Published = input.Published
	return nil
}

func deleteOrNotFound(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "content not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
