package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// Viewer identifies who is asking for content; gating decisions depend on it.
type Viewer struct {
	UserID uuid.UUID
	Admin  bool
}

// ExamSummary is the listing shape of a practice exam. The gated payload
// (questions) only appears on the detail view.
type ExamSummary struct {
	ID              uuid.UUID          `json:"id"`
	Title           string             `json:"title"`
	Category        enums.ExamCategory `json:"category"`
	DurationMinutes int                `json:"duration_minutes"`
	RequiresPackage *enums.PackageKey  `json:"requires_package,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// QuestionView is one exam question with its answer key.
type QuestionView struct {
	ID           uuid.UUID `json:"id"`
	Position     int       `json:"position"`
	Prompt       string    `json:"prompt"`
	Choices      []string  `json:"choices"`
	CorrectIndex int       `json:"correct_index"`
	Explanation  *string   `json:"explanation,omitempty"`
}

// ExamDetail is the full practice exam including questions.
type ExamDetail struct {
	ExamSummary
	Questions []QuestionView `json:"questions"`
}

// PDFView is a downloadable document; FileURL is only populated on detail.
type PDFView struct {
	ID              uuid.UUID          `json:"id"`
	Title           string             `json:"title"`
	Category        enums.ExamCategory `json:"category"`
	PageCount       int                `json:"page_count"`
	RequiresPackage *enums.PackageKey  `json:"requires_package,omitempty"`
	FileURL         string             `json:"file_url,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// VideoView is a lecture recording; VideoURL is only populated on detail.
type VideoView struct {
	ID              uuid.UUID          `json:"id"`
	Title           string             `json:"title"`
	Category        enums.ExamCategory `json:"category"`
	DurationSeconds int                `json:"duration_seconds"`
	RequiresPackage *enums.PackageKey  `json:"requires_package,omitempty"`
	VideoURL        string             `json:"video_url,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// StudyProgramView is a preparation plan; Body is only populated on detail.
type StudyProgramView struct {
	ID              uuid.UUID          `json:"id"`
	Title           string             `json:"title"`
	Category        enums.ExamCategory `json:"category"`
	WeekCount       int                `json:"week_count"`
	RequiresPackage *enums.PackageKey  `json:"requires_package,omitempty"`
	Body            string             `json:"body,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

func examSummaryFrom(exam *models.PracticeExam) ExamSummary {
	return ExamSummary{
		ID:              exam.ID,
		Title:           exam.Title,
		Category:        exam.Category,
		DurationMinutes: exam.DurationMinutes,
		RequiresPackage: exam.PackageKey,
		CreatedAt:       exam.CreatedAt,
	}
}

func examDetailFrom(exam *models.PracticeExam) *ExamDetail {
	detail := &ExamDetail{ExamSummary: examSummaryFrom(exam)}
	detail.Questions = make([]QuestionView, 0, len(exam.Questions))
	for _, q := range exam.Questions {
		detail.Questions = append(detail.Questions, QuestionView{
			ID:           q.ID,
			Position:     q.Position,
			Prompt:       q.Prompt,
			Choices:      q.Choices,
			CorrectIndex: q.CorrectIndex,
			Explanation:  q.Explanation,
		})
	}
	return detail
}

func pdfViewFrom(doc *models.PDFDocument, withURL bool) PDFView {
	view := PDFView{
		ID:              doc.ID,
		Title:           doc.Title,
		Category:        doc.Category,
		PageCount:       doc.PageCount,
		RequiresPackage: doc.PackageKey,
		CreatedAt:       doc.CreatedAt,
	}
	if withURL {
		view.FileURL = doc.FileURL
	}
	return view
}

func videoViewFrom(video *models.Video, withURL bool) VideoView {
	view := VideoView{
		ID:              video.ID,
		Title:           video.Title,
		Category:        video.Category,
		DurationSeconds: video.DurationSeconds,
		RequiresPackage: video.PackageKey,
		CreatedAt:       video.CreatedAt,
	}
	if withURL {
		view.VideoURL = video.VideoURL
	}
	return view
}

func studyProgramViewFrom(program *models.StudyProgram, withBody bool) StudyProgramView {
	view := StudyProgramView{
		ID:              program.ID,
		Title:           program.Title,
		Category:        program.Category,
		WeekCount:       program.WeekCount,
		RequiresPackage: program.PackageKey,
		CreatedAt:       program.CreatedAt,
	}
	if withBody {
		view.Body = program.Body
	}
	return view
}
