package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/internal/entitlements"
	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
)

// Service exposes the study content catalogue with entitlement gating.
// Listings are open to every signed-in user; detail views of gated content
// require an active package.
type Service interface {
	ListExams(ctx context.Context, filter ListFilter) ([]ExamSummary, error)
	GetExam(ctx context.Context, viewer Viewer, id uuid.UUID) (*ExamDetail, error)

	ListPDFs(ctx context.Context, filter ListFilter) ([]PDFView, error)
	GetPDF(ctx context.Context, viewer Viewer, id uuid.UUID) (*PDFView, error)

	ListVideos(ctx context.Context, filter ListFilter) ([]VideoView, error)
	GetVideo(ctx context.Context, viewer Viewer, id uuid.UUID) (*VideoView, error)

	ListStudyPrograms(ctx context.Context, filter ListFilter) ([]StudyProgramView, error)
	GetStudyProgram(ctx context.Context, viewer Viewer, id uuid.UUID) (*StudyProgramView, error)
}

type entitlementFinder interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Entitlement, error)
}

type service struct {
	repo Repository
	ents entitlementFinder
	now  func() time.Time
}

// ServiceParams bundles the dependencies required to build a catalog service.
type ServiceParams struct {
	Repo            Repository
	EntitlementRepo entitlementFinder
	Now             func() time.Time
}

// NewService constructs a catalog service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	if params.EntitlementRepo == nil {
		return nil, fmt.Errorf("entitlement repository is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: params.Repo, ents: params.EntitlementRepo, now: now}, nil
}

// authorize enforces the package gate. A nil key means the content is free.
func (s *service) authorize(ctx context.Context, viewer Viewer, key *enums.PackageKey) error {
	if key == nil || viewer.Admin {
		return nil
	}
	ent, err := s.ents.FindByUserID(ctx, viewer.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lockedError(*key)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load entitlement")
	}
	if !entitlements.IsPackageActive(ent, *key, s.now()) {
		return lockedError(*key)
	}
	return nil
}

func lockedError(key enums.PackageKey) error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "content requires an active package").
		WithDetails(map[string]any{"package_key": key.String()})
}

func (s *service) ListExams(ctx context.Context, filter ListFilter) ([]ExamSummary, error) {
	exams, err := s.repo.ListExams(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list exams")
	}
	out := make([]ExamSummary, 0, len(exams))
	for i := range exams {
		out = append(out, examSummaryFrom(&exams[i]))
	}
	return out, nil
}

func (s *service) GetExam(ctx context.Context, viewer Viewer, id uuid.UUID) (*ExamDetail, error) {
	exam, err := s.repo.FindExam(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "find exam")
	}
	if err := s.authorize(ctx, viewer, exam.PackageKey); err != nil {
		return nil, err
	}
	return examDetailFrom(exam), nil
}

func (s *service) ListPDFs(ctx context.Context, filter ListFilter) ([]PDFView, error) {
	docs, err := s.repo.ListPDFs(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pdfs")
	}
	out := make([]PDFView, 0, len(docs))
	for i := range docs {
		out = append(out, pdfViewFrom(&docs[i], false))
	}
	return out, nil
}

func (s *service) GetPDF(ctx context.Context, viewer Viewer, id uuid.UUID) (*PDFView, error) {
	doc, err := s.repo.FindPDF(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "find pdf")
	}
	if err := s.authorize(ctx, viewer, doc.PackageKey); err != nil {
		return nil, err
	}
	view := pdfViewFrom(doc, true)
	return &view, nil
}

func (s *service) ListVideos(ctx context.Context, filter ListFilter) ([]VideoView, error) {
	videos, err := s.repo.ListVideos(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list videos")
	}
	out := make([]VideoView, 0, len(videos))
	for i := range videos {
		out = append(out, videoViewFrom(&videos[i], false))
	}
	return out, nil
}

func (s *service) GetVideo(ctx context.Context, viewer Viewer, id uuid.UUID) (*VideoView, error) {
	video, err := s.repo.FindVideo(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "find video")
	}
	if err := s.authorize(ctx, viewer, video.PackageKey); err != nil {
		return nil, err
	}
	view := videoViewFrom(video, true)
	return &view, nil
}

func (s *service) ListStudyPrograms(ctx context.Context, filter ListFilter) ([]StudyProgramView, error) {
	programs, err := s.repo.ListStudyPrograms(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list study programs")
	}
	out := make([]StudyProgramView, 0, len(programs))
	for i := range programs {
		out = append(out, studyProgramViewFrom(&programs[i], false))
	}
	return out, nil
}

func (s *service) GetStudyProgram(ctx context.Context, viewer Viewer, id uuid.UUID) (*StudyProgramView, error) {
	program, err := s.repo.FindStudyProgram(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "find study program")
	}
	if err := s.authorize(ctx, viewer, program.PackageKey); err != nil {
		return nil, err
	}
	view := studyProgramViewFrom(program, true)
	return &view, nil
}

func notFoundOrInternal(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "content not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
