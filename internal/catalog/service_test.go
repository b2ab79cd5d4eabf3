package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func keyPtr(key enums.PackageKey) *enums.PackageKey {
	return &key
}

func activeEntitlement(userID uuid.UUID, key enums.PackageKey) *models.Entitlement {
	exp := fixedNow.AddDate(0, 1, 0)
	return &models.Entitlement{
		UserID:             userID,
		OwnedPackages:      map[string]bool{key.String(): true},
		PackageExpiryDates: map[string]*time.Time{key.String(): &exp},
	}
}

func buildCatalogService(t *testing.T, repo Repository, ents entitlementFinder) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:            repo,
		EntitlementRepo: ents,
		Now:             func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func TestGetExamFreeContent(t *testing.T) {
	exam := &models.PracticeExam{
		ID:    uuid.New(),
		Title: "Deneme 1",
		Questions: []models.Question{
			{ID: uuid.New(), Position: 1, Prompt: "Soru?", Choices: []string{"A", "B"}, CorrectIndex: 0},
		},
	}
	svc := buildCatalogService(t, &stubCatalogRepo{exam: exam}, &stubEntFinder{})

	detail, err := svc.GetExam(context.Background(), Viewer{UserID: uuid.New()}, exam.ID)
	if err != nil {
		t.Fatalf("get exam: %v", err)
	}
	if len(detail.Questions) != 1 {
		t.Fatalf("expected questions on free exam, got %d", len(detail.Questions))
	}
}

func TestGetExamGatedWithoutPackage(t *testing.T) {
	exam := &models.PracticeExam{
		ID:         uuid.New(),
		Title:      "Tam Paket Denemesi",
		PackageKey: keyPtr(enums.PackageKPSSFull),
	}
	svc := buildCatalogService(t, &stubCatalogRepo{exam: exam}, &stubEntFinder{})

	_, err := svc.GetExam(context.Background(), Viewer{UserID: uuid.New()}, exam.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestGetExamGatedWithActivePackage(t *testing.T) {
	userID := uuid.New()
	exam := &models.PracticeExam{
		ID:         uuid.New(),
		Title:      "Tam Paket Denemesi",
		PackageKey: keyPtr(enums.PackageKPSSFull),
	}
	ents := &stubEntFinder{ent: activeEntitlement(userID, enums.PackageKPSSFull)}
	svc := buildCatalogService(t, &stubCatalogRepo{exam: exam}, ents)

	if _, err := svc.GetExam(context.Background(), Viewer{UserID: userID}, exam.ID); err != nil {
		t.Fatalf("expected access with active package, got %v", err)
	}
}

func TestGetExamGatedExpiredPackage(t *testing.T) {
	userID := uuid.New()
	exam := &models.PracticeExam{
		ID:         uuid.New(),
		PackageKey: keyPtr(enums.PackageKPSSFull),
	}
	ent := activeEntitlement(userID, enums.PackageKPSSFull)
	past := fixedNow.Add(-time.Hour)
	ent.PackageExpiryDates[enums.PackageKPSSFull.String()] = &past
	svc := buildCatalogService(t, &stubCatalogRepo{exam: exam}, &stubEntFinder{ent: ent})

	_, err := svc.GetExam(context.Background(), Viewer{UserID: userID}, exam.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for expired package, got %v", err)
	}
}

func TestGetPDFAdminBypassesGate(t *testing.T) {
	doc := &models.PDFDocument{
		ID:         uuid.New(),
		Title:      "Konu Ozeti",
		FileURL:    "https://cdn.example/doc.pdf",
		PackageKey: keyPtr(enums.PackageAGSFull),
	}
	svc := buildCatalogService(t, &stubCatalogRepo{pdf: doc}, &stubEntFinder{})

	view, err := svc.GetPDF(context.Background(), Viewer{UserID: uuid.New(), Admin: true}, doc.ID)
	if err != nil {
		t.Fatalf("admin access: %v", err)
	}
	if view.FileURL == "" {
		t.Fatalf("expected file url on detail view")
	}
}

func TestListPDFsHidesFileURL(t *testing.T) {
	doc := models.PDFDocument{
		ID:      uuid.New(),
		Title:   "Konu Ozeti",
		FileURL: "https://cdn.example/doc.pdf",
	}
	svc := buildCatalogService(t, &stubCatalogRepo{pdfs: []models.PDFDocument{doc}}, &stubEntFinder{})

	views, err := svc.ListPDFs(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("list pdfs: %v", err)
	}
	if len(views) != 1 || views[0].FileURL != "" {
		t.Fatalf("listing must not leak file urls: %+v", views)
	}
}

func TestGetVideoUnknownID(t *testing.T) {
	svc := buildCatalogService(t, &stubCatalogRepo{}, &stubEntFinder{})

	_, err := svc.GetVideo(context.Background(), Viewer{UserID: uuid.New()}, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

type stubCatalogRepo struct {
	exam     *models.PracticeExam
	pdf      *models.PDFDocument
	pdfs     []models.PDFDocument
	video    *models.Video
	videos   []models.Video
	program  *models.StudyProgram
	programs []models.StudyProgram
	exams    []models.PracticeExam

	createdExam  *models.PracticeExam
	replacedExam *models.PracticeExam
	savedPDF     *models.PDFDocument
	savedVideo   *models.Video
	savedProgram *models.StudyProgram
	deleted      []uuid.UUID
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubCatalogRepo) ListExams(ctx context.Context, filter ListFilter) ([]models.PracticeExam, error) {
	return s.exams, nil
}

func (s *stubCatalogRepo) FindExam(ctx context.Context, id uuid.UUID) (*models.PracticeExam, error) {
	if s.exam != nil && s.exam.ID == id {
		return s.exam, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) ListPDFs(ctx context.Context, filter ListFilter) ([]models.PDFDocument, error) {
	return s.pdfs, nil
}

func (s *stubCatalogRepo) FindPDF(ctx context.Context, id uuid.UUID) (*models.PDFDocument, error) {
	if s.pdf != nil && s.pdf.ID == id {
		return s.pdf, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) ListVideos(ctx context.Context, filter ListFilter) ([]models.Video, error) {
	return s.videos, nil
}

func (s *stubCatalogRepo) FindVideo(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	if s.video != nil && s.video.ID == id {
		return s.video, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) ListStudyPrograms(ctx context.Context, filter ListFilter) ([]models.StudyProgram, error) {
	return s.programs, nil
}

func (s *stubCatalogRepo) FindStudyProgram(ctx context.Context, id uuid.UUID) (*models.StudyProgram, error) {
	if s.program != nil && s.program.ID == id {
		return s.program, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) CreateExam(ctx context.Context, exam *models.PracticeExam) error {
	exam.ID = uuid.New()
	s.createdExam = exam
	return nil
}

func (s *stubCatalogRepo) FindExamAny(ctx context.Context, id uuid.UUID) (*models.PracticeExam, error) {
	return s.FindExam(ctx, id)
}

func (s *stubCatalogRepo) ReplaceExam(ctx context.Context, exam *models.PracticeExam) error {
	s.replacedExam = exam
	return nil
}

func (s *stubCatalogRepo) DeleteExam(ctx context.Context, id uuid.UUID) error {
	if s.exam == nil || s.exam.ID != id {
		return gorm.ErrRecordNotFound
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubCatalogRepo) CreatePDF(ctx context.Context, doc *models.PDFDocument) error {
	doc.ID = uuid.New()
	s.savedPDF = doc
	return nil
}

func (s *stubCatalogRepo) FindPDFAny(ctx context.Context, id uuid.UUID) (*models.PDFDocument, error) {
	return s.FindPDF(ctx, id)
}

func (s *stubCatalogRepo) SavePDF(ctx context.Context, doc *models.PDFDocument) error {
	s.savedPDF = doc
	return nil
}

func (s *stubCatalogRepo) DeletePDF(ctx context.Context, id uuid.UUID) error {
	if s.pdf == nil || s.pdf.ID != id {
		return gorm.ErrRecordNotFound
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubCatalogRepo) CreateVideo(ctx context.Context, video *models.Video) error {
	video.ID = uuid.New()
	s.savedVideo = video
	return nil
}

func (s *stubCatalogRepo) FindVideoAny(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	return s.FindVideo(ctx, id)
}

func (s *stubCatalogRepo) SaveVideo(ctx context.Context, video *models.Video) error {
	s.savedVideo = video
	return nil
}

func (s *stubCatalogRepo) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	if s.video == nil || s.video.ID != id {
		return gorm.ErrRecordNotFound
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubCatalogRepo) CreateStudyProgram(ctx context.Context, program *models.StudyProgram) error {
	program.ID = uuid.New()
	s.savedProgram = program
	return nil
}

func (s *stubCatalogRepo) FindStudyProgramAny(ctx context.Context, id uuid.UUID) (*models.StudyProgram, error) {
	return s.FindStudyProgram(ctx, id)
}

func (s *stubCatalogRepo) SaveStudyProgram(ctx context.Context, program *models.StudyProgram) error {
	s.savedProgram = program
	return nil
}

func (s *stubCatalogRepo) DeleteStudyProgram(ctx context.Context, id uuid.UUID) error {
	if s.program == nil || s.program.ID != id {
		return gorm.ErrRecordNotFound
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubEntFinder struct {
	ent *models.Entitlement
}

func (s *stubEntFinder) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Entitlement, error) {
	if s.ent != nil && s.ent.UserID == userID {
		return s.ent, nil
	}
	return nil, gorm.ErrRecordNotFound
}
