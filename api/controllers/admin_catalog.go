package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/api/responses"
	"github.com/sinavhub/sinavhub-backend/api/validators"
	"github.com/sinavhub/sinavhub-backend/internal/catalog"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
)

// adminCatalogCreate wraps the decode-call-respond plumbing shared by every
// content type's create handler.
func adminCatalogCreate[Req any, T any](logg *logger.Logger, create func(r *http.Request, body Req) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body Req
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := create(r, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func adminCatalogUpdate[Req any, T any](logg *logger.Logger, update func(r *http.Request, id uuid.UUID, body Req) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := catalogContentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body Req
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := update(r, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func adminCatalogDelete(logg *logger.Logger, remove func(r *http.Request, id uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := catalogContentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := remove(r, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": id})
	}
}

func AdminExamCreate(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminCatalogCreate(logg, func(r *http.Request, body catalog.ExamInput) (*catalog.ExamDetail, error) {
		return svc.CreateExam(r.Context(), body)
	})
}

func AdminExamUpdate(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminCatalogUpdate(logg, func(r *http.Request, id uuid.UUID, body catalog.ExamInput) (*catalog.ExamDetail, error) {
		return svc.UpdateExam(r.Context(), id, body)
	})
}

func AdminExamDelete(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminCatalogDelete(logg, func(r *http.Request, id uuid.UUID) error {
		return svc.DeleteExam(r.Context(), id)
	})
}

func AdminPDFCreate(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminCatalogCreate(logg, func(r *http.Request, body catalog.PDFInput) (*catalog.PDFView, error) {
		return svc.CreatePDF(r.Context(), body)
	})
}

func AdminPDFUpdate(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminCatalogUpdate(logg, func(r *http.Request, id uuid.UUID, body catalog.PDFInput) (*catalog.PDFView, error) {
		return svc.UpdatePDF(r.Context(), id, body)
	})
}

func AdminPDFDelete(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminCatalogDelete(logg, func(r *http.Request, id uuid.UUID) error {
		return svc.DeletePDF(r.Context(), id)
	})
}

func AdminVideoCreate(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminCatalogCreate(logg, func(r *http.Request, body catalog.VideoInput) (*catalog.VideoView, error) {
		return svc.CreateVideo(r.Context(), body)
	})
}

func AdminVideoUpdate(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminCatalogUpdate(logg, func(r *http.Request, id uuid.UUID, body catalog.VideoInput) (*catalog.VideoView, error) {
		return svc.UpdateVideo(r.Context(), id, body)
	})
}

func AdminVideoDelete(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminCatalogDelete(logg, func(r *http.Request, id uuid.UUID) error {
		return svc.DeleteVideo(r.Context(), id)
	})
}

func AdminStudyProgramCreate(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminCatalogCreate(logg, func(r *http.Request, body catalog.StudyProgramInput) (*catalog.StudyProgramView, error) {
		return svc.CreateStudyProgram(r.Context(), body)
	})
}

func AdminStudyProgramUpdate(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminCatalogUpdate(logg, func(r *http.Request, id uuid.UUID, body catalog.StudyProgramInput) (*catalog.StudyProgramView, error) {
		return svc.UpdateStudyProgram(r.Context(), id, body)
	})
}

func AdminStudyProgramDelete(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return adminCatalogDelete(logg, func(r *http.Request, id uuid.UUID) error {
		return svc.DeleteStudyProgram(r.Context(), id)
	})
}
