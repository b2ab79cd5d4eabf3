package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/api/middleware"
	"github.com/sinavhub/sinavhub-backend/api/responses"
	"github.com/sinavhub/sinavhub-backend/api/validators"
	"github.com/sinavhub/sinavhub-backend/internal/catalog"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
)

func catalogViewer(r *http.Request) (catalog.Viewer, error) {
	userID, err := currentUserID(r)
	if err != nil {
		return catalog.Viewer{}, err
	}
	return catalog.Viewer{
		UserID: userID,
		Admin:  middleware.RoleFromContext(r.Context()) == "admin",
	}, nil
}

func catalogFilter(r *http.Request) (catalog.ListFilter, error) {
	var filter catalog.ListFilter

	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		category, err := enums.ParseExamCategory(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		filter.Category = category
	}

	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 200)
	if err != nil {
		return filter, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	filter.Offset = offset
	return filter, nil
}

func catalogContentID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "contentId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid content id")
	}
	return id, nil
}

// catalogList wraps the list plumbing shared by every content type.
func catalogList[T any](logg *logger.Logger, list func(r *http.Request, filter catalog.ListFilter) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := catalogFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := list(r, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func catalogDetail[T any](logg *logger.Logger, get func(r *http.Request, viewer catalog.Viewer, id uuid.UUID) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := catalogViewer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := catalogContentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := get(r, viewer, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ExamList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return catalogList(logg, func(r *http.Request, filter catalog.ListFilter) ([]catalog.ExamSummary, error) {
		return svc.ListExams(r.Context(), filter)
	})
}

func ExamDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return catalogDetail(logg, func(r *http.Request, viewer catalog.Viewer, id uuid.UUID) (*catalog.ExamDetail, error) {
		return svc.GetExam(r.Context(), viewer, id)
	})
}

func PDFList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return catalogList(logg, func(r *http.Request, filter catalog.ListFilter) ([]catalog.PDFView, error) {
		return svc.ListPDFs(r.Context(), filter)
	})
}

func PDFDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return catalogDetail(logg, func(r *http.Request, viewer catalog.Viewer, id uuid.UUID) (*catalog.PDFView, error) {
		return svc.GetPDF(r.Context(), viewer, id)
	})
}

func VideoList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return catalogList(logg, func(r *http.Request, filter catalog.ListFilter) ([]catalog.VideoView, error) {
		return svc.ListVideos(r.Context(), filter)
	})
}

func VideoDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return catalogDetail(logg, func(r *http.Request, viewer catalog.Viewer, id uuid.UUID) (*catalog.VideoView, error) {
		return svc.GetVideo(r.Context(), viewer, id)
	})
}

func StudyProgramList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return catalogList(logg, func(r *http.Request, filter catalog.ListFilter) ([]catalog.StudyProgramView, error) {
		return svc.ListStudyPrograms(r.Context(), filter)
	})
}

func StudyProgramDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return catalogDetail(logg, func(r *http.Request, viewer catalog.Viewer, id uuid.UUID) (*catalog.StudyProgramView, error) {
		return svc.GetStudyProgram(r.Context(), viewer, id)
	})
}
