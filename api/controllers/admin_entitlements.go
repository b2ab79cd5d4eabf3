package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/api/responses"
	"github.com/sinavhub/sinavhub-backend/api/validators"
	"github.com/sinavhub/sinavhub-backend/internal/entitlements"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
)

type grantPackageRequest struct {
	PackageKey    string `json:"package_key" validate:"required"`
	DurationHours int    `json:"duration_hours" validate:"required,min=1,max=87600"`
}

type extendPackageRequest struct {
	AdditionalHours int `json:"additional_hours" validate:"required,min=1,max=87600"`
}

func adminTargetUser(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}

func parsePackageKey(raw string) (enums.PackageKey, error) {
	key, err := enums.ParsePackageKey(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid package key")
	}
	return key, nil
}

// AdminGrantPackage grants a package to a user for a fixed number of hours.
func AdminGrantPackage(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlements service unavailable"))
			return
		}

		userID, err := adminTargetUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body grantPackageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key, err := parsePackageKey(body.PackageKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddPackage(r.Context(), userID, key, body.DurationHours)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminExtendPackage(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlements service unavailable"))
			return
		}

		userID, err := adminTargetUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key, err := parsePackageKey(chi.URLParam(r, "packageKey"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body extendPackageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ExtendPackage(r.Context(), userID, key, body.AdditionalHours)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminRemovePackage(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlements service unavailable"))
			return
		}

		userID, err := adminTargetUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key, err := parsePackageKey(chi.URLParam(r, "packageKey"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RemovePackage(r.Context(), userID, key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminGetEntitlement returns the raw entitlement record for a user.
func AdminGetEntitlement(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlements service unavailable"))
			return
		}

		userID, err := adminTargetUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetEntitlement(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
