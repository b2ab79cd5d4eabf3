package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/api/responses"
	"github.com/sinavhub/sinavhub-backend/api/validators"
	"github.com/sinavhub/sinavhub-backend/internal/orders"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
)

func adminOrderFilter(r *http.Request) (orders.SearchFilter, error) {
	var filter orders.SearchFilter

	if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
		}
		filter.UserID = userID
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("provider")); raw != "" {
		provider, err := enums.ParsePaymentProvider(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider")
		}
		filter.Provider = provider
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

// AdminOrderSearch is the back-office order lookup across all accounts.
func AdminOrderSearch(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		filter, err := adminOrderFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SearchOrders(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
