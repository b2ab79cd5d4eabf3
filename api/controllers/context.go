package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/api/middleware"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
)

// currentUserID extracts the authenticated user id seeded by the auth middleware.
func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}
