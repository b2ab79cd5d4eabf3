package packages

import (
	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// PlanView is one purchasable duration option.
type PlanView struct {
	ID           uuid.UUID `json:"id"`
	PeriodMonths int       `json:"period_months"`
	PriceCents   int       `json:"price_cents"`
}

// PackageView is the storefront shape of a package.
type PackageView struct {
	ID          uuid.UUID        `json:"id"`
	Key         enums.PackageKey `json:"key"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Premium     bool             `json:"premium"`
	Plans       []PlanView       `json:"plans"`
}

// FromModel maps a package model to its storefront view.
func FromModel(pkg *models.Package) PackageView {
	plans := make([]PlanView, 0, len(pkg.Plans))
	for _, plan := range pkg.Plans {
		plans = append(plans, PlanView{
			ID:           plan.ID,
			PeriodMonths: plan.PeriodMonths,
			PriceCents:   plan.PriceCents,
		})
	}
	return PackageView{
		ID:          pkg.ID,
		Key:         pkg.Key,
		Title:       pkg.Title,
		Description: pkg.Description,
		Premium:     pkg.Key.IsPremium(),
		Plans:       plans,
	}
}
