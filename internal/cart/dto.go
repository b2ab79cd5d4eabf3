package cart

import (
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// AddItemRequest selects a package/duration pair for the cart. Price is
// always looked up server-side.
type AddItemRequest struct {
	PackageKey   string `json:"package_key" validate:"required"`
	PeriodMonths int    `json:"period_months" validate:"required,min=1,max=36"`
}

// CartItemView is one priced line in the cart.
type CartItemView struct {
	PackageKey   enums.PackageKey `json:"package_key"`
	PeriodMonths int              `json:"period_months"`
	PriceCents   int              `json:"price_cents"`
}

// CartView is the cart with its computed total.
type CartView struct {
	Items      []CartItemView `json:"items"`
	TotalCents int            `json:"total_cents"`
	Currency   string         `json:"currency"`
}
