package checkout

import (
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
)

// StartCheckoutRequest opens a payment session for the current cart.
type StartCheckoutRequest struct {
	Provider string `json:"provider" validate:"required,oneof=paytr iyzico"`

	// Buyer details forwarded to the provider. The client IP is filled by
	// the controller, never trusted from the body.
	IdentityNumber string `json:"identity_number" validate:"omitempty,len=11,numeric"`
	Address        string `json:"address" validate:"omitempty,max=300"`
	City           string `json:"city" validate:"omitempty,max=100"`
	Phone          string `json:"phone" validate:"omitempty,max=20"`

	UserIP string `json:"-"`
}

// CheckoutSession is what the client needs to hand control to the provider.
// PayTR sessions carry an iframe token; iyzico sessions carry the hosted
// form token and page URL.
type CheckoutSession struct {
	OrderID    string                `json:"order_id"`
	Provider   enums.PaymentProvider `json:"provider"`
	TotalCents int                   `json:"total_cents"`
	Currency   string                `json:"currency"`

	IframeToken string `json:"iframe_token,omitempty"`

	Token          string `json:"token,omitempty"`
	PaymentPageURL string `json:"payment_page_url,omitempty"`
}
