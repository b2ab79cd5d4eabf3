package iyzico

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sinavhub/sinavhub-backend/pkg/config"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
)

const (
	retrievePath   = "/payment/iyzipos/checkoutform/auth/ecom/detail"
	initializePath = "/payment/iyzipos/checkoutform/initialize/auth/ecom"

	statusSuccess  = "success"
	paymentSuccess = "SUCCESS"
)

var (
	errAPIKeyRequired    = errors.New("iyzico api key is required")
	errSecretKeyRequired = errors.New("iyzico secret key is required")
	errLoggerRequired    = errors.New("iyzico logger is required")
)

// BasketItem mirrors iyzico's basket item shape for checkout form initialize.
type BasketItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category1 string `json:"category1"`
	ItemType  string `json:"itemType"`
	Price     string `json:"price"`
}

// Buyer carries the purchaser details iyzico requires on initialize.
type Buyer struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Surname             string `json:"surname"`
	Email               string `json:"email"`
	IdentityNumber      string `json:"identityNumber"`
	RegistrationAddress string `json:"registrationAddress"`
	City                string `json:"city"`
	Country             string `json:"country"`
	IP                  string `json:"ip"`
}

// Address is iyzico's billing/shipping address shape.
type Address struct {
	ContactName string `json:"contactName"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Address     string `json:"address"`
}

// InitParams holds everything needed to open a hosted checkout form.
type InitParams struct {
	ConversationID string
	BasketID       string
	Price          string
	PaidPrice      string
	Currency       string
	CallbackURL    string
	Buyer          Buyer
	BillingAddress Address
	BasketItems    []BasketItem
}

// InitResult is the initialize response subset the checkout flow uses.
type InitResult struct {
	Status              string `json:"status"`
	ErrorMessage        string `json:"errorMessage"`
	Token               string `json:"token"`
	CheckoutFormContent string `json:"checkoutFormContent"`
	PaymentPageURL      string `json:"paymentPageUrl"`
}

// ItemTransaction is one basket line of a completed payment.
type ItemTransaction struct {
	ItemID               string `json:"itemId"`
	PaymentTransactionID string `json:"paymentTransactionId"`
	Price                string `json:"price"`
	PaidPrice            string `json:"paidPrice"`
}

// CheckoutFormResult is the retrieve response for a checkout form token.
type CheckoutFormResult struct {
	Status           string            `json:"status"`
	ErrorMessage     string            `json:"errorMessage"`
	PaymentStatus    string            `json:"paymentStatus"`
	PaymentID        string            `json:"paymentId"`
	BasketID         string            `json:"basketId"`
	Price            string            `json:"price"`
	PaidPrice        string            `json:"paidPrice"`
	Currency         string            `json:"currency"`
	ItemTransactions []ItemTransaction `json:"itemTransactions"`
}

// Succeeded reports whether the payment behind the token actually captured.
// Iyzico marks some captured payments with a non-SUCCESS paymentStatus while
// still assigning a transaction id to every basket line, so either signal
// counts.
func (r CheckoutFormResult) Succeeded() bool {
	if r.Status != statusSuccess {
		return false
	}
	if r.PaymentStatus == paymentSuccess {
		return true
	}
	if len(r.ItemTransactions) == 0 {
		return false
	}
	for _, it := range r.ItemTransactions {
		if strings.TrimSpace(it.PaymentTransactionID) == "" {
			return false
		}
	}
	return true
}

// Client talks to the iyzico REST API with IYZWSv2 request signatures. No
// maintained Go SDK exists, so the two checkout form calls are implemented
// directly.
type Client struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger

	// randomKey override for deterministic signature tests.
	randomKeyFn func() string
}

// NewClient validates the API credentials and builds the client.
func NewClient(ctx context.Context, cfg config.IyzicoConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	c := &Client{
		apiKey:      apiKey,
		secretKey:   secretKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logg,
		randomKeyFn: newRandomKey,
	}

	logg.Info(ctx, "iyzico client initialized")
	return c, nil
}

// RetrieveCheckoutForm resolves a checkout form token into the payment result.
// This is the server-to-server call the webhook must make: the inbound
// callback only proves someone knows a token, not that a payment captured.
func (c *Client) RetrieveCheckoutForm(ctx context.Context, conversationID, token string) (*CheckoutFormResult, error) {
	body := map[string]string{
		"locale":         "tr",
		"conversationId": conversationID,
		"token":          token,
	}
	c.log(ctx, "request", "retrieve_checkout_form", map[string]any{"conversation_id": conversationID})

	var result CheckoutFormResult
	if err := c.post(ctx, retrievePath, body, &result); err != nil {
		c.log(ctx, "error", "retrieve_checkout_form", map[string]any{"error": err.Error()})
		return nil, err
	}
	if result.Status != statusSuccess {
		c.log(ctx, "error", "retrieve_checkout_form", map[string]any{"error": result.ErrorMessage})
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("iyzico retrieve rejected: %s", result.ErrorMessage))
	}

	c.log(ctx, "response", "retrieve_checkout_form", map[string]any{
		"payment_id":     result.PaymentID,
		"payment_status": result.PaymentStatus,
	})
	return &result, nil
}

// InitCheckoutForm opens a hosted checkout form for a pending order.
func (c *Client) InitCheckoutForm(ctx context.Context, params InitParams) (*InitResult, error) {
	currency := params.Currency
	if currency == "" {
		currency = "TRY"
	}
	body := map[string]any{
		"locale":              "tr",
		"conversationId":      params.ConversationID,
		"basketId":            params.BasketID,
		"price":               params.Price,
		"paidPrice":           params.PaidPrice,
		"currency":            currency,
		"paymentGroup":        "PRODUCT",
		"callbackUrl":         params.CallbackURL,
		"enabledInstallments": []int{1},
		"buyer":               params.Buyer,
		"billingAddress":      params.BillingAddress,
		"basketItems":         params.BasketItems,
	}
	c.log(ctx, "request", "init_checkout_form", map[string]any{"basket_id": params.BasketID})

	var result InitResult
	if err := c.post(ctx, initializePath, body, &result); err != nil {
		c.log(ctx, "error", "init_checkout_form", map[string]any{"error": err.Error()})
		return nil, err
	}
	if result.Status != statusSuccess {
		c.log(ctx, "error", "init_checkout_form", map[string]any{"error": result.ErrorMessage})
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("iyzico initialize rejected: %s", result.ErrorMessage))
	}

	c.log(ctx, "response", "init_checkout_form", map[string]any{"basket_id": params.BasketID})
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "iyzico request failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "iyzico request failed")
	}
	randomKey := c.randomKeyFn()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authorizationHeader(randomKey, path, encoded))
	req.Header.Set("x-iyzi-rnd", randomKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "iyzico request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "iyzico request failed")
	}
	if resp.StatusCode != http.StatusOK {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("iyzico returned status %d", resp.StatusCode))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "iyzico response decode failed")
	}
	return nil
}

// authorizationHeader builds the IYZWSv2 value: the request path and body are
// HMAC-SHA256 signed under the secret key together with a per-request random
// key, then wrapped in base64 alongside the api key.
func (c *Client) authorizationHeader(randomKey, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(randomKey + path))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	authorization := fmt.Sprintf("apiKey:%s&randomKey:%s&signature:%s", c.apiKey, randomKey, signature)
	return "IYZWSv2 " + base64.StdEncoding.EncodeToString([]byte(authorization))
}

func newRandomKey() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("iyzico %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("iyzico %s", phase))
	}
}
