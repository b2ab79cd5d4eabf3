package paytr

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sinavhub/sinavhub-backend/pkg/config"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
)

const (
	// StatusSuccess is the notification status PayTR posts for captured payments.
	StatusSuccess = "success"
	// StatusFailed is posted for declined or abandoned payments.
	StatusFailed = "failed"

	tokenPath = "/odeme/api/get-token"
)

var (
	errMerchantIDRequired   = errors.New("paytr merchant id is required")
	errMerchantKeyRequired  = errors.New("paytr merchant key is required")
	errMerchantSaltRequired = errors.New("paytr merchant salt is required")
	errLoggerRequired       = errors.New("paytr logger is required")
)

// Notification is the form-encoded callback PayTR posts after every payment
// attempt. TotalAmount is the charged amount in kuruş as PayTR formatted it;
// it participates in the hash verbatim, so it stays a string.
type Notification struct {
	MerchantOID      string
	Status           string
	TotalAmount      string
	Hash             string
	FailedReasonCode string
	FailedReasonMsg  string
	PaymentType      string
	Currency         string
	TestMode         string
}

// TokenParams carries everything PayTR needs to mint an iframe token for a
// pending order. Amount is in kuruş.
type TokenParams struct {
	MerchantOID string
	UserIP      string
	Email       string
	AmountCents int64
	UserBasket  string
	UserName    string
	UserAddress string
	UserPhone   string
	OKURL       string
	FailURL     string
	Currency    string
}

// Client signs and verifies PayTR traffic. There is no official Go SDK, so
// the token call is a plain form POST against the merchant API.
type Client struct {
	merchantID   string
	merchantKey  []byte
	merchantSalt string
	baseURL      string
	testMode     bool
	httpClient   *http.Client
	logger       *logger.Logger
}

// NewClient validates the merchant credentials and builds the client.
func NewClient(ctx context.Context, cfg config.PayTRConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	merchantID := strings.TrimSpace(cfg.MerchantID)
	if merchantID == "" {
		return nil, errMerchantIDRequired
	}
	merchantKey := strings.TrimSpace(cfg.MerchantKey)
	if merchantKey == "" {
		return nil, errMerchantKeyRequired
	}
	merchantSalt := strings.TrimSpace(cfg.MerchantSalt)
	if merchantSalt == "" {
		return nil, errMerchantSaltRequired
	}

	c := &Client{
		merchantID:   merchantID,
		merchantKey:  []byte(merchantKey),
		merchantSalt: merchantSalt,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		testMode:     cfg.TestMode,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		logger:       logg,
	}

	logg.Info(ctx, "paytr client initialized")
	return c, nil
}

// NotificationHash computes the signature PayTR attaches to callbacks:
// base64(HMAC-SHA256(merchant_oid + merchant_salt + status + total_amount)).
func (c *Client) NotificationHash(merchantOID, status, totalAmount string) string {
	mac := hmac.New(sha256.New, c.merchantKey)
	mac.Write([]byte(merchantOID + c.merchantSalt + status + totalAmount))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyNotification recomputes the callback hash and compares it in constant
// time. A mismatch means the payload was tampered with or signed by someone
// else's credentials, and nothing downstream may trust it.
func (c *Client) VerifyNotification(n Notification) error {
	expected := c.NotificationHash(n.MerchantOID, n.Status, n.TotalAmount)
	if !hmac.Equal([]byte(expected), []byte(n.Hash)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "paytr notification hash mismatch")
	}
	return nil
}

// Succeeded reports whether the notification represents a captured payment.
func (n Notification) Succeeded() bool {
	return n.Status == StatusSuccess
}

// GetToken requests an iframe token for a pending order.
func (c *Client) GetToken(ctx context.Context, params TokenParams) (string, error) {
	noInstallment := "0"
	maxInstallment := "0"
	testMode := "0"
	if c.testMode {
		testMode = "1"
	}
	currency := params.Currency
	if currency == "" {
		currency = "TL"
	}
	amount := fmt.Sprintf("%d", params.AmountCents)

	// The token hash chains the request fields in PayTR's documented order,
	// salted and keyed the same way as notification hashes.
	mac := hmac.New(sha256.New, c.merchantKey)
	mac.Write([]byte(c.merchantID + params.UserIP + params.MerchantOID + params.Email +
		amount + params.UserBasket + noInstallment + maxInstallment + currency + testMode + c.merchantSalt))
	token := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	form := url.Values{}
	form.Set("merchant_id", c.merchantID)
	form.Set("user_ip", params.UserIP)
	form.Set("merchant_oid", params.MerchantOID)
	form.Set("email", params.Email)
	form.Set("payment_amount", amount)
	form.Set("paytr_token", token)
	form.Set("user_basket", params.UserBasket)
	form.Set("no_installment", noInstallment)
	form.Set("max_installment", maxInstallment)
	form.Set("user_name", params.UserName)
	form.Set("user_address", params.UserAddress)
	form.Set("user_phone", params.UserPhone)
	form.Set("merchant_ok_url", params.OKURL)
	form.Set("merchant_fail_url", params.FailURL)
	form.Set("currency", currency)
	form.Set("test_mode", testMode)

	c.log(ctx, "request", "get_token", map[string]any{"merchant_oid": params.MerchantOID, "amount": amount})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paytr get token failed")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", "get_token", map[string]any{"error": err.Error()})
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paytr get token failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paytr get token failed")
	}
	if resp.StatusCode != http.StatusOK {
		c.log(ctx, "error", "get_token", map[string]any{"status_code": resp.StatusCode})
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paytr get token returned status %d", resp.StatusCode))
	}

	var payload struct {
		Status string `json:"status"`
		Token  string `json:"token"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paytr get token failed")
	}
	if payload.Status != "success" {
		c.log(ctx, "error", "get_token", map[string]any{"reason": payload.Reason})
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paytr get token rejected: %s", payload.Reason))
	}

	c.log(ctx, "response", "get_token", map[string]any{"merchant_oid": params.MerchantOID})
	return payload.Token, nil
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
		c.logger.Error(ctx, fmt.Sprintf("paytr %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("paytr %s", phase))
	}
}
