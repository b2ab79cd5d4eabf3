package paytr

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sinavhub/sinavhub-backend/pkg/config"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logg := testLogger()
	client, err := NewClient(context.Background(), config.PayTRConfig{
		MerchantID:   "123456",
		MerchantKey:  "testkey",
		MerchantSalt: "testsalt",
		BaseURL:      baseURL,
		Timeout:      5 * time.Second,
	}, logg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientValidatesCredentials(t *testing.T) {
	logg := testLogger()
	if _, err := NewClient(context.Background(), config.PayTRConfig{MerchantKey: "k", MerchantSalt: "s"}, logg); err == nil {
		t.Fatal("expected missing merchant id to be rejected")
	}
	if _, err := NewClient(context.Background(), config.PayTRConfig{MerchantID: "1", MerchantSalt: "s"}, logg); err == nil {
		t.Fatal("expected missing merchant key to be rejected")
	}
	if _, err := NewClient(context.Background(), config.PayTRConfig{MerchantID: "1", MerchantKey: "k"}, logg); err == nil {
		t.Fatal("expected missing merchant salt to be rejected")
	}
}

func TestVerifyNotification(t *testing.T) {
	client := newTestClient(t, "https://www.paytr.com")

	n := Notification{
		MerchantOID: "SH-20260831-0001",
		Status:      StatusSuccess,
		TotalAmount: "49900",
	}
	n.Hash = client.NotificationHash(n.MerchantOID, n.Status, n.TotalAmount)

	if err := client.VerifyNotification(n); err != nil {
		t.Fatalf("valid hash rejected: %v", err)
	}

	// Any mutation of a signed field must invalidate the hash.
	tampered := n
	tampered.TotalAmount = "1"
	if err := client.VerifyNotification(tampered); err == nil {
		t.Fatal("tampered amount accepted")
	} else if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}

	tampered = n
	tampered.Status = StatusFailed
	if err := client.VerifyNotification(tampered); err == nil {
		t.Fatal("flipped status accepted")
	}
}

func TestNotificationSucceeded(t *testing.T) {
	if !(Notification{Status: StatusSuccess}).Succeeded() {
		t.Fatal("success status should report succeeded")
	}
	if (Notification{Status: StatusFailed}).Succeeded() {
		t.Fatal("failed status should not report succeeded")
	}
}

func TestGetToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tokenPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostFormValue("merchant_id") != "123456" {
			t.Fatalf("unexpected merchant_id %q", r.PostFormValue("merchant_id"))
		}
		if r.PostFormValue("paytr_token") == "" {
			t.Fatal("missing paytr_token")
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "success", "token": "iframe-token"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	token, err := client.GetToken(context.Background(), TokenParams{
		MerchantOID: "SH-20260831-0001",
		UserIP:      "203.0.113.9",
		Email:       "student@example.com",
		AmountCents: 49900,
		UserBasket:  `[["KPSS Tam Paket","499.00",1]]`,
	})
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if token != "iframe-token" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestGetTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "failed", "reason": "invalid hash"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if _, err := client.GetToken(context.Background(), TokenParams{MerchantOID: "SH-1"}); err == nil {
		t.Fatal("expected rejected token request to fail")
	}
}
