package iyzico

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sinavhub/sinavhub-backend/pkg/config"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	client, err := NewClient(context.Background(), config.IyzicoConfig{
		APIKey:    "test-api-key",
		SecretKey: "test-secret",
		BaseURL:   baseURL,
		Timeout:   5 * time.Second,
	}, logg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.randomKeyFn = func() string { return "fixedrnd" }
	return client
}

func TestAuthorizationHeader(t *testing.T) {
	client := newTestClient(t, "https://api.iyzipay.com")
	body := []byte(`{"token":"tok"}`)
	header := client.authorizationHeader("fixedrnd", retrievePath, body)

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte("fixedrnd" + retrievePath))
	mac.Write(body)
	want := "IYZWSv2 " + base64.StdEncoding.EncodeToString([]byte(
		"apiKey:test-api-key&randomKey:fixedrnd&signature:"+hex.EncodeToString(mac.Sum(nil))))

	if header != want {
		t.Fatalf("authorization header mismatch\n got %s\nwant %s", header, want)
	}
}

func TestRetrieveCheckoutForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != retrievePath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-iyzi-rnd") != "fixedrnd" {
			t.Fatalf("missing random key header")
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["token"] != "tok-1" {
			t.Fatalf("unexpected token %q", req["token"])
		}
		json.NewEncoder(w).Encode(CheckoutFormResult{
			Status:        "success",
			PaymentStatus: "SUCCESS",
			PaymentID:     "pay-1",
			BasketID:      "SH-20260831-0001",
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	result, err := client.RetrieveCheckoutForm(context.Background(), "conv-1", "tok-1")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if result.PaymentID != "pay-1" || !result.Succeeded() {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRetrieveCheckoutFormRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CheckoutFormResult{Status: "failure", ErrorMessage: "token expired"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if _, err := client.RetrieveCheckoutForm(context.Background(), "conv-1", "tok-expired"); err == nil {
		t.Fatal("expected failure status to surface as error")
	}
}

func TestCheckoutFormResultSucceeded(t *testing.T) {
	cases := []struct {
		name   string
		result CheckoutFormResult
		want   bool
	}{
		{"payment status success", CheckoutFormResult{Status: "success", PaymentStatus: "SUCCESS"}, true},
		{
			"all items have transaction ids",
			CheckoutFormResult{Status: "success", PaymentStatus: "INIT_THREEDS", ItemTransactions: []ItemTransaction{
				{ItemID: "KPSS_FULL", PaymentTransactionID: "tx-1"},
				{ItemID: "AGS_FULL", PaymentTransactionID: "tx-2"},
			}},
			true,
		},
		{
			"one item missing transaction id",
			CheckoutFormResult{Status: "success", PaymentStatus: "FAILURE", ItemTransactions: []ItemTransaction{
				{ItemID: "KPSS_FULL", PaymentTransactionID: "tx-1"},
				{ItemID: "AGS_FULL"},
			}},
			false,
		},
		{"no items and no success status", CheckoutFormResult{Status: "success", PaymentStatus: "FAILURE"}, false},
		{"api level failure", CheckoutFormResult{Status: "failure", PaymentStatus: "SUCCESS"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.result.Succeeded(); got != tc.want {
				t.Fatalf("Succeeded() = %v, want %v", got, tc.want)
			}
		})
	}
}
