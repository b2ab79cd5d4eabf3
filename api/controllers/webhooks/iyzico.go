package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sinavhub/sinavhub-backend/api/responses"
	iyzicowebhook "github.com/sinavhub/sinavhub-backend/internal/webhooks/iyzico"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
	"github.com/sinavhub/sinavhub-backend/pkg/metrics"
)

type IyzicoWebhookService interface {
	HandleCallback(ctx context.Context, token string) (iyzicowebhook.Outcome, error)
}

const callbackBodyLimit = 64 << 10

// callbackToken pulls the checkout form token out of the JSON body iyzico
// posts, falling back to form encoding and finally the query string.
func callbackToken(r *http.Request) string {
	raw, err := io.ReadAll(io.LimitReader(r.Body, callbackBodyLimit))
	if err == nil && len(raw) > 0 {
		var body struct {
			Token string `json:"token"`
		}
		if json.Unmarshal(raw, &body) == nil {
			if token := strings.TrimSpace(body.Token); token != "" {
				return token
			}
		}
		if values, err := url.ParseQuery(string(raw)); err == nil {
			if token := strings.TrimSpace(values.Get("token")); token != "" {
				return token
			}
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// IyzicoCallback receives the provider callback after an iyzico checkout
// form completes. The contract is the order id in the query plus a JSON
// `{token}` body. The order id only identifies the callback in logs; the
// settled order comes from the retrieve call inside the service.
func IyzicoCallback(svc IyzicoWebhookService, wm *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		started := time.Now()

		orderID := strings.TrimSpace(r.URL.Query().Get("orderId"))
		if orderID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "orderId query parameter missing"))
			return
		}

		token := callbackToken(r)
		if token == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "callback token missing"))
			return
		}

		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID)
		}

		outcome, err := svc.HandleCallback(ctx, token)
		if wm != nil {
			wm.ObserveDuration("iyzico", time.Since(started))
		}
		if err != nil {
			if wm != nil {
				wm.IncOutcome("iyzico", "error")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if wm != nil {
			wm.IncOutcome("iyzico", string(outcome))
		}
		responses.WriteSuccess(w, map[string]string{"outcome": string(outcome)})
	}
}
