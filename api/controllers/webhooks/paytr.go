package webhooks

import (
	"context"
	"net/http"
	"time"

	"github.com/sinavhub/sinavhub-backend/api/responses"
	paytrwebhook "github.com/sinavhub/sinavhub-backend/internal/webhooks/paytr"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
	"github.com/sinavhub/sinavhub-backend/pkg/metrics"
	"github.com/sinavhub/sinavhub-backend/pkg/paytr"
)

type PayTRWebhookService interface {
	HandleNotification(ctx context.Context, n paytr.Notification) (paytrwebhook.Outcome, error)
}

// PayTRWebhook receives PayTR's form-encoded payment notification. PayTR
// retries until it sees a 200 response with the literal body "OK", so every
// processed outcome, including duplicates and failed payments, answers OK.
func PayTRWebhook(svc PayTRWebhookService, wm *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		started := time.Now()
		if err := r.ParseForm(); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse notification form"))
			return
		}

		notification := paytr.Notification{
			MerchantOID:      r.PostFormValue("merchant_oid"),
			Status:           r.PostFormValue("status"),
			TotalAmount:      r.PostFormValue("total_amount"),
			Hash:             r.PostFormValue("hash"),
			FailedReasonCode: r.PostFormValue("failed_reason_code"),
			FailedReasonMsg:  r.PostFormValue("failed_reason_msg"),
			PaymentType:      r.PostFormValue("payment_type"),
			Currency:         r.PostFormValue("currency"),
			TestMode:         r.PostFormValue("test_mode"),
		}

		outcome, err := svc.HandleNotification(ctx, notification)
		if wm != nil {
			wm.ObserveDuration("paytr", time.Since(started))
		}
		if err != nil {
			if wm != nil {
				wm.IncOutcome("paytr", "error")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if wm != nil {
			wm.IncOutcome("paytr", string(outcome))
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
