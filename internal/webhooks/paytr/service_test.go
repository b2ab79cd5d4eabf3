package paytrwebhook

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/internal/entitlements"
	"github.com/sinavhub/sinavhub-backend/internal/orders"
	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
	"github.com/sinavhub/sinavhub-backend/pkg/paytr"
)

type stubVerifier struct {
	err error
}

func (s stubVerifier) VerifyNotification(paytr.Notification) error { return s.err }

type stubOrderRepo struct {
	orders map[string]*models.Order
	reads  int
	paid   []string
	failed []string
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrderRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrderRepo) FindByID(_ context.Context, id string) (*models.Order, error) {
	s.reads++
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrderRepo) FindByIDForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return s.FindByID(ctx, id)
}

func (s *stubOrderRepo) MarkPaid(_ context.Context, id string, providerRef string, paidAt time.Time) error {
	s.paid = append(s.paid, id)
	order := s.orders[id]
	order.Status = enums.OrderStatusPaid
	order.ProviderRef = &providerRef
	order.PaidAt = &paidAt
	return nil
}

func (s *stubOrderRepo) MarkFailed(_ context.Context, id string, reason string, providerRef string, failedAt time.Time) error {
	s.failed = append(s.failed, id)
	order := s.orders[id]
	order.Status = enums.OrderStatusFailed
	order.FailedReason = &reason
	order.FailedAt = &failedAt
	return nil
}

func (s *stubOrderRepo) ListByUser(_ context.Context, _ uuid.UUID, _ int) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrderRepo) Search(_ context.Context, _ orders.SearchFilter) ([]models.Order, error) {
	return nil, nil
}

type stubEntRepo struct {
	ents  map[uuid.UUID]*models.Entitlement
	saves int
}

func (s *stubEntRepo) WithTx(tx *gorm.DB) entitlements.Repository { return s }

func (s *stubEntRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*models.Entitlement, error) {
	ent, ok := s.ents[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return ent, nil
}

func (s *stubEntRepo) FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Entitlement, error) {
	return s.FindByUserID(ctx, userID)
}

func (s *stubEntRepo) Save(_ context.Context, ent *models.Entitlement) error {
	s.saves++
	s.ents[ent.UserID] = ent
	return nil
}

func (s *stubEntRepo) ListPremium(_ context.Context, _ int, _ uuid.UUID) ([]models.Entitlement, error) {
	return nil, nil
}

type stubTx struct{ calls int }

func (s *stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.calls++
	return fn(nil)
}

type stubClaims struct {
	attrs map[string]map[string]any
	sets  int
}

func (s *stubClaims) GetCustomClaims(_ context.Context, userID string) (map[string]any, error) {
	if attrs, ok := s.attrs[userID]; ok {
		return attrs, nil
	}
	return map[string]any{}, nil
}

func (s *stubClaims) SetCustomClaims(_ context.Context, userID string, attrs map[string]any) error {
	s.sets++
	s.attrs[userID] = attrs
	return nil
}

type fixture struct {
	svc      *Service
	orders   *stubOrderRepo
	ents     *stubEntRepo
	claims   *stubClaims
	now      time.Time
	verifier *stubVerifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	f := &fixture{
		orders:   &stubOrderRepo{orders: map[string]*models.Order{}},
		ents:     &stubEntRepo{ents: map[uuid.UUID]*models.Entitlement{}},
		claims:   &stubClaims{attrs: map[string]map[string]any{}},
		now:      now,
		verifier: &stubVerifier{},
	}
	svc, err := NewService(ServiceParams{
		Verifier:          f.verifier,
		OrderRepo:         f.orders,
		EntitlementRepo:   f.ents,
		Claims:            f.claims,
		TransactionRunner: &stubTx{},
		Logger:            logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard}),
		Now:               func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) seedOrder(t *testing.T, status enums.OrderStatus, items ...models.OrderItem) (*models.Order, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	order := &models.Order{
		ID:       "SH-20260831-0001",
		UserID:   userID,
		Provider: enums.ProviderPayTR,
		Status:   status,
		Items:    items,
	}
	f.orders.orders[order.ID] = order
	f.ents.ents[userID] = &models.Entitlement{UserID: userID}
	return order, userID
}

func TestHandleNotificationSettlesPaidOrder(t *testing.T) {
	f := newFixture(t)
	order, userID := f.seedOrder(t, enums.OrderStatusPending, models.OrderItem{
		PackageKey:   enums.PackageKPSSFull,
		PeriodMonths: 1,
		PriceCents:   49900,
	})

	outcome, err := f.svc.HandleNotification(context.Background(), paytr.Notification{
		MerchantOID: order.ID,
		Status:      paytr.StatusSuccess,
		TotalAmount: "49900",
		PaymentType: "card",
	})
	if err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	if outcome != OutcomePaid {
		t.Fatalf("outcome = %s, want paid", outcome)
	}
	if order.Status != enums.OrderStatusPaid || order.PaidAt == nil {
		t.Fatalf("order not settled: %+v", order)
	}

	ent := f.ents.ents[userID]
	if !ent.OwnedPackages["KPSS_FULL"] {
		t.Fatal("package not granted")
	}
	wantExpiry := f.now.AddDate(0, 1, 0)
	if got := ent.PackageExpiryDates["KPSS_FULL"]; got == nil || !got.Equal(wantExpiry) {
		t.Fatalf("expiry = %v, want %v", got, wantExpiry)
	}
	if !ent.IsPremium || ent.PremiumExpiryDate == nil {
		t.Fatal("premium mirror not set")
	}

	attrs := f.claims.attrs[userID.String()]
	if premium, _ := attrs["premium"].(bool); !premium {
		t.Fatal("premium claim not refreshed")
	}
	if exp, _ := attrs["premiumExp"].(int64); exp != wantExpiry.UnixMilli() {
		t.Fatalf("premiumExp = %v, want %d", attrs["premiumExp"], wantExpiry.UnixMilli())
	}
}

func TestHandleNotificationDuplicateIsNoOp(t *testing.T) {
	f := newFixture(t)
	order, _ := f.seedOrder(t, enums.OrderStatusPaid, models.OrderItem{
		PackageKey:   enums.PackageEKPSS,
		PeriodMonths: 3,
	})

	outcome, err := f.svc.HandleNotification(context.Background(), paytr.Notification{
		MerchantOID: order.ID,
		Status:      paytr.StatusSuccess,
		TotalAmount: "19900",
	})
	if err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	if outcome != OutcomeDuplicate {
		t.Fatalf("outcome = %s, want duplicate", outcome)
	}
	if f.ents.saves != 0 {
		t.Fatalf("duplicate must not write entitlements, saves=%d", f.ents.saves)
	}
	if len(f.orders.paid) != 0 || len(f.orders.failed) != 0 {
		t.Fatal("duplicate must not rewrite order status")
	}
	if f.claims.sets != 0 {
		t.Fatal("duplicate must not touch claims")
	}
}

func TestHandleNotificationRejectsBadHashWithoutStoreAccess(t *testing.T) {
	f := newFixture(t)
	f.verifier.err = pkgerrors.New(pkgerrors.CodeValidation, "paytr notification hash mismatch")
	f.seedOrder(t, enums.OrderStatusPending)

	_, err := f.svc.HandleNotification(context.Background(), paytr.Notification{
		MerchantOID: "SH-20260831-0001",
		Status:      paytr.StatusSuccess,
		TotalAmount: "1",
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.orders.reads != 0 {
		t.Fatalf("rejected payload must not touch the store, reads=%d", f.orders.reads)
	}
}

func TestHandleNotificationFailureWritesNoEntitlement(t *testing.T) {
	f := newFixture(t)
	order, userID := f.seedOrder(t, enums.OrderStatusPending, models.OrderItem{
		PackageKey:   enums.PackageKPSSFull,
		PeriodMonths: 1,
	})

	outcome, err := f.svc.HandleNotification(context.Background(), paytr.Notification{
		MerchantOID:      order.ID,
		Status:           paytr.StatusFailed,
		TotalAmount:      "49900",
		FailedReasonCode: "51",
		FailedReasonMsg:  "insufficient funds",
	})
	if err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", outcome)
	}
	if order.Status != enums.OrderStatusFailed {
		t.Fatalf("order status = %s, want failed", order.Status)
	}
	if order.FailedReason == nil || *order.FailedReason != "51: insufficient funds" {
		t.Fatalf("failed reason = %v", order.FailedReason)
	}
	if f.ents.saves != 0 {
		t.Fatalf("failed payment must not grant packages, saves=%d", f.ents.saves)
	}
	if ent := f.ents.ents[userID]; len(ent.OwnedPackages) != 0 {
		t.Fatalf("entitlement mutated on failure: %v", ent.OwnedPackages)
	}
}

func TestHandleNotificationUnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.HandleNotification(context.Background(), paytr.Notification{
		MerchantOID: "SH-unknown",
		Status:      paytr.StatusSuccess,
		TotalAmount: "100",
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeInternal {
		t.Fatalf("expected internal error for the unknown order, got %v", err)
	}
}
