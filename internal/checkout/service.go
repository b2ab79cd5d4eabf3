package checkout

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sinavhub/sinavhub-backend/internal/orders"
	"github.com/sinavhub/sinavhub-backend/pkg/config"
	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/iyzico"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
	"github.com/sinavhub/sinavhub-backend/pkg/paytr"
)

// Service opens payment sessions from the user's cart.
type Service interface {
	StartCheckout(ctx context.Context, userID uuid.UUID, req StartCheckoutRequest) (*CheckoutSession, error)
}

type cartRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type orderRepository interface {
	WithTx(tx *gorm.DB) orders.Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paytrGateway interface {
	GetToken(ctx context.Context, params paytr.TokenParams) (string, error)
}

type iyzicoGateway interface {
	InitCheckoutForm(ctx context.Context, params iyzico.InitParams) (*iyzico.InitResult, error)
}

type service struct {
	cart     cartRepository
	orders   orderRepository
	users    userFinder
	txRunner txRunner
	paytr    paytrGateway
	iyzico   iyzicoGateway
	urls     config.CheckoutConfig
	logger   *logger.Logger
	now      func() time.Time
	orderID  func(now time.Time) string
}

// ServiceParams bundles the dependencies required to build a checkout service.
type ServiceParams struct {
	CartRepo          cartRepository
	OrderRepo         orderRepository
	UserRepo          userFinder
	TransactionRunner txRunner
	PayTR             paytrGateway
	Iyzico            iyzicoGateway
	URLs              config.CheckoutConfig
	Logger            *logger.Logger
	Now               func() time.Time
	OrderID           func(now time.Time) string
}

// NewService constructs a checkout service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.OrderRepo == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.PayTR == nil {
		return nil, fmt.Errorf("paytr gateway is required")
	}
	if params.Iyzico == nil {
		return nil, fmt.Errorf("iyzico gateway is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	orderID := params.OrderID
	if orderID == nil {
		orderID = NewOrderID
	}
	return &service{
		cart:     params.CartRepo,
		orders:   params.OrderRepo,
		users:    params.UserRepo,
		txRunner: params.TransactionRunner,
		paytr:    params.PayTR,
		iyzico:   params.Iyzico,
		urls:     params.URLs,
		logger:   params.Logger,
		now:      now,
		orderID:  orderID,
	}, nil
}

// NewOrderID builds the merchant order id handed to the provider. PayTR
// forbids separators beyond alphanumerics in merchant_oid, so the id stays
// in [A-Z0-9].
func NewOrderID(now time.Time) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("SH%s%08d", now.Format("20060102150405"), now.Nanosecond()%100000000)
	}
	return fmt.Sprintf("SH%s%s", now.Format("20060102150405"), strings.ToUpper(hex.EncodeToString(buf)))
}

func (s *service) StartCheckout(ctx context.Context, userID uuid.UUID, req StartCheckoutRequest) (*CheckoutSession, error) {
	provider, err := enums.ParsePaymentProvider(req.Provider)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	items, err := s.cart.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	now := s.now()
	order := &models.Order{
		ID:       s.orderID(now),
		UserID:   userID,
		Provider: provider,
		Status:   enums.OrderStatusPending,
		Currency: "TRY",
	}
	for _, item := range items {
		order.TotalCents += item.PriceCents
		order.Items = append(order.Items, models.OrderItem{
			OrderID:      order.ID,
			PackageKey:   item.PackageKey,
			PeriodMonths: item.PeriodMonths,
			PriceCents:   item.PriceCents,
		})
	}

	// The iyzico settlement path grants one duration order-wide, so a
	// mixed-duration cart has to go through PayTR.
	if provider == enums.ProviderIyzico {
		months := items[0].PeriodMonths
		for _, item := range items[1:] {
			if item.PeriodMonths != months {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "iyzico checkout requires a single plan duration")
			}
		}
		order.PeriodMonths = months
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithOrderID(ctx, order.ID)
	session := &CheckoutSession{
		OrderID:    order.ID,
		Provider:   provider,
		TotalCents: order.TotalCents,
		Currency:   order.Currency,
	}

	switch provider {
	case enums.ProviderPayTR:
		token, err := s.paytr.GetToken(ctx, paytr.TokenParams{
			MerchantOID: order.ID,
			UserIP:      req.UserIP,
			Email:       user.Email,
			AmountCents: int64(order.TotalCents),
			UserBasket:  paytrBasket(items),
			UserName:    user.FullName,
			UserAddress: fallback(req.Address, "-"),
			UserPhone:   fallback(req.Phone, "-"),
			OKURL:       s.urls.PayTROKURL,
			FailURL:     s.urls.PayTRFailURL,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paytr get token")
		}
		session.IframeToken = token
	case enums.ProviderIyzico:
		result, err := s.iyzico.InitCheckoutForm(ctx, s.iyzicoParams(order, items, user, req))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "iyzico init checkout form")
		}
		if result.Status != "success" || result.Token == "" {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "iyzico rejected the checkout form").
				WithDetails(map[string]any{"error_message": result.ErrorMessage})
		}
		session.Token = result.Token
		session.PaymentPageURL = result.PaymentPageURL
	}

	// Clear only after the provider accepted the session; a failed init
	// leaves the cart intact for a retry.
	if err := s.cart.Clear(ctx, userID); err != nil {
		s.logger.Error(ctx, "clear cart after checkout", err)
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"provider":    provider.String(),
		"total_cents": order.TotalCents,
		"items":       len(items),
	}), "checkout session opened")

	return session, nil
}

func (s *service) iyzicoParams(order *models.Order, items []models.CartItem, user *models.User, req StartCheckoutRequest) iyzico.InitParams {
	price := formatCents(order.TotalCents)
	basket := make([]iyzico.BasketItem, 0, len(items))
	for _, item := range items {
		basket = append(basket, iyzico.BasketItem{
			ID:        item.PackageKey.String(),
			Name:      item.PackageKey.String(),
			Category1: "exam-prep",
			ItemType:  "VIRTUAL",
			Price:     formatCents(item.PriceCents),
		})
	}
	first, last := splitName(user.FullName)
	city := fallback(req.City, "Istanbul")
	address := fallback(req.Address, "-")
	return iyzico.InitParams{
		ConversationID: order.ID,
		BasketID:       order.ID,
		Price:          price,
		PaidPrice:      price,
		Currency:       order.Currency,
		CallbackURL:    s.urls.IyzicoCallbackURL,
		Buyer: iyzico.Buyer{
			ID:                  order.UserID.String(),
			Name:                first,
			Surname:             last,
			Email:               user.Email,
			IdentityNumber:      fallback(req.IdentityNumber, "11111111111"),
			RegistrationAddress: address,
			City:                city,
			Country:             "Turkey",
			IP:                  req.UserIP,
		},
		BillingAddress: iyzico.Address{
			ContactName: user.FullName,
			City:        city,
			Country:     "Turkey",
			Address:     address,
		},
		BasketItems: basket,
	}
}

// paytrBasket encodes the basket as PayTR's base64 JSON array of
// [name, price, quantity] triples. Prices are decimal strings.
func paytrBasket(items []models.CartItem) string {
	basket := make([][]any, 0, len(items))
	for _, item := range items {
		basket = append(basket, []any{item.PackageKey.String(), formatCents(item.PriceCents), 1})
	}
	raw, err := json.Marshal(basket)
	if err != nil {
		return base64.StdEncoding.EncodeToString([]byte("[]"))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func formatCents(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "-", "-"
	}
	if len(parts) == 1 {
		return parts[0], "-"
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
