package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sinavhub/sinavhub-backend/api/controllers"
	webhookcontrollers "github.com/sinavhub/sinavhub-backend/api/controllers/webhooks"
	"github.com/sinavhub/sinavhub-backend/api/middleware"
	"github.com/sinavhub/sinavhub-backend/internal/auth"
	"github.com/sinavhub/sinavhub-backend/internal/cart"
	"github.com/sinavhub/sinavhub-backend/internal/catalog"
	checkoutsvc "github.com/sinavhub/sinavhub-backend/internal/checkout"
	"github.com/sinavhub/sinavhub-backend/internal/entitlements"
	"github.com/sinavhub/sinavhub-backend/internal/notifications"
	"github.com/sinavhub/sinavhub-backend/internal/orders"
	"github.com/sinavhub/sinavhub-backend/internal/packages"
	"github.com/sinavhub/sinavhub-backend/pkg/auth/session"
	"github.com/sinavhub/sinavhub-backend/pkg/config"
	"github.com/sinavhub/sinavhub-backend/pkg/db"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
	"github.com/sinavhub/sinavhub-backend/pkg/metrics"
	pkgredis "github.com/sinavhub/sinavhub-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DBPinger       db.Pinger
	RedisClient    *pkgredis.Client
	SessionChecker session.AccessSessionChecker
	WebhookMetrics *metrics.WebhookMetrics

	AuthService          auth.Service
	PackagesService      packages.Service
	CartService          cart.Service
	CheckoutService      checkoutsvc.Service
	OrdersService        orders.Service
	CatalogService       catalog.Service
	CatalogAdminService  catalog.AdminService
	NotificationsService notifications.Service
	EntitlementsService  entitlements.Service
	PayTRWebhook         webhookcontrollers.PayTRWebhookService
	IyzicoWebhook        webhookcontrollers.IyzicoWebhookService
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.LoginRateLimitPolicy(cfg.AuthRateLimit)
	registerPolicy := middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/v1/packages", controllers.PackageList(deps.PackagesService, logg))
		r.Get("/v1/packages/{packageKey}", controllers.PackageDetail(deps.PackagesService, logg))
	})

	// Provider callbacks authenticate themselves (PayTR by hash, iyzico by
	// the retrieve call), so they sit outside the bearer-token surface.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paytr", webhookcontrollers.PayTRWebhook(deps.PayTRWebhook, deps.WebhookMetrics, logg))
		r.Post("/iyzico", webhookcontrollers.IyzicoCallback(deps.IyzicoWebhook, deps.WebhookMetrics, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(deps.RedisClient, loginPolicy, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(deps.RedisClient, registerPolicy, logg)).Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
		r.Use(middleware.Idempotency(deps.RedisClient, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Post("/v1/auth/logout", controllers.AuthLogout(deps.AuthService, logg))

		r.Route("/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.CartService, logg))
			r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
			r.Delete("/items/{packageKey}", controllers.CartRemoveItem(deps.CartService, logg))
			r.Delete("/", controllers.CartClear(deps.CartService, logg))
		})

		r.Post("/v1/checkout", controllers.Checkout(deps.CheckoutService, logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.OrdersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.OrdersService, logg))
		})

		r.Route("/v1/catalog", func(r chi.Router) {
			r.Get("/exams", controllers.ExamList(deps.CatalogService, logg))
			r.Get("/exams/{contentId}", controllers.ExamDetail(deps.CatalogService, logg))
			r.Get("/pdfs", controllers.PDFList(deps.CatalogService, logg))
			r.Get("/pdfs/{contentId}", controllers.PDFDetail(deps.CatalogService, logg))
			r.Get("/videos", controllers.VideoList(deps.CatalogService, logg))
			r.Get("/videos/{contentId}", controllers.VideoDetail(deps.CatalogService, logg))
			r.Get("/study-programs", controllers.StudyProgramList(deps.CatalogService, logg))
			r.Get("/study-programs/{contentId}", controllers.StudyProgramDetail(deps.CatalogService, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.NotificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.NotificationsService, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(deps.RedisClient, logg))

		r.Get("/ping", controllers.AdminPing())
		r.Route("/v1/users/{userId}/packages", func(r chi.Router) {
			r.Get("/", controllers.AdminGetEntitlement(deps.EntitlementsService, logg))
			r.Post("/", controllers.AdminGrantPackage(deps.EntitlementsService, logg))
			r.Patch("/{packageKey}", controllers.AdminExtendPackage(deps.EntitlementsService, logg))
			r.Delete("/{packageKey}", controllers.AdminRemovePackage(deps.EntitlementsService, logg))
		})
		r.Get("/v1/orders", controllers.AdminOrderSearch(deps.OrdersService, logg))
		r.Route("/v1/catalog", func(r chi.Router) {
			r.Post("/exams", controllers.AdminExamCreate(deps.CatalogAdminService, logg))
			r.Put("/exams/{contentId}", controllers.AdminExamUpdate(deps.CatalogAdminService, logg))
			r.Delete("/exams/{contentId}", controllers.AdminExamDelete(deps.CatalogAdminService, logg))
			r.Post("/pdfs", controllers.AdminPDFCreate(deps.CatalogAdminService, logg))
			r.Put("/pdfs/{contentId}", controllers.AdminPDFUpdate(deps.CatalogAdminService, logg))
			r.Delete("/pdfs/{contentId}", controllers.AdminPDFDelete(deps.CatalogAdminService, logg))
			r.Post("/videos", controllers.AdminVideoCreate(deps.CatalogAdminService, logg))
			r.Put("/videos/{contentId}", controllers.AdminVideoUpdate(deps.CatalogAdminService, logg))
			r.Delete("/videos/{contentId}", controllers.AdminVideoDelete(deps.CatalogAdminService, logg))
			r.Post("/study-programs", controllers.AdminStudyProgramCreate(deps.CatalogAdminService, logg))
			r.Put("/study-programs/{contentId}", controllers.AdminStudyProgramUpdate(deps.CatalogAdminService, logg))
			r.Delete("/study-programs/{contentId}", controllers.AdminStudyProgramDelete(deps.CatalogAdminService, logg))
		})
		r.Post("/v1/notifications", controllers.AdminNotify(deps.NotificationsService, logg))
	})

	return r
}
