package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sinavhub/sinavhub-backend/api/routes"
	"github.com/sinavhub/sinavhub-backend/internal/auth"
	"github.com/sinavhub/sinavhub-backend/internal/cart"
	"github.com/sinavhub/sinavhub-backend/internal/catalog"
	checkoutsvc "github.com/sinavhub/sinavhub-backend/internal/checkout"
	"github.com/sinavhub/sinavhub-backend/internal/entitlements"
	"github.com/sinavhub/sinavhub-backend/internal/notifications"
	"github.com/sinavhub/sinavhub-backend/internal/orders"
	"github.com/sinavhub/sinavhub-backend/internal/packages"
	"github.com/sinavhub/sinavhub-backend/internal/users"
	iyzicowebhook "github.com/sinavhub/sinavhub-backend/internal/webhooks/iyzico"
	paytrwebhook "github.com/sinavhub/sinavhub-backend/internal/webhooks/paytr"
	"github.com/sinavhub/sinavhub-backend/pkg/auth/session"
	"github.com/sinavhub/sinavhub-backend/pkg/claims"
	"github.com/sinavhub/sinavhub-backend/pkg/config"
	"github.com/sinavhub/sinavhub-backend/pkg/db"
	"github.com/sinavhub/sinavhub-backend/pkg/iyzico"
	"github.com/sinavhub/sinavhub-backend/pkg/logger"
	"github.com/sinavhub/sinavhub-backend/pkg/metrics"
	"github.com/sinavhub/sinavhub-backend/pkg/migrate"
	"github.com/sinavhub/sinavhub-backend/pkg/paytr"
	pkgredis "github.com/sinavhub/sinavhub-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := pkgredis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	claimsStore, err := claims.NewStore(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create claims store", err)
		os.Exit(1)
	}

	paytrClient, err := paytr.NewClient(context.Background(), cfg.PayTR, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paytr client", err)
		os.Exit(1)
	}

	iyzicoClient, err := iyzico.NewClient(context.Background(), cfg.Iyzico, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create iyzico client", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	entitlementRepo := entitlements.NewRepository(dbClient.DB())
	packageRepo := packages.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:        userRepo,
		EntitlementRepo: entitlementRepo,
		Tx:              dbClient,
		SessionManager:  sessionManager,
		Claims:          claimsStore,
		JWTConfig:       cfg.JWT,
		PasswordConfig:  cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	packagesService, err := packages.NewService(packages.ServiceParams{Repo: packageRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create packages service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{Repo: cartRepo, Packages: packagesService})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		CartRepo:          cartRepo,
		OrderRepo:         orderRepo,
		UserRepo:          userRepo,
		TransactionRunner: dbClient,
		PayTR:             paytrClient,
		Iyzico:            iyzicoClient,
		URLs:              cfg.Checkout,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orderRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:            catalogRepo,
		EntitlementRepo: entitlementRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	catalogAdminService, err := catalog.NewAdminService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog admin service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.ServiceParams{Repo: notificationRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	entitlementsService, err := entitlements.NewService(entitlements.ServiceParams{
		Repo:   entitlementRepo,
		Tx:     dbClient,
		Claims: claimsStore,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create entitlements service", err)
		os.Exit(1)
	}

	paytrWebhookService, err := paytrwebhook.NewService(paytrwebhook.ServiceParams{
		Verifier:          paytrClient,
		OrderRepo:         orderRepo,
		EntitlementRepo:   entitlementRepo,
		Claims:            claimsStore,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create paytr webhook service", err)
		os.Exit(1)
	}

	iyzicoWebhookService, err := iyzicowebhook.NewService(iyzicowebhook.ServiceParams{
		Retriever:         iyzicoClient,
		OrderRepo:         orderRepo,
		EntitlementRepo:   entitlementRepo,
		Claims:            claimsStore,
		Sessions:          sessionManager,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create iyzico webhook service", err)
		os.Exit(1)
	}

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DBPinger:       dbClient,
			RedisClient:    redisClient,
			SessionChecker: sessionManager,
			WebhookMetrics: webhookMetrics,

			AuthService:          authService,
			PackagesService:      packagesService,
			CartService:          cartService,
			CheckoutService:      checkoutService,
			OrdersService:        ordersService,
			CatalogService:       catalogService,
			CatalogAdminService:  catalogAdminService,
			NotificationsService: notificationsService,
			EntitlementsService:  entitlementsService,
			PayTRWebhook:         paytrWebhookService,
			IyzicoWebhook:        iyzicoWebhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
