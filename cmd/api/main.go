package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/filtrotek/storefront/internal/cache"
	"github.com/filtrotek/storefront/internal/config"
	"github.com/filtrotek/storefront/internal/database"
	"github.com/filtrotek/storefront/internal/handler"
	"github.com/filtrotek/storefront/internal/metrics"
	"github.com/filtrotek/storefront/internal/middleware"
	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/repository"
	"github.com/filtrotek/storefront/internal/service"
	"github.com/filtrotek/storefront/internal/sse"
	"github.com/filtrotek/storefront/internal/utils"
	"github.com/filtrotek/storefront/internal/worker"
	"github.com/filtrotek/storefront/pkg/erp"
	"github.com/filtrotek/storefront/pkg/exchangerate"
	"github.com/filtrotek/storefront/pkg/mailer"
	"github.com/filtrotek/storefront/pkg/payment"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("Starting Filtrotek storefront API")

	// 3. Connect to database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Connected to PostgreSQL")

	// 4. Run migrations
	if err := database.RunMigrations(db.DB, "migrations"); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Msg("Database migrations completed")

	// 5. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	log.Info().Msg("Connected to Redis")

	jwtManager := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	clock := utils.SystemClock{}

	// 6. Initialize repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewFilterCategoryRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	blogRepo := repository.NewBlogRepository(db)
	erpSyncRepo := repository.NewERPSyncRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// 7. Initialize external clients
	erpClient := newERPClient(cfg)
	paymentClient := payment.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.Currency)
	mailClient := mailer.NewClient(cfg.Mail.BaseURL, cfg.Mail.APIKey)
	rateClient := exchangerate.NewClient(cfg.ExchangeRate.URL)
	objectStore := newObjectStore(cfg)

	// The ERP is optional. Services take interfaces, so a missing client is
	// passed as an untyped nil rather than a nil *erp.Client.
	var (
		erpStock     service.ERPStockLookup
		erpCatalog   service.ERPCatalogReader
		erpWriter    service.ERPProductWriter
		erpInventory service.ERPInventoryAdjuster
		erpPinger    handler.Pinger
	)
	if erpClient != nil {
		erpStock, erpCatalog, erpWriter, erpInventory, erpPinger = erpClient, erpClient, erpClient, erpClient, erpClient
	}

	// 8. Initialize caches
	checkoutCache := cache.NewCheckoutCache(redisClient)
	rateCache := cache.NewRateCache(redisClient, cfg.ExchangeRate.CacheTTL)
	catalogCache := cache.NewTTLCache[[]models.Product](cfg.Catalog.CacheTTL, nil)

	// 9. Initialize services
	pricing := service.NewPricing(cfg.Pricing)
	stockResolver := service.NewStockResolver(erpStock)
	stockSvc := service.NewStockService(productRepo, stockResolver)
	discountSvc := service.NewDiscountService(discountRepo, clock)
	checkoutSvc := service.NewCheckoutService(productRepo, stockResolver, discountSvc, pricing, paymentClient, checkoutCache)
	inventorySvc := service.NewInventorySyncService(erpInventory, erpSyncRepo, clock, cfg.Worker.ERPSyncMaxAttempts)
	notificationSvc := service.NewNotificationService(mailClient, cfg.Mail.From, cfg.Mail.AdminEmail)
	orderHub := sse.NewHub()
	orderFeed := sse.NewOrderFeed(orderHub, clock)
	notifiers := service.OrderNotifiers{notificationSvc, orderFeed}
	webhookSvc := service.NewPaymentWebhookService(paymentClient, orderRepo, checkoutCache, productRepo, inventorySvc, notifiers, clock)
	rateSvc := service.NewExchangeRateService(rateClient, rateCache, cfg.ExchangeRate.FallbackRate, clock)
	catalogSvc := service.NewCatalogService(erpCatalog, productRepo, rateSvc, catalogCache, cfg.ERP.PageSize, cfg.ERP.MaxPages)
	productMgmtSvc := service.NewProductManagementService(erpWriter, productRepo, catalogSvc, inventorySvc)
	catalogSyncSvc := service.NewCatalogSyncService(erpCatalog, productRepo, catalogSvc, cfg.ERP.PageSize, cfg.ERP.MaxPages)
	categorySvc := service.NewCategoryService(categoryRepo)
	orderSvc := service.NewOrderService(orderRepo, productRepo, paymentClient, inventorySvc, clock)
	orderSvc.WatchStatus(orderFeed)
	authSvc := service.NewAuthService(userRepo, jwtManager)
	blogSvc := service.NewBlogService(blogRepo, clock)
	s3Svc := service.NewS3Service(objectStore, &cfg.S3)
	importSvc := service.NewImportService(productRepo, categoryRepo, catalogSvc)
	sitemapSvc := service.NewSitemapService(cfg.PublicBaseURL, productRepo, blogRepo, categoryRepo)

	// 10. Initialize handlers
	handlers := &Handlers{
		Health:            handler.NewHealthHandler(userRepo, redisClient, erpPinger),
		Auth:              handler.NewAuthHandler(authSvc),
		Product:           handler.NewProductHandler(catalogSvc, stockSvc),
		ProductManagement: handler.NewProductManagementHandler(productMgmtSvc),
		Checkout:          handler.NewCheckoutHandler(checkoutSvc),
		Discount:          handler.NewDiscountHandler(discountSvc),
		Webhook:           handler.NewWebhookHandler(webhookSvc),
		Order:             handler.NewOrderHandler(orderSvc),
		OrderStream:       handler.NewOrderStreamHandler(orderHub, jwtManager),
		Category:          handler.NewCategoryHandler(categorySvc),
		Blog:              handler.NewBlogHandler(blogSvc),
		Upload:            handler.NewUploadHandler(s3Svc),
		Import:            handler.NewImportHandler(importSvc),
		ExchangeRate:      handler.NewExchangeRateHandler(rateSvc),
		Sitemap:           handler.NewSitemapHandler(sitemapSvc),
	}

	// 11. Create context for graceful shutdown and initialize middleware
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jwtMw := middleware.NewJWTMiddleware(jwtManager)
	loginLimiter := middleware.NewLoginRateLimiter(ctx)

	// 12. Setup router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw, loginLimiter)

	// 13. Start workers
	go worker.NewRetryWorker(erpSyncRepo, inventorySvc, clock, cfg.Worker.ERPSyncInterval).Start(ctx)
	go worker.NewBlogPublishWorker(blogSvc, cfg.Worker.BlogPublishInterval).Start(ctx)
	if erpCatalog != nil {
		go worker.NewCatalogSyncWorker(catalogSyncSvc, cfg.Worker.CatalogSyncInterval).Start(ctx)
	}

	// 14. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 15. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 16. Cancel context to stop workers and end admin order streams
	cancel()
	orderHub.Close()

	// 17. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// newERPClient returns nil when no ERP is configured.
func newERPClient(cfg *config.Config) *erp.Client {
	if cfg.ERP.BaseURL == "" {
		log.Warn().Msg("ERP_BASE_URL not set, catalog and stock use the local mirror only")
		return nil
	}
	return erp.NewClient(erp.Config{
		BaseURL:  cfg.ERP.BaseURL,
		APIToken: cfg.ERP.APIToken,
		Timeout:  15 * time.Second,
	})
}

// newObjectStore returns nil when no bucket is configured, which disables uploads.
func newObjectStore(cfg *config.Config) service.ObjectAPI {
	if cfg.S3.Bucket == "" {
		log.Warn().Msg("S3_BUCKET not set, image uploads disabled")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := service.NewS3Client(ctx, &cfg.S3)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create S3 client")
	}
	return client
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health            *handler.HealthHandler
	Auth              *handler.AuthHandler
	Product           *handler.ProductHandler
	ProductManagement *handler.ProductManagementHandler
	Checkout          *handler.CheckoutHandler
	Discount          *handler.DiscountHandler
	Webhook           *handler.WebhookHandler
	Order             *handler.OrderHandler
	OrderStream       *handler.OrderStreamHandler
	Category          *handler.CategoryHandler
	Blog              *handler.BlogHandler
	Upload            *handler.UploadHandler
	Import            *handler.ImportHandler
	ExchangeRate      *handler.ExchangeRateHandler
	Sitemap           *handler.SitemapHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware, loginLimiter *middleware.LoginRateLimiter) {
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/sitemap.xml", handlers.Sitemap.Get)

	// Payment processor webhook (raw body, signature verified in the service)
	router.POST("/webhook/stripe", handlers.Webhook.HandleStripe)

	// Public storefront
	v1 := router.Group("/v1")
	{
		v1.GET("/products", handlers.Product.ListProducts)
		v1.GET("/products/:id", handlers.Product.GetProduct)
		v1.POST("/stock/check", handlers.Product.CheckStock)

		v1.GET("/categories", handlers.Category.ListPublic)
		v1.GET("/categories/:slug", handlers.Category.GetBySlug)

		v1.GET("/blog", handlers.Blog.ListPublished)
		v1.GET("/blog/:slug", handlers.Blog.GetPublished)

		v1.POST("/discount-codes/validate", handlers.Discount.Validate)
		v1.GET("/exchange-rate", handlers.ExchangeRate.Get)

		v1.POST("/auth/register", handlers.Auth.Register)
		v1.POST("/auth/login", loginLimiter.Handle(), handlers.Auth.Login)
	}

	// Authenticated customer routes
	customer := router.Group("/v1")
	customer.Use(jwtMiddleware.Handle())
	{
		customer.GET("/auth/me", handlers.Auth.Me)
		customer.GET("/orders", handlers.Order.ListMine)
		customer.GET("/orders/:orderNumber", handlers.Order.GetMine)
		customer.POST("/checkout/payment-intent", handlers.Checkout.CreatePaymentIntent)
	}

	// Admin order feed (EventSource carries the token in the query string)
	router.GET("/v1/admin/order-events", handlers.OrderStream.Stream)

	// Admin routes
	admin := router.Group("/v1/admin")
	admin.Use(jwtMiddleware.Handle(), jwtMiddleware.RequireAdmin())
	{
		// Users
		admin.GET("/users", handlers.Auth.ListUsers)
		admin.PUT("/users/:id/role", handlers.Auth.UpdateRole)

		// Product Management
		admin.GET("/products", handlers.ProductManagement.ListProducts)
		admin.POST("/products", handlers.ProductManagement.CreateProduct)
		admin.GET("/products/:id", handlers.ProductManagement.GetProduct)
		admin.PUT("/products/:id", handlers.ProductManagement.UpdateProduct)
		admin.DELETE("/products/:id", handlers.ProductManagement.DeleteProduct)

		// Filter categories and variants
		admin.GET("/categories", handlers.Category.List)
		admin.POST("/categories", handlers.Category.Create)
		admin.GET("/categories/:id", handlers.Category.Get)
		admin.PUT("/categories/:id", handlers.Category.Update)
		admin.DELETE("/categories/:id", handlers.Category.Delete)
		admin.POST("/categories/:id/variants", handlers.Category.AddVariant)
		admin.PUT("/variants/:id", handlers.Category.UpdateVariant)
		admin.DELETE("/variants/:id", handlers.Category.DeleteVariant)

		// Discount codes
		admin.GET("/discount-codes", handlers.Discount.List)
		admin.POST("/discount-codes", handlers.Discount.Create)
		admin.GET("/discount-codes/:id", handlers.Discount.Get)
		admin.PUT("/discount-codes/:id", handlers.Discount.Update)
		admin.DELETE("/discount-codes/:id", handlers.Discount.Delete)
		admin.GET("/discount-codes/:id/usages", handlers.Discount.Usages)

		// Orders
		admin.GET("/orders", handlers.Order.List)
		admin.GET("/orders/:id", handlers.Order.Get)
		admin.PUT("/orders/:id/status", handlers.Order.UpdateStatus)
		admin.POST("/orders/:id/refund", handlers.Order.Refund)
		admin.GET("/stats", handlers.Order.Stats)

		// Blog
		admin.GET("/blog", handlers.Blog.List)
		admin.POST("/blog", handlers.Blog.Create)
		admin.GET("/blog/:id", handlers.Blog.Get)
		admin.PUT("/blog/:id", handlers.Blog.Update)
		admin.DELETE("/blog/:id", handlers.Blog.Delete)

		// Images
		admin.POST("/uploads", handlers.Upload.Upload)
		admin.DELETE("/uploads", handlers.Upload.Delete)

		// Bulk import
		admin.POST("/import/products", handlers.Import.ImportProducts)
		admin.POST("/import/categories", handlers.Import.ImportCategories)
		admin.GET("/import/templates/:kind", handlers.Import.Template)
	}
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
