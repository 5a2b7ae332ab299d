package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kgoldpotera/spotted-avenue-boutique/config"
	"github.com/kgoldpotera/spotted-avenue-boutique/controllers"
	"github.com/kgoldpotera/spotted-avenue-boutique/database"
	"github.com/kgoldpotera/spotted-avenue-boutique/kafka"
	applogger "github.com/kgoldpotera/spotted-avenue-boutique/logger"
	"github.com/kgoldpotera/spotted-avenue-boutique/middleware"
	"github.com/kgoldpotera/spotted-avenue-boutique/models"
	"github.com/kgoldpotera/spotted-avenue-boutique/repository"
	"github.com/kgoldpotera/spotted-avenue-boutique/routes"
	"github.com/kgoldpotera/spotted-avenue-boutique/sender"
	"github.com/kgoldpotera/spotted-avenue-boutique/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[Storefront] Failed to load config: ", err)
	}

	logger, err := applogger.New(cfg.Environment)
	if err != nil {
		log.Fatal("[Storefront] Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	db, err := database.ConnectPostgres(cfg, logger,
		&models.Order{},
		&models.OrderItem{},
		&models.CartItem{},
		&models.Product{},
		&models.Category{},
		&models.UserRole{},
	)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	orderRepo := repository.NewGormOrderRepository(db)
	cartRepo := repository.NewGormCartRepository(db)
	productRepo := repository.NewGormProductRepository(db)
	roleRepo := repository.NewGormRoleRepository(db)

	// Redis only backs webhook event dedup; the paid transition is
	// idempotent without it, so startup survives redis being down.
	var eventStore repository.ProcessedEventStore
	if redisClient, err := database.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, webhook dedup disabled", zap.Error(err))
	} else {
		eventStore = repository.NewRedisProcessedEventStore(redisClient, 72*time.Hour)
	}

	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	emailSender, err := buildEmailSender(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize email sender", zap.Error(err))
	}

	confirmationSvc, err := services.NewConfirmationService(emailSender, cfg.AdminEmail, logger)
	if err != nil {
		logger.Fatal("Failed to initialize confirmation service", zap.Error(err))
	}

	var publisher kafka.PaymentEventPublisher
	if cfg.KafkaBrokers != "" {
		producer := kafka.NewPaymentEventProducer(
			strings.Split(cfg.KafkaBrokers, ","),
			cfg.PaymentEventTopic,
			logger,
		)
		defer producer.Close()
		publisher = producer
	}

	checkoutSvc := services.NewCheckoutService(orderRepo, stripeSvc, cfg.Currency, logger)
	orderSvc := services.NewOrderService(orderRepo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.PendingOrderTTL > 0 {
		reconciler := services.NewPendingOrderReconciler(orderRepo, cfg.PendingOrderTTL, logger)
		go reconciler.Run(ctx)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		applogger.RequestLogger(logger),
		middleware.SecurityHeaders(),
		middleware.CORSMiddleware(),
		middleware.RateLimitMiddleware(),
	)

	routes.RegisterRoutes(r, routes.Controllers{
		Checkout: controllers.NewCheckoutController(checkoutSvc, cfg.FrontendURL, logger),
		Webhook: &controllers.WebhookController{
			Verifier:  stripeSvc,
			Orders:    orderRepo,
			Carts:     cartRepo,
			Notifier:  confirmationSvc,
			Events:    eventStore,
			Publisher: publisher,
			Logger:    logger,
		},
		Confirmation: &controllers.ConfirmationController{Notifier: confirmationSvc, Logger: logger},
		Orders:       controllers.NewOrderController(orderSvc),
		Cart:         controllers.NewCartController(cartRepo, logger),
		Products:     controllers.NewProductController(productRepo, logger),
		Roles:        controllers.NewRoleController(roleRepo, logger),
	}, cfg.JWTSecret, cfg.ServiceToken)

	logger.Info("Storefront running", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func buildEmailSender(cfg *config.Config) (sender.EmailSender, error) {
	if cfg.EmailProvider == "resend" {
		return sender.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
	}
	return sender.NewSMTPSender(cfg.EmailFrom)
}
