package main

import (
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"paypal-checkout-service/config"
	"paypal-checkout-service/controllers"
	"paypal-checkout-service/database"
	"paypal-checkout-service/kafka"
	"paypal-checkout-service/models"
	"paypal-checkout-service/paypal"
	"paypal-checkout-service/repository"
	"paypal-checkout-service/routes"
	"paypal-checkout-service/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[PayPalCheckout] failed to load config:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("[PayPalCheckout] failed to initialize logger:", err)
	}
	defer logger.Sync()

	if err := database.Connect(cfg); err != nil {
		log.Fatal("[PayPalCheckout] failed to connect to DB:", err)
	}
	if err := database.DB.AutoMigrate(
		&models.Profile{},
		&models.Order{},
		&models.OrderItem{},
		&models.Adjustment{},
		&models.Shipment{},
		&models.PaymentMethod{},
		&models.Payment{},
	); err != nil {
		log.Fatal("[PayPalCheckout] failed to migrate models:", err)
	}

	// Redis is optional: without it, token caching stays process-local.
	rdb, err := redisClient(cfg)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory token cache", zap.Error(err))
	}

	producer := kafka.NewPaymentEventProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
	defer producer.Close()

	gatewayCfg := paypal.Config{
		ClientID:              cfg.PayPalClientID,
		Secret:                cfg.PayPalSecret,
		Mode:                  cfg.PayPalMode,
		Intent:                cfg.PayPalIntent,
		ShippingPreference:    cfg.ShippingPreference,
		UpdateBillingProfile:  cfg.UpdateBillingProfile,
		UpdateShippingProfile: cfg.UpdateShippingProfile,
		BrandName:             cfg.BrandName,
	}
	factory := paypal.NewClientFactory(rdb, logger)
	client := factory.Get(gatewayCfg)
	solution := paypal.ParseSolutionVariant(cfg.PaymentSolution)
	builder := paypal.NewRequestBuilder(gatewayCfg, cfg.ShippingEnabled, nil)

	orderRepo := repository.NewGormOrderRepo(database.DB)
	paymentRepo := repository.NewGormPaymentRepo(database.DB)

	checkoutSvc := services.NewCheckoutService(
		client,
		builder,
		gatewayCfg,
		cfg.ShippingEnabled,
		paymentRepo,
		orderRepo,
		producer,
		logger,
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.CORSAllowOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	checkoutCtrl := controllers.NewCheckoutController(
		checkoutSvc, client, orderRepo, paymentRepo, gatewayCfg, solution, logger,
	)
	paymentCtrl := controllers.NewPaymentController(checkoutSvc, client, paymentRepo, logger)
	routes.RegisterRoutes(r, checkoutCtrl, paymentCtrl)

	logger.Info("paypal checkout service running", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("[PayPalCheckout] server failed:", err)
	}
}

func redisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	return database.NewRedisClient(cfg.RedisURL)
}
