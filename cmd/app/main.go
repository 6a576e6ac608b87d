package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/courtbooking/api"
	"github.com/Domenick1991/courtbooking/config"
	"github.com/Domenick1991/courtbooking/internal/bootstrap"
	"github.com/Domenick1991/courtbooking/internal/cache"
	"github.com/Domenick1991/courtbooking/internal/gateway/omise"
	"github.com/Domenick1991/courtbooking/internal/logger"
	"github.com/Domenick1991/courtbooking/internal/notification"
	"github.com/Domenick1991/courtbooking/internal/obs"
	"github.com/Domenick1991/courtbooking/internal/repository"
	"github.com/Domenick1991/courtbooking/internal/service/booking"
	"github.com/Domenick1991/courtbooking/internal/service/courts"
	"github.com/Domenick1991/courtbooking/internal/service/payment"
	"github.com/Domenick1991/courtbooking/migrations"
	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		log.Fatalf("init tracer: %v", err)
	}
	defer shutdownTracer(context.Background())

	db, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer db.Close()

	if err := migrations.Up(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	store := repository.NewStore(db)
	bookingRepo := repository.NewBookingRepository(store)
	paymentRepo := repository.NewPaymentRepository(store)
	courtRepo := repository.NewCourtRepository(store)
	notificationRepo := repository.NewNotificationRepository(store)

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.SlotCacheTTL())
	if err := redisCache.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, slot cache degraded", "error", err)
	}

	publisher, err := bootstrap.NewPublisher(cfg.Events)
	if err != nil {
		log.Fatalf("events publisher: %v", err)
	}
	defer publisher.Close()

	gateway, err := omise.NewClient(cfg.Omise.PublicKey, cfg.Omise.SecretKey, cfg.Payment.GatewayTimeout())
	if err != nil {
		log.Fatalf("omise client: %v", err)
	}

	emitter := notification.NewEmitter(notificationRepo, publisher, cfg.Events.NotificationsTopic())
	courtService := courts.NewCourtService(courtRepo, redisCache)
	bookingService := booking.NewBookingService(bookingRepo, redisCache, emitter)
	paymentService := payment.NewPaymentService(paymentRepo, bookingRepo, gateway, redisCache, emitter, payment.Config{
		Currency: cfg.Payment.Currency,
		Timeout:  cfg.Payment.Timeout(),
	})

	router := api.NewRouter(cfg.JWT.Secret, api.Handlers{
		Courts:        api.NewCourtHandler(courtService),
		Bookings:      api.NewBookingHandler(bookingService),
		Payments:      api.NewPaymentHandler(paymentService),
		Notifications: api.NewNotificationHandler(emitter),
	})

	if err := bootstrap.Run(ctx, cfg, router); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
