package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/courtbooking/config"
	"github.com/Domenick1991/courtbooking/internal/bootstrap"
	"github.com/Domenick1991/courtbooking/internal/cache"
	"github.com/Domenick1991/courtbooking/internal/email"
	"github.com/Domenick1991/courtbooking/internal/gateway/omise"
	"github.com/Domenick1991/courtbooking/internal/logger"
	"github.com/Domenick1991/courtbooking/internal/notification"
	"github.com/Domenick1991/courtbooking/internal/obs"
	"github.com/Domenick1991/courtbooking/internal/repository"
	"github.com/Domenick1991/courtbooking/internal/scheduler"
	"github.com/Domenick1991/courtbooking/internal/service/payment"
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

	store := repository.NewStore(db)
	bookingRepo := repository.NewBookingRepository(store)
	paymentRepo := repository.NewPaymentRepository(store)
	notificationRepo := repository.NewNotificationRepository(store)
	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.SlotCacheTTL())

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
	paymentService := payment.NewPaymentService(paymentRepo, bookingRepo, gateway, redisCache, emitter, payment.Config{
		Currency: cfg.Payment.Currency,
		Timeout:  cfg.Payment.Timeout(),
	})

	sched, err := scheduler.NewScheduler(ctx, cfg.Scheduler, paymentService)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	subscriber, err := bootstrap.NewSubscriber(cfg.Events)
	if err != nil {
		log.Fatalf("events subscriber: %v", err)
	}
	if subscriber != nil {
		defer subscriber.Close()
		emailSender := email.NewSender()
		go func() {
			if err := subscriber.Consume(ctx, emailSender.Send); err != nil {
				logger.Error("consumer stopped", "error", err)
			}
		}()
	}

	logger.Info("worker started", "sweep", cfg.Scheduler.SweepExpiredPayments, "broker", cfg.Events.Broker)
	<-ctx.Done()
	logger.Info("shutting down worker")
}
