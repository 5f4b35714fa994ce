package main // Entry point package

import (
    "context"
    "log"
    "os"
    "os/signal"
    "syscall"

    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/iliyamo/theater-ticket-booking/internal/cache"
    "github.com/iliyamo/theater-ticket-booking/internal/config"
    "github.com/iliyamo/theater-ticket-booking/internal/database"
    "github.com/iliyamo/theater-ticket-booking/internal/gateway"
    "github.com/iliyamo/theater-ticket-booking/internal/handler"
    "github.com/iliyamo/theater-ticket-booking/internal/middleware"
    "github.com/iliyamo/theater-ticket-booking/internal/queue"
    "github.com/iliyamo/theater-ticket-booking/internal/repository"
    "github.com/iliyamo/theater-ticket-booking/internal/router"
    "github.com/iliyamo/theater-ticket-booking/internal/service"
    "github.com/iliyamo/theater-ticket-booking/internal/sweep"
)

func main() {
    cfg := config.Load() // Load environment config

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis is optional: a nil client disables the seat-map cache and rate
    // limiting but never blocks bookings.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable, cache and rate limiting disabled")
    }
    seatMapCache := cache.NewSeatMap(rdb, config.LoadSeatMapCacheConfig())

    catalogRepo := repository.NewCatalogRepo(db)
    reservationRepo := repository.NewSeatReservationRepo(db)
    bookingRepo := repository.NewBookingRepo(db)
    paymentRepo := repository.NewPaymentRepo(db)
    discountRepo := repository.NewDiscountRepo(db)
    historyRepo := repository.NewHistoryRepo(db)

    gw := gateway.NewClient(cfg.GatewayMerchantKey, cfg.GatewaySecretKey,
        cfg.GatewayChecksumKey, cfg.GatewayURL)

    discountSvc := service.NewDiscountService(discountRepo)
    reservationSvc := service.NewReservationService(catalogRepo, reservationRepo, historyRepo,
        seatMapCache, cfg.SeatHoldTTL, cfg.MaxSeatsPerBooking)
    bookingSvc := service.NewBookingService(catalogRepo, reservationRepo, bookingRepo,
        paymentRepo, discountSvc, historyRepo, seatMapCache, cfg.PaymentTimeout)
    paymentSvc := service.NewPaymentService(catalogRepo, bookingRepo, paymentRepo,
        reservationRepo, discountRepo, historyRepo, seatMapCache, gw,
        cfg.GatewayReturnURL, cfg.PaymentSuccessURL, cfg.PaymentFailureURL, cfg.RabbitURL)

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    // Confirmation email consumer; runs for the process lifetime.
    go func() {
        if err := queue.StartEmailConsumer(cfg.RabbitURL, &queue.LogNotifier{}); err != nil {
            log.Printf("email consumer stopped: %v", err)
        }
    }()

    // Background maintenance: hold expiry, booking expiry, payment sync.
    sweeper := sweep.New(reservationSvc, bookingSvc, paymentSvc,
        cfg.HoldSweepInterval, cfg.BookingSweepInterval, cfg.PaymentSyncInterval,
        cfg.BookingExpireBuffer)
    go sweeper.Run(ctx)

    e := echo.New()
    e.HideBanner = true
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    sessionHandler := handler.NewSessionHandler(cfg)
    reservationHandler := handler.NewReservationHandler(reservationSvc)
    bookingHandler := handler.NewBookingHandler(bookingSvc)
    paymentHandler := handler.NewPaymentHandler(paymentSvc)

    router.RegisterPublic(e, sessionHandler, reservationHandler, bookingHandler, paymentHandler)
    router.RegisterSession(e, cfg.SessionSecret, reservationHandler, bookingHandler, paymentHandler)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    go func() {
        <-ctx.Done()
        _ = e.Shutdown(context.Background())
    }()
    if err := e.Start(addr); err != nil {
        log.Printf("server stopped: %v", err)
    }
}
