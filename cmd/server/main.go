package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/config"
	"github.com/iliyamo/venue-reservation/internal/database"
	"github.com/iliyamo/venue-reservation/internal/handler"
	"github.com/iliyamo/venue-reservation/internal/middleware"
	"github.com/iliyamo/venue-reservation/internal/queue"
	"github.com/iliyamo/venue-reservation/internal/repository"
	"github.com/iliyamo/venue-reservation/internal/router"
	"github.com/iliyamo/venue-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the variables directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: rate limiting and response caching disabled")
	}

	logRepo := repository.NewOperationLogRepo(db)
	snapRepo := repository.NewSnapshotRepo(db)
	orderRepo := repository.NewOrderRepo(db, logRepo, snapRepo)
	catalogRepo := repository.NewCatalogRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	booking := service.NewBooking(orderRepo, catalogRepo, userRepo, queue.NewPublisher())

	// The consumer tails reservation.events into logs/reservation.log and
	// reconnects on broker failure.
	go queue.StartReservationConsumer()

	e := echo.New()
	e.HideBanner = true

	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	e.Use(rateLimit)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	customerHandler := handler.NewCustomerHandler(booking)
	operatorHandler := handler.NewOperatorHandler(booking, snapRepo)
	paymentHandler := handler.NewPaymentHandler(booking)
	publicHandler := handler.NewPublicHandler(booking)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterPublic(e, publicHandler, cache)
	router.RegisterCustomer(e, customerHandler, cfg.JWTSecret)
	router.RegisterOperator(e, operatorHandler, cfg.JWTSecret)
	router.RegisterPayment(e, paymentHandler)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
