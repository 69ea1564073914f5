package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vitale-labs/voucher-service/internal/config"
	"github.com/vitale-labs/voucher-service/internal/handler"
	"github.com/vitale-labs/voucher-service/internal/middleware"
	"github.com/vitale-labs/voucher-service/internal/model"
	"github.com/vitale-labs/voucher-service/internal/repository"
	"github.com/vitale-labs/voucher-service/internal/service"
	"github.com/vitale-labs/voucher-service/internal/validator"
	"github.com/vitale-labs/voucher-service/pkg/database"
	pkgredis "github.com/vitale-labs/voucher-service/pkg/redis"
	"github.com/vitale-labs/voucher-service/pkg/smsgateway"
	"github.com/vitale-labs/voucher-service/pkg/token"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Initialize redis client (OTP code store) with retry
	redisClient, err := pkgredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Vital-E Voucher Service",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // 1MB body limit
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator with phone/batchno validations
	validate := validator.New()

	// SMS gateway: mock logs codes locally, MSG91 delivers them
	var gateway smsgateway.Gateway
	if cfg.SMS.Mock {
		gateway = smsgateway.NewMockGateway()
	} else {
		gateway = smsgateway.NewMSG91Gateway(cfg.SMS.BaseURL, cfg.SMS.AuthKey, cfg.SMS.SenderID)
	}

	tokens := token.NewService(cfg.Token.Secret, time.Duration(cfg.Token.TTLHours)*time.Hour)

	// Repositories
	voucherRepo := repository.NewVoucherRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	otpStore := repository.NewRedisOTPStore(redisClient)

	// Services
	voucherService := service.NewVoucherService(pool, voucherRepo, userRepo, productRepo)
	userService := service.NewUserService(userRepo, voucherRepo)
	productService := service.NewProductService(productRepo)
	otpService := service.NewOTPService(otpStore, gateway, tokens, userRepo,
		time.Duration(cfg.OTP.TTLSeconds)*time.Second, cfg.OTP.MaxAttempts)

	// Handlers
	voucherHandler := handler.NewVoucherHandler(voucherService, validate)
	claimHandler := handler.NewClaimHandler(voucherService, validate)
	userHandler := handler.NewUserHandler(userService, validate)
	productHandler := handler.NewProductHandler(productService, validate)
	authHandler := handler.NewAuthHandler(otpService, validate)
	healthHandler := handler.NewHealthHandler(pool)

	authenticated := middleware.Authenticate(tokens)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	app.Get("/health", healthHandler.Check)

	// Auth routes
	app.Post("/api/auth/otp/request", authHandler.RequestOTP)
	app.Post("/api/auth/otp/verify", authHandler.VerifyOTP)

	// User routes
	app.Get("/api/users", authenticated, adminOnly, userHandler.ListUsers)
	app.Post("/api/users", userHandler.CreateUser)
	app.Get("/api/users/:id", authenticated, userHandler.GetUser)
	app.Put("/api/users/:id", authenticated, adminOnly, userHandler.UpdateUser)
	app.Get("/api/users/:id/vouchers", authenticated, userHandler.ListUserVouchers)

	// Voucher routes
	app.Get("/api/vouchers", authenticated, adminOnly, voucherHandler.ListVouchers)
	app.Post("/api/vouchers", authenticated, adminOnly, voucherHandler.CreateVoucher)
	app.Post("/api/vouchers/bulk-generation", authenticated, adminOnly, voucherHandler.BulkGenerate)
	app.Post("/api/vouchers/claim", authenticated, claimHandler.ClaimVoucher)
	app.Post("/api/vouchers/update-status", authenticated, adminOnly, voucherHandler.UpdateStatus)

	// Product routes
	app.Get("/api/products", productHandler.ListProducts)
	app.Post("/api/products", authenticated, adminOnly, productHandler.CreateProduct)
	app.Put("/api/products/:id", authenticated, adminOnly, productHandler.UpdateProduct)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close connections AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	if err := redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("error closing redis client")
	}
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
