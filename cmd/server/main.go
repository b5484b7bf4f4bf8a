package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/phone-auth-backend/internal/config"
	"github.com/ignatzorin/phone-auth-backend/internal/db"
	httpHandlers "github.com/ignatzorin/phone-auth-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/phone-auth-backend/internal/http/router"
	"github.com/ignatzorin/phone-auth-backend/internal/logger"
	"github.com/ignatzorin/phone-auth-backend/internal/repository"
	"github.com/ignatzorin/phone-auth-backend/internal/service"
	"github.com/ignatzorin/phone-auth-backend/internal/sms"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Репозитории.
	otpRepo := repository.NewOTPRepository(dbConn)
	accountRepo := repository.NewAccountRepository(dbConn)

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	smsClient := sms.NewClient(cfg.SMSAPIURL, cfg.SMSAPIKey, cfg.SMSSender)

	// Сервисы. Dev-обход доставки доступен только вне production.
	otpService := service.NewOTPService(otpRepo, accountRepo, smsClient, cfg.OTPCodeLength, !cfg.IsProduction())
	verifyService := service.NewVerifyService(otpRepo, accountRepo, tokenManager, cfg.OTPCodeLength, cfg.OTPTTL)

	// Фоновая чистка просроченных кодов.
	service.StartOTPCleanup(ctx, otpRepo, cfg.OTPTTL, 10*time.Minute)

	// HTTP хэндлеры и роутер.
	authHandler := httpHandlers.NewAuthHandler(otpService, verifyService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	engine := httpRouter.SetupRouter(cfg, authHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
