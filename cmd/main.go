package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aldiyarbek/tournament-bot/brackets"
	"github.com/aldiyarbek/tournament-bot/chat"
	"github.com/aldiyarbek/tournament-bot/config"
	"github.com/aldiyarbek/tournament-bot/db"
	"github.com/aldiyarbek/tournament-bot/handlers"
	"github.com/aldiyarbek/tournament-bot/repositories"
	api "github.com/aldiyarbek/tournament-bot/routes"
	"github.com/aldiyarbek/tournament-bot/services"
	"github.com/aldiyarbek/tournament-bot/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(context.Background(), dbConn); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database schema up to date")

	// Транспорт Telegram
	transport, err := chat.NewTelegramTransport(chat.TelegramTransportConfig{
		Token:      cfg.BotToken,
		APIBaseURL: cfg.BotAPIBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize telegram transport", slog.Any("error", err))
		os.Exit(1)
	}

	// Выгрузка снапшотов сетки в Cloudflare R2 (опционально)
	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicURLPrefix,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("snapshot export disabled, R2 is not configured")
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	applicationRepo := repositories.NewPostgresApplicationRepository(dbConn)
	settingsRepo := repositories.NewPostgresSettingsRepository(dbConn)
	adminRepo := repositories.NewPostgresAdminRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	logger.Info("repositories initialized")

	// Стартовые данные: строка настроек и главный админ.
	var defaultChannel *string
	if cfg.SubscriptionChannel != "" {
		defaultChannel = &cfg.SubscriptionChannel
	}
	if err := settingsRepo.EnsureDefaults(context.Background(), cfg.DefaultMaxTeams, cfg.DefaultTeamSize, defaultChannel); err != nil {
		logger.Error("failed to seed tournament settings", slog.Any("error", err))
		os.Exit(1)
	}

	// Инициализация сервисов
	lock := services.NewTournamentLock()
	notifier := services.NewChatNotifier(transport, cfg.ModerationChatID, logger)
	generator := brackets.NewGroupGenerator()

	adminService := services.NewAdminService(adminRepo, cfg.PrimaryAdminID, logger)
	if err := adminService.Bootstrap(context.Background()); err != nil {
		logger.Error("failed to bootstrap primary admin", slog.Any("error", err))
		os.Exit(1)
	}

	tournamentService := services.NewTournamentService(
		lock,
		applicationRepo,
		settingsRepo,
		tournamentRepo,
		adminService,
		generator,
		notifier,
		wsHub,
		uploader,
		logger,
	)
	admissionService := services.NewAdmissionService(
		lock,
		applicationRepo,
		settingsRepo,
		tournamentRepo,
		adminService,
		generator,
		tournamentService,
		notifier,
		logger,
	)
	subscriptionChecker := services.NewSubscriptionChecker(settingsRepo, transport, logger)
	registrationService := services.NewRegistrationService(admissionService, settingsRepo, notifier, logger)
	broadcastService := services.NewBroadcastService(applicationRepo, adminService, transport, wsHub, logger)
	logger.Info("services initialized")

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(adminService, cfg.AdminAPIKeyHash, cfg.JWTSecretKey)
	webhookHandler := handlers.NewWebhookHandler(
		transport,
		registrationService,
		admissionService,
		tournamentService,
		subscriptionChecker,
		logger,
	)
	admissionHandler := handlers.NewAdmissionHandler(admissionService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	adminHandler := handlers.NewAdminHandler(adminService)
	broadcastHandler := handlers.NewBroadcastHandler(broadcastService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		webhookHandler,
		admissionHandler,
		tournamentHandler,
		adminHandler,
		broadcastHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
