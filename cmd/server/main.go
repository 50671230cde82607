package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/bharatalert-backend/internal/config"
	"github.com/ignatzorin/bharatalert-backend/internal/db"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/repository"
	"github.com/ignatzorin/bharatalert-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/bharatalert-backend/internal/http/handlers"
	"github.com/ignatzorin/bharatalert-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/bharatalert-backend/internal/http/router"
	"github.com/ignatzorin/bharatalert-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/bharatalert-backend/internal/logger"
	"github.com/ignatzorin/bharatalert-backend/internal/metrics"
	"github.com/ignatzorin/bharatalert-backend/internal/service"
	"github.com/ignatzorin/bharatalert-backend/internal/storage"
	"github.com/ignatzorin/bharatalert-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.IsDevelopment() {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}
	appLog := logger.Component("main")

	// Хранилище.
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		appLog.WithError(err).Fatal("не удалось открыть хранилище")
	}
	defer closeStore()

	// Redis нужен только для общего счётчика rate limit между репликами.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = db.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			appLog.WithError(err).Fatal("не удалось подключиться к redis")
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				appLog.WithError(err).Warn("ошибка закрытия redis")
			}
		}()
	}
	limitStore, err := middleware.NewLimiterStore(redisClient)
	if err != nil {
		appLog.WithError(err).Fatal("не удалось создать хранилище rate limit")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		appLog.WithError(err).Fatal("не удалось подготовить файловое хранилище")
	}

	// Вебсокеты.
	hub := ws.NewHub()
	goroutine.SafeGoWithContext(ctx, hub.Run)

	// Сервисы.
	opts := service.Options{
		StoreTimeout:  cfg.StoreTimeout,
		SightingQuota: cfg.SightingQuota,
		Notifier:      hub,
		Metrics:       appMetrics,
	}
	authService := service.NewAuthService(store, tokenManager, cfg.StoreTimeout)
	reportService := service.NewReportService(store, opts)
	sightingService := service.NewSightingService(store, opts)
	userService := service.NewUserService(store, opts)

	handlers := httpRouter.Handlers{
		Auth:      httpHandlers.NewAuthHandler(authService),
		Reports:   httpHandlers.NewReportHandler(reportService, sightingService, photoStorage),
		Sightings: httpHandlers.NewSightingHandler(sightingService, userService),
		Users:     httpHandlers.NewAdminUserHandler(userService),
		Media:     httpHandlers.NewMediaHandler(photoStorage),
		WS:        httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Health:    httpHandlers.NewHealthHandler(store, cfg.StoreDriver),
	}
	if cfg.IsDevelopment() {
		handlers.Seed = httpHandlers.NewSeedHandler(service.NewSeedService(store))
	}

	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	engine := httpRouter.SetupRouter(cfg, handlers, tokenManager, limitStore, metricsHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("ошибка остановки http сервера")
		}
	})

	appLog.WithFields(map[string]any{
		"port":           cfg.HTTPPort,
		"store":          cfg.StoreDriver,
		"sighting_quota": cfg.SightingQuota,
	}).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		appLog.WithError(err).Fatal("сервер завершился с ошибкой")
	}
}

// openStore выбирает реализацию хранилища по STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Component("main").Warn("используется хранилище в памяти, данные не переживут перезапуск")
		return persistence.NewMemoryStore(), func() {}, nil
	}

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		safeClose(dbConn)
		return nil, nil, err
	}
	return persistence.NewPostgresStore(dbConn), func() { safeClose(dbConn) }, nil
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Component("main").WithError(err).Warn("ошибка закрытия базы")
	}
}
