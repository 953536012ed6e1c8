package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"whatsapp-chat-analyzer/internal/adapters/parser"
	"whatsapp-chat-analyzer/internal/cache"
	"whatsapp-chat-analyzer/internal/core/services"
	"whatsapp-chat-analyzer/internal/executor"
	"whatsapp-chat-analyzer/internal/filter"
	"whatsapp-chat-analyzer/internal/pkg/config"
	"whatsapp-chat-analyzer/internal/ports"
	"whatsapp-chat-analyzer/internal/server"
	"whatsapp-chat-analyzer/internal/server/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// 3. Валидация конфигурации (после инициализации логгера)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 4. Инициализация фоновых сервисов и зависимостей
	appCtx, appCancel := context.WithCancel(context.Background())

	uploadStore := server.NewUploadStore()
	sessionStore := server.NewSessionStore()
	cacheStore := cache.NewCacheStore()
	uploadStore.StartCleanupTicker(appCtx, cfg.CleanupInterval())
	sessionStore.StartCleanupTicker(appCtx, cfg.CleanupInterval())
	cacheStore.StartCleanupTicker(appCtx, cfg.CleanupInterval())

	parserSvc := parser.NewTextParser()
	normalizerSvc := services.NewNormalizeService(
		services.WithLanguageSampleMin(cfg.Filter.LanguageSampleMin),
		services.WithNormalizeLogger(logger),
	)
	processor := usecase.NewProcessUploadUseCase(cfg, parserSvc, normalizerSvc, cacheStore)

	// Стратегия выполнения фильтров: фоновый пул, либо синхронный путь,
	// если пул отключен конфигурацией.
	var filterExec ports.FilterExecutor
	var pool *executor.Pool
	if cfg.Executor.PoolSize > 0 {
		pool = executor.NewPool(cfg.Executor.PoolSize, executor.WithPoolLogger(logger))
		filterExec = pool
	} else {
		filterExec = executor.NewInline()
	}
	// Диспетчер — на сессию: порядковые номера запросов не должны
	// пересекаться между разными чатами. Пул воркеров при этом общий.
	newStore := func() *filter.Store {
		dispatcher := executor.NewDispatcher(filterExec, executor.WithDispatcherLogger(logger))
		return filter.NewStore(dispatcher, cfg.Filter.DefaultSenderShare, filter.WithStoreLogger(logger))
	}

	// 5. Создание HTTP-сервера
	srv, err := server.New(cfg, processor, uploadStore, sessionStore, newStore)
	if err != nil {
		appCancel()
		return fmt.Errorf("failed to create server: %w", err)
	}

	// 6. Запуск сервера и graceful shutdown
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		slog.Info("Starting server", "addr", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Signal received, shutting down...")

	// Сначала отменяем контекст приложения, чтобы остановить фоновые тикеры
	appCancel()

	// Затем останавливаем HTTP-сервер
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	<-serverDone
	slog.Info("HTTP server stopped")

	// В конце останавливаем пул вычисления фильтров
	if pool != nil {
		pool.Stop()
	}

	slog.Info("Application exited gracefully")
	return nil
}
