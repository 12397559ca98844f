package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/resguarit/ticketera-rg-sub004/internal/api"
	"github.com/resguarit/ticketera-rg-sub004/internal/api/handler"
	custommw "github.com/resguarit/ticketera-rg-sub004/internal/api/middleware"
	"github.com/resguarit/ticketera-rg-sub004/internal/application"
	"github.com/resguarit/ticketera-rg-sub004/internal/config"
	"github.com/resguarit/ticketera-rg-sub004/internal/infrastructure/postgres"
	"github.com/resguarit/ticketera-rg-sub004/internal/infrastructure/queue"
	redisinfra "github.com/resguarit/ticketera-rg-sub004/internal/infrastructure/redis"
	"github.com/resguarit/ticketera-rg-sub004/internal/pkg/logger"
	"github.com/resguarit/ticketera-rg-sub004/internal/pkg/metrics"
	"github.com/resguarit/ticketera-rg-sub004/internal/worker"
)

func main() {
	// .env があれば読み込む（ローカル開発用）
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.Env))
	defer logger.Sync()

	m := metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続に失敗しました", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
	}

	// Redis
	redisClient := redisinfra.NewClient(&cfg.Redis)
	if err := redisinfra.Ping(ctx, redisClient); err != nil {
		logger.Fatal("Redis接続に失敗しました", zap.Error(err))
	}
	defer redisClient.Close()

	holdStore := redisinfra.NewHoldStore(redisClient, cfg.Lock.MaxRetries, cfg.Lock.RetryDelay)
	availabilityCache := redisinfra.NewAvailabilityCache(redisClient)

	// メッセージブローカー（任意）
	var publisher application.ConfirmedPublisher
	if cfg.Queue.Enabled {
		p, err := queue.NewPublisher(cfg.Queue.URL)
		if err != nil {
			logger.Warn("ブローカー接続に失敗したため確定イベントの発行を無効化します", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	// リポジトリとサービス
	eventRepo := postgres.NewEventRepository(db)
	ticketRepo := postgres.NewTicketTypeRepository(db)
	txManager := postgres.NewTxManager(db)

	eventService := application.NewEventService(eventRepo, ticketRepo)
	availabilityService := application.NewAvailabilityService(ticketRepo, holdStore, availabilityCache)
	reservationService := application.NewReservationService(
		txManager, ticketRepo, holdStore, publisher, availabilityCache, cfg.Lock.HoldTTL)

	// バックグラウンドスイーパー
	if cfg.Worker.SweepEnabled {
		sweeper := worker.NewExpiredHoldSweeper(holdStore, ticketRepo, cfg.Worker.SweepInterval)
		go sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	custommw.SetupMiddleware(e)
	e.Use(custommw.PrometheusMiddleware(m))

	// ハンドラー
	eventHandler := handler.NewEventHandler(eventService)
	ticketTypeHandler := handler.NewTicketTypeHandler(availabilityService, eventService)
	reservationHandler := handler.NewReservationHandler(reservationService)
	healthHandler := handler.NewHealthHandler()

	// ルーティング
	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Check)

	v1.POST("/events", eventHandler.Create)
	v1.GET("/events", eventHandler.List)
	v1.GET("/events/:id", eventHandler.GetByID)
	v1.POST("/events/:event_id/ticket-types", ticketTypeHandler.Create)
	v1.GET("/events/:event_id/ticket-types", ticketTypeHandler.ListByEvent)
	v1.GET("/ticket-types/:id/availability", ticketTypeHandler.GetAvailability)

	reservations := v1.Group("/reservations", custommw.RateLimit(cfg.RateLimit, redisClient))
	reservations.POST("", reservationHandler.Create)
	reservations.POST("/extend", reservationHandler.Extend)
	reservations.POST("/confirm", reservationHandler.Confirm)
	reservations.DELETE("", reservationHandler.Release)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), custommw.MetricsBasicAuth())

	// デバッグ用ルートは本番環境では登録しない
	if !cfg.IsProduction() {
		debugHandler := handler.NewDebugHandler(availabilityService, reservationService)
		v1.GET("/debug/ticket-types/:id/holds", debugHandler.GetHolds)
		v1.DELETE("/debug/sessions/:id/holds", debugHandler.ForceRelease)
	}

	// サーバー起動
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
