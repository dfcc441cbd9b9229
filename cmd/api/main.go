package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stockledger/stockledger/internal/config"
	"github.com/stockledger/stockledger/internal/handler"
	"github.com/stockledger/stockledger/internal/lock"
	"github.com/stockledger/stockledger/internal/metrics"
	"github.com/stockledger/stockledger/internal/repository"
	"github.com/stockledger/stockledger/internal/service"
	"github.com/stockledger/stockledger/internal/stock"
	"github.com/stockledger/stockledger/internal/txn"
	"github.com/stockledger/stockledger/internal/ws"
	"github.com/stockledger/stockledger/pkg/database"
	"github.com/stockledger/stockledger/pkg/jwt"
	"github.com/stockledger/stockledger/pkg/logger"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLog := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer func() { _ = zapLog.Sync() }()
	zap.ReplaceGlobals(zapLog)

	if err := run(cfg, zapLog); err != nil {
		zapLog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLog *zap.Logger) error {
	// 2. Setup Database
	db, err := database.ConnectDB(cfg.DSN(), zapLog)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer sqlDB.Close()

	// 3. Stock guards: shared through Redis when configured, in-process otherwise
	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		locker = lock.NewRedisLocker(rdb, cfg.Stock.LockTTL, zapLog)
		zapLog.Info("using redis stock guards", zap.String("addr", cfg.RedisAddr))
	}

	strategy, err := stock.StrategyByName(cfg.Stock.ConversionStrategy)
	if err != nil {
		return err
	}
	zapLog.Info("unit conversion strategy", zap.String("strategy", strategy.Name()))

	m := metrics.New()

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub(zapLog)
	go wsHub.Run()
	defer wsHub.Stop()

	// 5. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	stockRepo := repository.NewStockRepo(db)
	movementRepo := repository.NewMovementRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	sequenceRepo := repository.NewSequenceRepo(db, cfg.Stock.MaxRetries)

	ledger := service.NewLedger(productRepo, stockRepo, movementRepo, service.LedgerOptions{
		Converter:      stock.NewConverter(strategy),
		CreateOnCredit: cfg.Stock.CreateOnCredit,
		Metrics:        m,
		Logger:         zapLog,
	})
	coord := txn.New(db, txn.Options{
		Timeout:    cfg.Stock.OperationTimeout,
		MaxRetries: cfg.Stock.MaxRetries,
		Locker:     locker,
		Logger:     zapLog,
		Metrics:    m,
	})

	orderService := service.NewOrderService(orderRepo, movementRepo, sequenceRepo, ledger, coord, wsHub, m, zapLog)
	invService := service.NewInventoryService(productRepo, stockRepo, movementRepo, ledger, coord, wsHub, zapLog)

	secret := cfg.JWTSecret
	if secret == "" {
		zapLog.Warn("JWT_SECRET not set, using development secret")
		secret = jwt.DevSecret
	}

	// 6. Setup Fiber
	app := handler.NewApp(handler.AppConfig{
		JWTSecret:  []byte(secret),
		Logger:     zapLog,
		Metrics:    m,
		Hub:        wsHub,
		AccessLog:  !cfg.IsProduction(),
		HealthPing: sqlDB.PingContext,
	}, handler.Handlers{
		Orders:    handler.NewOrderHandler(orderService),
		Inventory: handler.NewInventoryHandler(invService),
		Roles:     handler.NewRoleHandler(nil),
	})

	// 7. Graceful Shutdown
	errCh := make(chan error, 1)
	go func() {
		zapLog.Info("listening", zap.String("port", cfg.Port))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	zapLog.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	zapLog.Info("server exited")
	return nil
}
