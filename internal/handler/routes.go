package handler

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/stockledger/stockledger/internal/metrics"
	"github.com/stockledger/stockledger/internal/middleware"
	"github.com/stockledger/stockledger/internal/model"
	"github.com/stockledger/stockledger/internal/ws"
)

type Handlers struct {
	Orders    *OrderHandler
	Inventory *InventoryHandler
	Roles     *RoleHandler
}

type AppConfig struct {
	JWTSecret  []byte
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Hub        *ws.Hub
	AccessLog  bool
	HealthPing func(ctx context.Context) error
}

// NewApp builds the fiber application with every route mounted.
func NewApp(cfg AppConfig, h Handlers) *fiber.App {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:      "stockledger",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Middleware
	app.Use(recover.New()) // Panic recovery
	app.Use(requestid.New())
	if cfg.AccessLog {
		app.Use(logger.New()) // Logging request
	}
	app.Use(cors.New())
	app.Use(cfg.Metrics.Middleware())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if cfg.HealthPing != nil {
			if err := cfg.HealthPing(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", cfg.Metrics.Handler())

	api := app.Group("/api/v1", middleware.RequireAuth(cfg.JWTSecret), middleware.RequestLogger(cfg.Logger))
	priv := middleware.RequirePrivilege

	api.Get("/roles", h.Roles.GetRoles)
	api.Get("/privileges", h.Roles.GetPrivileges)

	// Order Routes
	api.Post("/orders", priv(model.PrivOrderCreate), h.Orders.CreateOrder)
	api.Get("/orders/:id", priv(model.PrivOrderView), h.Orders.GetOrder)
	api.Get("/orders/:id/movements", priv(model.PrivOrderView), h.Orders.GetOrderMovements)
	api.Post("/orders/:id/approve", priv(model.PrivOrderApprove), h.Orders.Approve)
	api.Post("/orders/:id/complete", priv(model.PrivOrderComplete), h.Orders.Complete)
	api.Post("/orders/:id/void", priv(model.PrivOrderVoid), h.Orders.Void)
	api.Delete("/orders/:id", priv(model.PrivOrderDelete), h.Orders.Delete)

	// Product Routes
	api.Post("/products", priv(model.PrivProductCreate), h.Inventory.CreateProduct)
	api.Get("/products/:id", priv(model.PrivProductView), h.Inventory.GetProduct)

	// Stock Routes
	api.Post("/stocks", priv(model.PrivStockAdjust), h.Inventory.InitStock)
	api.Post("/stocks/adjust", priv(model.PrivStockAdjust), h.Inventory.AdjustStock)
	api.Get("/stocks/:branch/:product", priv(model.PrivStockView), h.Inventory.GetStockLevel)
	api.Get("/stocks/:branch/:product/movements", priv(model.PrivStockView), h.Inventory.GetMovements)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		if !cfg.Hub.Join(c) {
			return
		}
		defer cfg.Hub.Leave(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	return app
}
