package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stockledger/stockledger/internal/model"
	"github.com/stockledger/stockledger/internal/service"
)

type InventoryHandler struct {
	service service.InventoryService
}

func NewInventoryHandler(s service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: s}
}

// POST /api/v1/products
func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var product model.Product
	if err := c.BodyParser(&product); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	created, err := h.service.CreateProduct(c.UserContext(), &product, getUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": created})
}

// GET /api/v1/products/:id
func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid product ID")
	}
	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// InitStock sets the opening balance of a product in a branch.
// POST /api/v1/stocks
func (h *InventoryHandler) InitStock(c *fiber.Ctx) error {
	var req model.StockInit
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	row, err := h.service.InitStock(c.UserContext(), &req, getUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Stock initialized", "data": row})
}

// POST /api/v1/stocks/adjust
func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	var req model.StockAdjustment
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	row, err := h.service.AdjustStock(c.UserContext(), &req, getUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock adjusted", "data": row})
}

// GET /api/v1/stocks/:branch/:product
func (h *InventoryHandler) GetStockLevel(c *fiber.Ctx) error {
	branchID, err := paramUUID(c, "branch")
	if err != nil {
		return badRequest(c, "Invalid branch ID")
	}
	productID, err := paramUUID(c, "product")
	if err != nil {
		return badRequest(c, "Invalid product ID")
	}
	row, err := h.service.GetStockLevel(c.UserContext(), branchID, productID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(row)
}

// GET /api/v1/stocks/:branch/:product/movements?limit=50
func (h *InventoryHandler) GetMovements(c *fiber.Ctx) error {
	branchID, err := paramUUID(c, "branch")
	if err != nil {
		return badRequest(c, "Invalid branch ID")
	}
	productID, err := paramUUID(c, "product")
	if err != nil {
		return badRequest(c, "Invalid product ID")
	}
	movements, err := h.service.ListMovements(c.UserContext(), branchID, productID, c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": movements, "count": len(movements)})
}
