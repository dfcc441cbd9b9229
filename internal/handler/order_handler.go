package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stockledger/stockledger/internal/model"
	"github.com/stockledger/stockledger/internal/service"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(s service.OrderService) *OrderHandler {
	return &OrderHandler{service: s}
}

// CreateOrder creates a pending order, or a completed one (direct invoice)
// when order_status is "completed".
// POST /api/v1/orders
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var order model.Order
	if err := c.BodyParser(&order); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	created, err := h.service.CreateOrder(c.UserContext(), &order, getUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Order created", "data": created})
}

// GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid order ID")
	}
	order, err := h.service.GetOrder(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// GET /api/v1/orders/:id/movements
func (h *OrderHandler) GetOrderMovements(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid order ID")
	}
	movements, err := h.service.ListOrderMovements(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(movements)
}

// POST /api/v1/orders/:id/approve
func (h *OrderHandler) Approve(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid order ID")
	}
	order, err := h.service.Approve(c.UserContext(), id, getUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order approved", "data": order})
}

type completeRequest struct {
	DueDate *time.Time `json:"due_date"`
}

// POST /api/v1/orders/:id/complete
func (h *OrderHandler) Complete(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid order ID")
	}
	var req completeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid JSON")
		}
	}
	order, err := h.service.ApproveAndComplete(c.UserContext(), id, req.DueDate, getUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order completed", "data": order})
}

// POST /api/v1/orders/:id/void
func (h *OrderHandler) Void(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid order ID")
	}
	order, err := h.service.VoidOrder(c.UserContext(), id, getUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order voided", "data": order})
}

// DELETE /api/v1/orders/:id
func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid order ID")
	}
	if err := h.service.DeleteOrder(c.UserContext(), id, getUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order deleted"})
}
