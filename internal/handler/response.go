package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stockledger/stockledger/internal/stock"
	"github.com/stockledger/stockledger/pkg/logger"
)

var codeStatus = map[string]int{
	stock.CodeNotFound:          fiber.StatusNotFound,
	stock.CodeUnitMapping:       fiber.StatusUnprocessableEntity,
	stock.CodeInsufficientStock: fiber.StatusConflict,
	stock.CodeDuplicateRef:      fiber.StatusConflict,
	stock.CodeInvalidTransition: fiber.StatusConflict,
	stock.CodeValidation:        fiber.StatusBadRequest,
	stock.CodeTimeout:           fiber.StatusGatewayTimeout,
	stock.CodeConflict:          fiber.StatusServiceUnavailable,
}

// respondError writes err as {code, error}. Untyped errors are logged and
// hidden behind a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	code := stock.CodeOf(err)
	if status, ok := codeStatus[code]; ok {
		body := fiber.Map{"code": code, "error": err.Error()}
		var insufficient *stock.InsufficientStockError
		if errors.As(err, &insufficient) {
			body["available"] = insufficient.Available
			body["required"] = insufficient.Required
		}
		return c.Status(status).JSON(body)
	}

	logger.FromContext(c.UserContext(), zap.L()).Error("request failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"code": "INTERNAL", "error": "Internal Server Error"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"code": stock.CodeValidation, "error": msg})
}

// Helper untuk ambil User Info dari JWT Context (set by auth middleware)
func getUserID(c *fiber.Ctx) string {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return "system"
	}
	return userID
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}
