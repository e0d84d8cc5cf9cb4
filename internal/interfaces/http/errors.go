package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-movimientos/internal/application/dto"
	"github.com/jhoicas/inventario-movimientos/internal/domain"
)

// retryAfterSeconds sugerencia al cliente cuando un bloqueo no se obtuvo a tiempo.
const retryAfterSeconds = "1"

// internalMessage reemplaza el texto de errores no clasificados (SQL, red) en la respuesta.
const internalMessage = "error interno del servidor"

// writeError traduce errores de dominio a status HTTP con un cuerpo dto.ErrorResponse.
// Los errores no clasificados quedan en c.Locals para que AccessLog los registre.
func writeError(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	resp := dto.ErrorResponse{Code: code, Message: err.Error()}
	if status == fiber.StatusInternalServerError {
		c.Locals(LocalError, err)
		resp.Message = internalMessage
	}
	if me, ok := domain.AsMovementError(err); ok {
		resp.Details = toErrorDetails(me)
	}
	if status == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
	}
	return c.Status(status).JSON(resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return fiber.StatusBadRequest, "INVALID_QUANTITY"
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrAlreadyFinalized):
		return fiber.StatusConflict, "ALREADY_FINALIZED"
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrBusy):
		return fiber.StatusServiceUnavailable, "BUSY"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

func toErrorDetails(me *domain.MovementError) *dto.ErrorDetails {
	d := &dto.ErrorDetails{
		DocumentID:  me.DocumentID,
		LineNumber:  me.LineNumber,
		ProductID:   me.ProductID,
		WarehouseID: me.WarehouseID,
		Reason:      me.Reason,
	}
	if me.Requested != nil {
		d.Requested = me.Requested.String()
	}
	if me.Available != nil {
		d.Available = me.Available.String()
	}
	return d
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
