package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/produccion-pesquera/internal/application/dto"
	"github.com/jhoicas/produccion-pesquera/internal/domain"
)

// errorStatus traduce un error de dominio a status HTTP y código de la respuesta.
// El orden importa: CycleError también envuelve ErrCycle, que se reporta como 422.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrMissingProcessType):
		return fiber.StatusUnprocessableEntity, "MISSING_PROCESS_TYPE"
	case errors.Is(err, domain.ErrCycle):
		return fiber.StatusUnprocessableEntity, "CYCLE"
	case errors.Is(err, domain.ErrAllocationIncomplete):
		return fiber.StatusUnprocessableEntity, "ALLOCATION_INCOMPLETE"
	case errors.Is(err, domain.ErrSourceTypeMismatch):
		return fiber.StatusUnprocessableEntity, "SOURCE_TYPE_MISMATCH"
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

func writeError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}
