package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturador-afip/internal/application/dto"
	"github.com/jhoicas/facturador-afip/internal/domain"
)

// errorMapping traduce errores de dominio a status HTTP. El orden importa:
// se devuelve la primera coincidencia.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrValidation, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrCertificateFormat, fiber.StatusUnprocessableEntity, "CERTIFICATE"},
	{domain.ErrSigning, fiber.StatusUnprocessableEntity, "SIGNING"},
	{domain.ErrAuthorityRejection, fiber.StatusUnprocessableEntity, "AFIP_REJECTED"},
	{domain.ErrAuthentication, fiber.StatusBadGateway, "AFIP_AUTH"},
	{domain.ErrStaleTokenState, fiber.StatusServiceUnavailable, "AFIP_TOKEN_PENDING"},
	{domain.ErrTransport, fiber.StatusServiceUnavailable, "AFIP_UNAVAILABLE"},
}

// writeError responde con dto.ErrorResponse según el error de dominio.
func writeError(c *fiber.Ctx, err error) error {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			if domain.IsTransient(err) {
				c.Set(fiber.HeaderRetryAfter, "60")
			}
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
