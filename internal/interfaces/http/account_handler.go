package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturador-afip/internal/application/dto"
)

// CertificateService aprovisionamiento y estado del certificado de la cuenta.
type CertificateService interface {
	ValidateCertificate(ctx context.Context, accountID string) (*dto.CertificateStatus, error)
	GenerateKeyMaterial(ctx context.Context, accountID string, in dto.KeyMaterialRequest) (*dto.KeyMaterialResponse, error)
	UploadCertificate(ctx context.Context, accountID, certPEM, keyPEM string) (*dto.CertificateStatus, error)
	UploadPKCS12(ctx context.Context, accountID, bundleBase64, password string) (*dto.CertificateStatus, error)
}

// AccountHandler maneja el certificado digital de la cuenta (protegido).
type AccountHandler struct {
	svc CertificateService
}

// NewAccountHandler construye el handler.
func NewAccountHandler(svc CertificateService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// GetCertificate godoc
// @Summary      Estado del certificado
// @Tags         account
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.CertificateStatus
// @Router       /api/account/certificate [get]
func (h *AccountHandler) GetCertificate(c *fiber.Ctx) error {
	accountID := GetAccountID(c)
	if accountID == "" {
		return unauthorized(c)
	}
	status, err := h.svc.ValidateCertificate(c.Context(), accountID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status)
}

// UploadCertificate godoc
// @Summary      Cargar certificado
// @Description  Acepta certificado + llave en PEM (llave vacía = la generada en /api/account/keys)
// @Description  o un .p12 en base64 con su contraseña.
// @Tags         account
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.UploadCertificateRequest  true  "Certificado"
// @Success      200   {object}  dto.CertificateStatus
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/account/certificate [put]
func (h *AccountHandler) UploadCertificate(c *fiber.Ctx) error {
	accountID := GetAccountID(c)
	if accountID == "" {
		return unauthorized(c)
	}
	var in dto.UploadCertificateRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}

	var (
		status *dto.CertificateStatus
		err    error
	)
	switch {
	case strings.TrimSpace(in.PKCS12) != "":
		status, err = h.svc.UploadPKCS12(c.Context(), accountID, in.PKCS12, in.Password)
	case strings.TrimSpace(in.Certificate) != "":
		status, err = h.svc.UploadCertificate(c.Context(), accountID, in.Certificate, in.PrivateKey)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "certificate o pkcs12 requerido"})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status)
}

// GenerateKeys godoc
// @Summary      Generar llave y pedido de certificado
// @Description  Devuelve la llave RSA 2048, el CSR y el comando openssl equivalente.
// @Description  La llave queda guardada como pendiente hasta cargar el certificado.
// @Tags         account
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.KeyMaterialRequest  true  "Datos del subject"
// @Success      201   {object}  dto.KeyMaterialResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/account/keys [post]
func (h *AccountHandler) GenerateKeys(c *fiber.Ctx) error {
	accountID := GetAccountID(c)
	if accountID == "" {
		return unauthorized(c)
	}
	var in dto.KeyMaterialRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	km, err := h.svc.GenerateKeyMaterial(c.Context(), accountID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(km)
}
