package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturador-afip/internal/application/dto"
	"github.com/jhoicas/facturador-afip/pkg/afip"
)

// InvoiceService casos de uso de comprobantes que expone la API. Lo implementa *billing.Service.
type InvoiceService interface {
	CreateDraft(ctx context.Context, accountID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, accountID, invoiceID string) (*dto.InvoiceResponse, error)
	Authorize(ctx context.Context, accountID, invoiceID string) (*dto.AuthorizationOutcome, error)
	CancelInvoice(ctx context.Context, accountID, invoiceID string) (*dto.InvoiceResponse, error)
	BuildComplianceQRURL(ctx context.Context, accountID, invoiceID string) (*dto.QRResponse, error)
	NextInvoiceNumber(ctx context.Context, accountID string, voucherType afip.VoucherType) (*dto.NextNumberResponse, error)
	Sync(ctx context.Context, accountID string, voucherType afip.VoucherType) (*dto.SyncResult, error)
}

// InvoiceHandler maneja las peticiones HTTP de facturación electrónica (protegido).
type InvoiceHandler struct {
	svc InvoiceService
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(svc InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

// Create godoc
// @Summary      Crear comprobante en borrador
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateInvoiceRequest  true  "Comprobante (fechas YYYY-MM-DD)"
// @Success      201   {object}  dto.InvoiceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/invoices [post]
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	accountID := GetAccountID(c)
	if accountID == "" {
		return unauthorized(c)
	}
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	invoice, err := h.svc.CreateDraft(c.Context(), accountID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// GetByID godoc
// @Summary      Obtener comprobante
// @Description  El estado es "cancelled" si una nota de crédito autorizada lo anula.
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	accountID := GetAccountID(c)
	if accountID == "" {
		return unauthorized(c)
	}
	invoice, err := h.svc.GetInvoice(c.Context(), accountID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(invoice)
}

// Authorize godoc
// @Summary      Solicitar CAE
// @Description  Un rechazo de AFIP responde 200 con success=false y el mensaje de error.
// @Description  Las fallas de comunicación responden 503 y dejan el comprobante reintentable.
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {object}  dto.AuthorizationOutcome
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/authorize [post]
func (h *InvoiceHandler) Authorize(c *fiber.Ctx) error {
	accountID := GetAccountID(c)
	if accountID == "" {
		return unauthorized(c)
	}
	outcome, err := h.svc.Authorize(c.Context(), accountID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(outcome)
}

// Cancel godoc
// @Summary      Anular comprobante
// @Description  Genera una nota de crédito en borrador por el total; el original no se modifica.
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante autorizado"
// @Success      201  {object}  dto.InvoiceResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	accountID := GetAccountID(c)
	if accountID == "" {
		return unauthorized(c)
	}
	note, err := h.svc.CancelInvoice(c.Context(), accountID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

// QR godoc
// @Summary      QR fiscal del comprobante
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante autorizado"
// @Success      200  {object}  dto.QRResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/qr [get]
func (h *InvoiceHandler) QR(c *fiber.Ctx) error {
	accountID := GetAccountID(c)
	if accountID == "" {
		return unauthorized(c)
	}
	qr, err := h.svc.BuildComplianceQRURL(c.Context(), accountID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(qr)
}

// NextNumber godoc
// @Summary      Próximo número a autorizar
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        voucher_type  query  string  true  "factura_a ... nota_credito_c"
// @Success      200  {object}  dto.NextNumberResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/invoices/next-number [get]
func (h *InvoiceHandler) NextNumber(c *fiber.Ctx) error {
	accountID := GetAccountID(c)
	if accountID == "" {
		return unauthorized(c)
	}
	voucherType, err := afip.ParseVoucherType(c.Query("voucher_type", string(afip.FacturaC)))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	next, err := h.svc.NextInvoiceNumber(c.Context(), accountID, voucherType)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(next)
}

// Sync godoc
// @Summary      Reconciliar con AFIP
// @Description  Registra localmente los comprobantes recientes autorizados en AFIP que falten.
// @Tags         invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SyncRequest  true  "Tipo de comprobante"
// @Success      200   {object}  dto.SyncResult
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/invoices/sync [post]
func (h *InvoiceHandler) Sync(c *fiber.Ctx) error {
	accountID := GetAccountID(c)
	if accountID == "" {
		return unauthorized(c)
	}
	var in dto.SyncRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	voucherType, err := afip.ParseVoucherType(in.VoucherType)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	res, err := h.svc.Sync(c.Context(), accountID, voucherType)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}
