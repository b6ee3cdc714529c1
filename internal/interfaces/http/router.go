package http

import (
	"github.com/gofiber/fiber/v2"
)

// BillingService une los contratos de comprobantes y certificados; lo implementa *billing.Service.
type BillingService interface {
	InvoiceService
	CertificateService
}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Billing   BillingService
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token con account_id)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Billing)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/next-number", invoiceHandler.NextNumber)
	invoices.Post("/sync", invoiceHandler.Sync)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Post("/:id/authorize", invoiceHandler.Authorize)
	invoices.Post("/:id/cancel", invoiceHandler.Cancel)
	invoices.Get("/:id/qr", invoiceHandler.QR)

	account := protected.Group("/account")
	accountHandler := NewAccountHandler(deps.Billing)
	account.Get("/certificate", accountHandler.GetCertificate)
	account.Put("/certificate", accountHandler.UploadCertificate)
	account.Post("/keys", accountHandler.GenerateKeys)
}
