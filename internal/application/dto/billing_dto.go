package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest body para POST /api/invoices (crea un borrador).
// Las fechas van en formato YYYY-MM-DD.
type CreateInvoiceRequest struct {
	VoucherType          string          `json:"voucher_type"` // factura_a ... nota_credito_c
	SalesPoint           int             `json:"sales_point,omitempty"`
	ReceiverName         string          `json:"receiver_name"`
	ReceiverTaxID        *string         `json:"receiver_tax_id,omitempty"`
	ReceiverAddress      string          `json:"receiver_address,omitempty"`
	ReceiverForeign      bool            `json:"receiver_foreign,omitempty"`
	ReceiverTaxCondition int             `json:"receiver_tax_condition,omitempty"`
	NetAmount            decimal.Decimal `json:"net_amount"`
	VATAmount            decimal.Decimal `json:"vat_amount"`
	TotalAmount          decimal.Decimal `json:"total_amount"` // cero = neto + IVA
	Currency             string          `json:"currency,omitempty"`
	ExchangeRate         decimal.Decimal `json:"exchange_rate"`
	Concept              string          `json:"concept"`
	ConceptType          string          `json:"concept_type"` // products | services | both
	ServiceFrom          string          `json:"service_from,omitempty"`
	ServiceTo            string          `json:"service_to,omitempty"`
	PaymentDueDate       string          `json:"payment_due_date,omitempty"`
}

// InvoiceResponse comprobante en respuestas.
type InvoiceResponse struct {
	ID                     string          `json:"id"`
	AccountID              string          `json:"account_id"`
	VoucherType            string          `json:"voucher_type"`
	SalesPoint             int             `json:"sales_point"`
	Number                 *int64          `json:"number,omitempty"`
	AttemptedNumber        *int64          `json:"attempted_number,omitempty"`
	ReceiverName           string          `json:"receiver_name"`
	ReceiverTaxID          *string         `json:"receiver_tax_id,omitempty"`
	ReceiverAddress        string          `json:"receiver_address,omitempty"`
	NetAmount              decimal.Decimal `json:"net_amount"`
	VATAmount              decimal.Decimal `json:"vat_amount"`
	TotalAmount            decimal.Decimal `json:"total_amount"`
	Currency               string          `json:"currency"`
	ExchangeRate           decimal.Decimal `json:"exchange_rate"`
	Concept                string          `json:"concept"`
	ConceptType            string          `json:"concept_type"`
	ServiceFrom            *time.Time      `json:"service_from,omitempty"`
	ServiceTo              *time.Time      `json:"service_to,omitempty"`
	PaymentDueDate         *time.Time      `json:"payment_due_date,omitempty"`
	IssueDate              *time.Time      `json:"issue_date,omitempty"`
	AuthorizationCode      *string         `json:"cae,omitempty"`
	AuthorizationExpiresAt *time.Time      `json:"cae_expires_at,omitempty"`
	Status                 string          `json:"status"` // draft|pending|authorized|rejected|cancelled
	ErrorMessage           string          `json:"error_message,omitempty"`
	CancelsInvoiceID       *string         `json:"cancels_invoice_id,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// AuthorizationOutcome resultado de POST /api/invoices/:id/authorize.
// Un rechazo de AFIP es Success=false con ErrorMessage, no un error HTTP.
type AuthorizationOutcome struct {
	InvoiceID    string     `json:"invoice_id"`
	Success      bool       `json:"success"`
	Status       string     `json:"status"`
	Number       *int64     `json:"number,omitempty"`
	CAE          string     `json:"cae,omitempty"`
	CAEExpiresAt *time.Time `json:"cae_expires_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// NextNumberResponse próximo número a autorizar.
type NextNumberResponse struct {
	VoucherType string `json:"voucher_type"`
	SalesPoint  int    `json:"sales_point"`
	Number      int64  `json:"number"`
}

// QRResponse URL del QR fiscal y su imagen PNG como data URL.
type QRResponse struct {
	URL   string `json:"url"`
	Image string `json:"image,omitempty"`
}

// SyncRequest body para POST /api/invoices/sync.
type SyncRequest struct {
	VoucherType string `json:"voucher_type"`
}

// SyncResult resumen de una reconciliación contra FECompConsultar.
type SyncResult struct {
	VoucherType    string  `json:"voucher_type"`
	SalesPoint     int     `json:"sales_point"`
	LastAuthorized int64   `json:"last_authorized"`
	Checked        int     `json:"checked"`
	Imported       []int64 `json:"imported"`
}
