package billing

import (
	"github.com/jhoicas/facturador-afip/internal/application/dto"
	"github.com/jhoicas/facturador-afip/internal/domain/entity"
)

func toInvoiceResponse(inv *entity.Invoice, status string) *dto.InvoiceResponse {
	return &dto.InvoiceResponse{
		ID:                     inv.ID,
		AccountID:              inv.AccountID,
		VoucherType:            string(inv.VoucherType),
		SalesPoint:             inv.SalesPoint,
		Number:                 inv.Number,
		AttemptedNumber:        inv.AttemptedNumber,
		ReceiverName:           inv.ReceiverName,
		ReceiverTaxID:          inv.ReceiverTaxID,
		ReceiverAddress:        inv.ReceiverAddress,
		NetAmount:              inv.NetAmount,
		VATAmount:              inv.VATAmount,
		TotalAmount:            inv.TotalAmount,
		Currency:               inv.Currency,
		ExchangeRate:           inv.ExchangeRate,
		Concept:                inv.Concept,
		ConceptType:            string(inv.ConceptType),
		ServiceFrom:            inv.ServiceFrom,
		ServiceTo:              inv.ServiceTo,
		PaymentDueDate:         inv.PaymentDueDate,
		IssueDate:              inv.IssueDate,
		AuthorizationCode:      inv.AuthorizationCode,
		AuthorizationExpiresAt: inv.AuthorizationExpiresAt,
		Status:                 status,
		ErrorMessage:           inv.ErrorMessage,
		CancelsInvoiceID:       inv.CancelsInvoiceID,
		CreatedAt:              inv.CreatedAt,
		UpdatedAt:              inv.UpdatedAt,
	}
}
