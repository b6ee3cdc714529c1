package afip_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/facturador-afip/internal/domain"
	domainafip "github.com/jhoicas/facturador-afip/internal/domain/afip"
	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	"github.com/jhoicas/facturador-afip/pkg/afip"
)

func validInvoice() *entity.Invoice {
	return &entity.Invoice{
		VoucherType: afip.FacturaC,
		SalesPoint:  3,
		NetAmount:   decimal.RequireFromString("1000.00"),
		TotalAmount: decimal.RequireFromString("1000.00"),
		Currency:    afip.CurrencyPesos,
		ConceptType: afip.ConceptServices,
		Status:      entity.InvoiceStatusDraft,
	}
}

func TestValidateInvoice_Valida(t *testing.T) {
	assert.NoError(t, domainafip.ValidateInvoice(validInvoice()))
}

func TestValidateInvoice_TotalIncoherente(t *testing.T) {
	inv := validInvoice()
	inv.TotalAmount = decimal.RequireFromString("1100.00")
	err := domainafip.ValidateInvoice(inv)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "no coincide")
}

func TestValidateInvoice_ClaseCConIVA(t *testing.T) {
	inv := validInvoice()
	inv.VATAmount = decimal.RequireFromString("210.00")
	inv.TotalAmount = decimal.RequireFromString("1210.00")
	err := domainafip.ValidateInvoice(inv)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "clase C")
}

func TestValidateInvoice_ClaseASinCUIT(t *testing.T) {
	inv := validInvoice()
	inv.VoucherType = afip.FacturaA
	inv.VATAmount = decimal.RequireFromString("210.00")
	inv.TotalAmount = decimal.RequireFromString("1210.00")
	err := domainafip.ValidateInvoice(inv)
	assert.ErrorIs(t, err, domain.ErrValidation)

	cuit := "20123456786"
	inv.ReceiverTaxID = &cuit
	assert.NoError(t, domainafip.ValidateInvoice(inv))
}

func TestValidateInvoice_CUITReceptorInvalida(t *testing.T) {
	inv := validInvoice()
	bad := "20123456780"
	inv.ReceiverTaxID = &bad
	assert.ErrorIs(t, domainafip.ValidateInvoice(inv), domain.ErrValidation)
}

func TestValidateInvoice_PeriodoInvertido(t *testing.T) {
	inv := validInvoice()
	from := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inv.ServiceFrom, inv.ServiceTo = &from, &to
	assert.ErrorIs(t, domainafip.ValidateInvoice(inv), domain.ErrValidation)
}

func TestValidateInvoice_NotaCreditoSinReferencia(t *testing.T) {
	inv := validInvoice()
	inv.VoucherType = afip.NotaCreditoC
	assert.ErrorIs(t, domainafip.ValidateInvoice(inv), domain.ErrValidation)
}

func TestValidateInvoice_Nil(t *testing.T) {
	assert.ErrorIs(t, domainafip.ValidateInvoice(nil), domain.ErrValidation)
}

func TestValidateInvoice_AlicuotaInexistente(t *testing.T) {
	inv := validInvoice()
	inv.VoucherType = afip.FacturaB
	inv.VATAmount = decimal.RequireFromString("130.00")
	inv.TotalAmount = decimal.RequireFromString("1130.00")
	err := domainafip.ValidateInvoice(inv)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "alícuota")
}
