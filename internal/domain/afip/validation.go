// Package afip contiene validaciones de dominio previas a la autorización de comprobantes
// en WSFEv1. Utiliza catálogos y reglas de pkg/afip.
package afip

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-afip/internal/domain"
	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	pkgafip "github.com/jhoicas/facturador-afip/pkg/afip"
)

// ValidateInvoice valida el comprobante antes de cualquier llamada a AFIP.
// Devuelve un error que envuelve domain.ErrValidation con todos los problemas encontrados.
func ValidateInvoice(inv *entity.Invoice) error {
	if inv == nil {
		return fmt.Errorf("%w: comprobante nulo", domain.ErrValidation)
	}
	var errs []error

	if !inv.VoucherType.Valid() {
		errs = append(errs, fmt.Errorf("tipo de comprobante desconocido %q", inv.VoucherType))
	}
	if inv.ConceptType.Code() == 0 {
		errs = append(errs, fmt.Errorf("concepto desconocido %q", inv.ConceptType))
	}
	if inv.SalesPoint <= 0 {
		errs = append(errs, fmt.Errorf("punto de venta inválido: %d", inv.SalesPoint))
	}

	// Importes: neto > 0, total = neto + IVA (a dos decimales).
	if !inv.NetAmount.GreaterThan(decimal.Zero) {
		errs = append(errs, fmt.Errorf("el importe neto debe ser mayor a cero"))
	}
	if inv.VATAmount.LessThan(decimal.Zero) {
		errs = append(errs, fmt.Errorf("el IVA no puede ser negativo"))
	}
	expected := inv.NetAmount.Add(inv.VATAmount).Round(2)
	if !inv.TotalAmount.Round(2).Equal(expected) {
		errs = append(errs, fmt.Errorf("total (%s) no coincide con neto + IVA (%s)", inv.TotalAmount.StringFixed(2), expected.StringFixed(2)))
	}
	if inv.VoucherType.Class() == "C" && !inv.VATAmount.IsZero() {
		errs = append(errs, fmt.Errorf("los comprobantes clase C no discriminan IVA"))
	}
	if class := inv.VoucherType.Class(); (class == "A" || class == "B") && inv.NetAmount.IsPositive() {
		if _, ok := pkgafip.VATRateIDFor(inv.NetAmount, inv.VATAmount); !ok {
			errs = append(errs, fmt.Errorf("el IVA (%s) no corresponde a ninguna alícuota vigente", inv.VATAmount.StringFixed(2)))
		}
	}

	if inv.Currency != "" && len(inv.Currency) != 3 {
		errs = append(errs, fmt.Errorf("moneda inválida %q", inv.Currency))
	}
	if !inv.ExchangeRate.IsZero() && inv.ExchangeRate.LessThan(decimal.Zero) {
		errs = append(errs, fmt.Errorf("cotización inválida %s", inv.ExchangeRate))
	}

	// Receptor
	if inv.ReceiverTaxID != nil && !inv.ReceiverForeign {
		if digits := pkgafip.NormalizeCUIT(*inv.ReceiverTaxID); len(digits) == 11 {
			if err := pkgafip.ValidateCUIT(digits); err != nil {
				errs = append(errs, fmt.Errorf("receptor: %w", err))
			}
		}
	}
	if inv.VoucherType.Class() == "A" {
		docType, _ := pkgafip.ReceiverDocument(deref(inv.ReceiverTaxID), inv.ReceiverForeign)
		if docType != pkgafip.DocTypeCUIT {
			errs = append(errs, fmt.Errorf("los comprobantes clase A requieren CUIT del receptor"))
		}
	}
	if inv.ReceiverTaxCondition != 0 && !pkgafip.ValidIVAConditions[inv.ReceiverTaxCondition] {
		errs = append(errs, fmt.Errorf("condición IVA del receptor desconocida: %d", inv.ReceiverTaxCondition))
	}

	// Período de servicio: si se informa debe ser coherente.
	if inv.ServiceFrom != nil && inv.ServiceTo != nil && inv.ServiceTo.Before(*inv.ServiceFrom) {
		errs = append(errs, fmt.Errorf("el período de servicio termina antes de comenzar"))
	}

	if inv.VoucherType.IsCreditNote() && inv.CancelsInvoiceID == nil {
		errs = append(errs, fmt.Errorf("la nota de crédito debe referenciar un comprobante"))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{domain.ErrValidation}, errs...)...)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
