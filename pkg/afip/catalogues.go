// Package afip contiene catálogos y validaciones alineados a las tablas de referencia
// del web service de Factura Electrónica de AFIP (WSFEv1, Argentina).
package afip

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// Tipos de comprobante (FEParamGetTiposCbte)
// =============================================================================

// VoucherType identifica el tipo de comprobante en el dominio.
type VoucherType string

const (
	FacturaA     VoucherType = "factura_a"
	NotaDebitoA  VoucherType = "nota_debito_a"
	NotaCreditoA VoucherType = "nota_credito_a"
	FacturaB     VoucherType = "factura_b"
	NotaDebitoB  VoucherType = "nota_debito_b"
	NotaCreditoB VoucherType = "nota_credito_b"
	FacturaC     VoucherType = "factura_c"
	NotaDebitoC  VoucherType = "nota_debito_c"
	NotaCreditoC VoucherType = "nota_credito_c"
)

var voucherCodes = map[VoucherType]int{
	FacturaA: 1, NotaDebitoA: 2, NotaCreditoA: 3,
	FacturaB: 6, NotaDebitoB: 7, NotaCreditoB: 8,
	FacturaC: 11, NotaDebitoC: 12, NotaCreditoC: 13,
}

// creditNoteFor mapea cada factura/nota de débito a la nota de crédito de su misma clase.
var creditNoteFor = map[VoucherType]VoucherType{
	FacturaA: NotaCreditoA, NotaDebitoA: NotaCreditoA,
	FacturaB: NotaCreditoB, NotaDebitoB: NotaCreditoB,
	FacturaC: NotaCreditoC, NotaDebitoC: NotaCreditoC,
}

// ParseVoucherType valida un tipo de comprobante recibido como texto.
func ParseVoucherType(s string) (VoucherType, error) {
	vt := VoucherType(s)
	if _, ok := voucherCodes[vt]; !ok {
		return "", fmt.Errorf("afip: tipo de comprobante desconocido %q", s)
	}
	return vt, nil
}

// Code devuelve el código numérico AFIP del comprobante (0 si es desconocido).
func (v VoucherType) Code() int { return voucherCodes[v] }

// Valid informa si el tipo pertenece al catálogo.
func (v VoucherType) Valid() bool {
	_, ok := voucherCodes[v]
	return ok
}

// Class devuelve la letra del comprobante: "A", "B" o "C".
func (v VoucherType) Class() string {
	switch v {
	case FacturaA, NotaDebitoA, NotaCreditoA:
		return "A"
	case FacturaB, NotaDebitoB, NotaCreditoB:
		return "B"
	case FacturaC, NotaDebitoC, NotaCreditoC:
		return "C"
	}
	return ""
}

// IsCreditNote informa si el comprobante es una nota de crédito.
func (v VoucherType) IsCreditNote() bool {
	return v == NotaCreditoA || v == NotaCreditoB || v == NotaCreditoC
}

// IsDebitNote informa si el comprobante es una nota de débito.
func (v VoucherType) IsDebitNote() bool {
	return v == NotaDebitoA || v == NotaDebitoB || v == NotaDebitoC
}

// CreditNote devuelve la nota de crédito que anula este comprobante.
func (v VoucherType) CreditNote() (VoucherType, bool) {
	nc, ok := creditNoteFor[v]
	return nc, ok
}

var voucherLabels = map[VoucherType]string{
	FacturaA: "Factura A", NotaDebitoA: "Nota de Débito A", NotaCreditoA: "Nota de Crédito A",
	FacturaB: "Factura B", NotaDebitoB: "Nota de Débito B", NotaCreditoB: "Nota de Crédito B",
	FacturaC: "Factura C", NotaDebitoC: "Nota de Débito C", NotaCreditoC: "Nota de Crédito C",
}

// Label nombre legible del comprobante ("Factura C").
func (v VoucherType) Label() string {
	if l, ok := voucherLabels[v]; ok {
		return l
	}
	return string(v)
}

// FormatVoucherNumber número completo con punto de venta: 0003-00000042.
func FormatVoucherNumber(salesPoint int, number int64) string {
	return fmt.Sprintf("%04d-%08d", salesPoint, number)
}

// VoucherTypeFromCode resuelve el tipo de comprobante a partir del código AFIP.
func VoucherTypeFromCode(code int) (VoucherType, bool) {
	for vt, c := range voucherCodes {
		if c == code {
			return vt, true
		}
	}
	return "", false
}

// =============================================================================
// Conceptos (FEParamGetTiposConcepto)
// =============================================================================

// ConceptType clasifica lo facturado; define si el período de servicio es obligatorio.
type ConceptType string

const (
	ConceptProducts ConceptType = "products" // 1 = Productos
	ConceptServices ConceptType = "services" // 2 = Servicios
	ConceptBoth     ConceptType = "both"     // 3 = Productos y Servicios
)

// Code devuelve el código AFIP del concepto (0 si es desconocido).
func (c ConceptType) Code() int {
	switch c {
	case ConceptProducts:
		return 1
	case ConceptServices:
		return 2
	case ConceptBoth:
		return 3
	}
	return 0
}

// RequiresServicePeriod informa si AFIP exige FchServDesde/FchServHasta/FchVtoPago.
func (c ConceptType) RequiresServicePeriod() bool {
	return c == ConceptServices || c == ConceptBoth
}

// ConceptTypeFromCode resuelve el concepto a partir del código AFIP.
func ConceptTypeFromCode(code int) ConceptType {
	switch code {
	case 1:
		return ConceptProducts
	case 2:
		return ConceptServices
	case 3:
		return ConceptBoth
	}
	return ""
}

// =============================================================================
// Tipos de documento (FEParamGetTiposDoc) - códigos de uso frecuente
// =============================================================================

const (
	DocTypeCUIT        = 80
	DocTypeCUIL        = 86
	DocTypeDNI         = 96
	DocTypeUnspecified = 99 // Sin identificar / consumidor final / receptor del exterior
)

// =============================================================================
// Condición frente al IVA del receptor (FEParamGetCondicionIvaReceptor)
// =============================================================================

const (
	IVAResponsableInscripto   = 1
	IVAExento                 = 4
	IVAConsumidorFinal        = 5
	IVAMonotributo            = 6
	IVANoCategorizado         = 7
	IVAProveedorExterior      = 8
	IVAClienteExterior        = 9
	IVALiberado               = 10
	IVAMonotributoSocial      = 13
	IVANoAlcanzado            = 15
	IVAMonotributoIndependien = 16
)

// ValidIVAConditions códigos de condición IVA del receptor aceptados por WSFEv1.
var ValidIVAConditions = map[int]bool{
	IVAResponsableInscripto: true, IVAExento: true, IVAConsumidorFinal: true,
	IVAMonotributo: true, IVANoCategorizado: true, IVAProveedorExterior: true,
	IVAClienteExterior: true, IVALiberado: true, IVAMonotributoSocial: true,
	IVANoAlcanzado: true, IVAMonotributoIndependien: true,
}

// =============================================================================
// Alícuotas de IVA (FEParamGetTiposIva)
// =============================================================================

const (
	VATRate0    = 3 // 0%
	VATRate10_5 = 4 // 10.5%
	VATRate21   = 5 // 21%
	VATRate27   = 6 // 27%
	VATRate5    = 8 // 5%
	VATRate2_5  = 9 // 2.5%
)

var vatRatePercents = []struct {
	id      int
	percent decimal.Decimal
}{
	{VATRate0, decimal.Zero},
	{VATRate2_5, decimal.RequireFromString("2.5")},
	{VATRate5, decimal.NewFromInt(5)},
	{VATRate10_5, decimal.RequireFromString("10.5")},
	{VATRate21, decimal.NewFromInt(21)},
	{VATRate27, decimal.NewFromInt(27)},
}

// VATRateIDFor deduce la alícuota de IVA a partir de neto e importe de IVA,
// con tolerancia de un centavo por redondeo.
func VATRateIDFor(net, vat decimal.Decimal) (int, bool) {
	if !net.IsPositive() {
		return 0, false
	}
	tolerance := decimal.RequireFromString("0.01")
	for _, r := range vatRatePercents {
		expected := net.Mul(r.percent).Div(decimal.NewFromInt(100)).Round(2)
		if expected.Sub(vat).Abs().LessThanOrEqual(tolerance) {
			return r.id, true
		}
	}
	return 0, false
}

// =============================================================================
// Monedas (FEParamGetTiposMonedas)
// =============================================================================

const (
	CurrencyPesos   = "PES"
	CurrencyDolares = "DOL"
	CurrencyEuros   = "060"
)

// =============================================================================
// Regímenes del emisor
// =============================================================================

const (
	RegimeMonotributo          = "monotributo"
	RegimeResponsableInscripto = "responsable_inscripto"
	RegimeExento               = "exento"
)
