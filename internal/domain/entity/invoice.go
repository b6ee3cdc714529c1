package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-afip/pkg/afip"
)

// Estados de autorización del comprobante ante AFIP.
const (
	InvoiceStatusDraft      = "draft"      // Editable; aún sin número ni CAE
	InvoiceStatusPending    = "pending"    // Solicitud FECAESolicitar en curso
	InvoiceStatusAuthorized = "authorized" // CAE otorgado; inmutable
	InvoiceStatusRejected   = "rejected"   // AFIP rechazó; puede corregirse y reintentarse
	InvoiceStatusCancelled  = "cancelled"  // Derivado: existe una nota de crédito autorizada que lo anula
)

// Invoice representa un comprobante electrónico (factura, nota de crédito o débito).
type Invoice struct {
	ID          string
	AccountID   string
	VoucherType afip.VoucherType
	SalesPoint  int
	Number      *int64 // nil hasta que AFIP lo autoriza
	// AttemptedNumber número enviado a FECAESolicitar cuya respuesta se perdió.
	// AFIP pudo haberlo autorizado: el próximo intento lo consulta antes de pedir otro.
	AttemptedNumber *int64

	ReceiverName         string
	ReceiverTaxID        *string // nil = consumidor final sin identificar
	ReceiverAddress      string
	ReceiverForeign      bool
	ReceiverTaxCondition int // condición IVA del receptor (pkg/afip IVA*)

	NetAmount    decimal.Decimal
	VATAmount    decimal.Decimal
	TotalAmount  decimal.Decimal
	Currency     string
	ExchangeRate decimal.Decimal

	Concept        string
	ConceptType    afip.ConceptType
	ServiceFrom    *time.Time
	ServiceTo      *time.Time
	PaymentDueDate *time.Time
	IssueDate      *time.Time

	AuthorizationCode      *string // CAE
	AuthorizationExpiresAt *time.Time
	Status                 string
	RawResponse            string // respuesta SOAP completa, para auditoría
	ErrorMessage           string

	// CancelsInvoiceID comprobante original que anula esta nota de crédito.
	CancelsInvoiceID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanAuthorize informa si el comprobante puede (re)entrar al flujo de autorización.
func (i *Invoice) CanAuthorize() bool {
	return i.Status == InvoiceStatusDraft || i.Status == InvoiceStatusRejected
}

// MarkAuthorized fija número y CAE juntos; es la única transición que los escribe.
func (i *Invoice) MarkAuthorized(number int64, cae string, expiresAt, issueDate time.Time, raw string, now time.Time) {
	i.Number = &number
	i.AuthorizationCode = &cae
	i.AuthorizationExpiresAt = &expiresAt
	i.IssueDate = &issueDate
	i.AttemptedNumber = nil
	i.Status = InvoiceStatusAuthorized
	i.RawResponse = raw
	i.ErrorMessage = ""
	i.UpdatedAt = now
}

// MarkRejected registra el rechazo de AFIP sin asignar número.
func (i *Invoice) MarkRejected(message, raw string, now time.Time) {
	i.Status = InvoiceStatusRejected
	i.AttemptedNumber = nil
	i.ErrorMessage = message
	i.RawResponse = raw
	i.UpdatedAt = now
}

// RestoreRetryable devuelve el comprobante a un estado reintentable tras una falla
// que no es un rechazo de AFIP (transporte, configuración, credenciales).
func (i *Invoice) RestoreRetryable(previous, message, raw string, now time.Time) {
	if previous != InvoiceStatusRejected {
		previous = InvoiceStatusDraft
	}
	i.Status = previous
	i.ErrorMessage = message
	if raw != "" {
		i.RawResponse = raw
	}
	i.UpdatedAt = now
}

// MarkAttempted registra el número de una solicitud sin respuesta.
func (i *Invoice) MarkAttempted(number int64) {
	i.AttemptedNumber = &number
}

// CalendarDate lleva t a la medianoche UTC de su propia fecha calendario, la forma en que
// pgx devuelve las columnas DATE. Las fechas sin hora del dominio viajan siempre así.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
