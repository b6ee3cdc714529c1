package repository

import (
	"context"

	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	"github.com/jhoicas/facturador-afip/pkg/afip"
)

// InvoiceRepository define el puerto de persistencia para comprobantes.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	// Update persiste estado, número, CAE, respuesta cruda y mensaje de error.
	Update(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// FindCreditNoteFor devuelve la nota de crédito que referencia al comprobante (nil si no hay).
	FindCreditNoteFor(ctx context.Context, invoiceID string) (*entity.Invoice, error)
	// ExistingNumbers devuelve los números ya registrados localmente en el rango [from, to].
	ExistingNumbers(ctx context.Context, accountID string, salesPoint int, voucherType afip.VoucherType, from, to int64) (map[int64]bool, error)
}
