package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/facturador-afip/internal/domain"
	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	"github.com/jhoicas/facturador-afip/internal/domain/repository"
	"github.com/jhoicas/facturador-afip/pkg/afip"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, account_id, voucher_type, sales_point, number,
	receiver_name, receiver_tax_id, receiver_address, receiver_foreign, receiver_tax_condition,
	net_amount, vat_amount, total_amount, currency, exchange_rate,
	concept, concept_type, service_from, service_to, payment_due_date, issue_date,
	cae, cae_expires_at, status, raw_response, error_message, cancels_invoice_id,
	created_at, updated_at, attempted_number`

// Create persiste el comprobante. Un número repetido para la misma cuenta, punto de venta
// y tipo (o una segunda nota de crédito para el mismo original) devuelve ErrConflict.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.AccountID, string(inv.VoucherType), inv.SalesPoint, inv.Number,
		inv.ReceiverName, inv.ReceiverTaxID, inv.ReceiverAddress, inv.ReceiverForeign, inv.ReceiverTaxCondition,
		inv.NetAmount, inv.VATAmount, inv.TotalAmount, inv.Currency, inv.ExchangeRate,
		inv.Concept, string(inv.ConceptType), inv.ServiceFrom, inv.ServiceTo, inv.PaymentDueDate, inv.IssueDate,
		inv.AuthorizationCode, inv.AuthorizationExpiresAt, inv.Status, nullIfEmpty(inv.RawResponse), nullIfEmpty(inv.ErrorMessage), inv.CancelsInvoiceID,
		inv.CreatedAt, inv.UpdatedAt, inv.AttemptedNumber,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: el comprobante ya existe: %v", domain.ErrConflict, err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// Update persiste los campos que cambian durante la autorización y la corrección del borrador.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET number           = $2,
		    receiver_name    = $3,
		    receiver_tax_id  = $4,
		    net_amount       = $5,
		    vat_amount       = $6,
		    total_amount     = $7,
		    service_from     = $8,
		    service_to       = $9,
		    payment_due_date = $10,
		    issue_date       = $11,
		    cae              = $12,
		    cae_expires_at   = $13,
		    status           = $14,
		    raw_response     = COALESCE($15, raw_response),
		    error_message    = $16,
		    updated_at       = $17,
		    attempted_number = $18
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		inv.ID, inv.Number,
		inv.ReceiverName, inv.ReceiverTaxID,
		inv.NetAmount, inv.VATAmount, inv.TotalAmount,
		inv.ServiceFrom, inv.ServiceTo, inv.PaymentDueDate, inv.IssueDate,
		inv.AuthorizationCode, inv.AuthorizationExpiresAt, inv.Status,
		nullIfEmpty(inv.RawResponse), nullIfEmpty(inv.ErrorMessage),
		inv.UpdatedAt, inv.AttemptedNumber,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: número ya registrado: %v", domain.ErrConflict, err)
		}
		return fmt.Errorf("update invoice: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update invoice: %w", domain.ErrNotFound)
	}
	return nil
}

// GetByID obtiene un comprobante por ID (nil, nil si no existe).
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

// FindCreditNoteFor devuelve la nota de crédito que anula al comprobante.
func (r *InvoiceRepo) FindCreditNoteFor(ctx context.Context, invoiceID string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE cancels_invoice_id = $1 LIMIT 1`, invoiceID)
}

// ExistingNumbers números ya registrados para cuenta + punto de venta + tipo en [from, to].
// Incluye los números intentados sin respuesta: pertenecen a un comprobante local.
func (r *InvoiceRepo) ExistingNumbers(ctx context.Context, accountID string, salesPoint int, voucherType afip.VoucherType, from, to int64) (map[int64]bool, error) {
	const query = `
		SELECT COALESCE(number, attempted_number) FROM invoices
		 WHERE account_id   = $1
		   AND sales_point  = $2
		   AND voucher_type = $3
		   AND COALESCE(number, attempted_number) BETWEEN $4 AND $5`
	rows, err := r.q.Query(ctx, query, accountID, salesPoint, string(voucherType), from, to)
	if err != nil {
		return nil, fmt.Errorf("existing numbers: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan number: %w", err)
		}
		out[n] = true
	}
	return out, rows.Err()
}

func (r *InvoiceRepo) getOne(ctx context.Context, query string, arg any) (*entity.Invoice, error) {
	var inv entity.Invoice
	var voucherType, conceptType string
	var raw, errMsg *string
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&inv.ID, &inv.AccountID, &voucherType, &inv.SalesPoint, &inv.Number,
		&inv.ReceiverName, &inv.ReceiverTaxID, &inv.ReceiverAddress, &inv.ReceiverForeign, &inv.ReceiverTaxCondition,
		&inv.NetAmount, &inv.VATAmount, &inv.TotalAmount, &inv.Currency, &inv.ExchangeRate,
		&inv.Concept, &conceptType, &inv.ServiceFrom, &inv.ServiceTo, &inv.PaymentDueDate, &inv.IssueDate,
		&inv.AuthorizationCode, &inv.AuthorizationExpiresAt, &inv.Status, &raw, &errMsg, &inv.CancelsInvoiceID,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.AttemptedNumber,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.VoucherType = afip.VoucherType(voucherType)
	inv.ConceptType = afip.ConceptType(conceptType)
	inv.Currency = strings.TrimSpace(inv.Currency)
	inv.RawResponse = derefStr(raw)
	inv.ErrorMessage = derefStr(errMsg)
	return &inv, nil
}
