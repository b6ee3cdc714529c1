package billing

import (
	"context"

	"github.com/jhoicas/facturador-afip/internal/domain/repository"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
)

// LoginClient cliente WSAA (loginCms).
type LoginClient interface {
	Login(ctx context.Context, certPEM, keyPEM string) (*afip.LoginResult, error)
	Environment() afip.Environment
}

// InvoicingClient cliente WSFEv1.
type InvoicingClient interface {
	LastAuthorized(ctx context.Context, creds afip.Credentials, salesPoint, voucherCode int) (int64, error)
	Authorize(ctx context.Context, creds afip.Credentials, req afip.AuthorizationRequest) (*afip.AuthorizationResult, error)
	Query(ctx context.Context, creds afip.Credentials, salesPoint, voucherCode int, number int64) (*afip.VoucherRecord, error)
	Environment() afip.Environment
}

// TxRunner ejecuta fn dentro de una transacción con el repositorio de comprobantes atado a ella.
type TxRunner interface {
	RunBilling(ctx context.Context, fn func(invoiceRepo repository.InvoiceRepository) error) error
}
