package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/facturador-afip/internal/domain"
	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	"github.com/jhoicas/facturador-afip/internal/domain/repository"
)

var _ repository.AccountRepository = (*AccountRepo)(nil)

// AccountRepo implementación de AccountRepository sobre PostgreSQL.
type AccountRepo struct {
	q Querier
}

// NewAccountRepository construye el adaptador de persistencia para cuentas de facturación.
func NewAccountRepository(q Querier) *AccountRepo {
	return &AccountRepo{q: q}
}

const accountColumns = `
	id, cuit, legal_name, fiscal_address, sales_point, tax_regime,
	certificate_pem, private_key_pem, pending_private_key_pem,
	token, sign, token_expires_at, token_environment,
	created_at, updated_at`

// Create persiste una nueva cuenta.
func (r *AccountRepo) Create(ctx context.Context, a *entity.AccountConfig) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		a.ID, a.CUIT, a.LegalName, a.FiscalAddress, a.SalesPoint, a.TaxRegime,
		nullIfEmpty(a.CertificatePEM), nullIfEmpty(a.PrivateKeyPEM), nullIfEmpty(a.PendingPrivateKeyPEM),
		nullIfEmpty(a.Token), nullIfEmpty(a.Sign), a.TokenExpiresAt, nullIfEmpty(a.TokenEnvironment),
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ya existe una cuenta %s", domain.ErrConflict, a.ID)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID obtiene una cuenta por ID (nil, nil si no existe).
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*entity.AccountConfig, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	var a entity.AccountConfig
	var cert, key, pending, token, sign, env *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.CUIT, &a.LegalName, &a.FiscalAddress, &a.SalesPoint, &a.TaxRegime,
		&cert, &key, &pending,
		&token, &sign, &a.TokenExpiresAt, &env,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	a.CertificatePEM = derefStr(cert)
	a.PrivateKeyPEM = derefStr(key)
	a.PendingPrivateKeyPEM = derefStr(pending)
	a.Token = derefStr(token)
	a.Sign = derefStr(sign)
	a.TokenEnvironment = derefStr(env)
	return &a, nil
}

// ListIDs devuelve los IDs de todas las cuentas (barrido de reconciliación).
func (r *AccountRepo) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateCredentials guarda certificado y llave juntos, descarta la llave pendiente
// y el ticket de acceso (emitido para el certificado anterior).
func (r *AccountRepo) UpdateCredentials(ctx context.Context, id, certificatePEM, privateKeyPEM string) error {
	query := `
		UPDATE accounts
		SET certificate_pem         = $2,
		    private_key_pem         = $3,
		    pending_private_key_pem = NULL,
		    token                   = NULL,
		    sign                    = NULL,
		    token_expires_at        = NULL,
		    updated_at              = now()
		WHERE id = $1`
	return r.exec(ctx, "update credentials", query, id, certificatePEM, privateKeyPEM)
}

// UpdatePendingKey guarda la llave generada por el aprovisionamiento.
func (r *AccountRepo) UpdatePendingKey(ctx context.Context, id, privateKeyPEM string) error {
	query := `UPDATE accounts SET pending_private_key_pem = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, "update pending key", query, id, privateKeyPEM)
}

// UpdateToken persiste el ticket de acceso WSAA. Un token vacío lo invalida.
func (r *AccountRepo) UpdateToken(ctx context.Context, id, token, sign string, expiresAt time.Time, environment string) error {
	var expires *time.Time
	if token != "" {
		expires = &expiresAt
	}
	query := `
		UPDATE accounts
		SET token = $2, sign = $3, token_expires_at = $4, token_environment = $5, updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, "update token", query, id, nullIfEmpty(token), nullIfEmpty(sign), expires, nullIfEmpty(environment))
}

func (r *AccountRepo) exec(ctx context.Context, op, query string, args ...any) error {
	cmd, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}
