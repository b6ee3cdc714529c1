package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/facturador-afip/internal/application/dto"
	"github.com/jhoicas/facturador-afip/internal/domain"
	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	"github.com/jhoicas/facturador-afip/internal/domain/repository"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
	pkgafip "github.com/jhoicas/facturador-afip/pkg/afip"
	"github.com/jhoicas/facturador-afip/pkg/logger"
)

// Sync reconcilia los últimos comprobantes autorizados en AFIP con los locales:
// recorre como máximo SyncMaxMissing números hacia atrás desde el último autorizado y
// registra los que falten. Las consultas se espacian con el limitador. Es idempotente.
func (s *Service) Sync(ctx context.Context, accountID string, voucherType pkgafip.VoucherType) (*dto.SyncResult, error) {
	if !voucherType.Valid() {
		return nil, domain.Validationf("tipo de comprobante desconocido %q", voucherType)
	}
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	creds, err := s.tokens.Credentials(ctx, account)
	if err != nil {
		return nil, err
	}
	last, err := s.lastAuthorized(ctx, account, creds, account.SalesPoint, voucherType)
	if err != nil {
		return nil, err
	}
	result := &dto.SyncResult{VoucherType: string(voucherType), SalesPoint: account.SalesPoint, LastAuthorized: last, Imported: []int64{}}
	if last == 0 {
		return result, nil
	}

	from := last - int64(s.cfg.SyncMaxMissing) + 1
	if from < 1 {
		from = 1
	}
	existing, err := s.invoices.ExistingNumbers(ctx, account.ID, account.SalesPoint, voucherType, from, last)
	if err != nil {
		return nil, err
	}

	var found []*entity.Invoice
	var queryErr error
	for n := last; n >= from; n-- {
		if existing[n] {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			queryErr = err
			break
		}
		result.Checked++
		rec, err := s.wsfe.Query(ctx, creds, account.SalesPoint, voucherType.Code(), n)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			queryErr = err
			break
		}
		found = append(found, invoiceFromRecord(account, voucherType, rec, s.now()))
	}

	if len(found) > 0 {
		err := s.tx.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository) error {
			for _, inv := range found {
				if err := invoiceRepo.Create(ctx, inv); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("registrar comprobantes importados: %w", err)
		}
		for _, inv := range found {
			result.Imported = append(result.Imported, *inv.Number)
		}
	}
	s.log.Info().Str("account_id", accountID).Str("voucher_type", string(voucherType)).
		Int64("last", last).Int("checked", result.Checked).Int("imported", len(result.Imported)).Msg("reconciliación AFIP")
	if queryErr != nil {
		return result, queryErr
	}
	return result, nil
}

// invoiceFromRecord convierte un comprobante informado por FECompConsultar en uno local autorizado.
func invoiceFromRecord(account *entity.AccountConfig, voucherType pkgafip.VoucherType, rec *afip.VoucherRecord, now time.Time) *entity.Invoice {
	number := rec.Number
	cae := rec.CAE
	issue := rec.IssueDate
	expires := rec.CAEExpiresAt
	inv := &entity.Invoice{
		ID:                     uuid.New().String(),
		AccountID:              account.ID,
		VoucherType:            voucherType,
		SalesPoint:             account.SalesPoint,
		Number:                 &number,
		ReceiverForeign:        false,
		ReceiverTaxCondition:   pkgafip.IVAConsumidorFinal,
		NetAmount:              rec.Net,
		VATAmount:              rec.VAT,
		TotalAmount:            rec.Total,
		Currency:               rec.Currency,
		ExchangeRate:           rec.ExchangeRate,
		Concept:                "Comprobante importado desde AFIP",
		ConceptType:            pkgafip.ConceptTypeFromCode(rec.ConceptCode),
		ServiceFrom:            rec.ServiceFrom,
		ServiceTo:              rec.ServiceTo,
		PaymentDueDate:         rec.PaymentDue,
		IssueDate:              &issue,
		AuthorizationCode:      &cae,
		AuthorizationExpiresAt: &expires,
		Status:                 entity.InvoiceStatusAuthorized,
		RawResponse:            rec.Raw,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if rec.DocType != pkgafip.DocTypeUnspecified && rec.DocNumber != "" && rec.DocNumber != "0" {
		taxID := rec.DocNumber
		inv.ReceiverTaxID = &taxID
	}
	return inv
}

// Sweeper ejecuta Sync periódicamente para todas las cuentas y tipos configurados.
type Sweeper struct {
	svc          *Service
	accounts     repository.AccountRepository
	interval     time.Duration
	voucherTypes []pkgafip.VoucherType
	log          *logger.Logger
}

// NewSweeper construye el barrido. interval <= 0 lo deshabilita.
func NewSweeper(svc *Service, accounts repository.AccountRepository, interval time.Duration, voucherTypes []pkgafip.VoucherType, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.Nop()
	}
	return &Sweeper{svc: svc, accounts: accounts, interval: interval, voucherTypes: voucherTypes, log: log.Component("sweeper")}
}

// Run bloquea hasta que ctx se cancele.
func (w *Sweeper) Run(ctx context.Context) {
	if w.interval <= 0 || len(w.voucherTypes) == 0 {
		w.log.Info().Msg("barrido de reconciliación deshabilitado")
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Dur("interval", w.interval).Int("voucher_types", len(w.voucherTypes)).Msg("barrido iniciado")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("barrido detenido")
			return
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce recorre todas las cuentas una vez.
func (w *Sweeper) SweepOnce(ctx context.Context) {
	ids, err := w.accounts.ListIDs(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("listar cuentas")
		return
	}
	for _, id := range ids {
		for _, vt := range w.voucherTypes {
			if ctx.Err() != nil {
				return
			}
			res, err := w.svc.Sync(ctx, id, vt)
			switch {
			case errors.Is(err, domain.ErrCertificateFormat):
				w.log.Debug().Str("account_id", id).Msg("cuenta sin certificado; se omite")
				continue
			case err != nil:
				w.log.Warn().Err(err).Str("account_id", id).Str("voucher_type", string(vt)).Msg("reconciliación fallida")
				continue
			}
			if len(res.Imported) > 0 {
				w.log.Info().Str("account_id", id).Str("voucher_type", string(vt)).Ints64("imported", res.Imported).Msg("comprobantes recuperados")
			}
		}
	}
}
