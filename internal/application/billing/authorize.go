package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/facturador-afip/internal/application/dto"
	"github.com/jhoicas/facturador-afip/internal/domain"
	domainafip "github.com/jhoicas/facturador-afip/internal/domain/afip"
	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
	pkgafip "github.com/jhoicas/facturador-afip/pkg/afip"
)

var argentinaTZ = time.FixedZone("ART", -3*60*60)

// Authorize solicita el CAE de un comprobante en borrador o rechazado.
//
//	validar → pending → TA (WSAA) → último autorizado + 1 → FECAESolicitar → authorized | rejected
//
// Un rechazo de AFIP devuelve Success=false sin error. Las fallas de transporte, credenciales o
// configuración devuelven error y dejan el comprobante en su estado reintentable anterior;
// en todos los casos se guarda el mensaje y la respuesta cruda.
func (s *Service) Authorize(ctx context.Context, accountID, invoiceID string) (*dto.AuthorizationOutcome, error) {
	inv, err := s.invoiceOf(ctx, accountID, invoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.CanAuthorize() {
		return nil, fmt.Errorf("%w: el comprobante está en estado %s", domain.ErrConflict, inv.Status)
	}
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	log := s.log.With().Str("account_id", accountID).Str("invoice_id", invoiceID).Logger()

	previous := inv.Status
	fail := func(step string, cause error) (*dto.AuthorizationOutcome, error) {
		inv.RestoreRetryable(previous, cause.Error(), afip.RawFromError(cause), s.now())
		if err := s.invoices.Update(context.WithoutCancel(ctx), inv); err != nil {
			log.Error().Err(err).Str("step", step).Msg("no se pudo registrar la falla")
		}
		log.Warn().Err(cause).Str("step", step).Msg("autorización interrumpida")
		return nil, cause
	}

	if err := domainafip.ValidateInvoice(inv); err != nil {
		return fail("validate", err)
	}

	// Un único FECAESolicitar en vuelo por cuenta + punto de venta + tipo: el número
	// se calcula leyendo el último autorizado y no puede reservarse del lado de AFIP.
	unlock, err := s.locks.Lock(ctx, numberingKey(accountID, inv.SalesPoint, inv.VoucherType))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer unlock()

	var original *entity.Invoice
	if inv.CancelsInvoiceID != nil {
		original, err = s.invoiceOf(ctx, accountID, *inv.CancelsInvoiceID)
		if err != nil {
			return fail("associated", err)
		}
		if original.Number == nil || original.IssueDate == nil {
			return fail("associated", fmt.Errorf("%w: el comprobante asociado no está autorizado", domain.ErrValidation))
		}
	}

	inv.Status = entity.InvoiceStatusPending
	inv.UpdatedAt = s.now()
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}

	creds, err := s.tokens.Credentials(ctx, account)
	if err != nil {
		return fail("wsaa", err)
	}

	if inv.AttemptedNumber != nil {
		rec, err := s.recoverAttempt(ctx, creds, inv)
		if err != nil {
			return fail("recover", err)
		}
		if rec != nil {
			inv.MarkAuthorized(rec.Number, rec.CAE, rec.CAEExpiresAt, entity.CalendarDate(rec.IssueDate), rec.Raw, s.now())
			log.Info().Int64("number", rec.Number).Str("cae", rec.CAE).Msg("CAE recuperado del intento anterior")
			if err := s.invoices.Update(context.WithoutCancel(ctx), inv); err != nil {
				return nil, fmt.Errorf("guardar resultado de autorización: %w", err)
			}
			return &dto.AuthorizationOutcome{
				InvoiceID:    inv.ID,
				Success:      true,
				Status:       inv.Status,
				Number:       inv.Number,
				CAE:          rec.CAE,
				CAEExpiresAt: inv.AuthorizationExpiresAt,
			}, nil
		}
	}

	last, err := s.lastAuthorized(ctx, account, creds, inv.SalesPoint, inv.VoucherType)
	if err != nil {
		return fail("numbering", err)
	}
	number := last + 1

	issueDate := dateOnly(s.now())
	applyServicePeriodDefaults(inv, issueDate)
	req, err := buildAuthorizationRequest(account, inv, original, number, issueDate)
	if err != nil {
		return fail("request", err)
	}

	log.Info().Int64("number", number).Int("voucher_code", req.VoucherCode).Msg("solicitando CAE")
	result, err := s.wsfe.Authorize(ctx, creds, req)
	if err != nil {
		s.dropRejectedCredentials(ctx, accountID, err)
		if errors.Is(err, domain.ErrTransport) {
			// Sin respuesta no se sabe si AFIP otorgó el CAE.
			inv.MarkAttempted(number)
		}
		return fail("wsfe", err)
	}

	outcome := &dto.AuthorizationOutcome{InvoiceID: inv.ID}
	if result.Approved() {
		if result.Number > 0 {
			number = result.Number
		}
		inv.MarkAuthorized(number, result.CAE, result.CAEExpiresAt, issueDate, result.Raw, s.now())
		outcome.Success = true
		outcome.Number = inv.Number
		outcome.CAE = result.CAE
		outcome.CAEExpiresAt = inv.AuthorizationExpiresAt
		log.Info().Int64("number", number).Str("cae", result.CAE).Msg("comprobante autorizado")
	} else {
		inv.MarkRejected(result.RejectionMessage(), result.Raw, s.now())
		outcome.ErrorMessage = inv.ErrorMessage
		log.Warn().Str("error", inv.ErrorMessage).Msg("AFIP rechazó el comprobante")
	}
	outcome.Status = inv.Status

	if err := s.invoices.Update(context.WithoutCancel(ctx), inv); err != nil {
		return nil, fmt.Errorf("guardar resultado de autorización: %w", err)
	}
	return outcome, nil
}

// dropRejectedCredentials descarta el TA si WSFE no lo aceptó, para forzar un login nuevo.
func (s *Service) dropRejectedCredentials(ctx context.Context, accountID string, err error) {
	if errors.Is(err, domain.ErrAuthentication) {
		s.tokens.Invalidate(context.WithoutCancel(ctx), accountID)
	}
}

func numberingKey(accountID string, salesPoint int, voucherType pkgafip.VoucherType) string {
	return fmt.Sprintf("%s/%d/%d", accountID, salesPoint, voucherType.Code())
}

// dateOnly fecha calendario argentina del instante t.
func dateOnly(t time.Time) time.Time {
	return entity.CalendarDate(t.In(argentinaTZ))
}

// recoverAttempt consulta en FECompConsultar el número de una solicitud sin respuesta.
// Devuelve el registro si AFIP lo autorizó para este comprobante; nil si el número sigue
// libre o lo ocupa otro comprobante, y en ese caso se olvida el intento.
func (s *Service) recoverAttempt(ctx context.Context, creds afip.Credentials, inv *entity.Invoice) (*afip.VoucherRecord, error) {
	attempted := *inv.AttemptedNumber
	rec, err := s.wsfe.Query(ctx, creds, inv.SalesPoint, inv.VoucherType.Code(), attempted)
	if errors.Is(err, domain.ErrNotFound) {
		inv.AttemptedNumber = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !sameVoucher(inv, rec) {
		s.log.Warn().Str("invoice_id", inv.ID).Int64("number", attempted).
			Msg("el número intentado corresponde a otro comprobante")
		inv.AttemptedNumber = nil
		return nil, nil
	}
	return rec, nil
}

// sameVoucher compara importe y receptor del registro de AFIP con el comprobante local.
func sameVoucher(inv *entity.Invoice, rec *afip.VoucherRecord) bool {
	if rec.CAE == "" || !rec.Total.Equal(inv.TotalAmount) {
		return false
	}
	taxID := ""
	if inv.ReceiverTaxID != nil {
		taxID = *inv.ReceiverTaxID
	}
	docType, docNumber := pkgafip.ReceiverDocument(taxID, inv.ReceiverForeign)
	local, _ := strconv.ParseInt(docNumber, 10, 64)
	remote, _ := strconv.ParseInt(strings.TrimSpace(rec.DocNumber), 10, 64)
	return rec.DocType == docType && local == remote
}

// applyServicePeriodDefaults completa período y vencimiento cuando el concepto los exige:
// del primer día del mes de emisión a la fecha de emisión, con vencimiento ese mismo día.
func applyServicePeriodDefaults(inv *entity.Invoice, issueDate time.Time) {
	if !inv.ConceptType.RequiresServicePeriod() {
		return
	}
	if inv.ServiceFrom == nil {
		from := time.Date(issueDate.Year(), issueDate.Month(), 1, 0, 0, 0, 0, issueDate.Location())
		inv.ServiceFrom = &from
	}
	if inv.ServiceTo == nil {
		to := issueDate
		inv.ServiceTo = &to
	}
	if inv.PaymentDueDate == nil {
		due := issueDate
		if inv.ServiceTo.After(due) {
			due = *inv.ServiceTo
		}
		inv.PaymentDueDate = &due
	}
}

func buildAuthorizationRequest(account *entity.AccountConfig, inv, original *entity.Invoice, number int64, issueDate time.Time) (afip.AuthorizationRequest, error) {
	taxID := ""
	if inv.ReceiverTaxID != nil {
		taxID = *inv.ReceiverTaxID
	}
	docType, docNumber := pkgafip.ReceiverDocument(taxID, inv.ReceiverForeign)

	condition := inv.ReceiverTaxCondition
	if condition == 0 {
		condition = pkgafip.IVAConsumidorFinal
	}

	req := afip.AuthorizationRequest{
		VoucherCode:          inv.VoucherType.Code(),
		SalesPoint:           inv.SalesPoint,
		Number:               number,
		ConceptCode:          inv.ConceptType.Code(),
		DocType:              docType,
		DocNumber:            docNumber,
		ReceiverIVACondition: condition,
		IssueDate:            issueDate,
		Net:                  inv.NetAmount,
		VAT:                  inv.VATAmount,
		Total:                inv.TotalAmount,
		Currency:             inv.Currency,
		ExchangeRate:         inv.ExchangeRate,
	}
	if inv.ConceptType.RequiresServicePeriod() {
		req.ServiceFrom, req.ServiceTo, req.PaymentDue = inv.ServiceFrom, inv.ServiceTo, inv.PaymentDueDate
	}
	if inv.VoucherType.Class() != "C" {
		rateID, ok := pkgafip.VATRateIDFor(inv.NetAmount, inv.VATAmount)
		if !ok {
			return afip.AuthorizationRequest{}, domain.Validationf("el IVA no corresponde a ninguna alícuota vigente")
		}
		req.VATRateID = rateID
	}
	if original != nil {
		req.Associated = []afip.AssociatedVoucher{{
			VoucherCode: original.VoucherType.Code(),
			SalesPoint:  original.SalesPoint,
			Number:      *original.Number,
			CUIT:        account.CUIT,
			Date:        *original.IssueDate,
		}}
	}
	return req, nil
}
