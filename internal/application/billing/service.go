package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/jhoicas/facturador-afip/internal/application/dto"
	"github.com/jhoicas/facturador-afip/internal/domain"
	domainafip "github.com/jhoicas/facturador-afip/internal/domain/afip"
	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	"github.com/jhoicas/facturador-afip/internal/domain/repository"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
	pkgafip "github.com/jhoicas/facturador-afip/pkg/afip"
	"github.com/jhoicas/facturador-afip/pkg/logger"
)

// Config parámetros del servicio de facturación.
type Config struct {
	SyncMaxMissing int           // máximo de números recientes que revisa Sync
	SyncDelay      time.Duration // pausa mínima entre consultas FECompConsultar
}

// Service casos de uso de facturación electrónica AFIP: borradores, autorización (CAE),
// numeración, anulación, QR fiscal, certificados y reconciliación.
type Service struct {
	accounts repository.AccountRepository
	invoices repository.InvoiceRepository
	tx       TxRunner
	tokens   *TokenProvider
	wsfe     InvoicingClient
	locks    *keyedLocker
	limiter  *rate.Limiter
	cfg      Config
	now      func() time.Time
	log      *logger.Logger
}

// NewService construye el servicio con todas sus dependencias.
func NewService(
	accounts repository.AccountRepository,
	invoices repository.InvoiceRepository,
	tx TxRunner,
	tokens *TokenProvider,
	wsfe InvoicingClient,
	cfg Config,
	log *logger.Logger,
) *Service {
	if cfg.SyncMaxMissing <= 0 {
		cfg.SyncMaxMissing = 20
	}
	limit := rate.Inf
	if cfg.SyncDelay > 0 {
		limit = rate.Every(cfg.SyncDelay)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		accounts: accounts,
		invoices: invoices,
		tx:       tx,
		tokens:   tokens,
		wsfe:     wsfe,
		locks:    newKeyedLocker(),
		limiter:  rate.NewLimiter(limit, 1),
		cfg:      cfg,
		now:      time.Now,
		log:      log.Component("billing"),
	}
}

// WithClock reemplaza el reloj (tests y herramientas).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) account(ctx context.Context, accountID string) (*entity.AccountConfig, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: cuenta %s", domain.ErrNotFound, accountID)
	}
	return account, nil
}

// invoiceOf carga el comprobante y verifica que pertenezca a la cuenta.
func (s *Service) invoiceOf(ctx context.Context, accountID, invoiceID string) (*entity.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: comprobante %s", domain.ErrNotFound, invoiceID)
	}
	if inv.AccountID != accountID {
		return nil, domain.ErrForbidden
	}
	return inv, nil
}

// CreateDraft valida y guarda un comprobante en borrador.
func (s *Service) CreateDraft(ctx context.Context, accountID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	voucherType, err := pkgafip.ParseVoucherType(in.VoucherType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if voucherType.IsCreditNote() {
		return nil, domain.Validationf("las notas de crédito se generan anulando el comprobante original")
	}
	conceptType := pkgafip.ConceptType(strings.ToLower(strings.TrimSpace(in.ConceptType)))
	if conceptType == "" {
		conceptType = pkgafip.ConceptProducts
	}

	now := s.now()
	inv := &entity.Invoice{
		ID:                   uuid.New().String(),
		AccountID:            account.ID,
		VoucherType:          voucherType,
		SalesPoint:           in.SalesPoint,
		ReceiverName:         strings.TrimSpace(in.ReceiverName),
		ReceiverTaxID:        in.ReceiverTaxID,
		ReceiverAddress:      in.ReceiverAddress,
		ReceiverForeign:      in.ReceiverForeign,
		ReceiverTaxCondition: in.ReceiverTaxCondition,
		NetAmount:            in.NetAmount,
		VATAmount:            in.VATAmount,
		TotalAmount:          in.TotalAmount,
		Currency:             strings.ToUpper(strings.TrimSpace(in.Currency)),
		ExchangeRate:         in.ExchangeRate,
		Concept:              in.Concept,
		ConceptType:          conceptType,
		Status:               entity.InvoiceStatusDraft,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if inv.SalesPoint == 0 {
		inv.SalesPoint = account.SalesPoint
	}
	if inv.Currency == "" {
		inv.Currency = pkgafip.CurrencyPesos
	}
	if inv.ExchangeRate.IsZero() {
		inv.ExchangeRate = decimal.NewFromInt(1)
	}
	if inv.TotalAmount.IsZero() {
		inv.TotalAmount = inv.NetAmount.Add(inv.VATAmount)
	}
	if inv.ReceiverTaxCondition == 0 {
		inv.ReceiverTaxCondition = pkgafip.IVAConsumidorFinal
	}
	if inv.ReceiverTaxID != nil && strings.TrimSpace(*inv.ReceiverTaxID) == "" {
		inv.ReceiverTaxID = nil
	}
	for _, d := range []struct {
		raw string
		dst **time.Time
	}{{in.ServiceFrom, &inv.ServiceFrom}, {in.ServiceTo, &inv.ServiceTo}, {in.PaymentDueDate, &inv.PaymentDueDate}} {
		if d.raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", d.raw)
		if err != nil {
			return nil, domain.Validationf("fecha inválida %q (usar YYYY-MM-DD)", d.raw)
		}
		*d.dst = &t
	}

	if err := domainafip.ValidateInvoice(inv); err != nil {
		return nil, err
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	s.log.Info().Str("account_id", accountID).Str("invoice_id", inv.ID).Str("voucher_type", string(voucherType)).Msg("borrador creado")
	return toInvoiceResponse(inv, inv.Status), nil
}

// GetInvoice devuelve el comprobante con su estado derivado (cancelled si una nota de crédito autorizada lo anula).
func (s *Service) GetInvoice(ctx context.Context, accountID, invoiceID string) (*dto.InvoiceResponse, error) {
	inv, err := s.invoiceOf(ctx, accountID, invoiceID)
	if err != nil {
		return nil, err
	}
	status, err := s.effectiveStatus(ctx, inv)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, status), nil
}

func (s *Service) effectiveStatus(ctx context.Context, inv *entity.Invoice) (string, error) {
	if inv.Status != entity.InvoiceStatusAuthorized || inv.VoucherType.IsCreditNote() {
		return inv.Status, nil
	}
	note, err := s.invoices.FindCreditNoteFor(ctx, inv.ID)
	if err != nil {
		return "", err
	}
	if note != nil && note.Status == entity.InvoiceStatusAuthorized {
		return entity.InvoiceStatusCancelled, nil
	}
	return inv.Status, nil
}

// NextInvoiceNumber próximo número a autorizar: último autorizado en AFIP + 1.
// No tiene efectos: dos llamadas sin autorizaciones intermedias devuelven lo mismo.
func (s *Service) NextInvoiceNumber(ctx context.Context, accountID string, voucherType pkgafip.VoucherType) (*dto.NextNumberResponse, error) {
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
	return &dto.NextNumberResponse{VoucherType: string(voucherType), SalesPoint: account.SalesPoint, Number: last + 1}, nil
}

func (s *Service) lastAuthorized(ctx context.Context, account *entity.AccountConfig, creds afip.Credentials, salesPoint int, voucherType pkgafip.VoucherType) (int64, error) {
	last, err := s.wsfe.LastAuthorized(ctx, creds, salesPoint, voucherType.Code())
	if err != nil {
		s.dropRejectedCredentials(ctx, account.ID, err)
		return 0, err
	}
	return last, nil
}

// CancelInvoice anula un comprobante autorizado generando una nota de crédito en borrador
// con los mismos importes. El original no se modifica.
func (s *Service) CancelInvoice(ctx context.Context, accountID, invoiceID string) (*dto.InvoiceResponse, error) {
	original, err := s.invoiceOf(ctx, accountID, invoiceID)
	if err != nil {
		return nil, err
	}
	if original.Status != entity.InvoiceStatusAuthorized || original.Number == nil {
		return nil, fmt.Errorf("%w: solo se anulan comprobantes autorizados", domain.ErrConflict)
	}
	creditType, ok := original.VoucherType.CreditNote()
	if !ok {
		return nil, domain.Validationf("%s no admite nota de crédito", original.VoucherType)
	}

	now := s.now()
	originalID := original.ID
	note := &entity.Invoice{
		ID:                   uuid.New().String(),
		AccountID:            original.AccountID,
		VoucherType:          creditType,
		SalesPoint:           original.SalesPoint,
		ReceiverName:         original.ReceiverName,
		ReceiverTaxID:        original.ReceiverTaxID,
		ReceiverAddress:      original.ReceiverAddress,
		ReceiverForeign:      original.ReceiverForeign,
		ReceiverTaxCondition: original.ReceiverTaxCondition,
		NetAmount:            original.NetAmount,
		VATAmount:            original.VATAmount,
		TotalAmount:          original.TotalAmount,
		Currency:             original.Currency,
		ExchangeRate:         original.ExchangeRate,
		Concept:              fmt.Sprintf("Anulación de %s N° %s", original.VoucherType.Label(), pkgafip.FormatVoucherNumber(original.SalesPoint, *original.Number)),
		ConceptType:          original.ConceptType,
		ServiceFrom:          original.ServiceFrom,
		ServiceTo:            original.ServiceTo,
		PaymentDueDate:       original.PaymentDueDate,
		Status:               entity.InvoiceStatusDraft,
		CancelsInvoiceID:     &originalID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err = s.tx.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository) error {
		existing, err := invoiceRepo.FindCreditNoteFor(ctx, original.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: el comprobante ya tiene la nota de crédito %s", domain.ErrConflict, existing.ID)
		}
		return invoiceRepo.Create(ctx, note)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("account_id", accountID).Str("invoice_id", original.ID).Str("credit_note_id", note.ID).Msg("nota de crédito generada")
	return toInvoiceResponse(note, note.Status), nil
}

// BuildComplianceQRURL arma la URL del QR fiscal de un comprobante autorizado y su imagen.
func (s *Service) BuildComplianceQRURL(ctx context.Context, accountID, invoiceID string) (*dto.QRResponse, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	inv, err := s.invoiceOf(ctx, accountID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != entity.InvoiceStatusAuthorized {
		return nil, fmt.Errorf("%w: el comprobante no está autorizado", domain.ErrConflict)
	}
	url, err := afip.BuildQRURL(account, inv)
	if err != nil {
		return nil, err
	}
	img, err := afip.RenderQRPNG(url, 256)
	if err != nil {
		return nil, err
	}
	return &dto.QRResponse{URL: url, Image: img}, nil
}
