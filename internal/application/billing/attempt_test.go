package billing_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-afip/internal/domain"
	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
	pkgafip "github.com/jhoicas/facturador-afip/pkg/afip"
)

var errTimeout = &afip.RawResponseError{Err: fmt.Errorf("%w: timeout esperando FECAESolicitar", domain.ErrTransport)}

// grantedRecord comprobante 42 tal como lo informa FECompConsultar cuando AFIP sí otorgó el CAE.
func grantedRecord(total int64) *afip.VoucherRecord {
	issue := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return &afip.VoucherRecord{
		VoucherCode:  11,
		SalesPoint:   3,
		Number:       42,
		ConceptCode:  2,
		DocType:      pkgafip.DocTypeUnspecified,
		DocNumber:    "0",
		IssueDate:    issue,
		Total:        decimal.NewFromInt(total),
		Result:       "A",
		CAE:          "76101234567890",
		CAEExpiresAt: issue.AddDate(0, 0, 10),
		Raw:          "<consulta/>",
	}
}

// lostResponse deja el borrador con el 42 intentado y sin respuesta.
func lostResponse(t *testing.T, f *fixture) string {
	t.Helper()
	draft := createDraft(t, f)
	f.wsfe.On("LastAuthorized", mock.Anything, cachedCreds, 3, 11).Return(int64(41), nil).Once()
	f.wsfe.On("Authorize", mock.Anything, cachedCreds, mock.Anything).Return(nil, errTimeout).Once()

	_, err := f.svc.Authorize(context.Background(), accountID, draft.ID)
	require.ErrorIs(t, err, domain.ErrTransport)
	return draft.ID
}

func TestAuthorize_SinRespuesta_RecuperaCAEOtorgado(t *testing.T) {
	f := newFixture(t, accountWithToken(t))
	id := lostResponse(t, f)

	f.wsfe.On("Query", mock.Anything, cachedCreds, 3, 11, int64(42)).Return(grantedRecord(1000), nil).Once()

	out, err := f.svc.Authorize(context.Background(), accountID, id)
	require.NoError(t, err)
	assert.True(t, out.Success)
	require.NotNil(t, out.Number)
	assert.Equal(t, int64(42), *out.Number)
	assert.Equal(t, "76101234567890", out.CAE)

	stored := f.invoices.get(id)
	assert.Equal(t, entity.InvoiceStatusAuthorized, stored.Status)
	assert.Nil(t, stored.AttemptedNumber)
	assert.Equal(t, "2026-03-10", stored.IssueDate.Format("2006-01-02"))

	// Un solo FECAESolicitar: el reintento no pidió un número nuevo.
	f.wsfe.AssertNumberOfCalls(t, "Authorize", 1)
	f.wsfe.AssertNumberOfCalls(t, "LastAuthorized", 1)
	f.wsfe.AssertExpectations(t)
}

func TestAuthorize_SinRespuesta_NumeroLibreSeReintenta(t *testing.T) {
	f := newFixture(t, accountWithToken(t))
	id := lostResponse(t, f)

	f.wsfe.On("Query", mock.Anything, cachedCreds, 3, 11, int64(42)).Return(nil, domain.ErrNotFound).Once()
	f.wsfe.On("LastAuthorized", mock.Anything, cachedCreds, 3, 11).Return(int64(41), nil).Once()
	f.wsfe.On("Authorize", mock.Anything, cachedCreds, mock.MatchedBy(func(req afip.AuthorizationRequest) bool {
		return req.Number == 42
	})).Return(&afip.AuthorizationResult{
		Result: "A", Number: 42, CAE: "76101234567890", CAEExpiresAt: testNow.AddDate(0, 0, 10),
	}, nil).Once()

	out, err := f.svc.Authorize(context.Background(), accountID, id)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Nil(t, f.invoices.get(id).AttemptedNumber)
	f.wsfe.AssertExpectations(t)
}

func TestAuthorize_SinRespuesta_NumeroDeOtroComprobante(t *testing.T) {
	f := newFixture(t, accountWithToken(t))
	id := lostResponse(t, f)

	f.wsfe.On("Query", mock.Anything, cachedCreds, 3, 11, int64(42)).Return(grantedRecord(777), nil).Once()
	f.wsfe.On("LastAuthorized", mock.Anything, cachedCreds, 3, 11).Return(int64(42), nil).Once()
	f.wsfe.On("Authorize", mock.Anything, cachedCreds, mock.MatchedBy(func(req afip.AuthorizationRequest) bool {
		return req.Number == 43
	})).Return(&afip.AuthorizationResult{
		Result: "A", Number: 43, CAE: "76101234567891", CAEExpiresAt: testNow.AddDate(0, 0, 10),
	}, nil).Once()

	out, err := f.svc.Authorize(context.Background(), accountID, id)
	require.NoError(t, err)
	require.NotNil(t, out.Number)
	assert.Equal(t, int64(43), *out.Number)
	f.wsfe.AssertExpectations(t)
}

func TestAuthorize_SinRespuesta_ConsultaFallidaConservaIntento(t *testing.T) {
	f := newFixture(t, accountWithToken(t))
	id := lostResponse(t, f)

	f.wsfe.On("Query", mock.Anything, cachedCreds, 3, 11, int64(42)).Return(nil, errTimeout).Once()

	_, err := f.svc.Authorize(context.Background(), accountID, id)
	assert.ErrorIs(t, err, domain.ErrTransport)

	stored := f.invoices.get(id)
	assert.Equal(t, entity.InvoiceStatusDraft, stored.Status)
	require.NotNil(t, stored.AttemptedNumber)
	assert.Equal(t, int64(42), *stored.AttemptedNumber)
	f.wsfe.AssertNumberOfCalls(t, "LastAuthorized", 1)
}

func TestSync_NoImportaNumeroIntentado(t *testing.T) {
	f := newFixture(t, accountWithToken(t))
	id := lostResponse(t, f)
	require.NotNil(t, f.invoices.get(id).AttemptedNumber)

	f.wsfe.On("LastAuthorized", mock.Anything, cachedCreds, 3, 11).Return(int64(42), nil)
	for n := int64(38); n <= 41; n++ {
		f.wsfe.On("Query", mock.Anything, cachedCreds, 3, 11, n).Return(nil, domain.ErrNotFound).Once()
	}

	res, err := f.svc.Sync(context.Background(), accountID, pkgafip.FacturaC)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Checked, "el 42 pertenece al borrador local")
	assert.Empty(t, res.Imported)
	f.wsfe.AssertNotCalled(t, "Query", mock.Anything, cachedCreds, 3, 11, int64(42))
}
