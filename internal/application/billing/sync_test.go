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

	"github.com/jhoicas/facturador-afip/internal/application/billing"
	"github.com/jhoicas/facturador-afip/internal/domain"
	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
	pkgafip "github.com/jhoicas/facturador-afip/pkg/afip"
)

func voucherRecord(number int64) *afip.VoucherRecord {
	issue := time.Date(2026, 3, 1, 0, 0, 0, 0, art)
	return &afip.VoucherRecord{
		VoucherCode:  11,
		SalesPoint:   3,
		Number:       number,
		ConceptCode:  1,
		DocType:      pkgafip.DocTypeUnspecified,
		DocNumber:    "0",
		IssueDate:    issue,
		Total:        decimal.NewFromInt(500),
		Net:          decimal.NewFromInt(500),
		VAT:          decimal.Zero,
		Currency:     "PES",
		ExchangeRate: decimal.NewFromInt(1),
		Result:       "A",
		CAE:          fmt.Sprintf("7500000000%04d", number),
		CAEExpiresAt: issue.AddDate(0, 0, 10),
		Raw:          "<consulta/>",
	}
}

func TestSync_ImportaFaltantes(t *testing.T) {
	f := newFixture(t, accountWithToken(t), authorizedInvoice("inv-9", 9))

	f.wsfe.On("LastAuthorized", mock.Anything, cachedCreds, 3, 11).Return(int64(10), nil)
	f.wsfe.On("Query", mock.Anything, cachedCreds, 3, 11, int64(10)).Return(voucherRecord(10), nil).Once()
	f.wsfe.On("Query", mock.Anything, cachedCreds, 3, 11, int64(8)).Return(nil, domain.ErrNotFound).Once()
	f.wsfe.On("Query", mock.Anything, cachedCreds, 3, 11, int64(7)).Return(voucherRecord(7), nil).Once()
	f.wsfe.On("Query", mock.Anything, cachedCreds, 3, 11, int64(6)).Return(voucherRecord(6), nil).Once()

	res, err := f.svc.Sync(context.Background(), accountID, pkgafip.FacturaC)
	require.NoError(t, err)

	assert.Equal(t, int64(10), res.LastAuthorized)
	assert.Equal(t, 4, res.Checked, "9 ya existe localmente; la ventana es 6..10")
	assert.ElementsMatch(t, []int64{10, 7, 6}, res.Imported)
	assert.Equal(t, 4, f.invoices.count())

	existing, _ := f.invoices.ExistingNumbers(context.Background(), accountID, 3, pkgafip.FacturaC, 1, 10)
	assert.True(t, existing[10])
	f.wsfe.AssertExpectations(t)

	// Segunda pasada: solo falta el 8, que AFIP no tiene.
	f.wsfe.On("Query", mock.Anything, cachedCreds, 3, 11, int64(8)).Return(nil, domain.ErrNotFound).Once()
	res, err = f.svc.Sync(context.Background(), accountID, pkgafip.FacturaC)
	require.NoError(t, err)
	assert.Empty(t, res.Imported)
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, 4, f.invoices.count())
}

func TestSync_ComprobanteImportadoAutorizado(t *testing.T) {
	f := newFixture(t, accountWithToken(t))
	f.wsfe.On("LastAuthorized", mock.Anything, cachedCreds, 3, 11).Return(int64(1), nil)
	f.wsfe.On("Query", mock.Anything, cachedCreds, 3, 11, int64(1)).Return(voucherRecord(1), nil).Once()

	res, err := f.svc.Sync(context.Background(), accountID, pkgafip.FacturaC)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, res.Imported)

	var imported *entity.Invoice
	for _, inv := range f.invoices.invoices {
		imported = inv
	}
	require.NotNil(t, imported)
	assert.Equal(t, entity.InvoiceStatusAuthorized, imported.Status)
	assert.Equal(t, "75000000000001", *imported.AuthorizationCode)
	assert.Nil(t, imported.ReceiverTaxID)
	assert.Equal(t, pkgafip.ConceptProducts, imported.ConceptType)
}

func TestSync_SinComprobantes(t *testing.T) {
	f := newFixture(t, accountWithToken(t))
	f.wsfe.On("LastAuthorized", mock.Anything, cachedCreds, 3, 11).Return(int64(0), nil)

	res, err := f.svc.Sync(context.Background(), accountID, pkgafip.FacturaC)
	require.NoError(t, err)
	assert.Zero(t, res.Checked)
	f.wsfe.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_ErrorDeTransporte_DevuelveParcial(t *testing.T) {
	f := newFixture(t, accountWithToken(t))
	f.wsfe.On("LastAuthorized", mock.Anything, cachedCreds, 3, 11).Return(int64(3), nil)
	f.wsfe.On("Query", mock.Anything, cachedCreds, 3, 11, int64(3)).Return(voucherRecord(3), nil).Once()
	f.wsfe.On("Query", mock.Anything, cachedCreds, 3, 11, int64(2)).Return(nil, domain.ErrTransport).Once()

	res, err := f.svc.Sync(context.Background(), accountID, pkgafip.FacturaC)
	assert.ErrorIs(t, err, domain.ErrTransport)
	require.NotNil(t, res)
	assert.Equal(t, []int64{3}, res.Imported, "lo recuperado antes de la falla se guarda")
	f.wsfe.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything, int64(1))
}

func TestSweeper_SweepOnce(t *testing.T) {
	withCert := accountWithToken(t)
	f := newFixture(t, withCert)
	noCert := &entity.AccountConfig{ID: "acc-2", CUIT: cuit, SalesPoint: 1}
	require.NoError(t, f.accounts.Create(context.Background(), noCert))

	f.wsfe.On("LastAuthorized", mock.Anything, cachedCreds, 3, 11).Return(int64(1), nil)
	f.wsfe.On("Query", mock.Anything, cachedCreds, 3, 11, int64(1)).Return(voucherRecord(1), nil).Once()

	sweeper := billing.NewSweeper(f.svc, f.accounts, time.Minute, []pkgafip.VoucherType{pkgafip.FacturaC}, nil)
	sweeper.SweepOnce(context.Background())

	assert.Equal(t, 1, f.invoices.count())
	f.wsfe.AssertNumberOfCalls(t, "LastAuthorized", 1)
}

func TestSweeper_Deshabilitado(t *testing.T) {
	f := newFixture(t, accountWithToken(t))
	sweeper := billing.NewSweeper(f.svc, f.accounts, 0, []pkgafip.VoucherType{pkgafip.FacturaC}, nil)

	done := make(chan struct{})
	go func() {
		sweeper.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run debería retornar de inmediato con intervalo 0")
	}
}

func TestSweeper_RunSeDetieneConContexto(t *testing.T) {
	f := newFixture(t, accountWithToken(t))
	f.wsfe.On("LastAuthorized", mock.Anything, cachedCreds, 3, 11).Return(int64(0), nil).Maybe()
	sweeper := billing.NewSweeper(f.svc, f.accounts, 5*time.Millisecond, []pkgafip.VoucherType{pkgafip.FacturaC}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	sweeper.Run(ctx)
	assert.Error(t, ctx.Err())
}
