package afip_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-afip/internal/domain"
	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
	pkgafip "github.com/jhoicas/facturador-afip/pkg/afip"
)

func authorizedInvoice() *entity.Invoice {
	number := int64(42)
	cae := "76101234567890"
	issued := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	receiver := "20123456786"
	return &entity.Invoice{
		VoucherType:       pkgafip.FacturaB,
		SalesPoint:        3,
		Number:            &number,
		ReceiverTaxID:     &receiver,
		TotalAmount:       decimal.RequireFromString("1210.5"),
		Currency:          "PES",
		ExchangeRate:      decimal.NewFromInt(1),
		IssueDate:         &issued,
		AuthorizationCode: &cae,
		Status:            entity.InvoiceStatusAuthorized,
	}
}

func TestBuildQRURL(t *testing.T) {
	account := &entity.AccountConfig{CUIT: "30-71234567-1"}

	url, err := afip.BuildQRURL(account, authorizedInvoice())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, afip.QRBaseURL))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, afip.QRBaseURL))
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))

	assert.EqualValues(t, 1, payload["ver"])
	assert.Equal(t, "2026-03-10", payload["fecha"])
	assert.EqualValues(t, 30712345671, payload["cuit"])
	assert.EqualValues(t, 3, payload["ptoVta"])
	assert.EqualValues(t, 6, payload["tipoCmp"])
	assert.EqualValues(t, 42, payload["nroCmp"])
	assert.EqualValues(t, 1210.5, payload["importe"])
	assert.Equal(t, "PES", payload["moneda"])
	assert.EqualValues(t, 1, payload["ctz"])
	assert.EqualValues(t, 80, payload["tipoDocRec"])
	assert.EqualValues(t, 20123456786, payload["nroDocRec"])
	assert.Equal(t, "E", payload["tipoCodAut"])
	assert.EqualValues(t, 76101234567890, payload["codAut"])
	assert.Contains(t, string(raw), `"importe":1210.50`)
}

func TestBuildQRURL_NoAutorizado(t *testing.T) {
	inv := authorizedInvoice()
	inv.AuthorizationCode = nil
	_, err := afip.BuildQRURL(&entity.AccountConfig{CUIT: "20123456786"}, inv)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRenderQRPNG(t *testing.T) {
	img, err := afip.RenderQRPNG(afip.QRBaseURL+"e30=", 128)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(img, "data:image/png;base64,"))
}

func TestBuildQRPayload_FechaCalendario(t *testing.T) {
	account := &entity.AccountConfig{CUIT: "30-71234567-1"}
	art := time.FixedZone("ART", -3*60*60)

	for name, issued := range map[string]time.Time{
		"columna DATE (medianoche UTC)": time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		"medianoche argentina":          time.Date(2026, 3, 2, 0, 0, 0, 0, art),
	} {
		t.Run(name, func(t *testing.T) {
			inv := authorizedInvoice()
			inv.IssueDate = &issued
			payload, err := afip.BuildQRPayload(account, inv)
			require.NoError(t, err)
			assert.Equal(t, "2026-03-02", payload.Fecha)
		})
	}
}
