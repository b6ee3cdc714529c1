package afip_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-afip/internal/domain"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
)

type capturedRequest struct {
	action string
	body   string
}

// wsfeServer responde siempre con response y guarda el último request.
func wsfeServer(t *testing.T, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured.action = r.Header.Get("SOAPAction")
		captured.body = string(body)
		_, _ = w.Write(wsfeEnvelope(response))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

var creds = afip.Credentials{Token: "TOKEN", Sign: "SIGN", CUIT: "20123456786"}

func baseRequest() afip.AuthorizationRequest {
	return afip.AuthorizationRequest{
		VoucherCode:          11,
		SalesPoint:           3,
		Number:               42,
		ConceptCode:          1,
		DocType:              99,
		DocNumber:            "0",
		ReceiverIVACondition: 5,
		IssueDate:            time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Net:                  decimal.RequireFromString("1000"),
		VAT:                  decimal.Zero,
		Total:                decimal.RequireFromString("1000"),
	}
}

func TestWSFEClient_Authorize_ProductosOmiteFechasDeServicio(t *testing.T) {
	srv, captured := wsfeServer(t, caeApproved)
	client := afip.NewWSFEClient(afip.Testing.WithEndpoints("", srv.URL), testOptions())

	res, err := client.Authorize(context.Background(), creds, baseRequest())
	require.NoError(t, err)
	assert.True(t, res.Approved())

	assert.Equal(t, "http://ar.gov.afip.dif.FEV1/FECAESolicitar", captured.action)
	assert.Contains(t, captured.body, `xmlns:ar="http://ar.gov.afip.dif.FEV1/"`)
	assert.Contains(t, captured.body, "<ar:Concepto>1</ar:Concepto>")
	assert.Contains(t, captured.body, "<ar:CbteDesde>42</ar:CbteDesde><ar:CbteHasta>42</ar:CbteHasta>")
	assert.Contains(t, captured.body, "<ar:CbteFch>20260310</ar:CbteFch>")
	assert.Contains(t, captured.body, "<ar:ImpTotal>1000.00</ar:ImpTotal>")
	assert.Contains(t, captured.body, "<ar:MonId>PES</ar:MonId><ar:MonCotiz>1</ar:MonCotiz>")
	assert.NotContains(t, captured.body, "FchServDesde")
	assert.NotContains(t, captured.body, "FchServHasta")
	assert.NotContains(t, captured.body, "FchVtoPago")
	assert.NotContains(t, captured.body, "ar:Iva")
}

func TestWSFEClient_Authorize_ServiciosIncluyePeriodo(t *testing.T) {
	srv, captured := wsfeServer(t, caeApproved)
	client := afip.NewWSFEClient(afip.Testing.WithEndpoints("", srv.URL), testOptions())

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	req := baseRequest()
	req.ConceptCode = 2
	req.ServiceFrom, req.ServiceTo, req.PaymentDue = &from, &req.IssueDate, &req.IssueDate

	_, err := client.Authorize(context.Background(), creds, req)
	require.NoError(t, err)
	assert.Contains(t, captured.body, "<ar:FchServDesde>20260301</ar:FchServDesde>")
	assert.Contains(t, captured.body, "<ar:FchServHasta>20260310</ar:FchServHasta>")
	assert.Contains(t, captured.body, "<ar:FchVtoPago>20260310</ar:FchVtoPago>")
}

func TestWSFEClient_Authorize_FechasCalendarioSinCorrimiento(t *testing.T) {
	srv, captured := wsfeServer(t, caeApproved)
	client := afip.NewWSFEClient(afip.Testing.WithEndpoints("", srv.URL), testOptions())

	art := time.FixedZone("ART", -3*60*60)
	from := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, art)
	req := baseRequest()
	req.IssueDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	req.ConceptCode = 2
	req.ServiceFrom, req.ServiceTo, req.PaymentDue = &from, &to, &due
	req.VoucherCode = 13
	req.Associated = []afip.AssociatedVoucher{{VoucherCode: 11, SalesPoint: 3, Number: 42, CUIT: "20123456786",
		Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)}}

	_, err := client.Authorize(context.Background(), creds, req)
	require.NoError(t, err)
	assert.Contains(t, captured.body, "<ar:CbteFch>20260310</ar:CbteFch>")
	assert.Contains(t, captured.body, "<ar:FchServDesde>20260305</ar:FchServDesde>")
	assert.Contains(t, captured.body, "<ar:FchServHasta>20260309</ar:FchServHasta>")
	assert.Contains(t, captured.body, "<ar:FchVtoPago>20260315</ar:FchVtoPago>")
	assert.Contains(t, captured.body, "<ar:CbteFch>20260302</ar:CbteFch></ar:CbteAsoc>")
}

func TestWSFEClient_Authorize_ServiciosSinPeriodo(t *testing.T) {
	client := afip.NewWSFEClient(afip.Testing.WithEndpoints("", "http://127.0.0.1:1"), testOptions())
	req := baseRequest()
	req.ConceptCode = 3

	_, err := client.Authorize(context.Background(), creds, req)
	assert.Error(t, err)
}

func TestWSFEClient_Authorize_IVAYComprobanteAsociado(t *testing.T) {
	srv, captured := wsfeServer(t, caeApproved)
	client := afip.NewWSFEClient(afip.Testing.WithEndpoints("", srv.URL), testOptions())

	req := baseRequest()
	req.VoucherCode = 8
	req.VAT = decimal.RequireFromString("210")
	req.Total = decimal.RequireFromString("1210")
	req.VATRateID = 5
	req.Associated = []afip.AssociatedVoucher{{VoucherCode: 6, SalesPoint: 3, Number: 7, CUIT: "20123456786", Date: req.IssueDate}}

	_, err := client.Authorize(context.Background(), creds, req)
	require.NoError(t, err)
	assert.Contains(t, captured.body, "<ar:AlicIva><ar:Id>5</ar:Id><ar:BaseImp>1000.00</ar:BaseImp><ar:Importe>210.00</ar:Importe></ar:AlicIva>")
	assert.Contains(t, captured.body, "<ar:CbteAsoc><ar:Tipo>6</ar:Tipo><ar:PtoVta>3</ar:PtoVta><ar:Nro>7</ar:Nro>")
}

func TestWSFEClient_Authorize_Rechazo(t *testing.T) {
	srv, _ := wsfeServer(t, caeRejected)
	client := afip.NewWSFEClient(afip.Testing.WithEndpoints("", srv.URL), testOptions())

	res, err := client.Authorize(context.Background(), creds, baseRequest())
	require.NoError(t, err)
	assert.False(t, res.Approved())
	assert.Equal(t, 10016, res.Rejection().Code)
}

func TestWSFEClient_LastAuthorized(t *testing.T) {
	srv, captured := wsfeServer(t, `<FECompUltimoAutorizadoResponse xmlns="http://ar.gov.afip.dif.FEV1/"><FECompUltimoAutorizadoResult><PtoVta>3</PtoVta><CbteTipo>11</CbteTipo><CbteNro>0</CbteNro><Errors><Err><Code>602</Code><Msg>No existen comprobantes para los parametros ingresados</Msg></Err></Errors></FECompUltimoAutorizadoResult></FECompUltimoAutorizadoResponse>`)
	client := afip.NewWSFEClient(afip.Testing.WithEndpoints("", srv.URL), testOptions())

	n, err := client.LastAuthorized(context.Background(), creds, 3, 11)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "http://ar.gov.afip.dif.FEV1/FECompUltimoAutorizado", captured.action)
	assert.Contains(t, captured.body, "<ar:Auth><ar:Token>TOKEN</ar:Token><ar:Sign>SIGN</ar:Sign><ar:Cuit>20123456786</ar:Cuit></ar:Auth>")
	assert.Contains(t, captured.body, "<ar:PtoVta>3</ar:PtoVta><ar:CbteTipo>11</ar:CbteTipo>")
}

func TestWSFEClient_Query(t *testing.T) {
	srv, captured := wsfeServer(t, `<FECompConsultarResponse><FECompConsultarResult><Errors><Err><Code>602</Code><Msg>Sin Resultados</Msg></Err></Errors></FECompConsultarResult></FECompConsultarResponse>`)
	client := afip.NewWSFEClient(afip.Testing.WithEndpoints("", srv.URL), testOptions())

	_, err := client.Query(context.Background(), creds, 3, 11, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, captured.body, "<ar:FeCompConsReq><ar:CbteTipo>11</ar:CbteTipo><ar:CbteNro>99</ar:CbteNro><ar:PtoVta>3</ar:PtoVta></ar:FeCompConsReq>")
}

func TestWSFEClient_HTTP404EsTransporte(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	client := afip.NewWSFEClient(afip.Testing.WithEndpoints("", srv.URL), testOptions())

	_, err := client.LastAuthorized(context.Background(), creds, 3, 11)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, afip.RawFromError(err), "404")
}
