package afip

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-afip/pkg/logger"
)

// Credentials ticket de acceso vigente más la CUIT representada.
type Credentials struct {
	Token string
	Sign  string
	CUIT  string
}

// AssociatedVoucher comprobante asociado (CbtesAsoc) de una nota de crédito o débito.
type AssociatedVoucher struct {
	VoucherCode int
	SalesPoint  int
	Number      int64
	CUIT        string
	Date        time.Time
}

// AuthorizationRequest datos de un comprobante a autorizar con FECAESolicitar.
type AuthorizationRequest struct {
	VoucherCode          int
	SalesPoint           int
	Number               int64
	ConceptCode          int
	DocType              int
	DocNumber            string
	ReceiverIVACondition int
	IssueDate            time.Time
	Net                  decimal.Decimal
	VAT                  decimal.Decimal
	Total                decimal.Decimal
	VATRateID            int // 0 = sin bloque Iva (clase C)
	Currency             string
	ExchangeRate         decimal.Decimal
	ServiceFrom          *time.Time // solo conceptos 2 y 3
	ServiceTo            *time.Time
	PaymentDue           *time.Time
	Associated           []AssociatedVoucher
}

// ── Cuerpos SOAP (namespace ar) ──────────────────────────────────────────────

type wsfeAuth struct {
	Token string `xml:"ar:Token"`
	Sign  string `xml:"ar:Sign"`
	Cuit  string `xml:"ar:Cuit"`
}

type lastAuthorizedRequest struct {
	XMLName  xml.Name `xml:"ar:FECompUltimoAutorizado"`
	Auth     wsfeAuth `xml:"ar:Auth"`
	PtoVta   int      `xml:"ar:PtoVta"`
	CbteTipo int      `xml:"ar:CbteTipo"`
}

type queryRequest struct {
	XMLName    xml.Name      `xml:"ar:FECompConsultar"`
	Auth       wsfeAuth      `xml:"ar:Auth"`
	FeCompCons feCompConsReq `xml:"ar:FeCompConsReq"`
}

type feCompConsReq struct {
	CbteTipo int   `xml:"ar:CbteTipo"`
	CbteNro  int64 `xml:"ar:CbteNro"`
	PtoVta   int   `xml:"ar:PtoVta"`
}

type caeRequest struct {
	XMLName  xml.Name `xml:"ar:FECAESolicitar"`
	Auth     wsfeAuth `xml:"ar:Auth"`
	FeCAEReq feCAEReq `xml:"ar:FeCAEReq"`
}

type feCAEReq struct {
	FeCabReq feCabReq `xml:"ar:FeCabReq"`
	FeDetReq feDetReq `xml:"ar:FeDetReq"`
}

type feCabReq struct {
	CantReg  int `xml:"ar:CantReg"`
	PtoVta   int `xml:"ar:PtoVta"`
	CbteTipo int `xml:"ar:CbteTipo"`
}

type feDetReq struct {
	Detail feCAEDetRequest `xml:"ar:FECAEDetRequest"`
}

type feCAEDetRequest struct {
	Concepto               int        `xml:"ar:Concepto"`
	DocTipo                int        `xml:"ar:DocTipo"`
	DocNro                 string     `xml:"ar:DocNro"`
	CbteDesde              int64      `xml:"ar:CbteDesde"`
	CbteHasta              int64      `xml:"ar:CbteHasta"`
	CbteFch                string     `xml:"ar:CbteFch"`
	ImpTotal               string     `xml:"ar:ImpTotal"`
	ImpTotConc             string     `xml:"ar:ImpTotConc"`
	ImpNeto                string     `xml:"ar:ImpNeto"`
	ImpOpEx                string     `xml:"ar:ImpOpEx"`
	ImpTrib                string     `xml:"ar:ImpTrib"`
	ImpIVA                 string     `xml:"ar:ImpIVA"`
	FchServDesde           string     `xml:"ar:FchServDesde,omitempty"`
	FchServHasta           string     `xml:"ar:FchServHasta,omitempty"`
	FchVtoPago             string     `xml:"ar:FchVtoPago,omitempty"`
	MonId                  string     `xml:"ar:MonId"`
	MonCotiz               string     `xml:"ar:MonCotiz"`
	CondicionIVAReceptorId int        `xml:"ar:CondicionIVAReceptorId,omitempty"`
	CbtesAsoc              *cbtesAsoc `xml:"ar:CbtesAsoc,omitempty"`
	Iva                    *ivaBlock  `xml:"ar:Iva,omitempty"`
}

type cbtesAsoc struct {
	Items []cbteAsoc `xml:"ar:CbteAsoc"`
}

type cbteAsoc struct {
	Tipo    int    `xml:"ar:Tipo"`
	PtoVta  int    `xml:"ar:PtoVta"`
	Nro     int64  `xml:"ar:Nro"`
	Cuit    string `xml:"ar:Cuit,omitempty"`
	CbteFch string `xml:"ar:CbteFch,omitempty"`
}

type ivaBlock struct {
	Items []alicIva `xml:"ar:AlicIva"`
}

type alicIva struct {
	ID      int    `xml:"ar:Id"`
	BaseImp string `xml:"ar:BaseImp"`
	Importe string `xml:"ar:Importe"`
}

// WSFEClient cliente de Factura Electrónica WSFEv1.
type WSFEClient struct {
	env       Environment
	transport *soapTransport
	parser    ResponseParser
	log       *logger.Logger
}

// NewWSFEClient crea el cliente para el ambiente indicado.
func NewWSFEClient(env Environment, opts Options) *WSFEClient {
	opts = opts.withDefaults()
	return &WSFEClient{
		env:       env,
		transport: newSOAPTransport(opts, "wsfe"),
		parser:    NewResponseParser(),
		log:       opts.Logger.Component("wsfe"),
	}
}

// Environment ambiente contra el que opera el cliente.
func (c *WSFEClient) Environment() Environment { return c.env }

func (c *WSFEClient) call(ctx context.Context, operation string, body interface{}) ([]byte, error) {
	envelope := newEnvelope("ar", wsfeNS, body)
	return c.transport.call(ctx, c.env.WSFEURL(), wsfeNS+operation, envelope)
}

// LastAuthorized último número autorizado para punto de venta y tipo (0 si no hay ninguno).
func (c *WSFEClient) LastAuthorized(ctx context.Context, creds Credentials, salesPoint, voucherCode int) (int64, error) {
	raw, err := c.call(ctx, "FECompUltimoAutorizado", lastAuthorizedRequest{
		Auth:     authOf(creds),
		PtoVta:   salesPoint,
		CbteTipo: voucherCode,
	})
	if err != nil {
		return 0, err
	}
	return c.parser.ParseLastAuthorized(raw)
}

// Authorize solicita el CAE de un comprobante. Un rechazo de AFIP no es error:
// se devuelve el resultado con Approved() == false.
func (c *WSFEClient) Authorize(ctx context.Context, creds Credentials, req AuthorizationRequest) (*AuthorizationResult, error) {
	body, err := buildCAERequest(creds, req)
	if err != nil {
		return nil, err
	}
	raw, err := c.call(ctx, "FECAESolicitar", body)
	if err != nil {
		return nil, err
	}
	result, err := c.parser.ParseAuthorization(raw)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Int("pto_vta", req.SalesPoint).Int("cbte_tipo", req.VoucherCode).Int64("nro", req.Number).
		Str("resultado", result.Result).Msg("FECAESolicitar")
	return result, nil
}

// Query consulta un comprobante emitido. Si AFIP no lo tiene devuelve domain.ErrNotFound.
func (c *WSFEClient) Query(ctx context.Context, creds Credentials, salesPoint, voucherCode int, number int64) (*VoucherRecord, error) {
	raw, err := c.call(ctx, "FECompConsultar", queryRequest{
		Auth:       authOf(creds),
		FeCompCons: feCompConsReq{CbteTipo: voucherCode, CbteNro: number, PtoVta: salesPoint},
	})
	if err != nil {
		return nil, err
	}
	return c.parser.ParseQuery(raw)
}

func authOf(creds Credentials) wsfeAuth {
	return wsfeAuth{Token: creds.Token, Sign: creds.Sign, Cuit: creds.CUIT}
}

func amount(d decimal.Decimal) string { return d.StringFixed(2) }

// afipDate formatea una fecha calendario con sus propios componentes: las columnas DATE
// llegan como medianoche UTC y convertirlas de zona las corre un día.
func afipDate(t time.Time) string { return t.Format(afipDateLayout) }

func buildCAERequest(creds Credentials, req AuthorizationRequest) (caeRequest, error) {
	if req.Number <= 0 {
		return caeRequest{}, fmt.Errorf("wsfe: número de comprobante inválido %d", req.Number)
	}
	currency := req.Currency
	if currency == "" {
		currency = "PES"
	}
	rate := req.ExchangeRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	det := feCAEDetRequest{
		Concepto:               req.ConceptCode,
		DocTipo:                req.DocType,
		DocNro:                 req.DocNumber,
		CbteDesde:              req.Number,
		CbteHasta:              req.Number,
		CbteFch:                afipDate(req.IssueDate),
		ImpTotal:               amount(req.Total),
		ImpTotConc:             amount(decimal.Zero),
		ImpNeto:                amount(req.Net),
		ImpOpEx:                amount(decimal.Zero),
		ImpTrib:                amount(decimal.Zero),
		ImpIVA:                 amount(req.VAT),
		MonId:                  currency,
		MonCotiz:               rate.String(),
		CondicionIVAReceptorId: req.ReceiverIVACondition,
	}
	if det.DocNro == "" {
		det.DocNro = "0"
	}
	// Fechas de servicio y vencimiento de pago: solo para servicios (2) o mixto (3).
	if req.ConceptCode != 1 {
		if req.ServiceFrom == nil || req.ServiceTo == nil || req.PaymentDue == nil {
			return caeRequest{}, fmt.Errorf("wsfe: concepto %d requiere período de servicio y vencimiento de pago", req.ConceptCode)
		}
		det.FchServDesde = afipDate(*req.ServiceFrom)
		det.FchServHasta = afipDate(*req.ServiceTo)
		det.FchVtoPago = afipDate(*req.PaymentDue)
	}
	if req.VATRateID != 0 {
		det.Iva = &ivaBlock{Items: []alicIva{{ID: req.VATRateID, BaseImp: amount(req.Net), Importe: amount(req.VAT)}}}
	}
	if len(req.Associated) > 0 {
		det.CbtesAsoc = &cbtesAsoc{}
		for _, a := range req.Associated {
			item := cbteAsoc{Tipo: a.VoucherCode, PtoVta: a.SalesPoint, Nro: a.Number, Cuit: a.CUIT}
			if !a.Date.IsZero() {
				item.CbteFch = afipDate(a.Date)
			}
			det.CbtesAsoc.Items = append(det.CbtesAsoc.Items, item)
		}
	}
	return caeRequest{
		Auth: authOf(creds),
		FeCAEReq: feCAEReq{
			FeCabReq: feCabReq{CantReg: 1, PtoVta: req.SalesPoint, CbteTipo: req.VoucherCode},
			FeDetReq: feDetReq{Detail: det},
		},
	}, nil
}
