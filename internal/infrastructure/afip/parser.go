package afip

import (
	"fmt"
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/jhoicas/facturador-afip/internal/domain"
)

// LoginResult resultado de loginCms.
// AlreadyAuthenticated indica que WSAA rechazó el pedido porque ya emitió un TA vigente
// para este certificado y servicio; el TA debe buscarse en la caché.
type LoginResult struct {
	Token                string
	Sign                 string
	ExpiresAt            time.Time
	AlreadyAuthenticated bool
}

// Message código y texto informados por WSFE en Errors/Err u Observaciones/Obs.
type Message struct {
	Code int
	Msg  string
}

// AuthorizationResult respuesta de FECAESolicitar para un único comprobante.
type AuthorizationResult struct {
	Result       string // A aprobado, R rechazado, P parcial
	Number       int64
	CAE          string
	CAEExpiresAt time.Time
	Errors       []Message
	Observations []Message
	Raw          string
}

// Approved informa si AFIP otorgó CAE.
func (r *AuthorizationResult) Approved() bool {
	return r.CAE != "" && r.Result != "R"
}

// Rejection describe el rechazo: primero los errores, si no hay, la primera observación.
func (r *AuthorizationResult) Rejection() *domain.RejectionError {
	if len(r.Errors) > 0 {
		return &domain.RejectionError{Code: r.Errors[0].Code, Message: r.Errors[0].Msg}
	}
	if len(r.Observations) > 0 {
		return &domain.RejectionError{Code: r.Observations[0].Code, Message: r.Observations[0].Msg, Observation: true}
	}
	return &domain.RejectionError{Message: "AFIP no otorgó CAE (resultado " + r.Result + ")"}
}

// RejectionMessage texto para el usuario con todos los errores y observaciones.
func (r *AuthorizationResult) RejectionMessage() string {
	var parts []string
	for _, e := range r.Errors {
		parts = append(parts, (&domain.RejectionError{Code: e.Code, Message: e.Msg}).Error())
	}
	for _, o := range r.Observations {
		parts = append(parts, (&domain.RejectionError{Code: o.Code, Message: o.Msg, Observation: true}).Error())
	}
	if len(parts) == 0 {
		return r.Rejection().Error()
	}
	return strings.Join(parts, "; ")
}

// VoucherRecord comprobante tal como lo informa FECompConsultar.
type VoucherRecord struct {
	VoucherCode  int
	SalesPoint   int
	Number       int64
	ConceptCode  int
	DocType      int
	DocNumber    string
	IssueDate    time.Time
	Total        decimal.Decimal
	Net          decimal.Decimal
	VAT          decimal.Decimal
	Currency     string
	ExchangeRate decimal.Decimal
	Result       string
	CAE          string
	CAEExpiresAt time.Time
	ServiceFrom  *time.Time
	ServiceTo    *time.Time
	PaymentDue   *time.Time
	Raw          string
}

// ResponseParser interpreta las respuestas SOAP de WSAA y WSFE.
type ResponseParser interface {
	ParseLoginResponse(raw []byte, now time.Time) (*LoginResult, error)
	ParseLastAuthorized(raw []byte) (int64, error)
	ParseAuthorization(raw []byte) (*AuthorizationResult, error)
	ParseQuery(raw []byte) (*VoucherRecord, error)
}

// NewResponseParser parser basado en etree.
func NewResponseParser() ResponseParser {
	return etreeParser{}
}

type etreeParser struct{}

const (
	wsfeAuthErrorMin = 600 // 600..601: token/sign inválidos o CUIT no autorizada
	wsfeAuthErrorMax = 601
	wsfeNoResults    = 602
	afipDateLayout   = "20060102"
	loginTTLFallback = 12 * time.Hour
)

var (
	xmlDeclaration = regexp.MustCompile(`<\?xml[^>]*\?>`)
	tokenRe        = regexp.MustCompile(`(?s)<token>(.*?)</token>`)
	signRe         = regexp.MustCompile(`(?s)<sign>(.*?)</sign>`)
	expirationRe   = regexp.MustCompile(`(?s)<expirationTime>(.*?)</expirationTime>`)
	faultRe        = regexp.MustCompile(`(?s)<faultstring>(.*?)</faultstring>`)
)

// decodeEntities deshace el escapado HTML repetido con que WSAA embebe el loginTicketResponse.
func decodeEntities(s string) string {
	for i := 0; i < 3 && (strings.Contains(s, "&lt;") || strings.Contains(s, "&amp;lt;")); i++ {
		s = html.UnescapeString(s)
	}
	return s
}

func isDuplicateTicket(fault string) bool {
	f := strings.ToLower(fault)
	return strings.Contains(f, "ya posee un ta valido") ||
		strings.Contains(f, "ya posee un ta válido") ||
		strings.Contains(f, "alreadyauthenticated")
}

func (etreeParser) ParseLoginResponse(raw []byte, now time.Time) (*LoginResult, error) {
	text := xmlDeclaration.ReplaceAllString(decodeEntities(string(raw)), "")

	var token, sign, expiration, fault string
	doc := newDocument()
	if err := doc.ReadFromString(text); err == nil {
		token = findText(&doc.Element, "//token")
		sign = findText(&doc.Element, "//sign")
		expiration = findText(&doc.Element, "//header/expirationTime")
		fault = findText(&doc.Element, "//faultstring")
		if fault == "" {
			fault = findText(&doc.Element, "//faultcode")
		}
	} else {
		// Contenido con '&' sueltos tras el desescapado: se extrae por texto.
		token = firstGroup(tokenRe, text)
		sign = firstGroup(signRe, text)
		expiration = firstGroup(expirationRe, text)
		fault = firstGroup(faultRe, text)
	}

	if token != "" && sign != "" {
		expiresAt, err := parseAFIPTime(expiration)
		if err != nil {
			expiresAt = now.Add(loginTTLFallback)
		}
		return &LoginResult{Token: token, Sign: sign, ExpiresAt: expiresAt}, nil
	}
	if fault != "" {
		if isDuplicateTicket(fault) {
			return &LoginResult{AlreadyAuthenticated: true}, nil
		}
		return nil, &RawResponseError{Err: fmt.Errorf("%w: %s", domain.ErrAuthentication, fault), Raw: string(raw)}
	}
	return nil, &RawResponseError{Err: fmt.Errorf("%w: respuesta WSAA sin credenciales", domain.ErrTransport), Raw: string(raw)}
}

func (p etreeParser) ParseLastAuthorized(raw []byte) (int64, error) {
	result, err := p.result(raw, "FECompUltimoAutorizadoResult")
	if err != nil {
		return 0, err
	}
	if errs := messages(result, "Errors/Err"); len(errs) > 0 {
		if isNoResults(errs) {
			return 0, nil
		}
		return 0, p.wsfeError(errs, raw)
	}
	n, err := strconv.ParseInt(findText(result, "CbteNro"), 10, 64)
	if err != nil {
		return 0, &RawResponseError{Err: fmt.Errorf("%w: CbteNro ilegible", domain.ErrTransport), Raw: string(raw)}
	}
	return n, nil
}

func (p etreeParser) ParseAuthorization(raw []byte) (*AuthorizationResult, error) {
	result, err := p.result(raw, "FECAESolicitarResult")
	if err != nil {
		return nil, err
	}
	out := &AuthorizationResult{
		Result: findText(result, "FeCabResp/Resultado"),
		Errors: messages(result, "Errors/Err"),
		Raw:    string(raw),
	}
	if isAuthFailure(out.Errors) {
		return nil, p.wsfeError(out.Errors, raw)
	}
	if det := result.FindElement("FeDetResp/FECAEDetResponse"); det != nil {
		if r := findText(det, "Resultado"); r != "" {
			out.Result = r
		}
		out.Number, _ = strconv.ParseInt(findText(det, "CbteDesde"), 10, 64)
		out.CAE = findText(det, "CAE")
		out.Observations = messages(det, "Observaciones/Obs")
		if vto := findText(det, "CAEFchVto"); vto != "" {
			t, err := time.Parse(afipDateLayout, vto)
			if err != nil {
				return nil, &RawResponseError{Err: fmt.Errorf("%w: CAEFchVto ilegible %q", domain.ErrTransport, vto), Raw: string(raw)}
			}
			out.CAEExpiresAt = t
		}
	}
	return out, nil
}

func (p etreeParser) ParseQuery(raw []byte) (*VoucherRecord, error) {
	result, err := p.result(raw, "FECompConsultarResult")
	if err != nil {
		return nil, err
	}
	if errs := messages(result, "Errors/Err"); len(errs) > 0 {
		if isNoResults(errs) {
			return nil, fmt.Errorf("%w: comprobante inexistente en AFIP", domain.ErrNotFound)
		}
		return nil, p.wsfeError(errs, raw)
	}
	get := result.FindElement("ResultGet")
	if get == nil {
		return nil, &RawResponseError{Err: fmt.Errorf("%w: FECompConsultar sin ResultGet", domain.ErrTransport), Raw: string(raw)}
	}
	rec := &VoucherRecord{
		VoucherCode:  atoi(findText(get, "CbteTipo")),
		SalesPoint:   atoi(findText(get, "PtoVta")),
		ConceptCode:  atoi(findText(get, "Concepto")),
		DocType:      atoi(findText(get, "DocTipo")),
		DocNumber:    findText(get, "DocNro"),
		Total:        decimalOrZero(findText(get, "ImpTotal")),
		Net:          decimalOrZero(findText(get, "ImpNeto")),
		VAT:          decimalOrZero(findText(get, "ImpIVA")),
		Currency:     findText(get, "MonId"),
		ExchangeRate: decimalOrZero(findText(get, "MonCotiz")),
		Result:       findText(get, "Resultado"),
		CAE:          findText(get, "CodAutorizacion"),
		ServiceFrom:  optionalDate(findText(get, "FchServDesde")),
		ServiceTo:    optionalDate(findText(get, "FchServHasta")),
		PaymentDue:   optionalDate(findText(get, "FchVtoPago")),
		Raw:          string(raw),
	}
	rec.Number, _ = strconv.ParseInt(findText(get, "CbteDesde"), 10, 64)
	if d := optionalDate(findText(get, "CbteFch")); d != nil {
		rec.IssueDate = *d
	}
	if d := optionalDate(findText(get, "FchVto")); d != nil {
		rec.CAEExpiresAt = *d
	}
	return rec, nil
}

// result ubica el nodo <Operación>Result; si no está, interpreta el SOAP Fault.
func (etreeParser) result(raw []byte, tag string) (*etree.Element, error) {
	doc := newDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, &RawResponseError{Err: fmt.Errorf("%w: XML ilegible: %v", domain.ErrTransport, err), Raw: string(raw)}
	}
	if el := doc.FindElement("//" + tag); el != nil {
		return el, nil
	}
	if fault := findText(&doc.Element, "//faultstring"); fault != "" {
		return nil, &RawResponseError{Err: fmt.Errorf("%w: SOAP Fault: %s", domain.ErrTransport, fault), Raw: string(raw)}
	}
	return nil, &RawResponseError{Err: fmt.Errorf("%w: respuesta sin %s", domain.ErrTransport, tag), Raw: string(raw)}
}

func (etreeParser) wsfeError(errs []Message, raw []byte) error {
	if isAuthFailure(errs) {
		return &RawResponseError{Err: fmt.Errorf("%w: %d %s", domain.ErrAuthentication, errs[0].Code, errs[0].Msg), Raw: string(raw)}
	}
	return &RawResponseError{Err: &domain.RejectionError{Code: errs[0].Code, Message: errs[0].Msg}, Raw: string(raw)}
}

func isNoResults(errs []Message) bool {
	for _, e := range errs {
		msg := strings.ToLower(e.Msg)
		if e.Code == wsfeNoResults || strings.Contains(msg, "no existen comprobantes") || strings.Contains(msg, "no se encontraron") {
			return true
		}
	}
	return false
}

func isAuthFailure(errs []Message) bool {
	for _, e := range errs {
		if e.Code >= wsfeAuthErrorMin && e.Code <= wsfeAuthErrorMax {
			return true
		}
	}
	return false
}

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	return doc
}

// charsetReader decodifica respuestas declaradas en ISO-8859-1 u otros charsets IANA.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return input, nil
	}
	return enc.NewDecoder().Reader(input), nil
}

func findText(el *etree.Element, path string) string {
	if found := el.FindElement(path); found != nil {
		return strings.TrimSpace(found.Text())
	}
	return ""
}

func messages(el *etree.Element, path string) []Message {
	var out []Message
	for _, m := range el.FindElements(path) {
		out = append(out, Message{Code: atoi(findText(m, "Code")), Msg: findText(m, "Msg")})
	}
	return out
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// optionalDate interpreta una fecha AAAAMMDD como medianoche UTC, la misma forma
// en que pgx devuelve las columnas DATE.
func optionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(afipDateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func parseAFIPTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("vacío")
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999-07:00", time.RFC3339Nano, traTimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("formato de fecha desconocido %q", s)
}
