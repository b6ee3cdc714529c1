package afip

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jhoicas/facturador-afip/internal/domain"
	"github.com/jhoicas/facturador-afip/pkg/logger"
)

const (
	soapNS   = "http://schemas.xmlsoap.org/soap/envelope/"
	wsaaNS   = "http://wsaa.view.sua.dvadac.desein.afip.gov"
	wsfeNS   = "http://ar.gov.afip.dif.FEV1/"
	maxReply = 1 << 20 // 1 MB
)

// Options parámetros comunes de los clientes WSAA y WSFE.
type Options struct {
	HTTPClient    *http.Client  // nil = cliente propio con Timeout
	Timeout       time.Duration // por request; AFIP suele ser lento
	MaxRetries    int           // reintentos ante errores de transporte
	RetryInterval time.Duration // intervalo inicial del backoff exponencial
	Logger        *logger.Logger
	Now           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 500 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName    xml.Name   `xml:"soapenv:Envelope"`
	XmlnsS     string     `xml:"xmlns:soapenv,attr"`
	Namespaces []xml.Attr `xml:",any,attr"`
	Header     soapHeader `xml:"soapenv:Header"`
	Body       soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func newEnvelope(prefix, namespace string, content interface{}) soapEnvelope {
	return soapEnvelope{
		XmlnsS:     soapNS,
		Namespaces: []xml.Attr{{Name: xml.Name{Local: "xmlns:" + prefix}, Value: namespace}},
		Body:       soapBody{Content: content},
	}
}

// RawResponseError conserva la respuesta cruda de AFIP junto al error clasificado,
// para que el llamador pueda auditarla.
type RawResponseError struct {
	Err error
	Raw string
}

func (e *RawResponseError) Error() string { return e.Err.Error() }
func (e *RawResponseError) Unwrap() error { return e.Err }

// RawFromError extrae la respuesta cruda si el error la trae.
func RawFromError(err error) string {
	var rawErr *RawResponseError
	if errors.As(err, &rawErr) {
		return rawErr.Raw
	}
	return ""
}

// ── Transporte ────────────────────────────────────────────────────────────────

// soapTransport envía sobres SOAP 1.1 por HTTPS POST con reintentos exponenciales
// ante errores de red, timeouts y 502/503/504.
type soapTransport struct {
	opts Options
	log  *logger.Logger
}

func newSOAPTransport(opts Options, component string) *soapTransport {
	return &soapTransport{opts: opts, log: opts.Logger.Component(component)}
}

// call serializa el sobre, lo envía y devuelve el cuerpo de la respuesta.
// Un HTTP 500 con cuerpo se devuelve tal cual: AFIP informa los SOAP Fault con ese código.
func (t *soapTransport) call(ctx context.Context, url, action string, envelope soapEnvelope) ([]byte, error) {
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}
	payload = append([]byte(xml.Header), payload...)

	var body []byte
	attempt := 0
	operation := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("crear request: %v", err))
		}
		req.Header.Set("Content-Type", "text/xml; charset=utf-8")
		req.Header.Set("SOAPAction", action)

		resp, err := t.opts.HTTPClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(fmt.Errorf("timeout o cancelación: %v", ctx.Err()))
			}
			t.log.Warn().Err(err).Int("attempt", attempt).Str("action", action).Msg("llamada SOAP fallida")
			return fmt.Errorf("llamada HTTP fallida: %v", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReply))
		if err != nil {
			return fmt.Errorf("leer respuesta: %v", err)
		}
		switch {
		case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusInternalServerError && len(raw) > 0:
			body = raw
			return nil
		case resp.StatusCode == http.StatusBadGateway, resp.StatusCode == http.StatusServiceUnavailable,
			resp.StatusCode == http.StatusGatewayTimeout:
			t.log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Str("action", action).Msg("AFIP no disponible")
			return fmt.Errorf("HTTP %d", resp.StatusCode)
		default:
			return backoff.Permanent(&RawResponseError{Err: fmt.Errorf("HTTP %d inesperado", resp.StatusCode), Raw: string(raw)})
		}
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = t.opts.RetryInterval
	exp.MaxElapsedTime = 0 // lo acota WithMaxRetries
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(t.opts.MaxRetries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		raw := RawFromError(err)
		return nil, &RawResponseError{Err: fmt.Errorf("%w: %s: %v", domain.ErrTransport, url, err), Raw: raw}
	}
	return body, nil
}
