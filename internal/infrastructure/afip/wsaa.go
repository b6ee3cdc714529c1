package afip

import (
	"context"
	"encoding/xml"

	"github.com/jhoicas/facturador-afip/pkg/logger"
)

// loginCmsRequest cuerpo de la operación loginCms de WSAA.
type loginCmsRequest struct {
	XMLName xml.Name `xml:"wsaa:loginCms"`
	In0     string   `xml:"wsaa:in0"`
}

// WSAAClient cliente del Web Service de Autenticación y Autorización.
type WSAAClient struct {
	env       Environment
	service   string
	transport *soapTransport
	parser    ResponseParser
	opts      Options
	log       *logger.Logger
}

// NewWSAAClient crea el cliente para el ambiente y servicio indicados (service vacío = wsfe).
func NewWSAAClient(env Environment, service string, opts Options) *WSAAClient {
	opts = opts.withDefaults()
	if service == "" {
		service = DefaultService
	}
	return &WSAAClient{
		env:       env,
		service:   service,
		transport: newSOAPTransport(opts, "wsaa"),
		parser:    NewResponseParser(),
		opts:      opts,
		log:       opts.Logger.Component("wsaa"),
	}
}

// Environment ambiente contra el que opera el cliente.
func (c *WSAAClient) Environment() Environment { return c.env }

// Login arma el TRA, lo firma y lo presenta a loginCms.
// Los errores de certificado se informan antes de cualquier llamada de red.
func (c *WSAAClient) Login(ctx context.Context, certPEM, keyPEM string) (*LoginResult, error) {
	now := c.opts.Now()
	tra, err := BuildTicketRequest(now, c.service)
	if err != nil {
		return nil, err
	}
	cms, err := SignTicket(tra, certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	envelope := newEnvelope("wsaa", wsaaNS, loginCmsRequest{In0: cms})
	raw, err := c.transport.call(ctx, c.env.WSAAURL(), "", envelope)
	if err != nil {
		return nil, err
	}
	result, err := c.parser.ParseLoginResponse(raw, now)
	if err != nil {
		c.log.Warn().Err(err).Str("env", c.env.String()).Msg("loginCms rechazado")
		return nil, err
	}
	if result.AlreadyAuthenticated {
		c.log.Info().Str("env", c.env.String()).Msg("WSAA informa un TA vigente")
	} else {
		c.log.Debug().Time("expires_at", result.ExpiresAt).Msg("TA obtenido")
	}
	return result, nil
}
