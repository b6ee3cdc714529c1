package afip

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/ucarion/c14n"
)

// DefaultService servicio de negocio solicitado en el TRA.
const DefaultService = "wsfe"

// traTimeLayout formato ISO-8601 con offset numérico; WSAA rechaza la forma "Z".
const traTimeLayout = "2006-01-02T15:04:05-07:00"

// argentinaTZ hora oficial argentina (UTC-03:00, sin horario de verano).
var argentinaTZ = time.FixedZone("ART", -3*60*60)

type ticketRequest struct {
	XMLName xml.Name     `xml:"loginTicketRequest"`
	Version string       `xml:"version,attr"`
	Header  ticketHeader `xml:"header"`
	Service string       `xml:"service"`
}

type ticketHeader struct {
	UniqueID       int64  `xml:"uniqueId"`
	GenerationTime string `xml:"generationTime"`
	ExpirationTime string `xml:"expirationTime"`
}

// BuildTicketRequest arma el Ticket de Requerimiento de Acceso (TRA) para WSAA.
// generationTime = now - 1 min y expirationTime = now + 10 min absorben el desfasaje
// de reloj con AFIP. El XML se canonicaliza para que los bytes firmados sean deterministas.
func BuildTicketRequest(now time.Time, service string) ([]byte, error) {
	if strings.TrimSpace(service) == "" {
		service = DefaultService
	}
	local := now.In(argentinaTZ)
	tra := ticketRequest{
		Version: "1.0",
		Header: ticketHeader{
			UniqueID:       now.Unix(),
			GenerationTime: local.Add(-time.Minute).Format(traTimeLayout),
			ExpirationTime: local.Add(10 * time.Minute).Format(traTimeLayout),
		},
		Service: service,
	}
	raw, err := xml.Marshal(tra)
	if err != nil {
		return nil, fmt.Errorf("tra: serializar: %w", err)
	}
	canon, err := c14n.Canonicalize(xml.NewDecoder(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("tra: canonicalizar: %w", err)
	}
	return append([]byte(`<?xml version="1.0" encoding="UTF-8"?>`+"\n"), canon...), nil
}
