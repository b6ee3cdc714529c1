// Package afip implementa el cliente de los web services de AFIP: autenticación WSAA
// (TRA firmado en CMS) y factura electrónica WSFEv1 (último autorizado, CAE, consulta).
package afip

import (
	"fmt"
	"strings"
)

// Environment ambiente de AFIP con su par de endpoints. Solo existen Testing y Production;
// los certificados y tickets de uno son rechazados por el otro.
type Environment struct {
	name    string
	wsaaURL string
	wsfeURL string
}

var (
	// Testing ambiente de homologación.
	Testing = Environment{
		name:    "testing",
		wsaaURL: "https://wsaahomo.afip.gov.ar/ws/services/LoginCms",
		wsfeURL: "https://wswhomo.afip.gov.ar/wsfev1/service.asmx",
	}
	// Production ambiente de producción.
	Production = Environment{
		name:    "production",
		wsaaURL: "https://wsaa.afip.gov.ar/ws/services/LoginCms",
		wsfeURL: "https://servicios1.afip.gov.ar/wsfev1/service.asmx",
	}
)

// ParseEnvironment resuelve el ambiente desde la configuración ("testing" | "production").
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case Testing.name, "homologacion", "homo":
		return Testing, nil
	case Production.name, "produccion", "prod":
		return Production, nil
	}
	return Environment{}, fmt.Errorf("afip: ambiente desconocido %q (usar testing|production)", s)
}

func (e Environment) String() string { return e.name }

// WSAAURL endpoint LoginCms.
func (e Environment) WSAAURL() string { return e.wsaaURL }

// WSFEURL endpoint del servicio WSFEv1.
func (e Environment) WSFEURL() string { return e.wsfeURL }

// WithEndpoints devuelve el mismo ambiente apuntando a otros endpoints (proxies, tests).
func (e Environment) WithEndpoints(wsaaURL, wsfeURL string) Environment {
	e.wsaaURL = wsaaURL
	e.wsfeURL = wsfeURL
	return e
}
