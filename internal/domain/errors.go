package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Taxonomía de errores del cliente AFIP. Toda falla de red o de parseo se traduce
// a uno de estos antes de salir de la capa de infraestructura.
var (
	// ErrCertificateFormat certificado o llave ilegible; requiere volver a cargarlos.
	ErrCertificateFormat = errors.New("certificado o llave privada con formato inválido")
	// ErrSigning falla criptográfica al construir el CMS.
	ErrSigning = errors.New("error al firmar el ticket de acceso")
	// ErrAuthentication WSAA rechazó el ticket firmado.
	ErrAuthentication = errors.New("AFIP rechazó la autenticación")
	// ErrStaleTokenState WSAA informa un TA vigente pero no hay uno en caché. Transitorio.
	ErrStaleTokenState = errors.New("AFIP informa un ticket vigente que no está en caché")
	// ErrTransport red, timeout o respuesta HTTP inesperada. Transitorio.
	ErrTransport = errors.New("error de comunicación con AFIP")
	// ErrAuthorityRejection rechazo de negocio del comprobante.
	ErrAuthorityRejection = errors.New("AFIP rechazó el comprobante")
	// ErrValidation datos inválidos detectados antes de llamar a AFIP.
	ErrValidation = errors.New("validación fallida")
)

// RejectionError rechazo de AFIP con el código y mensaje informados por el WS.
type RejectionError struct {
	Code    int
	Message string
	// Observation indica que provino de un bloque Obs (sin CAE) y no de Err.
	Observation bool
}

func (e *RejectionError) Error() string {
	if e.Observation {
		return fmt.Sprintf("Observación %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("Error %d: %s", e.Code, e.Message)
}

// Unwrap permite errors.Is(err, ErrAuthorityRejection).
func (e *RejectionError) Unwrap() error { return ErrAuthorityRejection }

// IsTransient informa si conviene reintentar la operación más tarde.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrStaleTokenState)
}

// Validationf construye un ErrValidation con detalle.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
