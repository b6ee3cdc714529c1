package entity

import "time"

// AccountConfig representa una cuenta de facturación (emisor) ante AFIP.
// Certificado y llave activa se guardan juntos o ninguno de los dos.
type AccountConfig struct {
	ID            string
	CUIT          string // solo dígitos
	LegalName     string
	FiscalAddress string
	SalesPoint    int    // Punto de venta habilitado para WSFEv1
	TaxRegime     string // monotributo, responsable_inscripto, exento (ver pkg/afip)

	CertificatePEM string
	PrivateKeyPEM  string
	// PendingPrivateKeyPEM llave generada por el aprovisionamiento que aún no tiene certificado.
	PendingPrivateKeyPEM string

	// Ticket de acceso WSAA en caché. Solo lo escribe TokenCache.Set.
	Token            string
	Sign             string
	TokenExpiresAt   *time.Time
	TokenEnvironment string // testing | production

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasCredentials informa si la cuenta tiene el par certificado + llave completo.
func (a *AccountConfig) HasCredentials() bool {
	return a.CertificatePEM != "" && a.PrivateKeyPEM != ""
}
