package dto

import "time"

// CertificateStatus estado del certificado WSAA de la cuenta.
type CertificateStatus struct {
	Valid         bool       `json:"valid"`
	Message       string     `json:"message"`
	Subject       string     `json:"subject,omitempty"`
	NotAfter      *time.Time `json:"not_after,omitempty"`
	HasPendingKey bool       `json:"has_pending_key"`
}

// UploadCertificateRequest body para PUT /api/account/certificate.
// Se acepta el par PEM (la llave puede omitirse si hay una pendiente) o un .p12 en base64.
type UploadCertificateRequest struct {
	Certificate string `json:"certificate,omitempty"`
	PrivateKey  string `json:"private_key,omitempty"`
	PKCS12      string `json:"pkcs12,omitempty"`
	Password    string `json:"password,omitempty"`
}

// KeyMaterialRequest body para POST /api/account/keys.
type KeyMaterialRequest struct {
	Country      string `json:"country,omitempty"`
	State        string `json:"state"`
	Locality     string `json:"locality"`
	Organization string `json:"organization"`
	CommonName   string `json:"common_name"`
	Email        string `json:"email,omitempty"`
}

// KeyMaterialResponse llave generada y pedido de certificado para presentar en AFIP.
type KeyMaterialResponse struct {
	PrivateKeyPEM string `json:"private_key_pem"`
	Subject       string `json:"subject"`
	CSRPEM        string `json:"csr_pem"`
	Command       string `json:"command"`
}
