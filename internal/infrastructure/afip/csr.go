package afip

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/facturador-afip/internal/domain"
	pkgafip "github.com/jhoicas/facturador-afip/pkg/afip"
)

// RSAKeyBits tamaño de llave que exige AFIP para certificados de WS.
const RSAKeyBits = 2048

// LegalIdentity datos del titular que AFIP espera en el pedido de certificado.
type LegalIdentity struct {
	Country      string // default AR
	State        string
	Locality     string
	Organization string
	CUIT         string
	CommonName   string // alias del certificado
	Email        string
}

// KeyMaterial resultado del aprovisionamiento: la llave (que el emisor debe resguardar),
// el subject, el CSR PKCS#10 y el comando openssl equivalente.
type KeyMaterial struct {
	PrivateKeyPEM      string
	Subject            string
	CSRPEM             string
	ExternalCSRCommand string
}

var (
	oidCountry      = asn1.ObjectIdentifier{2, 5, 4, 6}
	oidState        = asn1.ObjectIdentifier{2, 5, 4, 8}
	oidLocality     = asn1.ObjectIdentifier{2, 5, 4, 7}
	oidOrganization = asn1.ObjectIdentifier{2, 5, 4, 10}
	oidSerialNumber = asn1.ObjectIdentifier{2, 5, 4, 5}
	oidCommonName   = asn1.ObjectIdentifier{2, 5, 4, 3}
	oidEmail        = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}
)

type subjectPart struct {
	key   string
	oid   asn1.ObjectIdentifier
	value string
}

// subjectParts normaliza la identidad en el orden C, ST, L, O, serialNumber, CN, emailAddress.
func (id LegalIdentity) subjectParts() ([]subjectPart, error) {
	cuit := pkgafip.NormalizeCUIT(id.CUIT)
	if err := pkgafip.ValidateCUIT(cuit); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	country := strings.ToUpper(strings.TrimSpace(id.Country))
	if country == "" {
		country = "AR"
	}
	cn := fold(id.CommonName)
	if cn == "" {
		return nil, fmt.Errorf("%w: falta el nombre común (alias) del certificado", domain.ErrValidation)
	}
	parts := []subjectPart{
		{"C", oidCountry, country},
		{"ST", oidState, fold(id.State)},
		{"L", oidLocality, fold(id.Locality)},
		{"O", oidOrganization, fold(id.Organization)},
		{"serialNumber", oidSerialNumber, "CUIT " + cuit},
		{"CN", oidCommonName, cn},
		{"emailAddress", oidEmail, strings.TrimSpace(id.Email)},
	}
	out := parts[:0]
	for _, p := range parts {
		if p.value != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// BuildSubject arma el subject en formato openssl (-subj).
func BuildSubject(id LegalIdentity) (string, error) {
	parts, err := id.subjectParts()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString("/" + p.key + "=" + strings.ReplaceAll(p.value, "/", `\/`))
	}
	return sb.String(), nil
}

// ExternalCSRCommand comando openssl para generar el CSR fuera del sistema.
func ExternalCSRCommand(subject string) string {
	return fmt.Sprintf(`openssl req -new -key privada.key -subj "%s" -out pedido.csr`, subject)
}

// GenerateKeyMaterial genera una llave RSA-2048 y el pedido de certificado para el titular.
func GenerateKeyMaterial(id LegalIdentity) (*KeyMaterial, error) {
	parts, err := id.subjectParts()
	if err != nil {
		return nil, err
	}
	subject, _ := BuildSubject(id)

	key, err := rsa.GenerateKey(rand.Reader, RSAKeyBits)
	if err != nil {
		return nil, fmt.Errorf("%w: generar llave RSA: %v", domain.ErrSigning, err)
	}
	keyPEM, err := EncodePrivateKeyPEM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSigning, err)
	}
	csrPEM, err := buildCSR(key, parts)
	if err != nil {
		return nil, err
	}
	return &KeyMaterial{
		PrivateKeyPEM:      keyPEM,
		Subject:            subject,
		CSRPEM:             csrPEM,
		ExternalCSRCommand: ExternalCSRCommand(subject),
	}, nil
}

func buildCSR(key *rsa.PrivateKey, parts []subjectPart) (string, error) {
	var name pkix.Name
	for _, p := range parts {
		name.ExtraNames = append(name.ExtraNames, pkix.AttributeTypeAndValue{Type: p.oid, Value: p.value})
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject:            name,
		SignatureAlgorithm: x509.SHA256WithRSA,
	}, key)
	if err != nil {
		return "", fmt.Errorf("%w: CSR: %v", domain.ErrSigning, err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der})), nil
}

// fold quita tildes y diéresis: el subject viaja en ASCII.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return out
}
