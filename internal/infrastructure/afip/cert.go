package afip

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/facturador-afip/internal/domain"
)

const (
	pemCertificate   = "CERTIFICATE"
	pemPrivateKey    = "PRIVATE KEY"
	pemRSAPrivateKey = "RSA PRIVATE KEY"
)

var (
	pemArmor   = regexp.MustCompile(`-----BEGIN ([A-Z0-9 ]+)-----([\s\S]*?)-----END ([A-Z0-9 ]+)-----`)
	whitespace = regexp.MustCompile(`\s+`)
)

// NormalizeCertificatePEM acepta un certificado en PEM (aun con saltos de línea dañados)
// o base64 crudo del DER y devuelve un PEM válido con encabezado CERTIFICATE.
func NormalizeCertificatePEM(material string) (string, error) {
	der, _, err := decodeMaterial(material)
	if err != nil {
		return "", fmt.Errorf("%w: certificado: %v", domain.ErrCertificateFormat, err)
	}
	if _, err := x509.ParseCertificate(der); err != nil {
		return "", fmt.Errorf("%w: certificado: %v", domain.ErrCertificateFormat, err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemCertificate, Bytes: der})), nil
}

// NormalizePrivateKeyPEM idem para la llave: detecta PKCS#8 o PKCS#1 y usa el encabezado correcto.
func NormalizePrivateKeyPEM(material string) (string, error) {
	der, _, err := decodeMaterial(material)
	if err != nil {
		return "", fmt.Errorf("%w: llave privada: %v", domain.ErrCertificateFormat, err)
	}
	if _, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return string(pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: der})), nil
	}
	if _, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return string(pem.EncodeToMemory(&pem.Block{Type: pemRSAPrivateKey, Bytes: der})), nil
	}
	return "", fmt.Errorf("%w: llave privada: ni PKCS#8 ni PKCS#1", domain.ErrCertificateFormat)
}

// decodeMaterial obtiene el DER de un PEM o de base64 crudo.
func decodeMaterial(material string) ([]byte, string, error) {
	s := strings.TrimSpace(strings.ReplaceAll(material, `\n`, "\n"))
	if s == "" {
		return nil, "", fmt.Errorf("material vacío")
	}
	if block, _ := pem.Decode([]byte(s)); block != nil {
		return block.Bytes, block.Type, nil
	}
	if m := pemArmor.FindStringSubmatch(s); m != nil {
		der, err := base64.StdEncoding.DecodeString(whitespace.ReplaceAllString(m[2], ""))
		if err != nil {
			return nil, "", fmt.Errorf("PEM ilegible: %v", err)
		}
		return der, m[1], nil
	}
	der, err := base64.StdEncoding.DecodeString(whitespace.ReplaceAllString(s, ""))
	if err != nil {
		return nil, "", fmt.Errorf("no es PEM ni base64: %v", err)
	}
	return der, "", nil
}

// ParseCertificate interpreta el certificado X.509 emitido por AFIP.
func ParseCertificate(material string) (*x509.Certificate, error) {
	der, _, err := decodeMaterial(material)
	if err != nil {
		return nil, fmt.Errorf("%w: certificado: %v", domain.ErrCertificateFormat, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: certificado: %v", domain.ErrCertificateFormat, err)
	}
	return cert, nil
}

// ParsePrivateKey interpreta una llave RSA en PKCS#8 o PKCS#1. Una llave no RSA es ErrSigning.
func ParsePrivateKey(material string) (*rsa.PrivateKey, error) {
	der, _, err := decodeMaterial(material)
	if err != nil {
		return nil, fmt.Errorf("%w: llave privada: %v", domain.ErrCertificateFormat, err)
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: la llave privada no es RSA (%T)", domain.ErrSigning, key)
		}
		return rsaKey, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: llave privada: %v", domain.ErrCertificateFormat, err)
	}
	return key, nil
}

// LoadKeyPair interpreta certificado y llave y verifica que sean pareja.
func LoadKeyPair(certPEM, keyPEM string) (*x509.Certificate, *rsa.PrivateKey, error) {
	if strings.TrimSpace(certPEM) == "" || strings.TrimSpace(keyPEM) == "" {
		return nil, nil, fmt.Errorf("%w: falta el certificado o la llave privada", domain.ErrCertificateFormat)
	}
	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return nil, nil, err
	}
	key, err := ParsePrivateKey(keyPEM)
	if err != nil {
		return nil, nil, err
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("%w: el certificado no tiene llave pública RSA", domain.ErrSigning)
	}
	if !pub.Equal(&key.PublicKey) {
		return nil, nil, fmt.Errorf("%w: la llave privada no corresponde al certificado", domain.ErrSigning)
	}
	return cert, key, nil
}

// CertificateInfo resumen del certificado vigente de una cuenta.
type CertificateInfo struct {
	Subject   string
	Issuer    string
	NotBefore time.Time
	NotAfter  time.Time
	Expired   bool
}

// ValidatePair verifica la pareja certificado/llave y su vigencia en now.
// Un certificado vencido devuelve la info y un ErrCertificateFormat.
func ValidatePair(certPEM, keyPEM string, now time.Time) (*CertificateInfo, error) {
	cert, _, err := LoadKeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	info := &CertificateInfo{
		Subject:   cert.Subject.String(),
		Issuer:    cert.Issuer.String(),
		NotBefore: cert.NotBefore,
		NotAfter:  cert.NotAfter,
		Expired:   now.After(cert.NotAfter),
	}
	if info.Expired {
		return info, fmt.Errorf("%w: certificado vencido el %s", domain.ErrCertificateFormat, cert.NotAfter.Format("2006-01-02"))
	}
	if now.Before(cert.NotBefore) {
		return info, fmt.Errorf("%w: certificado vigente recién desde %s", domain.ErrCertificateFormat, cert.NotBefore.Format("2006-01-02"))
	}
	return info, nil
}

// EncodePrivateKeyPEM serializa la llave en PKCS#8.
func EncodePrivateKeyPEM(key *rsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", fmt.Errorf("serializar llave: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: der})), nil
}

// LoadPKCS12 convierte un .p12/.pfx en el par PEM certificado + llave.
func LoadPKCS12(data []byte, password string) (certPEM, keyPEM string, err error) {
	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return "", "", fmt.Errorf("%w: p12: %v", domain.ErrCertificateFormat, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return "", "", fmt.Errorf("%w: la llave del p12 no es RSA (%T)", domain.ErrSigning, key)
	}
	keyPEM, err = EncodePrivateKeyPEM(rsaKey)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrSigning, err)
	}
	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: pemCertificate, Bytes: cert.Raw}))
	return certPEM, keyPEM, nil
}
