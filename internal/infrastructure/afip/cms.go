package afip

import (
	"encoding/base64"
	"fmt"

	"go.mozilla.org/pkcs7"

	"github.com/jhoicas/facturador-afip/internal/domain"
)

// SignTicket firma el TRA y devuelve el CMS (PKCS#7 SignedData) en base64, listo para loginCms.
// El contenido va embebido, con digest SHA-256, el certificado del firmante y los atributos
// autenticados content-type, message-digest y signing-time.
func SignTicket(tra []byte, certPEM, keyPEM string) (string, error) {
	cert, key, err := LoadKeyPair(certPEM, keyPEM)
	if err != nil {
		return "", err
	}
	sd, err := pkcs7.NewSignedData(tra)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSigning, err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := sd.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSigning, err)
	}
	der, err := sd.Finish()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSigning, err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}
