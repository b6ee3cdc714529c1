package cli

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
	pkgafip "github.com/jhoicas/facturador-afip/pkg/afip"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	accountID, certFile, keyFile, validateAt = "", "", "", ""
	keyCUIT, keyOrg = "", ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func selfSign(t *testing.T, keyPEM string, notAfter time.Time) string {
	t.Helper()
	key, err := afip.ParsePrivateKey(keyPEM)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "facturacion", SerialNumber: "CUIT 20123456786"},
		NotBefore:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func TestKeygen_SinCuentaEscribeArchivos(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "keygen", "--cuit", "20-12345678-6", "--org", "Estudio Núñez", "--out", dir)
	require.NoError(t, err)

	keyPEM, err := os.ReadFile(filepath.Join(dir, keyFileName))
	require.NoError(t, err)
	_, err = afip.ParsePrivateKey(string(keyPEM))
	require.NoError(t, err)

	csrPEM, err := os.ReadFile(filepath.Join(dir, csrFileName))
	require.NoError(t, err)
	block, _ := pem.Decode(csrPEM)
	require.NotNil(t, block)
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	require.NoError(t, err)
	assert.NoError(t, csr.CheckSignature())

	info, err := os.Stat(filepath.Join(dir, keyFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.Contains(t, out, "serialNumber=CUIT 20123456786")
	assert.Contains(t, out, "/O=Estudio Nunez")
	assert.Contains(t, out, "openssl req -new")
}

func TestKeygen_SinCuentaRequiereCUIT(t *testing.T) {
	_, err := run(t, "keygen", "--org", "Estudio", "--out", t.TempDir())
	assert.Error(t, err)
}

func TestValidateCert_Archivos(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "keygen", "--cuit", "20123456786", "--org", "Estudio", "--out", dir)
	require.NoError(t, err)
	keyPath := filepath.Join(dir, keyFileName)
	keyPEM, err := os.ReadFile(keyPath)
	require.NoError(t, err)

	certPath := filepath.Join(dir, "facturacion.crt")
	require.NoError(t, os.WriteFile(certPath, []byte(selfSign(t, string(keyPEM), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))), 0o644))

	out, err := run(t, "validate-cert", "--cert", certPath, "--key", keyPath, "--at", "2026-03-10")
	require.NoError(t, err)
	assert.Contains(t, out, "facturacion")
	assert.Contains(t, out, `"Expired": false`)

	out, err = run(t, "validate-cert", "--cert", certPath, "--key", keyPath, "--at", "2027-06-01")
	assert.Error(t, err)
	assert.Contains(t, out, `"Expired": true`)
}

func TestValidateCert_LlaveDeOtroCertificado(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	_, err := run(t, "keygen", "--cuit", "20123456786", "--org", "A", "--out", dirA)
	require.NoError(t, err)
	_, err = run(t, "keygen", "--cuit", "20123456786", "--org", "B", "--out", dirB)
	require.NoError(t, err)

	keyA, err := os.ReadFile(filepath.Join(dirA, keyFileName))
	require.NoError(t, err)
	certPath := filepath.Join(dirA, "a.crt")
	require.NoError(t, os.WriteFile(certPath, []byte(selfSign(t, string(keyA), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))), 0o644))

	_, err = run(t, "validate-cert", "--cert", certPath, "--key", filepath.Join(dirB, keyFileName), "--at", "2026-03-10")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no corresponde"))
}

func TestNewAccount(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	newCUIT, newLegalName, newSalesPoint, newRegime = "20-12345678-6", "Estudio", 3, pkgafip.RegimeMonotributo
	acc, err := newAccount(now)
	require.NoError(t, err)
	assert.Equal(t, "20123456786", acc.CUIT)
	assert.Equal(t, 3, acc.SalesPoint)
	assert.NotEmpty(t, acc.ID)
	assert.Equal(t, now, acc.CreatedAt)

	newCUIT = "20123456780"
	_, err = newAccount(now)
	assert.Error(t, err, "dígito verificador incorrecto")

	newCUIT, newSalesPoint = "20123456786", 0
	_, err = newAccount(now)
	assert.Error(t, err)

	newSalesPoint, newRegime = 3, "autonomo"
	_, err = newAccount(now)
	assert.Error(t, err)
}

func TestAuthorize_RequiereCuenta(t *testing.T) {
	_, err := run(t, "authorize", "--invoice", "x")
	assert.ErrorContains(t, err, "--account")
}
