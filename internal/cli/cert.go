package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturador-afip/internal/application/dto"
	"github.com/jhoicas/facturador-afip/internal/bootstrap"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
)

var (
	certFile   string
	keyFile    string
	p12File    string
	p12Pass    string
	validateAt string
)

var uploadCertCmd = &cobra.Command{
	Use:   "upload-cert",
	Short: "Cargar el certificado emitido por AFIP en la cuenta",
	Example: `  afipctl upload-cert -a <cuenta> --cert facturacion.crt
  afipctl upload-cert -a <cuenta> --cert facturacion.crt --key privada.key
  afipctl upload-cert -a <cuenta> --p12 facturacion.p12 --password secreto`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAccount(); err != nil {
			return err
		}
		if (certFile == "") == (p12File == "") {
			return fmt.Errorf("indicar --cert o --p12")
		}
		return withBilling(cmd.Context(), func(deps *bootstrap.Billing) error {
			var (
				status *dto.CertificateStatus
				err    error
			)
			if p12File != "" {
				bundle, rerr := os.ReadFile(p12File)
				if rerr != nil {
					return rerr
				}
				status, err = deps.Service.UploadPKCS12(cmd.Context(), accountID, encodeBase64(bundle), p12Pass)
			} else {
				certPEM, keyPEM, rerr := readPair(certFile, keyFile)
				if rerr != nil {
					return rerr
				}
				status, err = deps.Service.UploadCertificate(cmd.Context(), accountID, certPEM, keyPEM)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, status)
		})
	},
}

var validateCertCmd = &cobra.Command{
	Use:   "validate-cert",
	Short: "Verificar certificado y llave (de la cuenta o de archivos)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if accountID != "" {
			return withBilling(cmd.Context(), func(deps *bootstrap.Billing) error {
				status, err := deps.Service.ValidateCertificate(cmd.Context(), accountID)
				if err != nil {
					return err
				}
				if err := printJSON(cmd, status); err != nil {
					return err
				}
				if !status.Valid {
					return fmt.Errorf("certificado inválido: %s", status.Message)
				}
				return nil
			})
		}
		if certFile == "" || keyFile == "" {
			return fmt.Errorf("sin --account se requieren --cert y --key")
		}
		now := time.Now()
		if validateAt != "" {
			t, err := time.Parse("2006-01-02", validateAt)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			now = t
		}
		certPEM, keyPEM, err := readPair(certFile, keyFile)
		if err != nil {
			return err
		}
		info, err := afip.ValidatePair(certPEM, keyPEM, now)
		if info != nil {
			if perr := printJSON(cmd, info); perr != nil {
				return perr
			}
		}
		return err
	},
}

func readPair(certPath, keyPath string) (certPEM, keyPEM string, err error) {
	c, err := os.ReadFile(certPath)
	if err != nil {
		return "", "", err
	}
	if keyPath == "" {
		return string(c), "", nil
	}
	k, err := os.ReadFile(keyPath)
	if err != nil {
		return "", "", err
	}
	return string(c), string(k), nil
}

func init() {
	rootCmd.AddCommand(uploadCertCmd, validateCertCmd)

	for _, c := range []*cobra.Command{uploadCertCmd, validateCertCmd} {
		c.Flags().StringVar(&certFile, "cert", "", "Certificado X.509 (PEM)")
		c.Flags().StringVar(&keyFile, "key", "", "Llave privada (PEM); se omite si la cuenta tiene una pendiente")
	}
	uploadCertCmd.Flags().StringVar(&p12File, "p12", "", "Archivo PKCS#12 (.p12/.pfx)")
	uploadCertCmd.Flags().StringVar(&p12Pass, "password", "", "Contraseña del PKCS#12")
	validateCertCmd.Flags().StringVar(&validateAt, "at", "", "Fecha de referencia (YYYY-MM-DD)")
}
