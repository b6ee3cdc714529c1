package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturador-afip/internal/application/dto"
	"github.com/jhoicas/facturador-afip/internal/bootstrap"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
)

const (
	keyFileName = "privada.key"
	csrFileName = "pedido.csr"
)

var (
	keyCUIT     string
	keyOrg      string
	keyCN       string
	keyState    string
	keyLocality string
	keyEmail    string
	keyOutDir   string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generar llave RSA-2048 y pedido de certificado (CSR) para AFIP",
	Long: `Genera la llave privada y el CSR que se presenta en AFIP para obtener el certificado de WS.

Con --account la llave queda pendiente en la cuenta hasta subir el certificado.
Sin --account trabaja solo sobre archivos (requiere --cuit y --org).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var km *dto.KeyMaterialResponse
		if accountID != "" {
			err := withBilling(cmd.Context(), func(deps *bootstrap.Billing) error {
				var err error
				km, err = deps.Service.GenerateKeyMaterial(cmd.Context(), accountID, dto.KeyMaterialRequest{
					State:        keyState,
					Locality:     keyLocality,
					Organization: keyOrg,
					CommonName:   keyCN,
					Email:        keyEmail,
				})
				return err
			})
			if err != nil {
				return err
			}
		} else {
			var err error
			if km, err = offlineKeyMaterial(); err != nil {
				return err
			}
		}
		if err := writeKeyMaterial(keyOutDir, km); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "llave: %s\n", filepath.Join(keyOutDir, keyFileName))
		fmt.Fprintf(out, "csr:   %s\n", filepath.Join(keyOutDir, csrFileName))
		fmt.Fprintf(out, "subject: %s\n", km.Subject)
		fmt.Fprintf(out, "equivalente openssl: %s\n", km.Command)
		return nil
	},
}

func offlineKeyMaterial() (*dto.KeyMaterialResponse, error) {
	if keyCUIT == "" || keyOrg == "" {
		return nil, fmt.Errorf("sin --account se requieren --cuit y --org")
	}
	km, err := afip.GenerateKeyMaterial(afip.LegalIdentity{
		State:        keyState,
		Locality:     keyLocality,
		Organization: keyOrg,
		CUIT:         keyCUIT,
		CommonName:   keyCN,
		Email:        keyEmail,
	})
	if err != nil {
		return nil, err
	}
	return &dto.KeyMaterialResponse{
		PrivateKeyPEM: km.PrivateKeyPEM,
		Subject:       km.Subject,
		CSRPEM:        km.CSRPEM,
		Command:       km.ExternalCSRCommand,
	}, nil
}

func writeKeyMaterial(dir string, km *dto.KeyMaterialResponse) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, keyFileName), []byte(km.PrivateKeyPEM), 0o600); err != nil {
		return fmt.Errorf("escribir llave: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, csrFileName), []byte(km.CSRPEM), 0o644); err != nil {
		return fmt.Errorf("escribir csr: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVar(&keyCUIT, "cuit", "", "CUIT del titular (modo sin cuenta)")
	keygenCmd.Flags().StringVar(&keyOrg, "org", "", "Razón social (O)")
	keygenCmd.Flags().StringVar(&keyCN, "cn", "facturacion", "Alias del certificado (CN)")
	keygenCmd.Flags().StringVar(&keyState, "state", "", "Provincia (ST)")
	keygenCmd.Flags().StringVar(&keyLocality, "locality", "", "Localidad (L)")
	keygenCmd.Flags().StringVar(&keyEmail, "email", "", "Correo de contacto")
	keygenCmd.Flags().StringVarP(&keyOutDir, "out", "o", ".", "Directorio de salida")
}
