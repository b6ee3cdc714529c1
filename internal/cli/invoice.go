package cli

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturador-afip/internal/bootstrap"
	pkgafip "github.com/jhoicas/facturador-afip/pkg/afip"
)

var (
	voucherTypeName string
	invoiceID       string
	syncAll         bool
)

var nextNumberCmd = &cobra.Command{
	Use:   "next-number",
	Short: "Consultar en AFIP el próximo número a autorizar",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAccount(); err != nil {
			return err
		}
		vt, err := pkgafip.ParseVoucherType(voucherTypeName)
		if err != nil {
			return err
		}
		return withBilling(cmd.Context(), func(deps *bootstrap.Billing) error {
			next, err := deps.Service.NextInvoiceNumber(cmd.Context(), accountID, vt)
			if err != nil {
				return err
			}
			return printJSON(cmd, next)
		})
	},
}

var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Solicitar el CAE de un comprobante en borrador o rechazado",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAccount(); err != nil {
			return err
		}
		if invoiceID == "" {
			return fmt.Errorf("--invoice es obligatorio")
		}
		return withBilling(cmd.Context(), func(deps *bootstrap.Billing) error {
			out, err := deps.Service.Authorize(cmd.Context(), accountID, invoiceID)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, out); err != nil {
				return err
			}
			if !out.Success {
				return fmt.Errorf("AFIP rechazó el comprobante")
			}
			return nil
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconciliar comprobantes autorizados en AFIP que faltan localmente",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncAll {
			return withBilling(cmd.Context(), func(deps *bootstrap.Billing) error {
				deps.Sweeper.SweepOnce(cmd.Context())
				return nil
			})
		}
		if err := requireAccount(); err != nil {
			return err
		}
		vt, err := pkgafip.ParseVoucherType(voucherTypeName)
		if err != nil {
			return err
		}
		return withBilling(cmd.Context(), func(deps *bootstrap.Billing) error {
			res, err := deps.Service.Sync(cmd.Context(), accountID, vt)
			if res != nil {
				if perr := printJSON(cmd, res); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func init() {
	rootCmd.AddCommand(nextNumberCmd, authorizeCmd, syncCmd)
	for _, c := range []*cobra.Command{nextNumberCmd, syncCmd} {
		c.Flags().StringVarP(&voucherTypeName, "type", "t", string(pkgafip.FacturaC), "Tipo de comprobante")
	}
	authorizeCmd.Flags().StringVar(&invoiceID, "invoice", "", "ID del comprobante [requerido]")
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "Barrer todas las cuentas con certificado")
}
