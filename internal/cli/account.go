package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/postgres"
	pkgafip "github.com/jhoicas/facturador-afip/pkg/afip"
	"github.com/jhoicas/facturador-afip/pkg/jwt"
)

var (
	newCUIT       string
	newLegalName  string
	newAddress    string
	newSalesPoint int
	newRegime     string
	tokenUserID   string
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Administrar cuentas de facturación",
}

var accountCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Registrar una cuenta (emisor)",
	Example: `  afipctl account create --cuit 20-12345678-6 --name "Estudio Núñez" --sales-point 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		account, err := newAccount(time.Now())
		if err != nil {
			return err
		}
		return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
			if err := postgres.NewAccountRepository(pool).Create(cmd.Context(), account); err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"id": account.ID, "cuit": account.CUIT, "sales_point": account.SalesPoint})
		})
	},
}

var accountTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Emitir un JWT de API para la cuenta",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAccount(); err != nil {
			return err
		}
		tok, err := jwt.Generate(cfg.JWT.Secret, tokenUserID, accountID, cfg.JWT.Issuer, cfg.JWT.Expiration)
		if err != nil {
			return err
		}
		cmd.Println(tok)
		return nil
	},
}

func newAccount(now time.Time) (*entity.AccountConfig, error) {
	cuit := pkgafip.NormalizeCUIT(newCUIT)
	if err := pkgafip.ValidateCUIT(cuit); err != nil {
		return nil, err
	}
	if newLegalName == "" {
		return nil, fmt.Errorf("--name es obligatorio")
	}
	if newSalesPoint <= 0 {
		return nil, fmt.Errorf("--sales-point debe ser mayor a cero")
	}
	switch newRegime {
	case pkgafip.RegimeMonotributo, pkgafip.RegimeResponsableInscripto, pkgafip.RegimeExento:
	default:
		return nil, fmt.Errorf("--regime inválido %q", newRegime)
	}
	return &entity.AccountConfig{
		ID:            uuid.New().String(),
		CUIT:          cuit,
		LegalName:     newLegalName,
		FiscalAddress: newAddress,
		SalesPoint:    newSalesPoint,
		TaxRegime:     newRegime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountCreateCmd, accountTokenCmd)

	accountCreateCmd.Flags().StringVar(&newCUIT, "cuit", "", "CUIT del emisor [requerido]")
	accountCreateCmd.Flags().StringVar(&newLegalName, "name", "", "Razón social [requerido]")
	accountCreateCmd.Flags().StringVar(&newAddress, "address", "", "Domicilio fiscal")
	accountCreateCmd.Flags().IntVar(&newSalesPoint, "sales-point", 0, "Punto de venta WSFEv1 [requerido]")
	accountCreateCmd.Flags().StringVar(&newRegime, "regime", pkgafip.RegimeMonotributo, "monotributo | responsable_inscripto | exento")
	accountCreateCmd.MarkFlagRequired("cuit")
	accountCreateCmd.MarkFlagRequired("name")
	accountCreateCmd.MarkFlagRequired("sales-point")

	accountTokenCmd.Flags().StringVar(&tokenUserID, "user", "afipctl", "user_id del token")
}
