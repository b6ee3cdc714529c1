package cli

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jhoicas/facturador-afip/internal/infrastructure/postgres"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Aplicar las migraciones de base de datos",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
			if migrateStatus {
				return postgres.MigrationStatus(cmd.Context(), pool)
			}
			if err := postgres.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			cmd.Println("migraciones aplicadas")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Solo mostrar el estado de las migraciones")
}
