// Package cli implementa afipctl: tareas operativas de facturación AFIP desde la terminal.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jhoicas/facturador-afip/internal/bootstrap"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/postgres"
	"github.com/jhoicas/facturador-afip/pkg/config"
	"github.com/jhoicas/facturador-afip/pkg/logger"
)

var (
	cfg       *config.Config
	appLogger *logger.Logger

	accountID string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:               "afipctl",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	Short:             "Herramientas de facturación electrónica AFIP",
	Long:              `afipctl opera sobre las cuentas de facturación: migraciones, certificados, numeración, CAE y reconciliación.`,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("cargar configuración: %w", err)
		}
		appLogger = logger.New(logger.Config{Env: cfg.App.Env, Level: logLevel})
		return nil
	},
}

// Execute corre el comando raíz.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountID, "account", "a", "", "ID de la cuenta de facturación")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Nivel de log (debug, info, warn, error)")
}

// withPool abre el pool de PostgreSQL para la duración de fn.
func withPool(ctx context.Context, fn func(*pgxpool.Pool) error) error {
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool)
}

// withBilling arma el servicio de facturación completo para la duración de fn.
func withBilling(ctx context.Context, fn func(*bootstrap.Billing) error) error {
	return withPool(ctx, func(pool *pgxpool.Pool) error {
		deps, err := bootstrap.NewBilling(pool, cfg, appLogger)
		if err != nil {
			return err
		}
		return fn(deps)
	})
}

func requireAccount() error {
	if accountID == "" {
		return fmt.Errorf("--account es obligatorio")
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
