// Package bootstrap arma el grafo de dependencias compartido por la API y afipctl.
package bootstrap

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturador-afip/internal/application/billing"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/postgres"
	pkgafip "github.com/jhoicas/facturador-afip/pkg/afip"
	"github.com/jhoicas/facturador-afip/pkg/config"
	"github.com/jhoicas/facturador-afip/pkg/logger"
)

// Billing servicio de facturación listo para usar, con su barrido y repositorio de cuentas.
type Billing struct {
	Service     *billing.Service
	Sweeper     *billing.Sweeper
	Accounts    *postgres.AccountRepo
	Environment afip.Environment
}

// Environment resuelve el ambiente AFIP y aplica los endpoints configurados, si los hay.
func Environment(cfg config.AFIPConfig) (afip.Environment, error) {
	env, err := afip.ParseEnvironment(cfg.Environment)
	if err != nil {
		return afip.Environment{}, err
	}
	wsaa, wsfe := env.WSAAURL(), env.WSFEURL()
	if cfg.WSAAURL != "" {
		wsaa = cfg.WSAAURL
	}
	if cfg.WSFEURL != "" {
		wsfe = cfg.WSFEURL
	}
	return env.WithEndpoints(wsaa, wsfe), nil
}

// VoucherTypes valida la lista de tipos que recorre el barrido.
func VoucherTypes(names []string) ([]pkgafip.VoucherType, error) {
	out := make([]pkgafip.VoucherType, 0, len(names))
	for _, name := range names {
		vt, err := pkgafip.ParseVoucherType(name)
		if err != nil {
			return nil, fmt.Errorf("AFIP_SYNC_VOUCHER_TYPES: %w", err)
		}
		out = append(out, vt)
	}
	return out, nil
}

// NewBilling construye clientes AFIP, repositorios, caché de tickets y servicio.
func NewBilling(pool *pgxpool.Pool, cfg *config.Config, log *logger.Logger) (*Billing, error) {
	env, err := Environment(cfg.AFIP)
	if err != nil {
		return nil, err
	}
	voucherTypes, err := VoucherTypes(cfg.AFIP.SyncVoucherTypes)
	if err != nil {
		return nil, err
	}

	opts := afip.Options{
		Timeout:    cfg.AFIP.HTTPTimeout,
		MaxRetries: cfg.AFIP.MaxRetries,
		Logger:     log,
	}
	wsaa := afip.NewWSAAClient(env, cfg.AFIP.Service, opts)
	wsfe := afip.NewWSFEClient(env, opts)

	accounts := postgres.NewAccountRepository(pool)
	invoices := postgres.NewInvoiceRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	tokens := billing.NewTokenProvider(billing.NewTokenCache(accounts), wsaa, log, nil)
	svc := billing.NewService(accounts, invoices, txRunner, tokens, wsfe, billing.Config{
		SyncMaxMissing: cfg.AFIP.SyncMaxMissing,
		SyncDelay:      cfg.AFIP.SyncDelay,
	}, log)
	sweeper := billing.NewSweeper(svc, accounts, cfg.AFIP.SyncInterval, voucherTypes, log)

	log.Info().
		Str("afip_env", env.String()).
		Str("wsaa", env.WSAAURL()).
		Str("wsfe", env.WSFEURL()).
		Msg("clientes AFIP configurados")

	return &Billing{Service: svc, Sweeper: sweeper, Accounts: accounts, Environment: env}, nil
}
