package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/facturador-afip/internal/domain"
	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	"github.com/jhoicas/facturador-afip/internal/domain/repository"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
	"github.com/jhoicas/facturador-afip/pkg/logger"
)

// TokenEntry ticket de acceso (TA) emitido por WSAA.
type TokenEntry struct {
	Token       string
	Sign        string
	ExpiresAt   time.Time
	Environment string
}

// TokenCache caché del TA respaldada por la cuenta. Es el único punto que escribe
// los campos Token/Sign/TokenExpiresAt de AccountConfig.
type TokenCache struct {
	accounts repository.AccountRepository
}

// NewTokenCache construye la caché sobre el repositorio de cuentas.
func NewTokenCache(accounts repository.AccountRepository) *TokenCache {
	return &TokenCache{accounts: accounts}
}

// Get devuelve el TA guardado para la cuenta, o nil si no hay uno para ese ambiente.
func (c *TokenCache) Get(ctx context.Context, accountID string, env afip.Environment) (*TokenEntry, error) {
	account, err := c.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return entryOf(account, env), nil
}

func entryOf(account *entity.AccountConfig, env afip.Environment) *TokenEntry {
	if account.Token == "" || account.TokenExpiresAt == nil || account.TokenEnvironment != env.String() {
		return nil
	}
	return &TokenEntry{
		Token:       account.Token,
		Sign:        account.Sign,
		ExpiresAt:   *account.TokenExpiresAt,
		Environment: account.TokenEnvironment,
	}
}

// IsValid informa si el TA sigue vigente en now (estrictamente antes del vencimiento).
func (c *TokenCache) IsValid(entry *TokenEntry, now time.Time) bool {
	return entry != nil && entry.Token != "" && entry.Sign != "" && now.Before(entry.ExpiresAt)
}

// Set guarda el TA de la cuenta para el ambiente.
func (c *TokenCache) Set(ctx context.Context, accountID string, env afip.Environment, entry TokenEntry) error {
	if err := c.accounts.UpdateToken(ctx, accountID, entry.Token, entry.Sign, entry.ExpiresAt, env.String()); err != nil {
		return fmt.Errorf("guardar ticket de acceso: %w", err)
	}
	return nil
}

// TokenProvider obtiene credenciales WSFE vigentes, logueándose en WSAA solo si hace falta.
// El login se serializa por cuenta: dos pedidos simultáneos generarían un TA duplicado.
type TokenProvider struct {
	cache *TokenCache
	login LoginClient
	locks *keyedLocker
	now   func() time.Time
	log   *logger.Logger
}

// NewTokenProvider construye el proveedor. now nil = time.Now.
func NewTokenProvider(cache *TokenCache, login LoginClient, log *logger.Logger, now func() time.Time) *TokenProvider {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TokenProvider{cache: cache, login: login, locks: newKeyedLocker(), now: now, log: log.Component("tokens")}
}

// Credentials devuelve token, sign y CUIT para operar en WSFE con la cuenta.
func (p *TokenProvider) Credentials(ctx context.Context, account *entity.AccountConfig) (afip.Credentials, error) {
	if !account.HasCredentials() {
		return afip.Credentials{}, fmt.Errorf("%w: la cuenta no tiene certificado y llave cargados", domain.ErrCertificateFormat)
	}
	env := p.login.Environment()

	unlock, err := p.locks.Lock(ctx, account.ID)
	if err != nil {
		return afip.Credentials{}, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer unlock()

	entry, err := p.cache.Get(ctx, account.ID, env)
	if err != nil {
		return afip.Credentials{}, err
	}
	if p.cache.IsValid(entry, p.now()) {
		return credentialsOf(account, entry), nil
	}

	p.log.Info().Str("account_id", account.ID).Str("env", env.String()).Msg("solicitando ticket de acceso")
	res, err := p.login.Login(ctx, account.CertificatePEM, account.PrivateKeyPEM)
	if err != nil {
		return afip.Credentials{}, err
	}

	if res.AlreadyAuthenticated {
		// Otro proceso pudo guardar el TA entre la lectura y el login.
		entry, err := p.cache.Get(ctx, account.ID, env)
		if err != nil {
			return afip.Credentials{}, err
		}
		if p.cache.IsValid(entry, p.now()) {
			return credentialsOf(account, entry), nil
		}
		p.log.Warn().Str("account_id", account.ID).Msg("WSAA informa un TA vigente que no está en caché")
		return afip.Credentials{}, domain.ErrStaleTokenState
	}

	fresh := TokenEntry{Token: res.Token, Sign: res.Sign, ExpiresAt: res.ExpiresAt, Environment: env.String()}
	if err := p.cache.Set(ctx, account.ID, env, fresh); err != nil {
		return afip.Credentials{}, err
	}
	return credentialsOf(account, &fresh), nil
}

// Invalidate descarta el TA en caché; se usa cuando WSFE rechaza las credenciales.
func (p *TokenProvider) Invalidate(ctx context.Context, accountID string) {
	env := p.login.Environment()
	if err := p.cache.Set(ctx, accountID, env, TokenEntry{}); err != nil && !errors.Is(err, context.Canceled) {
		p.log.Warn().Err(err).Str("account_id", accountID).Msg("no se pudo invalidar el ticket de acceso")
	}
}

func credentialsOf(account *entity.AccountConfig, entry *TokenEntry) afip.Credentials {
	return afip.Credentials{Token: entry.Token, Sign: entry.Sign, CUIT: account.CUIT}
}
