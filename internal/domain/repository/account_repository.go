package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturador-afip/internal/domain/entity"
)

// AccountRepository define el puerto de persistencia para AccountConfig.
// La implementación vive en infrastructure.
type AccountRepository interface {
	Create(ctx context.Context, account *entity.AccountConfig) error
	GetByID(ctx context.Context, id string) (*entity.AccountConfig, error)
	ListIDs(ctx context.Context) ([]string, error)
	// UpdateCredentials reemplaza el par certificado/llave activo y limpia la llave pendiente.
	UpdateCredentials(ctx context.Context, id, certificatePEM, privateKeyPEM string) error
	// UpdatePendingKey guarda la llave generada por el aprovisionamiento.
	UpdatePendingKey(ctx context.Context, id, privateKeyPEM string) error
	// UpdateToken persiste el ticket de acceso WSAA (solo TokenCache lo invoca).
	UpdateToken(ctx context.Context, id, token, sign string, expiresAt time.Time, environment string) error
}
