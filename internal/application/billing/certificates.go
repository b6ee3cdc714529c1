package billing

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/jhoicas/facturador-afip/internal/application/dto"
	"github.com/jhoicas/facturador-afip/internal/domain"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
)

// ValidateCertificate informa si la cuenta tiene un par certificado/llave utilizable.
// Las fallas de formato o vigencia se informan en el resultado, no como error.
func (s *Service) ValidateCertificate(ctx context.Context, accountID string) (*dto.CertificateStatus, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	status := &dto.CertificateStatus{HasPendingKey: account.PendingPrivateKeyPEM != ""}
	if !account.HasCredentials() {
		status.Message = "La cuenta no tiene certificado y llave privada cargados"
		if status.HasPendingKey {
			status.Message += "; hay una llave generada esperando su certificado"
		}
		return status, nil
	}

	info, err := afip.ValidatePair(account.CertificatePEM, account.PrivateKeyPEM, s.now())
	if info != nil {
		status.Subject = info.Subject
		notAfter := info.NotAfter
		status.NotAfter = &notAfter
	}
	if err != nil {
		if !errors.Is(err, domain.ErrCertificateFormat) && !errors.Is(err, domain.ErrSigning) {
			return nil, err
		}
		status.Message = err.Error()
		return status, nil
	}
	status.Valid = true
	status.Message = fmt.Sprintf("Certificado vigente hasta %s", info.NotAfter.Format("2006-01-02"))
	return status, nil
}

// GenerateKeyMaterial genera una llave RSA-2048 y el pedido de certificado para la cuenta.
// La llave se guarda como pendiente antes de devolverla: no existe certificado todavía.
func (s *Service) GenerateKeyMaterial(ctx context.Context, accountID string, in dto.KeyMaterialRequest) (*dto.KeyMaterialResponse, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	organization := in.Organization
	if organization == "" {
		organization = account.LegalName
	}
	km, err := afip.GenerateKeyMaterial(afip.LegalIdentity{
		Country:      in.Country,
		State:        in.State,
		Locality:     in.Locality,
		Organization: organization,
		CUIT:         account.CUIT,
		CommonName:   in.CommonName,
		Email:        in.Email,
	})
	if err != nil {
		return nil, err
	}
	if err := s.accounts.UpdatePendingKey(ctx, account.ID, km.PrivateKeyPEM); err != nil {
		return nil, fmt.Errorf("guardar llave pendiente: %w", err)
	}
	s.log.Info().Str("account_id", accountID).Str("subject", km.Subject).Msg("llave generada; pendiente de certificado")
	return &dto.KeyMaterialResponse{
		PrivateKeyPEM: km.PrivateKeyPEM,
		Subject:       km.Subject,
		CSRPEM:        km.CSRPEM,
		Command:       km.ExternalCSRCommand,
	}, nil
}

// UploadCertificate carga el certificado emitido por AFIP. Si keyPEM va vacío se usa la llave
// pendiente generada por GenerateKeyMaterial. El par se guarda junto, ya verificado.
func (s *Service) UploadCertificate(ctx context.Context, accountID, certPEM, keyPEM string) (*dto.CertificateStatus, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	cert, err := afip.NormalizeCertificatePEM(certPEM)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(keyPEM) == "" {
		keyPEM = account.PendingPrivateKeyPEM
	}
	if keyPEM == "" {
		return nil, fmt.Errorf("%w: falta la llave privada y no hay una pendiente", domain.ErrCertificateFormat)
	}
	key, err := afip.NormalizePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, err
	}
	if _, err := afip.ValidatePair(cert, key, s.now()); err != nil {
		return nil, err
	}
	if err := s.accounts.UpdateCredentials(ctx, account.ID, cert, key); err != nil {
		return nil, fmt.Errorf("guardar certificado: %w", err)
	}
	s.log.Info().Str("account_id", accountID).Msg("certificado actualizado")
	return s.ValidateCertificate(ctx, accountID)
}

// UploadPKCS12 carga un .p12/.pfx (base64) convirtiéndolo al par PEM.
func (s *Service) UploadPKCS12(ctx context.Context, accountID, bundleBase64, password string) (*dto.CertificateStatus, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(bundleBase64))
	if err != nil {
		return nil, fmt.Errorf("%w: p12 no es base64 válido", domain.ErrCertificateFormat)
	}
	certPEM, keyPEM, err := afip.LoadPKCS12(data, password)
	if err != nil {
		return nil, err
	}
	return s.UploadCertificate(ctx, accountID, certPEM, keyPEM)
}
