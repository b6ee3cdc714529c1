package billing_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-afip/internal/application/billing"
	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	"github.com/jhoicas/facturador-afip/internal/domain/repository"
	"github.com/jhoicas/facturador-afip/internal/infrastructure/afip"
	pkgafip "github.com/jhoicas/facturador-afip/pkg/afip"
)

// ── Repositorios en memoria ──────────────────────────────────────────────────

type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*entity.AccountConfig
	tokenSet int
}

func newMemAccounts(accounts ...*entity.AccountConfig) *memAccounts {
	m := &memAccounts{accounts: map[string]*entity.AccountConfig{}}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *memAccounts) Create(_ context.Context, a *entity.AccountConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *memAccounts) GetByID(_ context.Context, id string) (*entity.AccountConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *memAccounts) ListIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.accounts {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memAccounts) UpdateCredentials(_ context.Context, id, cert, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.accounts[id]
	a.CertificatePEM, a.PrivateKeyPEM, a.PendingPrivateKeyPEM = cert, key, ""
	return nil
}

func (m *memAccounts) UpdatePendingKey(_ context.Context, id, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id].PendingPrivateKeyPEM = key
	return nil
}

func (m *memAccounts) UpdateToken(_ context.Context, id, token, sign string, expiresAt time.Time, env string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.accounts[id]
	a.Token, a.Sign, a.TokenEnvironment = token, sign, env
	a.TokenExpiresAt = &expiresAt
	m.tokenSet++
	return nil
}

type memInvoices struct {
	mu       sync.Mutex
	invoices map[string]*entity.Invoice
	updates  []string // estados persistidos por Update, en orden
}

func newMemInvoices(invoices ...*entity.Invoice) *memInvoices {
	m := &memInvoices{invoices: map[string]*entity.Invoice{}}
	for _, inv := range invoices {
		m.invoices[inv.ID] = inv
	}
	return m
}

func (m *memInvoices) Create(_ context.Context, inv *entity.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *memInvoices) Update(_ context.Context, inv *entity.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	m.invoices[inv.ID] = &cp
	m.updates = append(m.updates, inv.Status)
	return nil
}

func (m *memInvoices) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (m *memInvoices) FindCreditNoteFor(_ context.Context, invoiceID string) (*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.CancelsInvoiceID != nil && *inv.CancelsInvoiceID == invoiceID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memInvoices) ExistingNumbers(_ context.Context, accountID string, salesPoint int, vt pkgafip.VoucherType, from, to int64) (map[int64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]bool{}
	for _, inv := range m.invoices {
		n := inv.Number
		if n == nil {
			n = inv.AttemptedNumber
		}
		if inv.AccountID == accountID && inv.SalesPoint == salesPoint && inv.VoucherType == vt &&
			n != nil && *n >= from && *n <= to {
			out[*n] = true
		}
	}
	return out, nil
}

func (m *memInvoices) get(id string) *entity.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invoices[id]
}

func (m *memInvoices) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invoices)
}

type memTx struct{ invoices *memInvoices }

func (t memTx) RunBilling(_ context.Context, fn func(repository.InvoiceRepository) error) error {
	return fn(t.invoices)
}

// ── Mocks de los clientes AFIP ───────────────────────────────────────────────

type mockLogin struct {
	mock.Mock
}

func (m *mockLogin) Login(ctx context.Context, certPEM, keyPEM string) (*afip.LoginResult, error) {
	args := m.Called(ctx, certPEM, keyPEM)
	res, _ := args.Get(0).(*afip.LoginResult)
	return res, args.Error(1)
}

func (m *mockLogin) Environment() afip.Environment { return afip.Testing }

type mockWSFE struct {
	mock.Mock
}

func (m *mockWSFE) LastAuthorized(ctx context.Context, creds afip.Credentials, salesPoint, voucherCode int) (int64, error) {
	args := m.Called(ctx, creds, salesPoint, voucherCode)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockWSFE) Authorize(ctx context.Context, creds afip.Credentials, req afip.AuthorizationRequest) (*afip.AuthorizationResult, error) {
	args := m.Called(ctx, creds, req)
	res, _ := args.Get(0).(*afip.AuthorizationResult)
	return res, args.Error(1)
}

func (m *mockWSFE) Query(ctx context.Context, creds afip.Credentials, salesPoint, voucherCode int, number int64) (*afip.VoucherRecord, error) {
	args := m.Called(ctx, creds, salesPoint, voucherCode, number)
	rec, _ := args.Get(0).(*afip.VoucherRecord)
	return rec, args.Error(1)
}

func (m *mockWSFE) Environment() afip.Environment { return afip.Testing }

// ── Escenario ────────────────────────────────────────────────────────────────

const (
	accountID = "acc-1"
	cuit      = "20123456786"
)

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

type fixture struct {
	accounts *memAccounts
	invoices *memInvoices
	login    *mockLogin
	wsfe     *mockWSFE
	cache    *billing.TokenCache
	svc      *billing.Service
}

func newFixture(t *testing.T, account *entity.AccountConfig, invoices ...*entity.Invoice) *fixture {
	t.Helper()
	f := &fixture{
		accounts: newMemAccounts(account),
		invoices: newMemInvoices(invoices...),
		login:    &mockLogin{},
		wsfe:     &mockWSFE{},
	}
	f.cache = billing.NewTokenCache(f.accounts)
	f.useWSFE(f.wsfe)
	return f
}

// useWSFE reconstruye el servicio sobre otro cliente WSFE (por ejemplo uno real contra httptest).
func (f *fixture) useWSFE(client billing.InvoicingClient) {
	now := func() time.Time { return testNow }
	tokens := billing.NewTokenProvider(f.cache, f.login, nil, now)
	f.svc = billing.NewService(f.accounts, f.invoices, memTx{f.invoices}, tokens, client, billing.Config{SyncMaxMissing: 5}, nil).
		WithClock(now)
}

// accountWithToken cuenta con certificado y un TA vigente para testing.
func accountWithToken(t *testing.T) *entity.AccountConfig {
	t.Helper()
	certPEM, keyPEM := selfSignedPair(t, nil)
	expires := testNow.Add(6 * time.Hour)
	return &entity.AccountConfig{
		ID:               accountID,
		CUIT:             cuit,
		LegalName:        "Estudio Núñez",
		SalesPoint:       3,
		TaxRegime:        pkgafip.RegimeMonotributo,
		CertificatePEM:   certPEM,
		PrivateKeyPEM:    keyPEM,
		Token:            "TOKEN",
		Sign:             "SIGN",
		TokenExpiresAt:   &expires,
		TokenEnvironment: "testing",
	}
}

var cachedCreds = afip.Credentials{Token: "TOKEN", Sign: "SIGN", CUIT: cuit}

// selfSignedPair genera un certificado autofirmado; key nil = llave nueva.
func selfSignedPair(t *testing.T, key *rsa.PrivateKey) (string, string) {
	t.Helper()
	if key == nil {
		var err error
		key, err = rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "facturacion", SerialNumber: "CUIT " + cuit},
		NotBefore:    testNow.Add(-24 * time.Hour),
		NotAfter:     testNow.Add(365 * 24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})),
		string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8}))
}
