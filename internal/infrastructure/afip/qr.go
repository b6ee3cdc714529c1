package afip

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/skip2/go-qrcode"

	"github.com/jhoicas/facturador-afip/internal/domain"
	"github.com/jhoicas/facturador-afip/internal/domain/entity"
	pkgafip "github.com/jhoicas/facturador-afip/pkg/afip"
)

// QRBaseURL destino del código QR obligatorio (RG 4892).
const QRBaseURL = "https://www.afip.gob.ar/fe/qr/?p="

// QRPayload JSON versión 1 que se codifica en el QR.
type QRPayload struct {
	Ver        int         `json:"ver"`
	Fecha      string      `json:"fecha"`
	Cuit       int64       `json:"cuit"`
	PtoVta     int         `json:"ptoVta"`
	TipoCmp    int         `json:"tipoCmp"`
	NroCmp     int64       `json:"nroCmp"`
	Importe    json.Number `json:"importe"`
	Moneda     string      `json:"moneda"`
	Ctz        json.Number `json:"ctz"`
	TipoDocRec int         `json:"tipoDocRec"`
	NroDocRec  int64       `json:"nroDocRec"`
	TipoCodAut string      `json:"tipoCodAut"`
	CodAut     int64       `json:"codAut"`
}

// BuildQRPayload arma el contenido del QR de un comprobante autorizado.
func BuildQRPayload(account *entity.AccountConfig, inv *entity.Invoice) (*QRPayload, error) {
	if inv.Number == nil || inv.AuthorizationCode == nil || inv.IssueDate == nil {
		return nil, fmt.Errorf("%w: el comprobante no está autorizado", domain.ErrValidation)
	}
	cuit, err := strconv.ParseInt(pkgafip.NormalizeCUIT(account.CUIT), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: CUIT del emisor inválida", domain.ErrValidation)
	}
	cae, err := strconv.ParseInt(*inv.AuthorizationCode, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: CAE inválido %q", domain.ErrValidation, *inv.AuthorizationCode)
	}
	taxID := ""
	if inv.ReceiverTaxID != nil {
		taxID = *inv.ReceiverTaxID
	}
	docType, docNumber := pkgafip.ReceiverDocument(taxID, inv.ReceiverForeign)
	docNro, _ := strconv.ParseInt(docNumber, 10, 64)

	currency := inv.Currency
	if currency == "" {
		currency = pkgafip.CurrencyPesos
	}
	ctz := "1"
	if inv.ExchangeRate.IsPositive() {
		ctz = inv.ExchangeRate.String()
	}
	return &QRPayload{
		Ver:        1,
		Fecha:      inv.IssueDate.Format("2006-01-02"),
		Cuit:       cuit,
		PtoVta:     inv.SalesPoint,
		TipoCmp:    inv.VoucherType.Code(),
		NroCmp:     *inv.Number,
		Importe:    json.Number(inv.TotalAmount.StringFixed(2)),
		Moneda:     currency,
		Ctz:        json.Number(ctz),
		TipoDocRec: docType,
		NroDocRec:  docNro,
		TipoCodAut: "E",
		CodAut:     cae,
	}, nil
}

// BuildQRURL URL completa del QR: JSON en base64 estándar agregado a QRBaseURL.
func BuildQRURL(account *entity.AccountConfig, inv *entity.Invoice) (string, error) {
	payload, err := BuildQRPayload(account, inv)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("qr: serializar: %w", err)
	}
	return QRBaseURL + base64.StdEncoding.EncodeToString(data), nil
}

// RenderQRPNG genera la imagen PNG del QR como data URL.
func RenderQRPNG(url string, size int) (string, error) {
	if size <= 0 {
		size = 256
	}
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("qr: generar: %w", err)
	}
	png, err := qr.PNG(size)
	if err != nil {
		return "", fmt.Errorf("qr: png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
