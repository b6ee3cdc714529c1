package afip

import (
	"fmt"
	"unicode"
)

// pesos del algoritmo módulo 11 de AFIP, aplicados a los 10 primeros dígitos de la CUIT.
var cuitWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// NormalizeCUIT devuelve solo los dígitos ("20-12345678-6" -> "20123456786").
func NormalizeCUIT(s string) string {
	var out []rune
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return string(out)
}

// ValidateCUIT verifica longitud y dígito verificador de una CUIT/CUIL.
// Acepta "20123456786", "20-12345678-6" o con espacios.
func ValidateCUIT(s string) error {
	digits := NormalizeCUIT(s)
	if len(digits) != 11 {
		return fmt.Errorf("afip: la CUIT debe tener 11 dígitos, se encontraron %d", len(digits))
	}
	expected, err := ComputeCUITCheckDigit(digits[:10])
	if err != nil {
		return err
	}
	if digits[10] != expected {
		return fmt.Errorf("afip: dígito verificador de CUIT inválido: esperado %c, recibido %c", expected, digits[10])
	}
	return nil
}

// ComputeCUITCheckDigit calcula el dígito verificador para los 10 primeros dígitos.
// Un resto que da 10 no tiene dígito válido: AFIP no emite esas CUIT.
func ComputeCUITCheckDigit(base string) (byte, error) {
	digits := NormalizeCUIT(base)
	if len(digits) < 10 {
		return 0, fmt.Errorf("afip: se requieren 10 dígitos para calcular el verificador, se encontraron %d", len(digits))
	}
	var sum int
	for i := 0; i < 10; i++ {
		sum += int(digits[i]-'0') * cuitWeights[i]
	}
	dv := 11 - sum%11
	switch dv {
	case 11:
		return '0', nil
	case 10:
		return 0, fmt.Errorf("afip: la base %s no admite dígito verificador", digits[:10])
	}
	return byte('0' + dv), nil
}

// ReceiverDocument deduce tipo y número de documento del receptor para WSFEv1.
// Sin identificación o receptor del exterior: tipo 99 y número 0.
func ReceiverDocument(taxID string, foreign bool) (docType int, docNumber string) {
	digits := NormalizeCUIT(taxID)
	if foreign || digits == "" {
		return DocTypeUnspecified, "0"
	}
	switch {
	case len(digits) == 11:
		return DocTypeCUIT, digits
	case len(digits) >= 7 && len(digits) <= 8:
		return DocTypeDNI, digits
	}
	return DocTypeUnspecified, "0"
}
