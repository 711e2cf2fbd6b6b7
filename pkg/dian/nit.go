// Package dian reúne reglas de identificación tributaria colombiana usadas al facturar.
package dian

import (
	"fmt"
	"unicode"
)

// pesos del módulo 11 de la DIAN, aplicados a los dígitos del NIT de derecha a izquierda.
var nitWeights = []int{3, 7, 13, 17, 19, 23, 29, 37, 41, 43, 47, 53, 59, 67, 71}

// VerificationDigit calcula el dígito de verificación de un NIT sin DV.
// Acepta separadores ("900.123.456" o "900123456").
func VerificationDigit(nit string) (string, error) {
	digits := onlyDigits(nit)
	if len(digits) == 0 || len(digits) > len(nitWeights) {
		return "", fmt.Errorf("dian: NIT con longitud inválida (%d dígitos)", len(digits))
	}
	sum := 0
	for i := 0; i < len(digits); i++ {
		d := int(digits[len(digits)-1-i] - '0')
		sum += d * nitWeights[i]
	}
	r := sum % 11
	if r > 1 {
		r = 11 - r
	}
	return fmt.Sprintf("%d", r), nil
}

// ValidateNIT comprueba que el último dígito de nitWithDV sea su dígito de verificación.
func ValidateNIT(nitWithDV string) error {
	digits := onlyDigits(nitWithDV)
	if len(digits) < 2 {
		return fmt.Errorf("dian: NIT incompleto")
	}
	expected, err := VerificationDigit(string(digits[:len(digits)-1]))
	if err != nil {
		return err
	}
	if got := string(digits[len(digits)-1]); got != expected {
		return fmt.Errorf("dian: dígito de verificación inválido: esperado %s, recibido %s", expected, got)
	}
	return nil
}

func onlyDigits(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
