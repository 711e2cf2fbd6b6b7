package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrInactive           = errors.New("recurso inactivo")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInvalidState       = errors.New("transición de estado no permitida")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrNoNumberingRange   = errors.New("no hay rango de numeración disponible")
	ErrRangeExhausted     = errors.New("rango de numeración agotado")
	ErrRangeExpired       = errors.New("rango de numeración vencido")
	ErrRangeInactive      = errors.New("rango de numeración inactivo")
	ErrInvariantViolation = errors.New("violación de invariante")
	ErrGatewayUnavailable = errors.New("servicio de facturación no disponible")
)

// ValidationError describe un campo de entrada inválido. Coincide con ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError atajo para construir un ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientStockError se devuelve cuando un débito dejaría la existencia en negativo.
type InsufficientStockError struct {
	ProductID string
	BranchID  string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para producto %s en sucursal %s: disponible %s, solicitado %s",
		e.ProductID, e.BranchID, e.Available.String(), e.Requested.String())
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// NoNumberingRangeError indica que ningún rango puede entregar un consecutivo para el tipo de documento.
// Cause conserva el último motivo de descarte (agotado, vencido) cuando lo hay.
type NoNumberingRangeError struct {
	DocumentType string
	Cause        error
}

func (e *NoNumberingRangeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no hay rango de numeración disponible para %s: %v", e.DocumentType, e.Cause)
	}
	return fmt.Sprintf("no hay rango de numeración disponible para %s", e.DocumentType)
}

func (e *NoNumberingRangeError) Is(target error) bool { return target == ErrNoNumberingRange }

func (e *NoNumberingRangeError) Unwrap() error { return e.Cause }

// LedgerDivergenceError el kardex reconstruido no coincide con la existencia registrada.
type LedgerDivergenceError struct {
	ProductID string
	BranchID  string
	Ledger    decimal.Decimal
	Replayed  decimal.Decimal
}

func (e *LedgerDivergenceError) Error() string {
	return fmt.Sprintf("kardex descuadrado para producto %s en sucursal %s: libro %s, reconstruido %s",
		e.ProductID, e.BranchID, e.Ledger.String(), e.Replayed.String())
}

func (e *LedgerDivergenceError) Is(target error) bool { return target == ErrInvariantViolation }
