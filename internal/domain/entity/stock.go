package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLedgerEntry existencia y costo promedio de un producto en una sucursal.
// Se crea al primer movimiento del par (producto, sucursal) y nunca se elimina;
// solo se modifica a través de la ruta con bloqueo de fila del libro de existencias.
type StockLedgerEntry struct {
	ProductID         string
	BranchID          string
	QuantityOnHand    decimal.Decimal
	ReorderThreshold  decimal.Decimal
	MaxThreshold      *decimal.Decimal
	MovingAverageCost decimal.Decimal
	LastInboundAt     *time.Time
	LastOutboundAt    *time.Time
	UpdatedAt         time.Time
}

// Valuation valor del inventario de la fila (existencia por costo promedio).
func (e StockLedgerEntry) Valuation() decimal.Decimal {
	return e.QuantityOnHand.Mul(e.MovingAverageCost).Round(2)
}

// IsLowStock existencia positiva igual o inferior al punto de reorden.
func (e StockLedgerEntry) IsLowStock() bool {
	return e.QuantityOnHand.IsPositive() && e.QuantityOnHand.LessThanOrEqual(e.ReorderThreshold)
}
