package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un turno de caja.
const (
	TillSessionOpen   = "OPEN"
	TillSessionClosed = "CLOSED"
)

// Tipos de movimiento de caja.
const (
	CashMovementIncome  = "INCOME"
	CashMovementExpense = "EXPENSE"
)

// TillSession turno de caja abierto por un cajero en una sucursal.
type TillSession struct {
	ID       string
	TillID   string
	BranchID string
	UserID   string
	Status   string
	OpenedAt time.Time
	ClosedAt *time.Time
}

// IsOpen el turno admite movimientos.
func (t TillSession) IsOpen() bool { return t.Status == TillSessionOpen }

// CashMovement ingreso o egreso de dinero asociado a un turno.
type CashMovement struct {
	ID                string
	TillSessionID     string
	Kind              string
	Concept           string
	Amount            decimal.Decimal
	PaymentMethodCode string
	SaleID            *string
	CreditNoteID      *string
	UserID            string
	OccurredAt        time.Time
}
