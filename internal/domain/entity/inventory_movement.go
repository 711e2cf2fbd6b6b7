package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tipo de movimiento de existencias.
type MovementKind string

const (
	MovementInbound     MovementKind = "INBOUND"
	MovementOutbound    MovementKind = "OUTBOUND"
	MovementAdjustment  MovementKind = "ADJUSTMENT"
	MovementTransferOut MovementKind = "TRANSFER_OUT"
	MovementTransferIn  MovementKind = "TRANSFER_IN"
)

// Valid indica si el tipo es uno de los conocidos.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementInbound, MovementOutbound, MovementAdjustment, MovementTransferOut, MovementTransferIn:
		return true
	}
	return false
}

// MovementRecord registro inmutable de un cambio de existencias (kardex).
// OriginBranchID es nil en entradas puras; DestinationBranchID es nil en salidas puras.
// Sequence es el orden de inserción y desempata movimientos con la misma fecha.
type MovementRecord struct {
	ID                  string
	Sequence            int64
	ProductID           string
	OriginBranchID      *string
	DestinationBranchID *string
	Kind                MovementKind
	Quantity            decimal.Decimal
	UnitCost            *decimal.Decimal
	Reason              string
	ExternalReference   string
	OccurredAt          time.Time
	CreatedBy           string
}
