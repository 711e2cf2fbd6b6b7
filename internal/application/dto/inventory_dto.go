package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustStockRequest entrada, salida o ajuste relativo (POST /api/inventory/adjust).
// BranchID vacío usa la sucursal del token.
type AdjustStockRequest struct {
	ProductID string           `json:"product_id" validate:"required"`
	BranchID  string           `json:"branch_id,omitempty"`
	Kind      string           `json:"kind" validate:"required,oneof=INBOUND OUTBOUND ADJUSTMENT"`
	Delta     decimal.Decimal  `json:"delta"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
	Reason    string           `json:"reason" validate:"required,max=250"`
	Reference string           `json:"reference,omitempty" validate:"max=100"`
}

// TransferStockRequest traslado entre sucursales (POST /api/inventory/transfer).
type TransferStockRequest struct {
	ProductID    string          `json:"product_id" validate:"required"`
	FromBranchID string          `json:"from_branch_id" validate:"required"`
	ToBranchID   string          `json:"to_branch_id" validate:"required,nefield=FromBranchID"`
	Quantity     decimal.Decimal `json:"quantity"`
	Reason       string          `json:"reason,omitempty" validate:"max=250"`
}

// CountStockRequest conteo físico (POST /api/inventory/count).
type CountStockRequest struct {
	ProductID   string          `json:"product_id" validate:"required"`
	BranchID    string          `json:"branch_id,omitempty"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Reason      string          `json:"reason,omitempty" validate:"max=250"`
}

// StockChangeResponse existencia antes y después de un cambio.
type StockChangeResponse struct {
	ProductID        string          `json:"product_id"`
	BranchID         string          `json:"branch_id"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	MovementID       string          `json:"movement_id,omitempty"`
}

// TransferResponse resultado de un traslado.
type TransferResponse struct {
	Reference string              `json:"reference"`
	Origin    StockChangeResponse `json:"origin"`
	Dest      StockChangeResponse `json:"destination"`
}

// KardexQuery parámetros del kardex (GET /api/inventory/kardex).
type KardexQuery struct {
	ProductID string `query:"product_id" validate:"required"`
	BranchID  string `query:"branch_id"`
	From      string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// KardexRowResponse fila del kardex.
type KardexRowResponse struct {
	MovementID string           `json:"movement_id"`
	Date       time.Time        `json:"date"`
	Kind       string           `json:"kind"`
	Reason     string           `json:"reason"`
	Reference  string           `json:"reference,omitempty"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"`
	Inbound    decimal.Decimal  `json:"inbound"`
	Outbound   decimal.Decimal  `json:"outbound"`
	Balance    decimal.Decimal  `json:"balance"`
}

// KardexResponse kardex con saldos inicial y final.
type KardexResponse struct {
	ProductID string              `json:"product_id"`
	BranchID  string              `json:"branch_id"`
	Opening   decimal.Decimal     `json:"opening_balance"`
	Closing   decimal.Decimal     `json:"closing_balance"`
	Rows      []KardexRowResponse `json:"rows"`
}

// ReconcileResponse resultado de la conciliación libro vs kardex.
type ReconcileResponse struct {
	ProductID  string          `json:"product_id"`
	BranchID   string          `json:"branch_id"`
	Ledger     decimal.Decimal `json:"ledger_quantity"`
	Replayed   decimal.Decimal `json:"replayed_quantity"`
	Consistent bool            `json:"consistent"`
}

// ValuationResponse valor del inventario de una sucursal.
type ValuationResponse struct {
	BranchID string          `json:"branch_id"`
	Items    int             `json:"items"`
	Units    decimal.Decimal `json:"units"`
	Total    decimal.Decimal `json:"total"`
}

// LowStockResponse fila con existencia bajo el punto de reorden.
type LowStockResponse struct {
	ProductID        string          `json:"product_id"`
	QuantityOnHand   decimal.Decimal `json:"quantity_on_hand"`
	ReorderThreshold decimal.Decimal `json:"reorder_threshold"`
}

// NumberingReportResponse uso de un rango de numeración.
type NumberingReportResponse struct {
	RangeID       string          `json:"range_id"`
	DocumentType  string          `json:"document_type"`
	Prefix        string          `json:"prefix"`
	State         string          `json:"state"`
	Current       int64           `json:"current_consecutive"`
	Available     int64           `json:"available"`
	UsagePercent  decimal.Decimal `json:"usage_percent"`
	NextFormatted string          `json:"next_number,omitempty"`
}
