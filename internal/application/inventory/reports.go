package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/repository"
)

// Valuation valor del inventario de una sucursal.
type Valuation struct {
	BranchID string
	Items    int
	Units    decimal.Decimal
	Total    decimal.Decimal
}

// ReportsUseCase reportes de solo lectura sobre el libro de existencias.
type ReportsUseCase struct {
	stock repository.StockRepository
}

// NewReportsUseCase construye el caso de uso.
func NewReportsUseCase(stock repository.StockRepository) *ReportsUseCase {
	return &ReportsUseCase{stock: stock}
}

// Valuation suma existencia por costo promedio de todas las filas de la sucursal.
func (uc *ReportsUseCase) Valuation(ctx context.Context, branchID string) (*Valuation, error) {
	if branchID == "" {
		return nil, domain.NewValidationError("branch_id", "sucursal obligatoria")
	}
	entries, err := uc.stock.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	v := &Valuation{BranchID: branchID, Units: decimal.Zero, Total: decimal.Zero}
	for _, e := range entries {
		if e.QuantityOnHand.IsZero() {
			continue
		}
		v.Items++
		v.Units = v.Units.Add(e.QuantityOnHand)
		v.Total = v.Total.Add(e.Valuation())
	}
	return v, nil
}

// LowStock filas con existencia positiva igual o inferior al punto de reorden.
func (uc *ReportsUseCase) LowStock(ctx context.Context, branchID string) ([]entity.StockLedgerEntry, error) {
	if branchID == "" {
		return nil, domain.NewValidationError("branch_id", "sucursal obligatoria")
	}
	entries, err := uc.stock.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	out := make([]entity.StockLedgerEntry, 0)
	for _, e := range entries {
		if e.IsLowStock() {
			out = append(out, e)
		}
	}
	return out, nil
}
