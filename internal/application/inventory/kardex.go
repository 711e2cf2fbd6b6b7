package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	domaininv "github.com/LuisDaniel15/Software-Pos/internal/domain/inventory"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/repository"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

// ReconcileResult comparación entre la existencia del libro y el kardex reconstruido.
type ReconcileResult struct {
	ProductID string
	BranchID  string
	Ledger    decimal.Decimal
	Replayed  decimal.Decimal
}

// KardexUseCase consultas del registro de movimientos.
type KardexUseCase struct {
	movements repository.MovementRepository
	stock     repository.StockRepository
	log       *logger.Logger
}

// NewKardexUseCase construye el caso de uso.
func NewKardexUseCase(movements repository.MovementRepository, stock repository.StockRepository, log *logger.Logger) *KardexUseCase {
	return &KardexUseCase{movements: movements, stock: stock, log: log.With("kardex")}
}

// Kardex reconstruye los movimientos de un producto en una sucursal con saldo acumulado.
// from y to son opcionales; los movimientos anteriores a from forman el saldo inicial.
func (uc *KardexUseCase) Kardex(ctx context.Context, productID, branchID string, from, to *time.Time) (*domaininv.Kardex, error) {
	if productID == "" || branchID == "" {
		return nil, domain.NewValidationError("kardex", "producto y sucursal son obligatorios")
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.NewValidationError("to", "la fecha final es anterior a la inicial")
	}
	records, err := uc.movements.ListByProductAndBranch(ctx, productID, branchID, to)
	if err != nil {
		return nil, err
	}
	k := domaininv.Replay(productID, branchID, records, from, to)
	return &k, nil
}

// Reconcile repite la historia completa y la compara con la existencia del libro.
// Un descuadre es una violación de invariante: se registra y se devuelve, nunca se corrige.
func (uc *KardexUseCase) Reconcile(ctx context.Context, productID, branchID string) (*ReconcileResult, error) {
	k, err := uc.Kardex(ctx, productID, branchID, nil, nil)
	if err != nil {
		return nil, err
	}
	ledger := decimal.Zero
	entry, err := uc.stock.Get(ctx, productID, branchID)
	switch {
	case err == nil:
		ledger = entry.QuantityOnHand
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	res := &ReconcileResult{ProductID: productID, BranchID: branchID, Ledger: ledger, Replayed: k.Closing}
	if !ledger.Equal(k.Closing) {
		uc.log.Error().
			Str("product_id", productID).
			Str("branch_id", branchID).
			Str("ledger", ledger.String()).
			Str("replayed", k.Closing.String()).
			Msg("kardex descuadrado frente al libro de existencias")
		return res, &domain.LedgerDivergenceError{
			ProductID: productID, BranchID: branchID, Ledger: ledger, Replayed: k.Closing,
		}
	}
	return res, nil
}
