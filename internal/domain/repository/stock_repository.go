package repository

import (
	"context"

	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
)

// StockRepository puerto del libro de existencias por (producto, sucursal).
type StockRepository interface {
	// Get lectura sin bloqueo; devuelve domain.ErrNotFound si la fila aún no existe.
	Get(ctx context.Context, productID, branchID string) (*entity.StockLedgerEntry, error)
	// GetForUpdate crea la fila en cero si no existe y la bloquea (SELECT ... FOR UPDATE)
	// hasta que termine la transacción que la contiene.
	GetForUpdate(ctx context.Context, productID, branchID string) (*entity.StockLedgerEntry, error)
	Update(ctx context.Context, entry *entity.StockLedgerEntry) error
	ListByBranch(ctx context.Context, branchID string) ([]entity.StockLedgerEntry, error)
}
