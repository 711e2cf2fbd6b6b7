package repository

import (
	"context"
	"time"

	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
)

// MovementRepository registro de movimientos de solo inserción (kardex).
type MovementRepository interface {
	// Append inserta el movimiento y asigna su secuencia de inserción.
	Append(ctx context.Context, rec *entity.MovementRecord) error
	// ListByProductAndBranch movimientos donde la sucursal es origen o destino,
	// ordenados por fecha y secuencia. until limita la fecha superior cuando no es nil.
	ListByProductAndBranch(ctx context.Context, productID, branchID string, until *time.Time) ([]entity.MovementRecord, error)
}
