package repository

import (
	"context"

	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
)

// NumberingRangeRepository puerto de rangos de numeración.
type NumberingRangeRepository interface {
	GetByID(ctx context.Context, id string) (*entity.NumberingRange, error)
	// ListCandidatesForUpdate bloquea los rangos activos y no marcados como vencidos del tipo
	// de documento, en orden determinista. Solo tiene sentido dentro de una transacción.
	ListCandidatesForUpdate(ctx context.Context, documentType string) ([]entity.NumberingRange, error)
	// SaveConsumption persiste CurrentConsecutive y Expired del rango bloqueado.
	SaveConsumption(ctx context.Context, r *entity.NumberingRange) error
}
