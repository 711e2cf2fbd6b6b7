package repository

import (
	"context"

	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
)

// TillRepository turnos y movimientos de caja.
type TillRepository interface {
	GetSession(ctx context.Context, id string) (*entity.TillSession, error)
	AppendMovement(ctx context.Context, m *entity.CashMovement) error
}

// IntegrationLogRepository bitácora de intercambios con el proveedor de facturación.
type IntegrationLogRepository interface {
	Append(ctx context.Context, log *entity.IntegrationLog) error
}
