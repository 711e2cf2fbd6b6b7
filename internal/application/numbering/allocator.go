package numbering

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/repository"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

// Reservation consecutivo asignado y el rango del que salió.
type Reservation struct {
	Range  entity.NumberingRange
	Number int64
}

// Report uso de un rango de numeración.
type Report struct {
	Range         entity.NumberingRange
	State         entity.RangeState
	Available     int64
	UsagePercent  decimal.Decimal
	NextFormatted string
}

// Allocator entrega consecutivos fiscales. La reserva ocurre dentro de la transacción del llamador:
// si esa transacción hace rollback, el número vuelve a quedar disponible.
type Allocator struct {
	ranges repository.NumberingRangeRepository
	log    *logger.Logger
}

// NewAllocator construye el asignador. ranges se usa solo para consultas fuera de transacción.
func NewAllocator(ranges repository.NumberingRangeRepository, log *logger.Logger) *Allocator {
	return &Allocator{ranges: ranges, log: log.With("numbering")}
}

// ReserveNextInTx bloquea los rangos candidatos del tipo de documento y consume el siguiente
// número del primero que esté activo en at. Los rangos cuya vigencia terminó solo se reportan:
// su estado se deriva de ValidTo con StateAt.
func (a *Allocator) ReserveNextInTx(ctx context.Context, ranges repository.NumberingRangeRepository, documentType string, at time.Time) (*Reservation, error) {
	candidates, err := ranges.ListCandidatesForUpdate(ctx, documentType)
	if err != nil {
		return nil, err
	}
	var cause error
	for i := range candidates {
		r := &candidates[i]
		n, err := r.Reserve(at)
		if err == nil {
			if err := ranges.SaveConsumption(ctx, r); err != nil {
				return nil, err
			}
			return &Reservation{Range: *r, Number: n}, nil
		}
		cause = err
		if r.StateAt(at) == entity.RangeStateExpired && !r.Expired {
			a.log.Warn().Str("range_id", r.ID).Str("prefix", r.Prefix).Msg("rango de numeración vencido")
		}
	}
	return nil, &domain.NoNumberingRangeError{DocumentType: documentType, Cause: cause}
}

// Report calcula números disponibles, porcentaje de uso y el próximo número con prefijo.
func (a *Allocator) Report(ctx context.Context, rangeID string, at time.Time) (*Report, error) {
	r, err := a.ranges.GetByID(ctx, rangeID)
	if err != nil {
		return nil, err
	}
	rep := &Report{Range: *r, State: r.StateAt(at), Available: r.Available(), UsagePercent: decimal.Zero}
	if r.RangeStart != nil && r.RangeEnd != nil {
		total := *r.RangeEnd - *r.RangeStart + 1
		used := r.CurrentConsecutive - *r.RangeStart
		if used < 0 {
			used = 0
		}
		if total > 0 {
			rep.UsagePercent = decimal.NewFromInt(used).Mul(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(total)).Round(2)
		}
		if rep.State == entity.RangeStateActive {
			rep.NextFormatted = r.FormatNumber(r.CurrentConsecutive + 1)
		}
	}
	return rep, nil
}
