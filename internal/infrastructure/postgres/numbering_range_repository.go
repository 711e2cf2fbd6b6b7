package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/repository"
)

var _ repository.NumberingRangeRepository = (*NumberingRangeRepo)(nil)

const rangeColumns = `id, document_type, prefix, resolution_number, gateway_range_id, range_start, range_end,
		       current_consecutive, valid_from, valid_to, active, expired, created_at, updated_at`

// NumberingRangeRepo rangos de numeración sobre PostgreSQL (usable con pool o tx).
type NumberingRangeRepo struct {
	q Querier
}

// NewNumberingRangeRepository construye el repositorio. Pasar pool o tx (Querier).
func NewNumberingRangeRepository(q Querier) *NumberingRangeRepo {
	return &NumberingRangeRepo{q: q}
}

func scanRange(row pgx.Row) (*entity.NumberingRange, error) {
	var r entity.NumberingRange
	err := row.Scan(
		&r.ID, &r.DocumentType, &r.Prefix, &r.ResolutionNumber, &r.GatewayRangeID, &r.RangeStart, &r.RangeEnd,
		&r.CurrentConsecutive, &r.ValidFrom, &r.ValidTo, &r.Active, &r.Expired, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *NumberingRangeRepo) GetByID(ctx context.Context, id string) (*entity.NumberingRange, error) {
	q := `SELECT ` + rangeColumns + ` FROM numbering_ranges WHERE id = $1`
	nr, err := scanRange(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get numbering range: %w", err)
	}
	return nr, nil
}

// ListCandidatesForUpdate es la consulta crítica de la numeración: dos ventas concurrentes
// del mismo tipo de documento se serializan sobre estas filas hasta el commit.
func (r *NumberingRangeRepo) ListCandidatesForUpdate(ctx context.Context, documentType string) ([]entity.NumberingRange, error) {
	q := `SELECT ` + rangeColumns + `
		FROM numbering_ranges
		WHERE document_type = $1 AND active AND NOT expired
		ORDER BY created_at, id
		FOR UPDATE`
	rows, err := r.q.Query(ctx, q, documentType)
	if err != nil {
		return nil, fmt.Errorf("list numbering ranges: %w", err)
	}
	defer rows.Close()
	var out []entity.NumberingRange
	for rows.Next() {
		nr, err := scanRange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan numbering range: %w", err)
		}
		out = append(out, *nr)
	}
	return out, rows.Err()
}

// SaveConsumption guarda el consecutivo y la marca de vencido. La condición sobre
// current_consecutive impide que un rango retroceda.
func (r *NumberingRangeRepo) SaveConsumption(ctx context.Context, nr *entity.NumberingRange) error {
	const q = `
		UPDATE numbering_ranges
		SET current_consecutive = $2, expired = $3, updated_at = $4
		WHERE id = $1 AND current_consecutive <= $2`
	tag, err := r.q.Exec(ctx, q, nr.ID, nr.CurrentConsecutive, nr.Expired, nr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update numbering range: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: el consecutivo del rango %s no puede retroceder", domain.ErrInvariantViolation, nr.ID)
	}
	return nil
}
