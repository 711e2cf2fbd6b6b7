package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo kardex de solo inserción sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Append inserta el movimiento; la secuencia la asigna la base de datos.
func (r *MovementRepo) Append(ctx context.Context, m *entity.MovementRecord) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO inventory_movements (id, product_id, origin_branch_id, destination_branch_id, kind,
		                                 quantity, unit_cost, reason, external_reference, occurred_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING sequence`
	err := r.q.QueryRow(ctx, query,
		m.ID, m.ProductID, m.OriginBranchID, m.DestinationBranchID, string(m.Kind),
		m.Quantity, m.UnitCost, m.Reason, m.ExternalReference, m.OccurredAt, m.CreatedBy,
	).Scan(&m.Sequence)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

type movementRow struct {
	ID                  string           `db:"id"`
	Sequence            int64            `db:"sequence"`
	ProductID           string           `db:"product_id"`
	OriginBranchID      *string          `db:"origin_branch_id"`
	DestinationBranchID *string          `db:"destination_branch_id"`
	Kind                string           `db:"kind"`
	Quantity            decimal.Decimal  `db:"quantity"`
	UnitCost            *decimal.Decimal `db:"unit_cost"`
	Reason              string           `db:"reason"`
	ExternalReference   string           `db:"external_reference"`
	OccurredAt          time.Time        `db:"occurred_at"`
	CreatedBy           string           `db:"created_by"`
}

// ListByProductAndBranch movimientos donde la sucursal es origen o destino, en orden del kardex.
func (r *MovementRepo) ListByProductAndBranch(ctx context.Context, productID, branchID string, until *time.Time) ([]entity.MovementRecord, error) {
	b := psql.Select("id", "sequence", "product_id", "origin_branch_id", "destination_branch_id", "kind",
		"quantity", "unit_cost", "reason", "external_reference", "occurred_at", "created_by").
		From("inventory_movements").
		Where(sq.Eq{"product_id": productID}).
		Where(sq.Or{sq.Eq{"origin_branch_id": branchID}, sq.Eq{"destination_branch_id": branchID}}).
		OrderBy("occurred_at", "sequence")
	if until != nil {
		b = b.Where(sq.LtOrEq{"occurred_at": *until})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []movementRow
	if err := pgxscan.Select(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	out := make([]entity.MovementRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.MovementRecord{
			ID:                  row.ID,
			Sequence:            row.Sequence,
			ProductID:           row.ProductID,
			OriginBranchID:      row.OriginBranchID,
			DestinationBranchID: row.DestinationBranchID,
			Kind:                entity.MovementKind(row.Kind),
			Quantity:            row.Quantity,
			UnitCost:            row.UnitCost,
			Reason:              row.Reason,
			ExternalReference:   row.ExternalReference,
			OccurredAt:          row.OccurredAt,
			CreatedBy:           row.CreatedBy,
		})
	}
	return out, nil
}
