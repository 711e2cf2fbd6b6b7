package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

const stockColumns = `product_id, branch_id, quantity_on_hand, reorder_threshold, max_threshold,
		       moving_average_cost, last_inbound_at, last_outbound_at, updated_at`

// StockRepo libro de existencias sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de existencias. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

func scanStock(row pgx.Row) (*entity.StockLedgerEntry, error) {
	var e entity.StockLedgerEntry
	err := row.Scan(
		&e.ProductID, &e.BranchID, &e.QuantityOnHand, &e.ReorderThreshold, &e.MaxThreshold,
		&e.MovingAverageCost, &e.LastInboundAt, &e.LastOutboundAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Get lectura sin bloqueo.
func (r *StockRepo) Get(ctx context.Context, productID, branchID string) (*entity.StockLedgerEntry, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_ledger WHERE product_id = $1 AND branch_id = $2`
	e, err := scanStock(r.q.QueryRow(ctx, query, productID, branchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return e, nil
}

// GetForUpdate crea la fila en cero si falta y la bloquea hasta el fin de la transacción.
// El INSERT ... ON CONFLICT DO NOTHING evita la carrera entre dos primeras entradas del mismo par.
func (r *StockRepo) GetForUpdate(ctx context.Context, productID, branchID string) (*entity.StockLedgerEntry, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_ledger (product_id, branch_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (product_id, branch_id) DO NOTHING`, productID, branchID)
	if err != nil {
		return nil, fmt.Errorf("ensure stock row: %w", err)
	}
	query := `SELECT ` + stockColumns + ` FROM stock_ledger WHERE product_id = $1 AND branch_id = $2 FOR UPDATE`
	e, err := scanStock(r.q.QueryRow(ctx, query, productID, branchID))
	if err != nil {
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return e, nil
}

// Update persiste existencia, costo y fechas de la fila bloqueada.
func (r *StockRepo) Update(ctx context.Context, e *entity.StockLedgerEntry) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE stock_ledger
		SET quantity_on_hand    = $3,
		    moving_average_cost = $4,
		    last_inbound_at     = $5,
		    last_outbound_at    = $6,
		    updated_at          = $7
		WHERE product_id = $1 AND branch_id = $2`,
		e.ProductID, e.BranchID, e.QuantityOnHand, e.MovingAverageCost,
		e.LastInboundAt, e.LastOutboundAt, e.UpdatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: existencia negativa para %s en %s", domain.ErrInvariantViolation, e.ProductID, e.BranchID)
		}
		return fmt.Errorf("update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type stockRow struct {
	ProductID         string           `db:"product_id"`
	BranchID          string           `db:"branch_id"`
	QuantityOnHand    decimal.Decimal  `db:"quantity_on_hand"`
	ReorderThreshold  decimal.Decimal  `db:"reorder_threshold"`
	MaxThreshold      *decimal.Decimal `db:"max_threshold"`
	MovingAverageCost decimal.Decimal  `db:"moving_average_cost"`
	LastInboundAt     *time.Time       `db:"last_inbound_at"`
	LastOutboundAt    *time.Time       `db:"last_outbound_at"`
	UpdatedAt         time.Time        `db:"updated_at"`
}

func (r stockRow) entity() entity.StockLedgerEntry {
	return entity.StockLedgerEntry{
		ProductID:         r.ProductID,
		BranchID:          r.BranchID,
		QuantityOnHand:    r.QuantityOnHand,
		ReorderThreshold:  r.ReorderThreshold,
		MaxThreshold:      r.MaxThreshold,
		MovingAverageCost: r.MovingAverageCost,
		LastInboundAt:     r.LastInboundAt,
		LastOutboundAt:    r.LastOutboundAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// ListByBranch todas las filas de una sucursal ordenadas por producto.
func (r *StockRepo) ListByBranch(ctx context.Context, branchID string) ([]entity.StockLedgerEntry, error) {
	query, args, err := psql.
		Select("product_id", "branch_id", "quantity_on_hand", "reorder_threshold", "max_threshold",
			"moving_average_cost", "last_inbound_at", "last_outbound_at", "updated_at").
		From("stock_ledger").
		Where(sq.Eq{"branch_id": branchID}).
		OrderBy("product_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []stockRow
	if err := pgxscan.Select(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	out := make([]entity.StockLedgerEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entity())
	}
	return out, nil
}
