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

var (
	_ repository.TillRepository           = (*TillRepo)(nil)
	_ repository.IntegrationLogRepository = (*IntegrationLogRepo)(nil)
)

// TillRepo turnos y movimientos de caja.
type TillRepo struct {
	q Querier
}

// NewTillRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTillRepository(q Querier) *TillRepo {
	return &TillRepo{q: q}
}

func (r *TillRepo) GetSession(ctx context.Context, id string) (*entity.TillSession, error) {
	var s entity.TillSession
	err := r.q.QueryRow(ctx, `
		SELECT id, till_id, branch_id, user_id, status, opened_at, closed_at
		FROM till_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.TillID, &s.BranchID, &s.UserID, &s.Status, &s.OpenedAt, &s.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get till session: %w", err)
	}
	return &s, nil
}

func (r *TillRepo) AppendMovement(ctx context.Context, m *entity.CashMovement) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO cash_movements (id, till_session_id, kind, concept, amount, payment_method_code,
		                            sale_id, credit_note_id, user_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.TillSessionID, m.Kind, m.Concept, m.Amount, m.PaymentMethodCode,
		m.SaleID, m.CreditNoteID, m.UserID, m.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert cash movement: %w", err)
	}
	return nil
}

// IntegrationLogRepo bitácora de llamadas al proveedor. Se escribe fuera de la transacción de la venta.
type IntegrationLogRepo struct {
	q Querier
}

// NewIntegrationLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewIntegrationLogRepository(q Querier) *IntegrationLogRepo {
	return &IntegrationLogRepo{q: q}
}

func (r *IntegrationLogRepo) Append(ctx context.Context, l *entity.IntegrationLog) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO integration_logs (id, operation, sale_id, credit_note_id, user_id, request, response,
		                              http_status, success, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		l.ID, l.Operation, l.SaleID, l.CreditNoteID, l.UserID,
		nullIfEmpty(string(l.Request)), nullIfEmpty(string(l.Response)),
		l.HTTPStatus, l.Success, l.ErrorMessage, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert integration log: %w", err)
	}
	return nil
}
