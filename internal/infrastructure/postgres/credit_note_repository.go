package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/repository"
)

var _ repository.CreditNoteRepository = (*CreditNoteRepo)(nil)

var creditNoteColumns = []string{
	"id", "sale_id", "reference_code", "range_id", "gateway_range_id", "prefix", "number", "reason",
	"total", "status", "user_id", "till_session_id", "gateway_number", "cufe", "qr_url",
	"gateway_errors", "gateway_attempts", "validated_at", "occurred_at", "created_at", "updated_at",
}

// CreditNoteRepo notas crédito sobre PostgreSQL.
type CreditNoteRepo struct {
	q Querier
}

// NewCreditNoteRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCreditNoteRepository(q Querier) *CreditNoteRepo {
	return &CreditNoteRepo{q: q}
}

func (r *CreditNoteRepo) Create(ctx context.Context, n *entity.CreditNote) error {
	query, args, err := psql.Insert("credit_notes").Columns(creditNoteColumns...).Values(
		n.ID, n.SaleID, n.ReferenceCode, n.RangeID, n.GatewayRangeID, n.Prefix, n.Number, n.Reason,
		n.Total, string(n.Status), n.UserID, n.TillSessionID, n.GatewayNumber, n.CUFE, n.QRURL,
		jsonList(n.GatewayErrors), n.GatewayAttempts, n.ValidatedAt, n.OccurredAt, n.CreatedAt, n.UpdatedAt,
	).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: nota crédito repetida", domain.ErrConflict)
		}
		return fmt.Errorf("insert credit note: %w", err)
	}
	return nil
}

type creditNoteRow struct {
	ID              string          `db:"id"`
	SaleID          string          `db:"sale_id"`
	ReferenceCode   string          `db:"reference_code"`
	RangeID         string          `db:"range_id"`
	GatewayRangeID  int64           `db:"gateway_range_id"`
	Prefix          string          `db:"prefix"`
	Number          int64           `db:"number"`
	Reason          string          `db:"reason"`
	Total           decimal.Decimal `db:"total"`
	Status          string          `db:"status"`
	UserID          string          `db:"user_id"`
	TillSessionID   *string         `db:"till_session_id"`
	GatewayNumber   string          `db:"gateway_number"`
	CUFE            string          `db:"cufe"`
	QRURL           string          `db:"qr_url"`
	GatewayErrors   []byte          `db:"gateway_errors"`
	GatewayAttempts int             `db:"gateway_attempts"`
	ValidatedAt     *time.Time      `db:"validated_at"`
	OccurredAt      time.Time       `db:"occurred_at"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r *CreditNoteRepo) GetByID(ctx context.Context, id string) (*entity.CreditNote, error) {
	query, args, err := psql.Select(creditNoteColumns...).From("credit_notes").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var row creditNoteRow
	if err := pgxscan.Get(ctx, r.q, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get credit note: %w", err)
	}
	errs, err := parseJSONList[string](row.GatewayErrors)
	if err != nil {
		return nil, fmt.Errorf("decode gateway errors: %w", err)
	}
	return &entity.CreditNote{
		ID: row.ID, SaleID: row.SaleID, ReferenceCode: row.ReferenceCode, RangeID: row.RangeID,
		GatewayRangeID: row.GatewayRangeID, Prefix: row.Prefix, Number: row.Number, Reason: row.Reason,
		Total: row.Total, Status: entity.CreditNoteStatus(row.Status), UserID: row.UserID,
		TillSessionID: row.TillSessionID, GatewayNumber: row.GatewayNumber, CUFE: row.CUFE, QRURL: row.QRURL,
		GatewayErrors: errs, GatewayAttempts: row.GatewayAttempts, ValidatedAt: row.ValidatedAt,
		OccurredAt: row.OccurredAt, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}, nil
}

// ApplyFiscalResult no toca notas ya validadas.
func (r *CreditNoteRepo) ApplyFiscalResult(ctx context.Context, id string, res repository.FiscalResult) error {
	b := psql.Update("credit_notes").
		Set("status", res.Status).
		Set("gateway_errors", jsonList(res.Errors)).
		Set("gateway_attempts", sq.Expr("gateway_attempts + 1")).
		Set("updated_at", res.At).
		Where(sq.Eq{"id": id}).
		Where(sq.NotEq{"status": string(entity.CreditNoteStatusValidated)})
	if res.Status == string(entity.CreditNoteStatusValidated) {
		b = b.Set("gateway_number", res.GatewayNumber).
			Set("cufe", res.CUFE).
			Set("qr_url", res.QRURL).
			Set("validated_at", res.At)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update credit note fiscal result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: la nota crédito %s ya fue validada o no existe", domain.ErrInvalidState, id)
	}
	return nil
}
