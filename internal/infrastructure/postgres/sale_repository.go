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

var _ repository.SaleRepository = (*SaleRepo)(nil)

var saleColumns = []string{
	"id", "reference_code", "customer_id", "branch_id", "user_id", "till_session_id", "document_type",
	"range_id", "gateway_range_id", "prefix", "number", "payment_form", "payment_method_code", "due_date",
	"observation", "status", "subtotal", "tax_total", "line_discount_total", "discount_total",
	"surcharge_total", "withholding_total", "grand_total", "withholdings", "adjustments",
	"gateway_bill_id", "gateway_number", "cufe", "qr_url", "gateway_errors", "gateway_attempts",
	"validated_at", "occurred_at", "created_at", "updated_at",
}

// SaleRepo ventas con sus líneas sobre PostgreSQL (usable con pool o tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// Create persiste la cabecera y las líneas. Debe llamarse dentro de la transacción de la venta.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	query, args, err := psql.Insert("sales").Columns(saleColumns...).Values(
		s.ID, s.ReferenceCode, s.CustomerID, s.BranchID, s.UserID, s.TillSessionID, s.DocumentType,
		s.RangeID, s.GatewayRangeID, s.Prefix, s.Number, s.PaymentForm, s.PaymentMethodCode, s.DueDate,
		s.Observation, string(s.Status), s.Subtotal, s.TaxTotal, s.LineDiscountTotal, s.DiscountTotal,
		s.SurchargeTotal, s.WithholdingTotal, s.GrandTotal, jsonList(s.Withholdings), jsonList(s.Adjustments),
		s.GatewayBillID, s.GatewayNumber, s.CUFE, s.QRURL, jsonList(s.GatewayErrors), s.GatewayAttempts,
		s.ValidatedAt, s.OccurredAt, s.CreatedAt, s.UpdatedAt,
	).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: número o código de referencia repetido", domain.ErrConflict)
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	const lineQuery = `
		INSERT INTO sale_lines (id, sale_id, position, product_id, code, name, quantity, unit_price, tax_rate,
		                        discount_rate, discount_amount, base, tax, total, note, unit_measure_id,
		                        standard_code_id, tribute_id, is_excluded, withholdings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	for _, l := range s.Lines {
		_, err := r.q.Exec(ctx, lineQuery,
			l.ID, s.ID, l.Position, l.ProductID, l.Code, l.Name, l.Quantity, l.UnitPrice, l.TaxRate,
			l.DiscountRate, l.DiscountAmount, l.Base, l.Tax, l.Total, l.Note, l.UnitMeasureID,
			l.StandardCodeID, l.TributeID, l.IsExcluded, jsonList(l.Withholdings),
		)
		if err != nil {
			return fmt.Errorf("insert sale line: %w", err)
		}
	}
	return nil
}

type saleRow struct {
	ID                string          `db:"id"`
	ReferenceCode     string          `db:"reference_code"`
	CustomerID        string          `db:"customer_id"`
	BranchID          string          `db:"branch_id"`
	UserID            string          `db:"user_id"`
	TillSessionID     *string         `db:"till_session_id"`
	DocumentType      string          `db:"document_type"`
	RangeID           string          `db:"range_id"`
	GatewayRangeID    int64           `db:"gateway_range_id"`
	Prefix            string          `db:"prefix"`
	Number            int64           `db:"number"`
	PaymentForm       int             `db:"payment_form"`
	PaymentMethodCode string          `db:"payment_method_code"`
	DueDate           *time.Time      `db:"due_date"`
	Observation       string          `db:"observation"`
	Status            string          `db:"status"`
	Subtotal          decimal.Decimal `db:"subtotal"`
	TaxTotal          decimal.Decimal `db:"tax_total"`
	LineDiscountTotal decimal.Decimal `db:"line_discount_total"`
	DiscountTotal     decimal.Decimal `db:"discount_total"`
	SurchargeTotal    decimal.Decimal `db:"surcharge_total"`
	WithholdingTotal  decimal.Decimal `db:"withholding_total"`
	GrandTotal        decimal.Decimal `db:"grand_total"`
	Withholdings      []byte          `db:"withholdings"`
	Adjustments       []byte          `db:"adjustments"`
	GatewayBillID     int64           `db:"gateway_bill_id"`
	GatewayNumber     string          `db:"gateway_number"`
	CUFE              string          `db:"cufe"`
	QRURL             string          `db:"qr_url"`
	GatewayErrors     []byte          `db:"gateway_errors"`
	GatewayAttempts   int             `db:"gateway_attempts"`
	ValidatedAt       *time.Time      `db:"validated_at"`
	OccurredAt        time.Time       `db:"occurred_at"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

func (row saleRow) entity() (entity.Sale, error) {
	s := entity.Sale{
		ID: row.ID, ReferenceCode: row.ReferenceCode, CustomerID: row.CustomerID, BranchID: row.BranchID,
		UserID: row.UserID, TillSessionID: row.TillSessionID, DocumentType: row.DocumentType,
		RangeID: row.RangeID, GatewayRangeID: row.GatewayRangeID, Prefix: row.Prefix, Number: row.Number,
		PaymentForm: row.PaymentForm, PaymentMethodCode: row.PaymentMethodCode, DueDate: row.DueDate,
		Observation: row.Observation, Status: entity.SaleStatus(row.Status),
		Subtotal: row.Subtotal, TaxTotal: row.TaxTotal, LineDiscountTotal: row.LineDiscountTotal,
		DiscountTotal: row.DiscountTotal, SurchargeTotal: row.SurchargeTotal,
		WithholdingTotal: row.WithholdingTotal, GrandTotal: row.GrandTotal,
		GatewayBillID: row.GatewayBillID, GatewayNumber: row.GatewayNumber, CUFE: row.CUFE, QRURL: row.QRURL,
		GatewayAttempts: row.GatewayAttempts, ValidatedAt: row.ValidatedAt,
		OccurredAt: row.OccurredAt, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
	var err error
	if s.Withholdings, err = parseJSONList[entity.SaleWithholding](row.Withholdings); err != nil {
		return s, fmt.Errorf("decode withholdings: %w", err)
	}
	if s.Adjustments, err = parseJSONList[entity.SaleAdjustment](row.Adjustments); err != nil {
		return s, fmt.Errorf("decode adjustments: %w", err)
	}
	if s.GatewayErrors, err = parseJSONList[string](row.GatewayErrors); err != nil {
		return s, fmt.Errorf("decode gateway errors: %w", err)
	}
	return s, nil
}

type saleLineRow struct {
	ID             string          `db:"id"`
	SaleID         string          `db:"sale_id"`
	Position       int             `db:"position"`
	ProductID      string          `db:"product_id"`
	Code           string          `db:"code"`
	Name           string          `db:"name"`
	Quantity       decimal.Decimal `db:"quantity"`
	UnitPrice      decimal.Decimal `db:"unit_price"`
	TaxRate        decimal.Decimal `db:"tax_rate"`
	DiscountRate   decimal.Decimal `db:"discount_rate"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	Base           decimal.Decimal `db:"base"`
	Tax            decimal.Decimal `db:"tax"`
	Total          decimal.Decimal `db:"total"`
	Note           string          `db:"note"`
	UnitMeasureID  int             `db:"unit_measure_id"`
	StandardCodeID int             `db:"standard_code_id"`
	TributeID      int             `db:"tribute_id"`
	IsExcluded     bool            `db:"is_excluded"`
	Withholdings   []byte          `db:"withholdings"`
}

// GetByID obtiene la venta con sus líneas.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	query, args, err := psql.Select(saleColumns...).From("sales").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var row saleRow
	if err := pgxscan.Get(ctx, r.q, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	s, err := row.entity()
	if err != nil {
		return nil, err
	}

	var lines []saleLineRow
	err = pgxscan.Select(ctx, r.q, &lines, `
		SELECT id, sale_id, position, product_id, code, name, quantity, unit_price, tax_rate, discount_rate,
		       discount_amount, base, tax, total, note, unit_measure_id, standard_code_id, tribute_id,
		       is_excluded, withholdings
		FROM sale_lines WHERE sale_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("list sale lines: %w", err)
	}
	for _, l := range lines {
		wh, err := parseJSONList[entity.LineWithholding](l.Withholdings)
		if err != nil {
			return nil, fmt.Errorf("decode line withholdings: %w", err)
		}
		s.Lines = append(s.Lines, entity.SaleLine{
			ID: l.ID, SaleID: l.SaleID, Position: l.Position, ProductID: l.ProductID, Code: l.Code, Name: l.Name,
			Quantity: l.Quantity, UnitPrice: l.UnitPrice, TaxRate: l.TaxRate, DiscountRate: l.DiscountRate,
			DiscountAmount: l.DiscountAmount, Base: l.Base, Tax: l.Tax, Total: l.Total, Note: l.Note,
			UnitMeasureID: l.UnitMeasureID, StandardCodeID: l.StandardCodeID, TributeID: l.TributeID,
			IsExcluded: l.IsExcluded, Withholdings: wh,
		})
	}
	return &s, nil
}

// List cabeceras de venta más recientes primero; no carga las líneas.
func (r *SaleRepo) List(ctx context.Context, f repository.SaleFilter) ([]entity.Sale, error) {
	b := psql.Select(saleColumns...).From("sales").OrderBy("occurred_at DESC", "number DESC")
	if f.BranchID != "" {
		b = b.Where(sq.Eq{"branch_id": f.BranchID})
	}
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status})
	}
	if f.From != nil {
		b = b.Where(sq.GtOrEq{"occurred_at": *f.From})
	}
	if f.To != nil {
		b = b.Where(sq.LtOrEq{"occurred_at": *f.To})
	}
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		b = b.Offset(uint64(f.Offset))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []saleRow
	if err := pgxscan.Select(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	out := make([]entity.Sale, 0, len(rows))
	for _, row := range rows {
		s, err := row.entity()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ApplyFiscalResult update condicional: solo avanza si el estado actual está en allowedFrom.
// Dos reintentos simultáneos no pueden pisarse: el segundo no encuentra fila que cumpla.
func (r *SaleRepo) ApplyFiscalResult(ctx context.Context, id string, res repository.FiscalResult, allowedFrom []entity.SaleStatus) error {
	from := make([]string, 0, len(allowedFrom))
	for _, s := range allowedFrom {
		from = append(from, string(s))
	}
	b := psql.Update("sales").
		Set("status", res.Status).
		Set("gateway_errors", jsonList(res.Errors)).
		Set("gateway_attempts", sq.Expr("gateway_attempts + 1")).
		Set("updated_at", res.At).
		Where(sq.Eq{"id": id, "status": from})
	if res.Status == string(entity.SaleStatusValidated) {
		b = b.Set("gateway_bill_id", res.GatewayBillID).
			Set("gateway_number", res.GatewayNumber).
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
		return fmt.Errorf("update sale fiscal result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: la venta %s ya no admite resultado fiscal", domain.ErrInvalidState, id)
	}
	return nil
}

// TransitionStatus cambia el estado solo si la venta sigue en from.
func (r *SaleRepo) TransitionStatus(ctx context.Context, id string, from, to entity.SaleStatus, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE sales SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("update sale status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: la venta %s no está en %s", domain.ErrInvalidState, id, from)
	}
	return nil
}
