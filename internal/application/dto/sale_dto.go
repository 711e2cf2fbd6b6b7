package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
)

// SettleSaleRequest cuerpo para registrar una venta (POST /api/sales).
// La sucursal y el cajero se toman del token, no del cuerpo.
type SettleSaleRequest struct {
	CustomerID        string              `json:"customer_id" validate:"required"`
	TillSessionID     *string             `json:"till_session_id,omitempty" validate:"omitempty,min=1"`
	PaymentForm       int                 `json:"payment_form" validate:"required,oneof=1 2"`
	PaymentMethodCode string              `json:"payment_method_code" validate:"required,max=10"`
	DueDate           string              `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Observation       string              `json:"observation,omitempty" validate:"max=250"`
	Items             []SaleItemRequest   `json:"items" validate:"required,min=1,dive"`
	Adjustments       []AdjustmentRequest `json:"adjustments,omitempty" validate:"omitempty,dive"`
}

// SaleItemRequest línea solicitada. El precio y el IVA salen del catálogo.
type SaleItemRequest struct {
	ProductID    string               `json:"product_id" validate:"required"`
	Quantity     decimal.Decimal      `json:"quantity"`
	DiscountRate decimal.Decimal      `json:"discount_rate"`
	Note         string               `json:"note,omitempty" validate:"max=250"`
	Withholdings []WithholdingRequest `json:"withholdings,omitempty" validate:"omitempty,dive"`
}

// WithholdingRequest retención de una línea; Rate en porcentaje.
type WithholdingRequest struct {
	Code string          `json:"code" validate:"required,max=10"`
	Name string          `json:"name" validate:"max=100"`
	Rate decimal.Decimal `json:"rate"`
}

// AdjustmentRequest descuento o recargo de documento. Si Rate viene, Amount se calcula sobre BaseAmount.
type AdjustmentRequest struct {
	ConceptCode string           `json:"concept_code,omitempty" validate:"max=10"`
	IsSurcharge bool             `json:"is_surcharge"`
	Reason      string           `json:"reason" validate:"required,max=250"`
	BaseAmount  decimal.Decimal  `json:"base_amount"`
	Rate        *decimal.Decimal `json:"rate,omitempty"`
	Amount      decimal.Decimal  `json:"amount"`
}

// CreditNoteRequest cuerpo para anular una venta validada.
type CreditNoteRequest struct {
	Reason        string  `json:"reason" validate:"required,max=250"`
	TillSessionID *string `json:"till_session_id,omitempty" validate:"omitempty,min=1"`
}

// SaleListRequest filtros del listado de ventas (query string).
type SaleListRequest struct {
	Page
	Status string `query:"status" validate:"omitempty,oneof=PENDING_FISCAL_VALIDATION VALIDATED REJECTED CANCELLED"`
	From   string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// SaleResponse venta con su estado fiscal.
type SaleResponse struct {
	ID                string                `json:"id"`
	ReferenceCode     string                `json:"reference_code"`
	Number            string                `json:"number"`
	RangeID           string                `json:"range_id"`
	Status            string                `json:"status"`
	FiscallyConfirmed bool                  `json:"fiscally_confirmed"`
	CustomerID        string                `json:"customer_id"`
	BranchID          string                `json:"branch_id"`
	UserID            string                `json:"user_id"`
	TillSessionID     *string               `json:"till_session_id,omitempty"`
	PaymentForm       int                   `json:"payment_form"`
	PaymentMethodCode string                `json:"payment_method_code"`
	DueDate           *time.Time            `json:"due_date,omitempty"`
	Subtotal          decimal.Decimal       `json:"subtotal"`
	TaxTotal          decimal.Decimal       `json:"tax_total"`
	LineDiscountTotal decimal.Decimal       `json:"line_discount_total"`
	DiscountTotal     decimal.Decimal       `json:"discount_total"`
	SurchargeTotal    decimal.Decimal       `json:"surcharge_total"`
	WithholdingTotal  decimal.Decimal       `json:"withholding_total"`
	GrandTotal        decimal.Decimal       `json:"grand_total"`
	GatewayNumber     string                `json:"gateway_number,omitempty"`
	CUFE              string                `json:"cufe,omitempty"`
	QRURL             string                `json:"qr_url,omitempty"`
	GatewayErrors     []string              `json:"gateway_errors,omitempty"`
	GatewayAttempts   int                   `json:"gateway_attempts"`
	Lines             []SaleLineResponse    `json:"lines,omitempty"`
	Withholdings      []WithholdingResponse `json:"withholdings,omitempty"`
	OccurredAt        time.Time             `json:"occurred_at"`
}

// SaleLineResponse línea con montos derivados.
type SaleLineResponse struct {
	ProductID    string          `json:"product_id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	Base         decimal.Decimal `json:"base"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	Note         string          `json:"note,omitempty"`
}

// WithholdingResponse retención consolidada.
type WithholdingResponse struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Rate   decimal.Decimal `json:"rate"`
	Base   decimal.Decimal `json:"base"`
	Amount decimal.Decimal `json:"amount"`
}

// CreditNoteResponse nota crédito emitida.
type CreditNoteResponse struct {
	ID            string          `json:"id"`
	SaleID        string          `json:"sale_id"`
	ReferenceCode string          `json:"reference_code"`
	Number        string          `json:"number"`
	Reason        string          `json:"reason"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	CUFE          string          `json:"cufe,omitempty"`
	GatewayErrors []string        `json:"gateway_errors,omitempty"`
}

// SaleFromEntity mapea la venta a su respuesta HTTP.
func SaleFromEntity(s *entity.Sale) SaleResponse {
	out := SaleResponse{
		ID:                s.ID,
		ReferenceCode:     s.ReferenceCode,
		Number:            s.FullNumber(),
		RangeID:           s.RangeID,
		Status:            string(s.Status),
		FiscallyConfirmed: s.Status == entity.SaleStatusValidated,
		CustomerID:        s.CustomerID,
		BranchID:          s.BranchID,
		UserID:            s.UserID,
		TillSessionID:     s.TillSessionID,
		PaymentForm:       s.PaymentForm,
		PaymentMethodCode: s.PaymentMethodCode,
		DueDate:           s.DueDate,
		Subtotal:          s.Subtotal,
		TaxTotal:          s.TaxTotal,
		LineDiscountTotal: s.LineDiscountTotal,
		DiscountTotal:     s.DiscountTotal,
		SurchargeTotal:    s.SurchargeTotal,
		WithholdingTotal:  s.WithholdingTotal,
		GrandTotal:        s.GrandTotal,
		GatewayNumber:     s.GatewayNumber,
		CUFE:              s.CUFE,
		QRURL:             s.QRURL,
		GatewayErrors:     s.GatewayErrors,
		GatewayAttempts:   s.GatewayAttempts,
		OccurredAt:        s.OccurredAt,
	}
	for _, l := range s.Lines {
		out.Lines = append(out.Lines, SaleLineResponse{
			ProductID: l.ProductID, Code: l.Code, Name: l.Name,
			Quantity: l.Quantity, UnitPrice: l.UnitPrice, TaxRate: l.TaxRate, DiscountRate: l.DiscountRate,
			Base: l.Base, Tax: l.Tax, Total: l.Total, Note: l.Note,
		})
	}
	for _, w := range s.Withholdings {
		out.Withholdings = append(out.Withholdings, WithholdingResponse{
			Code: w.Code, Name: w.Name, Rate: w.Rate, Base: w.Base, Amount: w.Amount,
		})
	}
	return out
}

// CreditNoteFromEntity mapea la nota crédito a su respuesta HTTP.
func CreditNoteFromEntity(n *entity.CreditNote) CreditNoteResponse {
	return CreditNoteResponse{
		ID:            n.ID,
		SaleID:        n.SaleID,
		ReferenceCode: n.ReferenceCode,
		Number:        n.FullNumber(),
		Reason:        n.Reason,
		Total:         n.Total,
		Status:        string(n.Status),
		CUFE:          n.CUFE,
		GatewayErrors: n.GatewayErrors,
	}
}
