package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleStatus estado de la venta frente a la validación fiscal.
type SaleStatus string

const (
	SaleStatusDraft                   SaleStatus = "DRAFT"                     // líneas y totales calculados, sin persistir
	SaleStatusPendingFiscalValidation SaleStatus = "PENDING_FISCAL_VALIDATION" // transacción local confirmada
	SaleStatusValidated               SaleStatus = "VALIDATED"                 // aceptada por el proveedor de facturación
	SaleStatusRejected                SaleStatus = "REJECTED"                  // rechazada o proveedor inalcanzable; requiere reintento
	SaleStatusCancelled               SaleStatus = "CANCELLED"                 // anulada mediante nota crédito
)

// CanTransitionTo transiciones permitidas. REJECTED -> REJECTED cubre un reintento fallido.
func (s SaleStatus) CanTransitionTo(next SaleStatus) bool {
	switch s {
	case SaleStatusDraft:
		return next == SaleStatusPendingFiscalValidation
	case SaleStatusPendingFiscalValidation:
		return next == SaleStatusValidated || next == SaleStatusRejected
	case SaleStatusRejected:
		return next == SaleStatusValidated || next == SaleStatusRejected
	case SaleStatusValidated:
		return next == SaleStatusCancelled
	}
	return false
}

// Retryable la venta admite un nuevo envío al proveedor con el mismo número.
func (s SaleStatus) Retryable() bool {
	return s == SaleStatusRejected || s == SaleStatusPendingFiscalValidation
}

// Formas de pago.
const (
	PaymentFormCash   = 1
	PaymentFormCredit = 2
)

// Sale cabecera de la venta con sus líneas, retenciones y ajustes de documento.
// Los totales se derivan de las líneas y ajustes; nunca se editan a mano.
type Sale struct {
	ID                string
	ReferenceCode     string
	CustomerID        string
	BranchID          string
	UserID            string
	TillSessionID     *string
	DocumentType      string
	RangeID           string
	GatewayRangeID    int64
	Prefix            string
	Number            int64
	PaymentForm       int
	PaymentMethodCode string
	DueDate           *time.Time
	Observation       string
	Status            SaleStatus

	Subtotal          decimal.Decimal
	TaxTotal          decimal.Decimal
	LineDiscountTotal decimal.Decimal
	DiscountTotal     decimal.Decimal
	SurchargeTotal    decimal.Decimal
	WithholdingTotal  decimal.Decimal
	GrandTotal        decimal.Decimal

	GatewayBillID   int64
	GatewayNumber   string
	CUFE            string
	QRURL           string
	GatewayErrors   []string
	GatewayAttempts int
	ValidatedAt     *time.Time

	Lines        []SaleLine
	Withholdings []SaleWithholding
	Adjustments  []SaleAdjustment

	OccurredAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FullNumber número fiscal con prefijo.
func (s Sale) FullNumber() string {
	return NumberingRange{Prefix: s.Prefix}.FormatNumber(s.Number)
}

// SaleLine línea de la venta. Base, Tax y Total se derivan de cantidad, precio, IVA y descuento.
type SaleLine struct {
	ID             string
	SaleID         string
	Position       int
	ProductID      string
	Code           string
	Name           string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	TaxRate        decimal.Decimal
	DiscountRate   decimal.Decimal
	DiscountAmount decimal.Decimal
	Base           decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
	Note           string
	UnitMeasureID  int
	StandardCodeID int
	TributeID      int
	IsExcluded     bool
	Withholdings   []LineWithholding
}

// LineWithholding retención aplicada sobre la base de una línea.
type LineWithholding struct {
	Code   string
	Name   string
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// SaleWithholding retención consolidada por código a nivel de venta.
type SaleWithholding struct {
	Code   string
	Name   string
	Rate   decimal.Decimal
	Base   decimal.Decimal
	Amount decimal.Decimal
}

// SaleAdjustment descuento o recargo a nivel de documento.
type SaleAdjustment struct {
	ConceptCode string
	IsSurcharge bool
	Reason      string
	BaseAmount  decimal.Decimal
	Rate        *decimal.Decimal
	Amount      decimal.Decimal
}
