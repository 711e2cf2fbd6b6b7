package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditNoteStatus estado fiscal de la nota crédito.
type CreditNoteStatus string

const (
	CreditNoteStatusPending   CreditNoteStatus = "PENDING_FISCAL_VALIDATION"
	CreditNoteStatusValidated CreditNoteStatus = "VALIDATED"
	CreditNoteStatusRejected  CreditNoteStatus = "REJECTED"
)

// CreditNote documento de reversión de una venta validada. Tiene su propio consecutivo;
// la venta original conserva el suyo.
type CreditNote struct {
	ID              string
	SaleID          string
	ReferenceCode   string
	RangeID         string
	GatewayRangeID  int64
	Prefix          string
	Number          int64
	Reason          string
	Total           decimal.Decimal
	Status          CreditNoteStatus
	UserID          string
	TillSessionID   *string
	GatewayNumber   string
	CUFE            string
	QRURL           string
	GatewayErrors   []string
	GatewayAttempts int
	ValidatedAt     *time.Time
	OccurredAt      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FullNumber número fiscal con prefijo.
func (n CreditNote) FullNumber() string {
	return NumberingRange{Prefix: n.Prefix}.FormatNumber(n.Number)
}
