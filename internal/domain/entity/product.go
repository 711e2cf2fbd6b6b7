package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product artículo vendible. Price incluye IVA; TaxRate se expresa en porcentaje (19 = 19%).
// UnitMeasureID, StandardCodeID y TributeID son los códigos del catálogo del proveedor de facturación.
type Product struct {
	ID             string
	Code           string
	Name           string
	Price          decimal.Decimal
	TaxRate        decimal.Decimal
	UnitMeasureID  int
	StandardCodeID int
	TributeID      int
	IsExcluded     bool
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
