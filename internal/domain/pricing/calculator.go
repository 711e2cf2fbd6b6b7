// Package pricing calcula montos de líneas y totales de venta.
// Cada campo derivado se redondea a dos decimales en el momento en que se calcula.
package pricing

import (
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// DefaultAdjustmentConcept código de concepto de descuento/recargo cuando no se indica.
const DefaultAdjustmentConcept = "03"

// LineInput datos de entrada de una línea. UnitPrice incluye IVA; las tasas van en porcentaje.
type LineInput struct {
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	TaxRate      decimal.Decimal
	DiscountRate decimal.Decimal
}

// LineAmounts montos derivados de una línea.
type LineAmounts struct {
	Gross    decimal.Decimal // cantidad * precio con IVA
	Discount decimal.Decimal
	Base     decimal.Decimal // base gravable sin IVA
	Tax      decimal.Decimal
	Total    decimal.Decimal // base + IVA
}

// Line aplica el descuento sobre el valor con IVA y luego extrae la base dividiendo por (1 + IVA).
// El IVA es la diferencia entre total y base ya redondeados, de modo que Base + Tax == Total.
func Line(in LineInput) LineAmounts {
	gross := in.Quantity.Mul(in.UnitPrice).Round(2)
	discount := gross.Mul(in.DiscountRate).Div(hundred).Round(2)
	total := gross.Sub(discount)
	base := total.Div(one.Add(in.TaxRate.Div(hundred))).Round(2)
	return LineAmounts{
		Gross:    gross,
		Discount: discount,
		Base:     base,
		Tax:      total.Sub(base),
		Total:    total,
	}
}

// Percentage monto = base * tasa / 100, redondeado a dos decimales.
func Percentage(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred).Round(2)
}

// Adjustment descuento o recargo de documento ya resuelto.
type Adjustment struct {
	IsSurcharge bool
	Amount      decimal.Decimal
}

// Totals totales de la venta.
type Totals struct {
	Subtotal          decimal.Decimal
	TaxTotal          decimal.Decimal
	LineDiscountTotal decimal.Decimal
	DiscountTotal     decimal.Decimal
	SurchargeTotal    decimal.Decimal
	WithholdingTotal  decimal.Decimal
	GrandTotal        decimal.Decimal
}

// Sum suma montos de línea ya redondeados y aplica los ajustes de documento.
// Las retenciones son informativas y no alteran GrandTotal.
func Sum(lines []LineAmounts, adjustments []Adjustment, withholdings []decimal.Decimal) Totals {
	t := Totals{
		Subtotal:          decimal.Zero,
		TaxTotal:          decimal.Zero,
		LineDiscountTotal: decimal.Zero,
		DiscountTotal:     decimal.Zero,
		SurchargeTotal:    decimal.Zero,
		WithholdingTotal:  decimal.Zero,
	}
	linesTotal := decimal.Zero
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Base)
		t.TaxTotal = t.TaxTotal.Add(l.Tax)
		t.LineDiscountTotal = t.LineDiscountTotal.Add(l.Discount)
		linesTotal = linesTotal.Add(l.Total)
	}
	for _, a := range adjustments {
		if a.IsSurcharge {
			t.SurchargeTotal = t.SurchargeTotal.Add(a.Amount)
		} else {
			t.DiscountTotal = t.DiscountTotal.Add(a.Amount)
		}
	}
	for _, w := range withholdings {
		t.WithholdingTotal = t.WithholdingTotal.Add(w)
	}
	t.GrandTotal = linesTotal.Sub(t.DiscountTotal).Add(t.SurchargeTotal)
	return t
}
