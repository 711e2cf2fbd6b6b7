package pricing

import (
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Recompute recalcula montos de líneas, retenciones consolidadas, ajustes y totales de la venta.
// Debe llamarse después de cualquier cambio estructural de la venta.
func Recompute(s *entity.Sale) {
	amounts := make([]LineAmounts, 0, len(s.Lines))
	withheld := make([]decimal.Decimal, 0)
	var consolidated []entity.SaleWithholding
	index := map[string]int{}

	for i := range s.Lines {
		l := &s.Lines[i]
		a := Line(LineInput{
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			TaxRate:      l.TaxRate,
			DiscountRate: l.DiscountRate,
		})
		l.DiscountAmount = a.Discount
		l.Base = a.Base
		l.Tax = a.Tax
		l.Total = a.Total
		amounts = append(amounts, a)

		for j := range l.Withholdings {
			w := &l.Withholdings[j]
			w.Amount = Percentage(l.Base, w.Rate)
			withheld = append(withheld, w.Amount)
			pos, ok := index[w.Code]
			if !ok {
				consolidated = append(consolidated, entity.SaleWithholding{
					Code: w.Code, Name: w.Name, Rate: w.Rate,
					Base: decimal.Zero, Amount: decimal.Zero,
				})
				pos = len(consolidated) - 1
				index[w.Code] = pos
			}
			consolidated[pos].Base = consolidated[pos].Base.Add(l.Base)
			consolidated[pos].Amount = consolidated[pos].Amount.Add(w.Amount)
		}
	}
	s.Withholdings = consolidated

	adjustments := make([]Adjustment, 0, len(s.Adjustments))
	for i := range s.Adjustments {
		adj := &s.Adjustments[i]
		if adj.ConceptCode == "" {
			adj.ConceptCode = DefaultAdjustmentConcept
		}
		if adj.Rate != nil {
			adj.Amount = Percentage(adj.BaseAmount, *adj.Rate)
		} else {
			adj.Amount = adj.Amount.Round(2)
		}
		adjustments = append(adjustments, Adjustment{IsSurcharge: adj.IsSurcharge, Amount: adj.Amount})
	}

	t := Sum(amounts, adjustments, withheld)
	s.Subtotal = t.Subtotal
	s.TaxTotal = t.TaxTotal
	s.LineDiscountTotal = t.LineDiscountTotal
	s.DiscountTotal = t.DiscountTotal
	s.SurchargeTotal = t.SurchargeTotal
	s.WithholdingTotal = t.WithholdingTotal
	s.GrandTotal = t.GrandTotal
}
