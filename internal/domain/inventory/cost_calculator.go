package inventory

import "github.com/shopspring/decimal"

// MovingAverageCost recalcula el costo promedio ponderado tras una entrada.
// NuevoCosto = ((Existencia * CostoActual) + (CantEntrada * CostoEntrada)) / (Existencia + CantEntrada)
// Con existencia previa en cero o negativa el costo de la entrada reemplaza al anterior.
func MovingAverageCost(onHand, currentCost, inbound, inboundCost decimal.Decimal) decimal.Decimal {
	if !onHand.IsPositive() {
		return inboundCost
	}
	total := onHand.Add(inbound)
	if !total.IsPositive() {
		return currentCost
	}
	num := onHand.Mul(currentCost).Add(inbound.Mul(inboundCost))
	return num.Div(total).Round(4)
}
