package inventory

import (
	"sort"
	"time"

	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// KardexRow fila del kardex de un producto en una sucursal.
type KardexRow struct {
	MovementID        string
	OccurredAt        time.Time
	Kind              entity.MovementKind
	Reason            string
	ExternalReference string
	UnitCost          *decimal.Decimal
	Inbound           decimal.Decimal
	Outbound          decimal.Decimal
	Balance           decimal.Decimal
}

// Kardex resultado de reconstruir los movimientos de un producto en una sucursal.
// Opening es el saldo acumulado por los movimientos anteriores a la ventana consultada.
type Kardex struct {
	ProductID string
	BranchID  string
	Opening   decimal.Decimal
	Rows      []KardexRow
	Closing   decimal.Decimal
}

// Direction cantidades de entrada y salida que un movimiento aporta a la sucursal.
// ok es false cuando el movimiento no afecta la existencia de esa sucursal
// (por ejemplo, el registro TRANSFER_OUT visto desde la sucursal destino).
func Direction(rec entity.MovementRecord, branchID string) (in, out decimal.Decimal, ok bool) {
	isOrigin := rec.OriginBranchID != nil && *rec.OriginBranchID == branchID
	isDestination := rec.DestinationBranchID != nil && *rec.DestinationBranchID == branchID
	switch rec.Kind {
	case entity.MovementInbound, entity.MovementTransferIn:
		if isDestination {
			return rec.Quantity, decimal.Zero, true
		}
	case entity.MovementOutbound, entity.MovementTransferOut:
		if isOrigin {
			return decimal.Zero, rec.Quantity, true
		}
	case entity.MovementAdjustment:
		if isDestination {
			return rec.Quantity, decimal.Zero, true
		}
		if isOrigin {
			return decimal.Zero, rec.Quantity, true
		}
	}
	return decimal.Zero, decimal.Zero, false
}

// Replay reconstruye el kardex en orden cronológico (desempate por orden de inserción).
// Los movimientos anteriores a from alimentan el saldo inicial; los posteriores a to se ignoran.
// Sobre la historia completa Closing debe coincidir con la existencia del libro.
func Replay(productID, branchID string, records []entity.MovementRecord, from, to *time.Time) Kardex {
	sorted := make([]entity.MovementRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].OccurredAt.Equal(sorted[j].OccurredAt) {
			return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
		}
		return sorted[i].Sequence < sorted[j].Sequence
	})

	k := Kardex{ProductID: productID, BranchID: branchID, Opening: decimal.Zero}
	balance := decimal.Zero
	for _, rec := range sorted {
		if rec.ProductID != productID {
			continue
		}
		if to != nil && rec.OccurredAt.After(*to) {
			break
		}
		in, out, ok := Direction(rec, branchID)
		if !ok {
			continue
		}
		balance = balance.Add(in).Sub(out)
		if from != nil && rec.OccurredAt.Before(*from) {
			k.Opening = balance
			continue
		}
		k.Rows = append(k.Rows, KardexRow{
			MovementID:        rec.ID,
			OccurredAt:        rec.OccurredAt,
			Kind:              rec.Kind,
			Reason:            rec.Reason,
			ExternalReference: rec.ExternalReference,
			UnitCost:          rec.UnitCost,
			Inbound:           in,
			Outbound:          out,
			Balance:           balance,
		})
	}
	k.Closing = balance
	return k
}
