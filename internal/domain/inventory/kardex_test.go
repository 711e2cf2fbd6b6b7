package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/inventory"
)

func ptr(s string) *string { return &s }

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func records() []entity.MovementRecord {
	return []entity.MovementRecord{
		{ID: "m1", Sequence: 1, ProductID: "p1", DestinationBranchID: ptr("A"), Kind: entity.MovementInbound, Quantity: decimal.NewFromInt(10), OccurredAt: base},
		{ID: "m2", Sequence: 2, ProductID: "p1", OriginBranchID: ptr("A"), Kind: entity.MovementOutbound, Quantity: decimal.NewFromInt(3), OccurredAt: base.Add(time.Hour)},
		// traslado A -> B: ambos registros llevan origen y destino
		{ID: "m3", Sequence: 3, ProductID: "p1", OriginBranchID: ptr("A"), DestinationBranchID: ptr("B"), Kind: entity.MovementTransferOut, Quantity: decimal.NewFromInt(2), OccurredAt: base.Add(2 * time.Hour)},
		{ID: "m4", Sequence: 4, ProductID: "p1", OriginBranchID: ptr("A"), DestinationBranchID: ptr("B"), Kind: entity.MovementTransferIn, Quantity: decimal.NewFromInt(2), OccurredAt: base.Add(2 * time.Hour)},
		{ID: "m5", Sequence: 5, ProductID: "p1", OriginBranchID: ptr("A"), Kind: entity.MovementAdjustment, Quantity: decimal.NewFromInt(1), OccurredAt: base.Add(3 * time.Hour)},
	}
}

func TestReplay_HistoriaCompleta(t *testing.T) {
	k := inventory.Replay("p1", "A", records(), nil, nil)
	require.Len(t, k.Rows, 4, "el TRANSFER_IN hacia B no afecta a A")
	assert.True(t, k.Closing.Equal(decimal.NewFromInt(4)), "10 - 3 - 2 - 1")
	assert.True(t, k.Opening.IsZero())

	kb := inventory.Replay("p1", "B", records(), nil, nil)
	require.Len(t, kb.Rows, 1)
	assert.Equal(t, entity.MovementTransferIn, kb.Rows[0].Kind)
	assert.True(t, kb.Closing.Equal(decimal.NewFromInt(2)))
}

func TestReplay_VentanaConSaldoInicial(t *testing.T) {
	from := base.Add(90 * time.Minute)
	to := base.Add(150 * time.Minute)
	k := inventory.Replay("p1", "A", records(), &from, &to)
	assert.True(t, k.Opening.Equal(decimal.NewFromInt(7)))
	require.Len(t, k.Rows, 1)
	assert.Equal(t, "m3", k.Rows[0].MovementID)
	assert.True(t, k.Rows[0].Balance.Equal(decimal.NewFromInt(5)))
}

func TestReplay_DesempataPorSecuencia(t *testing.T) {
	recs := records()
	// misma fecha, orden de llegada invertido
	recs[0].OccurredAt = base.Add(time.Hour)
	recs[0], recs[1] = recs[1], recs[0]
	recs[0].Sequence, recs[1].Sequence = 2, 1
	k := inventory.Replay("p1", "A", recs, nil, nil)
	assert.Equal(t, "m1", k.Rows[0].MovementID)
	assert.True(t, k.Rows[0].Balance.Equal(decimal.NewFromInt(10)))
}

func TestMovingAverageCost(t *testing.T) {
	got := inventory.MovingAverageCost(decimal.NewFromInt(10), decimal.NewFromInt(100), decimal.NewFromInt(10), decimal.NewFromInt(200))
	assert.True(t, got.Equal(decimal.NewFromInt(150)))

	first := inventory.MovingAverageCost(decimal.Zero, decimal.Zero, decimal.NewFromInt(5), decimal.NewFromInt(80))
	assert.True(t, first.Equal(decimal.NewFromInt(80)), "sin existencia previa el costo es el de la entrada")
}
