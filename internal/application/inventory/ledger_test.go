package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuisDaniel15/Software-Pos/internal/application/inventory"
	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/testutil/memstore"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

var (
	t0     = time.Date(2025, 5, 12, 8, 0, 0, 0, time.UTC)
	bodega = domain.Actor{UserID: "u-bodega", BranchID: "b-1"}
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(v decimal.Decimal) *decimal.Decimal { return &v }

func newStore() *memstore.Store {
	st := memstore.New()
	st.PutBranch(entity.Branch{ID: "b-1", Name: "Principal", Active: true})
	st.PutBranch(entity.Branch{ID: "b-2", Name: "Norte", Active: true})
	st.PutBranch(entity.Branch{ID: "b-3", Name: "Cerrada", Active: false})
	st.PutProduct(entity.Product{ID: "p-1", Code: "ARZ-1K", Name: "Arroz 1kg", Price: d("5200"), TaxRate: d("0"), Active: true})
	st.PutProduct(entity.Product{ID: "p-old", Code: "OLD", Name: "Descontinuado", Active: false})
	return st
}

func inbound(qty string, cost *decimal.Decimal) inventory.Adjustment {
	return inventory.Adjustment{
		ProductID: "p-1", BranchID: "b-1", Delta: d(qty),
		Kind: entity.MovementInbound, UnitCost: cost, Reason: "Compra",
	}
}

// ── Entradas y salidas ──

func TestAdjustStock_EntradasRecalculanCostoPromedio(t *testing.T) {
	st := newStore()
	uc := inventory.NewLedgerUseCase(st, st.Products(), st.Branches())
	ctx := context.Background()

	_, err := uc.AdjustStock(ctx, bodega, t0, inbound("10", ptr(d("1000"))))
	require.NoError(t, err)
	res, err := uc.AdjustStock(ctx, bodega, t0.Add(time.Hour), inbound("10", ptr(d("2000"))))
	require.NoError(t, err)

	assert.True(t, res.PreviousQuantity.Equal(d("10")))
	assert.True(t, res.NewQuantity.Equal(d("20")))
	entry, err := st.Stock().Get(ctx, "p-1", "b-1")
	require.NoError(t, err)
	assert.True(t, entry.MovingAverageCost.Equal(d("1500")), "costo: %s", entry.MovingAverageCost)
	require.NotNil(t, entry.LastInboundAt)
	assert.Equal(t, t0.Add(time.Hour), *entry.LastInboundAt)

	require.NotNil(t, res.Movement.DestinationBranchID)
	assert.Equal(t, "b-1", *res.Movement.DestinationBranchID)
	assert.Nil(t, res.Movement.OriginBranchID)
	assert.Equal(t, "u-bodega", res.Movement.CreatedBy)
}

func TestAdjustStock_SalidaInsuficiente_NoCambiaNada(t *testing.T) {
	st := newStore()
	uc := inventory.NewLedgerUseCase(st, st.Products(), st.Branches())
	ctx := context.Background()
	_, err := uc.AdjustStock(ctx, bodega, t0, inbound("5", nil))
	require.NoError(t, err)

	_, err = uc.AdjustStock(ctx, bodega, t0, inventory.Adjustment{
		ProductID: "p-1", BranchID: "b-1", Delta: d("6"), Kind: entity.MovementOutbound, Reason: "Merma",
	})
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.True(t, stockErr.Available.Equal(d("5")))

	assert.True(t, st.QuantityOnHand("p-1", "b-1").Equal(d("5")))
	assert.Len(t, st.AllMovements(), 1)
}

func TestAdjustStock_AjusteConSigno(t *testing.T) {
	st := newStore()
	uc := inventory.NewLedgerUseCase(st, st.Products(), st.Branches())
	ctx := context.Background()
	_, err := uc.AdjustStock(ctx, bodega, t0, inbound("5", nil))
	require.NoError(t, err)

	res, err := uc.AdjustStock(ctx, bodega, t0, inventory.Adjustment{
		ProductID: "p-1", BranchID: "b-1", Delta: d("-2"), Kind: entity.MovementAdjustment, Reason: "Rotura",
	})
	require.NoError(t, err)
	assert.True(t, res.NewQuantity.Equal(d("3")))
	assert.True(t, res.Movement.Quantity.Equal(d("2")), "el movimiento guarda la magnitud")
	require.NotNil(t, res.Movement.OriginBranchID)

	res, err = uc.AdjustStock(ctx, bodega, t0, inventory.Adjustment{
		ProductID: "p-1", BranchID: "b-1", Delta: d("4"), Kind: entity.MovementAdjustment, Reason: "Sobrante",
	})
	require.NoError(t, err)
	assert.True(t, res.NewQuantity.Equal(d("7")))
	require.NotNil(t, res.Movement.DestinationBranchID)
}

func TestAdjustStock_AjustePositivoConCosto_QuedaEnElKardex(t *testing.T) {
	st := newStore()
	uc := inventory.NewLedgerUseCase(st, st.Products(), st.Branches())
	ctx := context.Background()
	_, err := uc.AdjustStock(ctx, bodega, t0, inbound("10", ptr(d("1000"))))
	require.NoError(t, err)

	res, err := uc.AdjustStock(ctx, bodega, t0.Add(time.Hour), inventory.Adjustment{
		ProductID: "p-1", BranchID: "b-1", Delta: d("10"), Kind: entity.MovementAdjustment,
		UnitCost: ptr(d("3000")), Reason: "Sobrante de conteo",
	})
	require.NoError(t, err)

	require.NotNil(t, res.Movement.UnitCost)
	assert.True(t, res.Movement.UnitCost.Equal(d("3000")))
	entry, err := st.Stock().Get(ctx, "p-1", "b-1")
	require.NoError(t, err)
	assert.True(t, entry.MovingAverageCost.Equal(d("2000")), "costo: %s", entry.MovingAverageCost)
}

func TestAdjustStock_Validaciones(t *testing.T) {
	st := newStore()
	uc := inventory.NewLedgerUseCase(st, st.Products(), st.Branches())
	ctx := context.Background()

	cases := []struct {
		name string
		in   inventory.Adjustment
		want error
	}{
		{"traslado por la ruta equivocada", inventory.Adjustment{ProductID: "p-1", BranchID: "b-1", Delta: d("1"), Kind: entity.MovementTransferOut}, domain.ErrInvalidInput},
		{"cantidad cero", inventory.Adjustment{ProductID: "p-1", BranchID: "b-1", Delta: d("0"), Kind: entity.MovementInbound}, domain.ErrInvalidInput},
		{"ajuste en cero", inventory.Adjustment{ProductID: "p-1", BranchID: "b-1", Delta: d("0"), Kind: entity.MovementAdjustment}, domain.ErrInvalidInput},
		{"costo negativo", inventory.Adjustment{ProductID: "p-1", BranchID: "b-1", Delta: d("1"), Kind: entity.MovementInbound, UnitCost: ptr(d("-1"))}, domain.ErrInvalidInput},
		{"tipo desconocido", inventory.Adjustment{ProductID: "p-1", BranchID: "b-1", Delta: d("1"), Kind: "GIFT"}, domain.ErrInvalidInput},
		{"producto inactivo", inventory.Adjustment{ProductID: "p-old", BranchID: "b-1", Delta: d("1"), Kind: entity.MovementInbound}, domain.ErrInvalidInput},
		{"sucursal inactiva", inventory.Adjustment{ProductID: "p-1", BranchID: "b-3", Delta: d("1"), Kind: entity.MovementInbound}, domain.ErrInvalidInput},
		{"producto inexistente", inventory.Adjustment{ProductID: "p-x", BranchID: "b-1", Delta: d("1"), Kind: entity.MovementInbound}, domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.AdjustStock(ctx, bodega, t0, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, st.AllMovements())
}

// ── Traslados ──

func TestTransferStock_MueveExistenciaYCosto(t *testing.T) {
	st := newStore()
	uc := inventory.NewLedgerUseCase(st, st.Products(), st.Branches())
	ctx := context.Background()
	_, err := uc.AdjustStock(ctx, bodega, t0, inbound("10", ptr(d("1000"))))
	require.NoError(t, err)

	res, err := uc.TransferStock(ctx, bodega, t0.Add(time.Hour), inventory.Transfer{
		ProductID: "p-1", FromBranchID: "b-1", ToBranchID: "b-2", Quantity: d("4"),
	})
	require.NoError(t, err)

	assert.Regexp(t, `^TRASLADO-20250512090000-[0-9a-f]{8}$`, res.Reference)
	assert.True(t, res.Origin.NewQuantity.Equal(d("6")))
	assert.True(t, res.Dest.NewQuantity.Equal(d("4")))
	assert.True(t, st.QuantityOnHand("p-1", "b-2").Equal(d("4")))

	dest, err := st.Stock().Get(ctx, "p-1", "b-2")
	require.NoError(t, err)
	assert.True(t, dest.MovingAverageCost.Equal(d("1000")))

	movs := st.AllMovements()
	require.Len(t, movs, 3)
	assert.Equal(t, entity.MovementTransferOut, movs[1].Kind)
	assert.Equal(t, entity.MovementTransferIn, movs[2].Kind)
	assert.Equal(t, res.Reference, movs[1].ExternalReference)
	assert.Equal(t, res.Reference, movs[2].ExternalReference)
	assert.Equal(t, "Traslado entre sucursales", movs[1].Reason)
}

func TestTransferStock_Insuficiente_NingunaSucursalCambia(t *testing.T) {
	st := newStore()
	uc := inventory.NewLedgerUseCase(st, st.Products(), st.Branches())
	ctx := context.Background()
	_, err := uc.AdjustStock(ctx, bodega, t0, inbound("3", nil))
	require.NoError(t, err)

	_, err = uc.TransferStock(ctx, bodega, t0, inventory.Transfer{
		ProductID: "p-1", FromBranchID: "b-1", ToBranchID: "b-2", Quantity: d("5"),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, st.QuantityOnHand("p-1", "b-1").Equal(d("3")))
	assert.True(t, st.QuantityOnHand("p-1", "b-2").IsZero())
	assert.Len(t, st.AllMovements(), 1)
}

func TestTransferStock_FallaAlRegistrarMovimiento_Revierte(t *testing.T) {
	st := newStore()
	uc := inventory.NewLedgerUseCase(st, st.Products(), st.Branches())
	ctx := context.Background()
	_, err := uc.AdjustStock(ctx, bodega, t0, inbound("10", nil))
	require.NoError(t, err)
	st.FailOn("movements.append", memstore.ErrInjected)

	_, err = uc.TransferStock(ctx, bodega, t0, inventory.Transfer{
		ProductID: "p-1", FromBranchID: "b-1", ToBranchID: "b-2", Quantity: d("4"),
	})
	require.ErrorIs(t, err, memstore.ErrInjected)
	assert.True(t, st.QuantityOnHand("p-1", "b-1").Equal(d("10")))
	assert.True(t, st.QuantityOnHand("p-1", "b-2").IsZero())
}

func TestTransferStock_MismaSucursal_EsInvalido(t *testing.T) {
	st := newStore()
	uc := inventory.NewLedgerUseCase(st, st.Products(), st.Branches())

	_, err := uc.TransferStock(context.Background(), bodega, t0, inventory.Transfer{
		ProductID: "p-1", FromBranchID: "b-1", ToBranchID: "b-1", Quantity: d("1"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ── Conteo físico ──

func TestSetAbsoluteStock_RegistraDiferencia(t *testing.T) {
	st := newStore()
	uc := inventory.NewLedgerUseCase(st, st.Products(), st.Branches())
	ctx := context.Background()
	_, err := uc.AdjustStock(ctx, bodega, t0, inbound("10", nil))
	require.NoError(t, err)

	res, err := uc.SetAbsoluteStock(ctx, bodega, t0.Add(time.Hour), inventory.Count{ProductID: "p-1", BranchID: "b-1", NewQuantity: d("7")})
	require.NoError(t, err)
	assert.True(t, res.PreviousQuantity.Equal(d("10")))
	assert.True(t, res.NewQuantity.Equal(d("7")))
	assert.Equal(t, entity.MovementAdjustment, res.Movement.Kind)
	assert.True(t, res.Movement.Quantity.Equal(d("3")))
	require.NotNil(t, res.Movement.OriginBranchID)
	assert.Equal(t, "Ajuste por conteo físico", res.Movement.Reason)

	kardex := inventory.NewKardexUseCase(st.Movements(), st.Stock(), logger.Nop())
	rec, err := kardex.Reconcile(ctx, "p-1", "b-1")
	require.NoError(t, err)
	assert.True(t, rec.Replayed.Equal(d("7")))
}

func TestSetAbsoluteStock_CantidadNegativa_EsInvalida(t *testing.T) {
	st := newStore()
	uc := inventory.NewLedgerUseCase(st, st.Products(), st.Branches())

	_, err := uc.SetAbsoluteStock(context.Background(), bodega, t0, inventory.Count{ProductID: "p-1", BranchID: "b-1", NewQuantity: d("-1")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
