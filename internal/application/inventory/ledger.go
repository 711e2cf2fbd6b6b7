package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	domaininv "github.com/LuisDaniel15/Software-Pos/internal/domain/inventory"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/repository"
)

// Adjustment entrada de AdjustStock. Para OUTBOUND/TRANSFER_OUT Delta es la magnitud positiva;
// para ADJUSTMENT es el cambio con signo.
type Adjustment struct {
	ProductID string
	BranchID  string
	Delta     decimal.Decimal
	Kind      entity.MovementKind
	UnitCost  *decimal.Decimal
	Reason    string
	Reference string
}

// AdjustResult existencia antes y después del cambio.
type AdjustResult struct {
	PreviousQuantity decimal.Decimal
	NewQuantity      decimal.Decimal
	Movement         *entity.MovementRecord
}

// Transfer traslado de existencias entre dos sucursales.
type Transfer struct {
	ProductID    string
	FromBranchID string
	ToBranchID   string
	Quantity     decimal.Decimal
	Reason       string
}

// TransferResult existencias resultantes en origen y destino.
type TransferResult struct {
	Reference string
	Origin    AdjustResult
	Dest      AdjustResult
}

// Count conteo físico que reemplaza la existencia registrada.
type Count struct {
	ProductID   string
	BranchID    string
	NewQuantity decimal.Decimal
	Reason      string
}

// LedgerUseCase libro de existencias por (producto, sucursal). Toda modificación pasa por una fila
// bloqueada con SELECT ... FOR UPDATE y deja un movimiento en el kardex en la misma transacción.
type LedgerUseCase struct {
	txRunner    TxRunner
	productRepo repository.ProductRepository
	branchRepo  repository.BranchRepository
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	branchRepo repository.BranchRepository,
) *LedgerUseCase {
	return &LedgerUseCase{
		txRunner:    txRunner,
		productRepo: productRepo,
		branchRepo:  branchRepo,
	}
}

// AdjustStock aplica una entrada, salida o ajuste relativo en su propia transacción.
func (uc *LedgerUseCase) AdjustStock(ctx context.Context, actor domain.Actor, at time.Time, in Adjustment) (*AdjustResult, error) {
	if in.Kind == entity.MovementTransferIn || in.Kind == entity.MovementTransferOut {
		return nil, domain.NewValidationError("kind", "los traslados se registran con TransferStock")
	}
	if err := validateAdjustment(in); err != nil {
		return nil, err
	}
	if err := uc.checkRefs(ctx, in.ProductID, in.BranchID); err != nil {
		return nil, err
	}
	var res *AdjustResult
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		var err error
		res, err = uc.ApplyInTx(ctx, repos, actor, at, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ApplyInTx aplica el cambio usando los repositorios de la transacción del llamador.
// La facturación lo usa para descontar existencias dentro de la transacción de la venta.
func (uc *LedgerUseCase) ApplyInTx(ctx context.Context, repos repository.TxRepos, actor domain.Actor, at time.Time, in Adjustment) (*AdjustResult, error) {
	if err := validateAdjustment(in); err != nil {
		return nil, err
	}
	entry, err := repos.Stock.GetForUpdate(ctx, in.ProductID, in.BranchID)
	if err != nil {
		return nil, err
	}
	prev := entry.QuantityOnHand
	branch := in.BranchID
	mov := &entity.MovementRecord{
		ID:                uuid.New().String(),
		ProductID:         in.ProductID,
		Kind:              in.Kind,
		Quantity:          in.Delta.Abs(),
		Reason:            in.Reason,
		ExternalReference: in.Reference,
		OccurredAt:        at,
		CreatedBy:         actor.UserID,
	}

	switch in.Kind {
	case entity.MovementInbound, entity.MovementTransferIn:
		credit(entry, in.Delta, in.UnitCost, at)
		mov.DestinationBranchID = &branch
		mov.UnitCost = in.UnitCost
	case entity.MovementOutbound, entity.MovementTransferOut:
		if err := debit(entry, in.Delta, at); err != nil {
			return nil, err
		}
		cost := entry.MovingAverageCost
		mov.OriginBranchID = &branch
		mov.UnitCost = &cost
	case entity.MovementAdjustment:
		if in.Delta.IsNegative() {
			if err := debit(entry, in.Delta.Abs(), at); err != nil {
				return nil, err
			}
			mov.OriginBranchID = &branch
		} else {
			credit(entry, in.Delta, in.UnitCost, at)
			mov.DestinationBranchID = &branch
			mov.UnitCost = in.UnitCost
		}
	}

	entry.UpdatedAt = at
	if err := repos.Stock.Update(ctx, entry); err != nil {
		return nil, err
	}
	if err := repos.Movements.Append(ctx, mov); err != nil {
		return nil, fmt.Errorf("append movement: %w", err)
	}
	return &AdjustResult{PreviousQuantity: prev, NewQuantity: entry.QuantityOnHand, Movement: mov}, nil
}

// TransferStock traslada en una sola transacción. Bloquea ambas filas en orden de ID de sucursal
// para que dos traslados en sentidos opuestos no se bloqueen mutuamente.
func (uc *LedgerUseCase) TransferStock(ctx context.Context, actor domain.Actor, at time.Time, in Transfer) (*TransferResult, error) {
	if in.ProductID == "" || in.FromBranchID == "" || in.ToBranchID == "" {
		return nil, domain.NewValidationError("transfer", "producto, origen y destino son obligatorios")
	}
	if in.FromBranchID == in.ToBranchID {
		return nil, domain.NewValidationError("to_branch_id", "origen y destino deben ser diferentes")
	}
	if !in.Quantity.IsPositive() {
		return nil, domain.NewValidationError("quantity", "la cantidad debe ser mayor a cero")
	}
	if err := uc.checkRefs(ctx, in.ProductID, in.FromBranchID, in.ToBranchID); err != nil {
		return nil, err
	}

	reference := fmt.Sprintf("TRASLADO-%s-%s", at.Format("20060102150405"), uuid.New().String()[:8])
	reason := in.Reason
	if reason == "" {
		reason = "Traslado entre sucursales"
	}
	var res TransferResult
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		first, second := in.FromBranchID, in.ToBranchID
		if second < first {
			first, second = second, first
		}
		rows := map[string]*entity.StockLedgerEntry{}
		for _, b := range []string{first, second} {
			e, err := repos.Stock.GetForUpdate(ctx, in.ProductID, b)
			if err != nil {
				return err
			}
			rows[b] = e
		}
		origin, dest := rows[in.FromBranchID], rows[in.ToBranchID]

		originPrev, destPrev := origin.QuantityOnHand, dest.QuantityOnHand
		if err := debit(origin, in.Quantity, at); err != nil {
			return err
		}
		cost := origin.MovingAverageCost
		var inCost *decimal.Decimal
		if cost.IsPositive() {
			inCost = &cost
		}
		credit(dest, in.Quantity, inCost, at)
		origin.UpdatedAt, dest.UpdatedAt = at, at

		for _, e := range []*entity.StockLedgerEntry{origin, dest} {
			if err := repos.Stock.Update(ctx, e); err != nil {
				return err
			}
		}

		from, to := in.FromBranchID, in.ToBranchID
		outMov := &entity.MovementRecord{
			ID: uuid.New().String(), ProductID: in.ProductID,
			OriginBranchID: &from, DestinationBranchID: &to,
			Kind: entity.MovementTransferOut, Quantity: in.Quantity, UnitCost: &cost,
			Reason: reason, ExternalReference: reference, OccurredAt: at, CreatedBy: actor.UserID,
		}
		inMov := &entity.MovementRecord{
			ID: uuid.New().String(), ProductID: in.ProductID,
			OriginBranchID: &from, DestinationBranchID: &to,
			Kind: entity.MovementTransferIn, Quantity: in.Quantity, UnitCost: &cost,
			Reason: reason, ExternalReference: reference, OccurredAt: at, CreatedBy: actor.UserID,
		}
		for _, m := range []*entity.MovementRecord{outMov, inMov} {
			if err := repos.Movements.Append(ctx, m); err != nil {
				return fmt.Errorf("append movement: %w", err)
			}
		}
		res = TransferResult{
			Reference: reference,
			Origin:    AdjustResult{PreviousQuantity: originPrev, NewQuantity: origin.QuantityOnHand, Movement: outMov},
			Dest:      AdjustResult{PreviousQuantity: destPrev, NewQuantity: dest.QuantityOnHand, Movement: inMov},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SetAbsoluteStock reemplaza la existencia por un conteo físico. El movimiento ADJUSTMENT registra
// la diferencia absoluta; el signo solo decide si se anota como origen o destino.
func (uc *LedgerUseCase) SetAbsoluteStock(ctx context.Context, actor domain.Actor, at time.Time, in Count) (*AdjustResult, error) {
	if in.ProductID == "" || in.BranchID == "" {
		return nil, domain.NewValidationError("count", "producto y sucursal son obligatorios")
	}
	if in.NewQuantity.IsNegative() {
		return nil, domain.NewValidationError("new_quantity", "la cantidad no puede ser negativa")
	}
	if err := uc.checkRefs(ctx, in.ProductID, in.BranchID); err != nil {
		return nil, err
	}
	reason := in.Reason
	if reason == "" {
		reason = "Ajuste por conteo físico"
	}
	var res *AdjustResult
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		entry, err := repos.Stock.GetForUpdate(ctx, in.ProductID, in.BranchID)
		if err != nil {
			return err
		}
		prev := entry.QuantityOnHand
		diff := in.NewQuantity.Sub(prev)
		branch := in.BranchID
		mov := &entity.MovementRecord{
			ID: uuid.New().String(), ProductID: in.ProductID,
			Kind: entity.MovementAdjustment, Quantity: diff.Abs(),
			Reason: reason, OccurredAt: at, CreatedBy: actor.UserID,
		}
		if diff.IsNegative() {
			mov.OriginBranchID = &branch
			entry.LastOutboundAt = &at
		} else {
			mov.DestinationBranchID = &branch
			if diff.IsPositive() {
				entry.LastInboundAt = &at
			}
		}
		entry.QuantityOnHand = in.NewQuantity
		entry.UpdatedAt = at
		if err := repos.Stock.Update(ctx, entry); err != nil {
			return err
		}
		if err := repos.Movements.Append(ctx, mov); err != nil {
			return fmt.Errorf("append movement: %w", err)
		}
		res = &AdjustResult{PreviousQuantity: prev, NewQuantity: entry.QuantityOnHand, Movement: mov}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func validateAdjustment(in Adjustment) error {
	if in.ProductID == "" || in.BranchID == "" {
		return domain.NewValidationError("adjustment", "producto y sucursal son obligatorios")
	}
	if !in.Kind.Valid() {
		return domain.NewValidationError("kind", "tipo de movimiento desconocido")
	}
	if in.Kind == entity.MovementAdjustment {
		if in.Delta.IsZero() {
			return domain.NewValidationError("delta", "el ajuste no puede ser cero")
		}
	} else if !in.Delta.IsPositive() {
		return domain.NewValidationError("delta", "la cantidad debe ser mayor a cero")
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return domain.NewValidationError("unit_cost", "el costo no puede ser negativo")
	}
	return nil
}

// credit suma a la existencia y recalcula el costo promedio cuando llega un costo positivo.
func credit(e *entity.StockLedgerEntry, qty decimal.Decimal, unitCost *decimal.Decimal, at time.Time) {
	if unitCost != nil && unitCost.IsPositive() {
		e.MovingAverageCost = domaininv.MovingAverageCost(e.QuantityOnHand, e.MovingAverageCost, qty, *unitCost)
	}
	e.QuantityOnHand = e.QuantityOnHand.Add(qty)
	e.LastInboundAt = &at
}

// debit resta de la existencia; nunca la deja negativa.
func debit(e *entity.StockLedgerEntry, qty decimal.Decimal, at time.Time) error {
	if e.QuantityOnHand.LessThan(qty) {
		return &domain.InsufficientStockError{
			ProductID: e.ProductID,
			BranchID:  e.BranchID,
			Available: e.QuantityOnHand,
			Requested: qty,
		}
	}
	e.QuantityOnHand = e.QuantityOnHand.Sub(qty)
	e.LastOutboundAt = &at
	return nil
}

// checkRefs verifica que el producto y las sucursales existan y estén activos.
func (uc *LedgerUseCase) checkRefs(ctx context.Context, productID string, branchIDs ...string) error {
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if !product.Active {
		return domain.NewValidationError("product_id", "producto inactivo")
	}
	for _, id := range branchIDs {
		branch, err := uc.branchRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("sucursal %s: %w", id, domain.ErrNotFound)
			}
			return err
		}
		if !branch.Active {
			return domain.NewValidationError("branch_id", "sucursal inactiva")
		}
	}
	return nil
}
