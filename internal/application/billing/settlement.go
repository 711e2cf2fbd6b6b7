package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/LuisDaniel15/Software-Pos/internal/application/dto"
	"github.com/LuisDaniel15/Software-Pos/internal/application/inventory"
	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/pricing"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/repository"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// SettlementUseCase convierte una solicitud de venta en una venta numerada, con existencias
// descontadas y confirmación fiscal:
//
//	Validación → Tx local (consecutivo + débito de existencias + venta + caja) → Commit
//	→ Proveedor de facturación (fuera de la tx) → VALIDATED | REJECTED
//
// Cualquier falla antes del commit no deja rastro. Después del commit la venta solo avanza.
type SettlementUseCase struct {
	txRunner  TxRunner
	ledger    Ledger
	allocator NumberAllocator
	fiscal    *FiscalOrchestrator
	locker    RetryLocker
	repos     Repos
	log       *logger.Logger
}

// NewSettlementUseCase construye el caso de uso. locker puede ser nil (sin Redis): el update
// condicional de estado sigue evitando transiciones inválidas.
func NewSettlementUseCase(
	txRunner TxRunner,
	ledger Ledger,
	allocator NumberAllocator,
	fiscal *FiscalOrchestrator,
	locker RetryLocker,
	repos Repos,
	log *logger.Logger,
) *SettlementUseCase {
	return &SettlementUseCase{
		txRunner:  txRunner,
		ledger:    ledger,
		allocator: allocator,
		fiscal:    fiscal,
		locker:    locker,
		repos:     repos,
		log:       log.With("settlement"),
	}
}

// Settle registra la venta. Devuelve la venta en VALIDATED o REJECTED, o un error de negocio
// si nada se alcanzó a confirmar (validación, stock insuficiente, sin rango de numeración).
func (uc *SettlementUseCase) Settle(ctx context.Context, actor domain.Actor, at time.Time, in dto.SettleSaleRequest) (*entity.Sale, error) {
	ctx, span := tracer.Start(ctx, "settlement.settle")
	defer span.End()

	if actor.UserID == "" || actor.BranchID == "" {
		return nil, domain.NewValidationError("actor", "usuario y sucursal del cajero son obligatorios")
	}
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	sale, err := uc.buildDraft(ctx, actor, at, in)
	if err != nil {
		return nil, err
	}
	if err := uc.precheckStock(ctx, sale); err != nil {
		return nil, err
	}

	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		res, err := uc.allocator.ReserveNextInTx(ctx, repos.Ranges, entity.DocumentTypeSalesInvoice, at)
		if err != nil {
			return err
		}
		sale.RangeID = res.Range.ID
		sale.GatewayRangeID = res.Range.GatewayRangeID
		sale.Prefix = res.Range.Prefix
		sale.Number = res.Number

		reason := "Venta " + sale.FullNumber()
		for _, l := range sale.Lines {
			if _, err := uc.ledger.ApplyInTx(ctx, repos, actor, at, inventory.Adjustment{
				ProductID: l.ProductID,
				BranchID:  sale.BranchID,
				Delta:     l.Quantity,
				Kind:      entity.MovementOutbound,
				Reason:    reason,
				Reference: sale.ReferenceCode,
			}); err != nil {
				return err
			}
		}

		sale.Status = entity.SaleStatusPendingFiscalValidation
		if err := repos.Sales.Create(ctx, sale); err != nil {
			return err
		}

		if sale.TillSessionID != nil {
			saleID := sale.ID
			if err := repos.Till.AppendMovement(ctx, &entity.CashMovement{
				ID:                uuid.New().String(),
				TillSessionID:     *sale.TillSessionID,
				Kind:              entity.CashMovementIncome,
				Concept:           "Venta",
				Amount:            sale.GrandTotal,
				PaymentMethodCode: sale.PaymentMethodCode,
				SaleID:            &saleID,
				UserID:            actor.UserID,
				OccurredAt:        at,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("sale.id", sale.ID), attribute.String("sale.number", sale.FullNumber()))
	uc.log.Ctx(ctx).Info().
		Str("sale_id", sale.ID).
		Str("reference_code", sale.ReferenceCode).
		Str("number", sale.FullNumber()).
		Str("branch_id", sale.BranchID).
		Str("grand_total", sale.GrandTotal.String()).
		Msg("venta confirmada localmente")

	return uc.fiscal.SubmitSale(ctx, actor, at, sale, entity.IntegrationOpSubmitInvoice)
}

// RetryFiscalValidation reenvía al proveedor una venta REJECTED (o PENDING que quedó sin respuesta)
// con el mismo número y el mismo código de referencia. No toca existencias ni numeración.
func (uc *SettlementUseCase) RetryFiscalValidation(ctx context.Context, actor domain.Actor, at time.Time, saleID string) (*entity.Sale, error) {
	if saleID == "" {
		return nil, domain.NewValidationError("id", "venta obligatoria")
	}
	if uc.locker != nil {
		release, err := uc.locker.Acquire(ctx, "sale-retry:"+saleID)
		if err != nil {
			return nil, err
		}
		defer release()
	}
	sale, err := uc.repos.Sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !sale.Status.Retryable() {
		return nil, fmt.Errorf("%w: la venta está en estado %s", domain.ErrInvalidState, sale.Status)
	}
	uc.log.Info().Str("sale_id", sale.ID).Str("reference_code", sale.ReferenceCode).
		Int("attempts", sale.GatewayAttempts).Msg("reintento de validación fiscal")
	return uc.fiscal.SubmitSale(ctx, actor, at, sale, entity.IntegrationOpRetryInvoice)
}

// Get devuelve una venta con sus líneas.
func (uc *SettlementUseCase) Get(ctx context.Context, id string) (*entity.Sale, error) {
	return uc.repos.Sales.GetByID(ctx, id)
}

// List lista ventas de la sucursal del actor.
func (uc *SettlementUseCase) List(ctx context.Context, actor domain.Actor, in dto.SaleListRequest) ([]entity.Sale, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	page := in.Page.Normalize()
	f := repository.SaleFilter{BranchID: actor.BranchID, Status: in.Status, Limit: page.Limit, Offset: page.Offset}
	if in.From != "" {
		t, _ := time.Parse(time.DateOnly, in.From)
		f.From = &t
	}
	if in.To != "" {
		t, _ := time.Parse(time.DateOnly, in.To)
		t = t.Add(24*time.Hour - time.Nanosecond)
		f.To = &t
	}
	return uc.repos.Sales.List(ctx, f)
}

// buildDraft valida comprador, sucursal, turno y productos, y arma la venta en DRAFT con sus totales.
func (uc *SettlementUseCase) buildDraft(ctx context.Context, actor domain.Actor, at time.Time, in dto.SettleSaleRequest) (*entity.Sale, error) {
	customer, err := uc.repos.Customers.GetByID(ctx, in.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("customer_id", "cliente inexistente")
		}
		return nil, err
	}
	if !customer.Active {
		return nil, domain.NewValidationError("customer_id", "cliente inactivo")
	}

	branch, err := uc.repos.Branches.GetByID(ctx, actor.BranchID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("branch_id", "sucursal inexistente")
		}
		return nil, err
	}
	if !branch.Active {
		return nil, domain.NewValidationError("branch_id", "sucursal inactiva")
	}

	if err := checkTillSession(ctx, uc.repos.Till, in.TillSessionID, actor.BranchID); err != nil {
		return nil, err
	}

	var dueDate *time.Time
	if in.PaymentForm == entity.PaymentFormCredit {
		if in.DueDate == "" {
			return nil, domain.NewValidationError("due_date", "la venta a crédito requiere fecha de vencimiento")
		}
		d, err := time.Parse(time.DateOnly, in.DueDate)
		if err != nil {
			return nil, domain.NewValidationError("due_date", "fecha inválida")
		}
		dueDate = &d
	}

	saleID := uuid.New().String()
	sale := &entity.Sale{
		ID:                saleID,
		ReferenceCode:     newReferenceCode("REF", at),
		CustomerID:        customer.ID,
		BranchID:          branch.ID,
		UserID:            actor.UserID,
		TillSessionID:     in.TillSessionID,
		DocumentType:      entity.DocumentTypeSalesInvoice,
		PaymentForm:       in.PaymentForm,
		PaymentMethodCode: in.PaymentMethodCode,
		DueDate:           dueDate,
		Observation:       in.Observation,
		Status:            entity.SaleStatusDraft,
		OccurredAt:        at,
		CreatedAt:         at,
		UpdatedAt:         at,
	}

	for i, item := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if !item.Quantity.IsPositive() {
			return nil, domain.NewValidationError(field+".quantity", "la cantidad debe ser mayor a cero")
		}
		if item.DiscountRate.IsNegative() || item.DiscountRate.GreaterThan(hundred) {
			return nil, domain.NewValidationError(field+".discount_rate", "el descuento debe estar entre 0 y 100")
		}
		product, err := uc.repos.Products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewValidationError(field+".product_id", "producto inexistente")
			}
			return nil, err
		}
		if !product.Active {
			return nil, domain.NewValidationError(field+".product_id", "producto inactivo")
		}
		line := entity.SaleLine{
			ID:             uuid.New().String(),
			SaleID:         saleID,
			Position:       i + 1,
			ProductID:      product.ID,
			Code:           product.Code,
			Name:           product.Name,
			Quantity:       item.Quantity,
			UnitPrice:      product.Price,
			TaxRate:        product.TaxRate,
			DiscountRate:   item.DiscountRate,
			Note:           item.Note,
			UnitMeasureID:  product.UnitMeasureID,
			StandardCodeID: product.StandardCodeID,
			TributeID:      product.TributeID,
			IsExcluded:     product.IsExcluded,
		}
		for j, w := range item.Withholdings {
			if w.Rate.IsNegative() || w.Rate.GreaterThan(hundred) {
				return nil, domain.NewValidationError(fmt.Sprintf("%s.withholdings[%d].rate", field, j), "tarifa fuera de rango")
			}
			line.Withholdings = append(line.Withholdings, entity.LineWithholding{Code: w.Code, Name: w.Name, Rate: w.Rate})
		}
		sale.Lines = append(sale.Lines, line)
	}

	for i, a := range in.Adjustments {
		field := fmt.Sprintf("adjustments[%d]", i)
		if a.Rate == nil && !a.Amount.IsPositive() {
			return nil, domain.NewValidationError(field+".amount", "el monto debe ser mayor a cero")
		}
		if a.Rate != nil && (!a.BaseAmount.IsPositive() || a.Rate.IsNegative()) {
			return nil, domain.NewValidationError(field+".base_amount", "base y tarifa deben ser positivas")
		}
		sale.Adjustments = append(sale.Adjustments, entity.SaleAdjustment{
			ConceptCode: a.ConceptCode,
			IsSurcharge: a.IsSurcharge,
			Reason:      a.Reason,
			BaseAmount:  a.BaseAmount,
			Rate:        a.Rate,
			Amount:      a.Amount,
		})
	}

	pricing.Recompute(sale)
	if sale.GrandTotal.IsNegative() {
		return nil, domain.NewValidationError("adjustments", "los descuentos superan el total de la venta")
	}
	return sale, nil
}

// precheckStock compara lo solicitado con la existencia visible sin bloqueo. El control definitivo
// ocurre con la fila bloqueada dentro de la transacción.
func (uc *SettlementUseCase) precheckStock(ctx context.Context, sale *entity.Sale) error {
	requested := map[string]decimal.Decimal{}
	order := make([]string, 0, len(sale.Lines))
	for _, l := range sale.Lines {
		if _, ok := requested[l.ProductID]; !ok {
			order = append(order, l.ProductID)
		}
		requested[l.ProductID] = requested[l.ProductID].Add(l.Quantity)
	}
	for _, productID := range order {
		available := decimal.Zero
		entry, err := uc.repos.Stock.Get(ctx, productID, sale.BranchID)
		switch {
		case err == nil:
			available = entry.QuantityOnHand
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		if available.LessThan(requested[productID]) {
			return &domain.InsufficientStockError{
				ProductID: productID,
				BranchID:  sale.BranchID,
				Available: available,
				Requested: requested[productID],
			}
		}
	}
	return nil
}

// checkTillSession un turno referenciado debe existir, estar abierto y ser de la sucursal.
func checkTillSession(ctx context.Context, till repository.TillRepository, sessionID *string, branchID string) error {
	if sessionID == nil {
		return nil
	}
	session, err := till.GetSession(ctx, *sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewValidationError("till_session_id", "turno de caja inexistente")
		}
		return err
	}
	if !session.IsOpen() {
		return domain.NewValidationError("till_session_id", "el turno de caja está cerrado")
	}
	if session.BranchID != branchID {
		return domain.NewValidationError("till_session_id", "el turno de caja pertenece a otra sucursal")
	}
	return nil
}

// newReferenceCode código único del documento ante el proveedor (ej: REF-20250301-093000-1a2b3c4d).
func newReferenceCode(prefix string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102-150405"), uuid.New().String()[:8])
}
