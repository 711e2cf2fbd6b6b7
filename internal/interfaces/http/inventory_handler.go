package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/LuisDaniel15/Software-Pos/internal/application/dto"
	"github.com/LuisDaniel15/Software-Pos/internal/application/inventory"
	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

// InventoryHandler maneja existencias, traslados, kardex y reportes de inventario (protegido).
type InventoryHandler struct {
	ledger  *inventory.LedgerUseCase
	kardex  *inventory.KardexUseCase
	reports *inventory.ReportsUseCase
	now     func() time.Time
	log     *logger.Logger
}

// NewInventoryHandler construye el handler. now nil usa time.Now.
func NewInventoryHandler(ledger *inventory.LedgerUseCase, kardex *inventory.KardexUseCase, reports *inventory.ReportsUseCase, now func() time.Time, log *logger.Logger) *InventoryHandler {
	if now == nil {
		now = time.Now
	}
	return &InventoryHandler{ledger: ledger, kardex: kardex, reports: reports, now: now, log: log.With("http-inventory")}
}

// Adjust godoc
// @Summary      Registrar entrada, salida o ajuste de existencias
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.AdjustStockRequest  true  "product_id, kind, delta, unit_cost (entradas), reason"
// @Success      201   {object}  dto.StockChangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, h.log, err)
	}
	actor := actorFrom(c)
	branchID := orDefault(in.BranchID, actor.BranchID)
	res, err := h.ledger.AdjustStock(c.UserContext(), actor, h.now(), inventory.Adjustment{
		ProductID: in.ProductID,
		BranchID:  branchID,
		Delta:     in.Delta,
		Kind:      entity.MovementKind(in.Kind),
		UnitCost:  in.UnitCost,
		Reason:    in.Reason,
		Reference: in.Reference,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(stockChange(in.ProductID, branchID, res))
}

// Transfer godoc
// @Summary      Trasladar existencias entre sucursales
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.TransferStockRequest  true  "product_id, from_branch_id, to_branch_id, quantity"
// @Success      201   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfer [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.ledger.TransferStock(c.UserContext(), actorFrom(c), h.now(), inventory.Transfer{
		ProductID:    in.ProductID,
		FromBranchID: in.FromBranchID,
		ToBranchID:   in.ToBranchID,
		Quantity:     in.Quantity,
		Reason:       in.Reason,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferResponse{
		Reference: res.Reference,
		Origin:    stockChange(in.ProductID, in.FromBranchID, &res.Origin),
		Dest:      stockChange(in.ProductID, in.ToBranchID, &res.Dest),
	})
}

// Count godoc
// @Summary      Registrar conteo físico
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CountStockRequest  true  "product_id, new_quantity"
// @Success      200   {object}  dto.StockChangeResponse
// @Router       /api/inventory/count [post]
func (h *InventoryHandler) Count(c *fiber.Ctx) error {
	var in dto.CountStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return writeError(c, h.log, err)
	}
	actor := actorFrom(c)
	branchID := orDefault(in.BranchID, actor.BranchID)
	res, err := h.ledger.SetAbsoluteStock(c.UserContext(), actor, h.now(), inventory.Count{
		ProductID:   in.ProductID,
		BranchID:    branchID,
		NewQuantity: in.NewQuantity,
		Reason:      in.Reason,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(stockChange(in.ProductID, branchID, res))
}

// Kardex godoc
// @Summary      Kardex de un producto en una sucursal
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  true   "Producto"
// @Param        branch_id   query  string  false  "Sucursal (por defecto la del token)"
// @Param        from        query  string  false  "YYYY-MM-DD"
// @Param        to          query  string  false  "YYYY-MM-DD"
// @Success      200  {object}  dto.KardexResponse
// @Router       /api/inventory/kardex [get]
func (h *InventoryHandler) Kardex(c *fiber.Ctx) error {
	var q dto.KardexQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	if err := dto.Validate(q); err != nil {
		return writeError(c, h.log, err)
	}
	var from, to *time.Time
	if q.From != "" {
		t, _ := time.Parse(time.DateOnly, q.From)
		from = &t
	}
	if q.To != "" {
		t, _ := time.Parse(time.DateOnly, q.To)
		t = t.Add(24*time.Hour - time.Nanosecond)
		to = &t
	}
	branchID := orDefault(q.BranchID, GetBranchID(c))
	k, err := h.kardex.Kardex(c.UserContext(), q.ProductID, branchID, from, to)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.KardexResponse{
		ProductID: k.ProductID,
		BranchID:  k.BranchID,
		Opening:   k.Opening,
		Closing:   k.Closing,
		Rows:      make([]dto.KardexRowResponse, 0, len(k.Rows)),
	}
	for _, r := range k.Rows {
		out.Rows = append(out.Rows, dto.KardexRowResponse{
			MovementID: r.MovementID,
			Date:       r.OccurredAt,
			Kind:       string(r.Kind),
			Reason:     r.Reason,
			Reference:  r.ExternalReference,
			UnitCost:   r.UnitCost,
			Inbound:    r.Inbound,
			Outbound:   r.Outbound,
			Balance:    r.Balance,
		})
	}
	return c.JSON(out)
}

// Reconcile godoc
// @Summary      Conciliar libro de existencias contra kardex
// @Description  Un descuadre se reporta con consistent=false; nunca se corrige automáticamente.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  true   "Producto"
// @Param        branch_id   query  string  false  "Sucursal (por defecto la del token)"
// @Success      200  {object}  dto.ReconcileResponse
// @Router       /api/inventory/reconcile [get]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	productID := c.Query("product_id")
	branchID := orDefault(c.Query("branch_id"), GetBranchID(c))
	res, err := h.kardex.Reconcile(c.UserContext(), productID, branchID)
	var div *domain.LedgerDivergenceError
	if err != nil && !errors.As(err, &div) {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ReconcileResponse{
		ProductID:  res.ProductID,
		BranchID:   res.BranchID,
		Ledger:     res.Ledger,
		Replayed:   res.Replayed,
		Consistent: err == nil,
	})
}

// Valuation godoc
// @Summary      Valor del inventario de la sucursal
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branch_id  query  string  false  "Sucursal (por defecto la del token)"
// @Success      200  {object}  dto.ValuationResponse
// @Router       /api/inventory/valuation [get]
func (h *InventoryHandler) Valuation(c *fiber.Ctx) error {
	v, err := h.reports.Valuation(c.UserContext(), orDefault(c.Query("branch_id"), GetBranchID(c)))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ValuationResponse{BranchID: v.BranchID, Items: v.Items, Units: v.Units, Total: v.Total})
}

// LowStock godoc
// @Summary      Productos bajo el punto de reorden
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branch_id  query  string  false  "Sucursal (por defecto la del token)"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	entries, err := h.reports.LowStock(c.UserContext(), orDefault(c.Query("branch_id"), GetBranchID(c)))
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.LowStockResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.LowStockResponse{
			ProductID:        e.ProductID,
			QuantityOnHand:   e.QuantityOnHand,
			ReorderThreshold: e.ReorderThreshold,
		})
	}
	return c.JSON(fiber.Map{
		"total": len(items),
		"items": items,
	})
}

func stockChange(productID, branchID string, res *inventory.AdjustResult) dto.StockChangeResponse {
	out := dto.StockChangeResponse{
		ProductID:        productID,
		BranchID:         branchID,
		PreviousQuantity: res.PreviousQuantity,
		NewQuantity:      res.NewQuantity,
	}
	if res.Movement != nil {
		out.MovementID = res.Movement.ID
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
