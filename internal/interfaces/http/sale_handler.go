package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/LuisDaniel15/Software-Pos/internal/application/billing"
	"github.com/LuisDaniel15/Software-Pos/internal/application/dto"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

// SaleHandler maneja la liquidación de ventas, sus reintentos fiscales y las notas crédito.
type SaleHandler struct {
	uc  *billing.SettlementUseCase
	now func() time.Time
	log *logger.Logger
}

// NewSaleHandler construye el handler. now nil usa time.Now.
func NewSaleHandler(uc *billing.SettlementUseCase, now func() time.Time, log *logger.Logger) *SaleHandler {
	if now == nil {
		now = time.Now
	}
	return &SaleHandler{uc: uc, now: now, log: log.With("http-sales")}
}

// Settle godoc
// @Summary      Registrar venta
// @Description  Reserva el consecutivo, descuenta existencias y envía la factura al proveedor.
//
//	Una venta REJECTED también se responde con 201: ocurrió físicamente pero falta la validación fiscal.
//
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.SettleSaleRequest  true  "customer_id, items, payment_form, payment_method_code"
// @Success      201   {object}  dto.SaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Settle(c *fiber.Ctx) error {
	var in dto.SettleSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	sale, err := h.uc.Settle(c.UserContext(), actorFrom(c), h.now(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SaleFromEntity(sale))
}

// List godoc
// @Summary      Listar ventas de la sucursal
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "PENDING_FISCAL_VALIDATION | VALIDATED | REJECTED | CANCELLED"
// @Param        from    query  string  false  "YYYY-MM-DD"
// @Param        to      query  string  false  "YYYY-MM-DD"
// @Success      200     {object}  map[string]interface{}
// @Router       /api/sales [get]
func (h *SaleHandler) List(c *fiber.Ctx) error {
	var in dto.SaleListRequest
	if err := c.QueryParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	sales, err := h.uc.List(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		items = append(items, dto.SaleFromEntity(&sales[i]))
	}
	return c.JSON(fiber.Map{
		"items": items,
		"page":  in.Page.Meta(len(items)),
	})
}

// GetByID godoc
// @Summary      Obtener venta con líneas y estado fiscal
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	sale, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SaleFromEntity(sale))
}

// Retry godoc
// @Summary      Reintentar validación fiscal
// @Description  Reenvía la venta con el mismo número y código de referencia. Solo desde REJECTED o pendiente.
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/retry [post]
func (h *SaleHandler) Retry(c *fiber.Ctx) error {
	sale, err := h.uc.RetryFiscalValidation(c.UserContext(), actorFrom(c), h.now(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SaleFromEntity(sale))
}

// IssueCreditNote godoc
// @Summary      Anular venta validada con nota crédito
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "ID de la venta"
// @Param        body  body      dto.CreditNoteRequest  true  "reason"
// @Success      201   {object}  dto.CreditNoteResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/credit-notes [post]
func (h *SaleHandler) IssueCreditNote(c *fiber.Ctx) error {
	var in dto.CreditNoteRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	note, err := h.uc.IssueCreditNote(c.UserContext(), actorFrom(c), h.now(), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.CreditNoteFromEntity(note))
}
