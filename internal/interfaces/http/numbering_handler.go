package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/LuisDaniel15/Software-Pos/internal/application/dto"
	"github.com/LuisDaniel15/Software-Pos/internal/application/numbering"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

// NumberingHandler consulta de rangos de numeración.
type NumberingHandler struct {
	allocator *numbering.Allocator
	now       func() time.Time
	log       *logger.Logger
}

// NewNumberingHandler construye el handler. now nil usa time.Now.
func NewNumberingHandler(allocator *numbering.Allocator, now func() time.Time, log *logger.Logger) *NumberingHandler {
	if now == nil {
		now = time.Now
	}
	return &NumberingHandler{allocator: allocator, now: now, log: log.With("http-numbering")}
}

// Report godoc
// @Summary      Uso de un rango de numeración
// @Tags         numbering
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del rango"
// @Success      200  {object}  dto.NumberingReportResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/numbering-ranges/{id}/report [get]
func (h *NumberingHandler) Report(c *fiber.Ctx) error {
	rep, err := h.allocator.Report(c.UserContext(), c.Params("id"), h.now())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NumberingReportResponse{
		RangeID:       rep.Range.ID,
		DocumentType:  rep.Range.DocumentType,
		Prefix:        rep.Range.Prefix,
		State:         string(rep.State),
		Current:       rep.Range.CurrentConsecutive,
		Available:     rep.Available,
		UsagePercent:  rep.UsagePercent,
		NextFormatted: rep.NextFormatted,
	})
}
