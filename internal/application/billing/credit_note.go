package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LuisDaniel15/Software-Pos/internal/application/dto"
	"github.com/LuisDaniel15/Software-Pos/internal/application/inventory"
	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/repository"
)

// IssueCreditNote anula una venta VALIDATED: consume un consecutivo de nota crédito, devuelve las
// existencias a la sucursal de la venta, registra el egreso de caja y pasa la venta a CANCELLED,
// todo en una transacción. Después envía la nota al proveedor de facturación.
func (uc *SettlementUseCase) IssueCreditNote(ctx context.Context, actor domain.Actor, at time.Time, saleID string, in dto.CreditNoteRequest) (*entity.CreditNote, error) {
	ctx, span := tracer.Start(ctx, "settlement.credit_note")
	defer span.End()

	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	sale, err := uc.repos.Sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale.Status != entity.SaleStatusValidated {
		return nil, fmt.Errorf("%w: solo se anulan ventas validadas (estado %s)", domain.ErrInvalidState, sale.Status)
	}
	if sale.BranchID != actor.BranchID {
		return nil, domain.NewValidationError("branch_id", "la venta pertenece a otra sucursal")
	}
	if err := checkTillSession(ctx, uc.repos.Till, in.TillSessionID, sale.BranchID); err != nil {
		return nil, err
	}

	note := &entity.CreditNote{
		ID:            uuid.New().String(),
		SaleID:        sale.ID,
		ReferenceCode: newReferenceCode("NC", at),
		Reason:        in.Reason,
		Total:         sale.GrandTotal,
		Status:        entity.CreditNoteStatusPending,
		UserID:        actor.UserID,
		TillSessionID: in.TillSessionID,
		OccurredAt:    at,
		CreatedAt:     at,
		UpdatedAt:     at,
	}

	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		res, err := uc.allocator.ReserveNextInTx(ctx, repos.Ranges, entity.DocumentTypeCreditNote, at)
		if err != nil {
			return err
		}
		note.RangeID = res.Range.ID
		note.GatewayRangeID = res.Range.GatewayRangeID
		note.Prefix = res.Range.Prefix
		note.Number = res.Number

		// El conteo y el estado se revalidan con la fila de la venta dentro de la transacción.
		if err := repos.Sales.TransitionStatus(ctx, sale.ID, entity.SaleStatusValidated, entity.SaleStatusCancelled, at); err != nil {
			return err
		}

		reason := "Nota crédito " + note.FullNumber()
		for _, l := range sale.Lines {
			if _, err := uc.ledger.ApplyInTx(ctx, repos, actor, at, inventory.Adjustment{
				ProductID: l.ProductID,
				BranchID:  sale.BranchID,
				Delta:     l.Quantity,
				Kind:      entity.MovementInbound,
				Reason:    reason,
				Reference: note.ReferenceCode,
			}); err != nil {
				return err
			}
		}

		if err := repos.CreditNotes.Create(ctx, note); err != nil {
			return err
		}

		if note.TillSessionID != nil {
			noteID, sid := note.ID, sale.ID
			if err := repos.Till.AppendMovement(ctx, &entity.CashMovement{
				ID:                uuid.New().String(),
				TillSessionID:     *note.TillSessionID,
				Kind:              entity.CashMovementExpense,
				Concept:           "Devolución " + sale.FullNumber(),
				Amount:            note.Total,
				PaymentMethodCode: sale.PaymentMethodCode,
				SaleID:            &sid,
				CreditNoteID:      &noteID,
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

	sale.Status = entity.SaleStatusCancelled
	sale.UpdatedAt = at
	uc.log.Info().
		Str("sale_id", sale.ID).
		Str("credit_note_id", note.ID).
		Str("number", note.FullNumber()).
		Msg("venta anulada con nota crédito")

	return uc.fiscal.SubmitCreditNote(ctx, actor, at, note, sale)
}
