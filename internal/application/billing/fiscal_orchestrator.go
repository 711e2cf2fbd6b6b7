package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/repository"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

var tracer = otel.Tracer("software-pos/billing")

// DefaultGatewayTimeout tiempo máximo de una llamada al proveedor de facturación.
const DefaultGatewayTimeout = 30 * time.Second

// FiscalOrchestrator envía documentos ya confirmados localmente al proveedor de facturación y
// persiste el resultado en una transacción corta propia:
//
//	Documento fiscal → Envío (fuera de toda transacción, con timeout) → Update DB + bitácora
//
// Un rechazo o una falla de transporte deja el documento en REJECTED; nunca deshace el
// consecutivo consumido ni el descuento de existencias.
type FiscalOrchestrator struct {
	txRunner TxRunner
	gateway  InvoicingGateway
	repos    Repos
	timeout  time.Duration
	log      *logger.Logger
}

// NewFiscalOrchestrator construye el orquestador. timeout <= 0 usa DefaultGatewayTimeout.
func NewFiscalOrchestrator(txRunner TxRunner, gateway InvoicingGateway, repos Repos, timeout time.Duration, log *logger.Logger) *FiscalOrchestrator {
	if timeout <= 0 {
		timeout = DefaultGatewayTimeout
	}
	return &FiscalOrchestrator{
		txRunner: txRunner,
		gateway:  gateway,
		repos:    repos,
		timeout:  timeout,
		log:      log.With("fiscal"),
	}
}

// SubmitSale envía la venta y la deja en VALIDATED o REJECTED. operation identifica el intercambio
// en la bitácora (envío inicial o reintento).
func (o *FiscalOrchestrator) SubmitSale(ctx context.Context, actor domain.Actor, at time.Time, sale *entity.Sale, operation string) (*entity.Sale, error) {
	// Desde aquí la venta ya está confirmada: la cancelación del request no detiene el envío.
	ctx = context.WithoutCancel(ctx)

	var doc *FiscalDocument
	customer, branch, err := o.parties(ctx, sale.CustomerID, sale.BranchID)
	if err == nil {
		doc = buildInvoiceDocument(sale, customer, branch)
	}
	resp, err := o.call(ctx, doc, err, sale.ReferenceCode)
	result := fiscalResult(resp, err, at)

	saleID := sale.ID
	entry := integrationLog(operation, actor, at, resp, err)
	entry.SaleID = &saleID
	perr := o.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		allowed := []entity.SaleStatus{entity.SaleStatusPendingFiscalValidation, entity.SaleStatusRejected}
		if err := repos.Sales.ApplyFiscalResult(ctx, sale.ID, result, allowed); err != nil {
			return err
		}
		return repos.IntegrationLogs.Append(ctx, entry)
	})
	if perr != nil {
		// La venta ya está confirmada: se devuelve con su estado persistido (PENDING o REJECTED),
		// que admite reintento con el mismo número y código de referencia.
		o.log.Ctx(ctx).Error().Err(perr).Str("sale_id", sale.ID).Str("reference_code", sale.ReferenceCode).
			Str("status", string(sale.Status)).
			Msg("no se pudo persistir el resultado fiscal; la venta queda pendiente de reintento")
		return sale, nil
	}

	applySaleResult(sale, result)
	lg := o.log.Ctx(ctx)
	ev := lg.Info()
	if sale.Status == entity.SaleStatusRejected {
		ev = lg.Warn().Strs("errors", sale.GatewayErrors)
	}
	ev.Str("sale_id", sale.ID).
		Str("reference_code", sale.ReferenceCode).
		Str("number", sale.FullNumber()).
		Str("status", string(sale.Status)).
		Int("attempts", sale.GatewayAttempts).
		Msg("venta procesada por el proveedor de facturación")
	return sale, nil
}

// SubmitCreditNote envía la nota crédito de una venta anulada.
func (o *FiscalOrchestrator) SubmitCreditNote(ctx context.Context, actor domain.Actor, at time.Time, note *entity.CreditNote, sale *entity.Sale) (*entity.CreditNote, error) {
	ctx = context.WithoutCancel(ctx)

	var doc *FiscalDocument
	customer, branch, err := o.parties(ctx, sale.CustomerID, sale.BranchID)
	if err == nil {
		doc = buildCreditNoteDocument(note, sale, customer, branch)
	}
	resp, err := o.call(ctx, doc, err, note.ReferenceCode)
	result := fiscalResult(resp, err, at)
	if result.Status == string(entity.SaleStatusValidated) {
		result.Status = string(entity.CreditNoteStatusValidated)
	} else {
		result.Status = string(entity.CreditNoteStatusRejected)
	}

	noteID, saleID := note.ID, sale.ID
	entry := integrationLog(entity.IntegrationOpSubmitCreditNote, actor, at, resp, err)
	entry.CreditNoteID = &noteID
	entry.SaleID = &saleID
	perr := o.txRunner.Run(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		if err := repos.CreditNotes.ApplyFiscalResult(ctx, note.ID, result); err != nil {
			return err
		}
		return repos.IntegrationLogs.Append(ctx, entry)
	})
	if perr != nil {
		o.log.Ctx(ctx).Error().Err(perr).Str("credit_note_id", note.ID).Str("sale_id", sale.ID).
			Msg("no se pudo persistir el resultado fiscal de la nota crédito")
		return note, nil
	}

	note.Status = entity.CreditNoteStatus(result.Status)
	note.GatewayNumber = result.GatewayNumber
	note.CUFE = result.CUFE
	note.QRURL = result.QRURL
	note.GatewayErrors = result.Errors
	note.GatewayAttempts++
	note.UpdatedAt = at
	if note.Status == entity.CreditNoteStatusValidated {
		note.ValidatedAt = &at
	}
	o.log.Info().Str("credit_note_id", note.ID).Str("sale_id", sale.ID).
		Str("status", string(note.Status)).Msg("nota crédito procesada por el proveedor de facturación")
	return note, nil
}

func (o *FiscalOrchestrator) parties(ctx context.Context, customerID, branchID string) (*entity.Customer, *entity.Branch, error) {
	customer, err := o.repos.Customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, nil, fmt.Errorf("cargar cliente: %w", err)
	}
	branch, err := o.repos.Branches.GetByID(ctx, branchID)
	if err != nil {
		return nil, nil, fmt.Errorf("cargar sucursal: %w", err)
	}
	return customer, branch, nil
}

// call ejecuta el envío con timeout. buildErr corta el envío si el documento no se pudo armar.
func (o *FiscalOrchestrator) call(ctx context.Context, doc *FiscalDocument, buildErr error, reference string) (*GatewayResponse, error) {
	if buildErr != nil {
		return nil, buildErr
	}
	ctx, span := tracer.Start(ctx, "gateway.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.kind", string(doc.Kind)),
		attribute.String("document.reference_code", reference),
	)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	resp, err := o.gateway.Submit(ctx, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway unavailable")
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
		}
		return resp, err
	}
	span.SetAttributes(attribute.Bool("document.accepted", resp.Accepted))
	return resp, nil
}

func fiscalResult(resp *GatewayResponse, err error, at time.Time) repository.FiscalResult {
	switch {
	case err != nil:
		return repository.FiscalResult{
			Status: string(entity.SaleStatusRejected),
			Errors: []string{err.Error()},
			At:     at,
		}
	case !resp.Accepted:
		errs := resp.Errors
		if len(errs) == 0 {
			errs = []string{fmt.Sprintf("documento rechazado (HTTP %d)", resp.HTTPStatus)}
		}
		return repository.FiscalResult{Status: string(entity.SaleStatusRejected), Errors: errs, At: at}
	default:
		return repository.FiscalResult{
			Status:        string(entity.SaleStatusValidated),
			GatewayBillID: resp.BillID,
			GatewayNumber: resp.Number,
			CUFE:          resp.CUFE,
			QRURL:         resp.QRURL,
			At:            at,
		}
	}
}

func applySaleResult(sale *entity.Sale, r repository.FiscalResult) {
	sale.Status = entity.SaleStatus(r.Status)
	sale.GatewayErrors = r.Errors
	sale.GatewayAttempts++
	sale.UpdatedAt = r.At
	if sale.Status == entity.SaleStatusValidated {
		sale.GatewayBillID = r.GatewayBillID
		sale.GatewayNumber = r.GatewayNumber
		sale.CUFE = r.CUFE
		sale.QRURL = r.QRURL
		at := r.At
		sale.ValidatedAt = &at
	}
}

func integrationLog(operation string, actor domain.Actor, at time.Time, resp *GatewayResponse, err error) *entity.IntegrationLog {
	entry := &entity.IntegrationLog{
		ID:        uuid.New().String(),
		Operation: operation,
		UserID:    actor.UserID,
		CreatedAt: at,
	}
	if resp != nil {
		entry.Request = resp.Request
		entry.Response = resp.Response
		entry.HTTPStatus = resp.HTTPStatus
		entry.Success = resp.Accepted && err == nil
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	} else if resp != nil && !resp.Accepted && len(resp.Errors) > 0 {
		entry.ErrorMessage = resp.Errors[0]
	}
	return entry
}
