package repository

import (
	"context"
	"time"

	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
)

// FiscalResult resultado del envío al proveedor de facturación que se aplica a un documento.
type FiscalResult struct {
	Status        string
	GatewayBillID int64
	GatewayNumber string
	CUFE          string
	QRURL         string
	Errors        []string
	At            time.Time
}

// SaleFilter filtros del listado de ventas; los campos vacíos no filtran.
type SaleFilter struct {
	BranchID string
	Status   string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// SaleRepository puerto de persistencia de ventas con sus líneas, retenciones y ajustes.
type SaleRepository interface {
	Create(ctx context.Context, sale *entity.Sale) error
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	List(ctx context.Context, f SaleFilter) ([]entity.Sale, error)
	// ApplyFiscalResult actualiza el estado fiscal solo si el estado actual está en allowedFrom;
	// devuelve domain.ErrInvalidState si ninguna fila cumple la condición.
	ApplyFiscalResult(ctx context.Context, id string, result FiscalResult, allowedFrom []entity.SaleStatus) error
	// TransitionStatus cambia el estado de from a to de forma condicional.
	TransitionStatus(ctx context.Context, id string, from, to entity.SaleStatus, at time.Time) error
}

// CreditNoteRepository puerto de persistencia de notas crédito.
type CreditNoteRepository interface {
	Create(ctx context.Context, note *entity.CreditNote) error
	GetByID(ctx context.Context, id string) (*entity.CreditNote, error)
	ApplyFiscalResult(ctx context.Context, id string, result FiscalResult) error
}
