package billing

import (
	"context"
	"time"

	"github.com/LuisDaniel15/Software-Pos/internal/application/inventory"
	"github.com/LuisDaniel15/Software-Pos/internal/application/numbering"
	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción con todos los repositorios atados a ella.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepos) error) error
}

// Ledger integra la venta con el libro de existencias dentro de la misma transacción.
// Si retorna error (ej: stock insuficiente), el llamador hace rollback.
type Ledger interface {
	ApplyInTx(ctx context.Context, repos repository.TxRepos, actor domain.Actor, at time.Time, in inventory.Adjustment) (*inventory.AdjustResult, error)
}

// NumberAllocator reserva consecutivos fiscales dentro de la transacción del llamador.
type NumberAllocator interface {
	ReserveNextInTx(ctx context.Context, ranges repository.NumberingRangeRepository, documentType string, at time.Time) (*numbering.Reservation, error)
}

// InvoicingGateway proveedor externo de facturación electrónica.
// Un error indica falla de transporte (timeout, conexión); un rechazo llega como
// respuesta con Accepted=false y la lista de errores.
type InvoicingGateway interface {
	Submit(ctx context.Context, doc *FiscalDocument) (*GatewayResponse, error)
}

// RetryLocker serializa los reintentos manuales de una misma venta entre instancias.
// Acquire devuelve domain.ErrConflict si otro proceso tiene el candado.
type RetryLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Repos repositorios de lectura fuera de transacción.
type Repos struct {
	Products    repository.ProductRepository
	Customers   repository.CustomerRepository
	Branches    repository.BranchRepository
	Stock       repository.StockRepository
	Till        repository.TillRepository
	Sales       repository.SaleRepository
	CreditNotes repository.CreditNoteRepository
}
