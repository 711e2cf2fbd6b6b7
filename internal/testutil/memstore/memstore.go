// Package memstore repositorios en memoria para pruebas de los casos de uso.
//
// Store implementa todos los puertos de repository y el TxRunner de los casos de uso.
// Las transacciones se serializan con un mutex y el rollback restaura una copia del estado
// tomada al inicio, lo que reproduce el aislamiento de SELECT ... FOR UPDATE sobre PostgreSQL.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/repository"
)

type stockKey struct{ product, branch string }

type state struct {
	products  map[string]entity.Product
	customers map[string]entity.Customer
	branches  map[string]entity.Branch
	stock     map[stockKey]entity.StockLedgerEntry
	movements []entity.MovementRecord
	seq       int64
	ranges    map[string]entity.NumberingRange
	sales     map[string]entity.Sale
	notes     map[string]entity.CreditNote
	sessions  map[string]entity.TillSession
	cash      []entity.CashMovement
	logs      []entity.IntegrationLog
	users     map[string]entity.User
}

func (s state) clone() state {
	c := s
	c.products = cloneMap(s.products)
	c.customers = cloneMap(s.customers)
	c.branches = cloneMap(s.branches)
	c.stock = cloneMap(s.stock)
	c.movements = slices.Clone(s.movements)
	c.ranges = cloneMap(s.ranges)
	c.sales = cloneMap(s.sales)
	c.notes = cloneMap(s.notes)
	c.sessions = cloneMap(s.sessions)
	c.cash = slices.Clone(s.cash)
	c.logs = slices.Clone(s.logs)
	c.users = cloneMap(s.users)
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store almacén en memoria seguro para uso concurrente.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   state
	fail map[string]error
}

// New crea un almacén vacío.
func New() *Store {
	return &Store{
		st: state{
			products:  map[string]entity.Product{},
			customers: map[string]entity.Customer{},
			branches:  map[string]entity.Branch{},
			stock:     map[stockKey]entity.StockLedgerEntry{},
			ranges:    map[string]entity.NumberingRange{},
			sales:     map[string]entity.Sale{},
			notes:     map[string]entity.CreditNote{},
			sessions:  map[string]entity.TillSession{},
			users:     map[string]entity.User{},
		},
		fail: map[string]error{},
	}
}

// ── Transacciones ───────────────────────────────────────────────────────────

// Run ejecuta fn en exclusión mutua. Si fn devuelve error se restaura el estado previo.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(ctx, s.TxRepos()); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// TxRepos repositorios atados al almacén.
func (s *Store) TxRepos() repository.TxRepos {
	return repository.TxRepos{
		Stock:           stockRepo{s},
		Movements:       movementRepo{s},
		Ranges:          rangeRepo{s},
		Sales:           saleRepo{s},
		CreditNotes:     creditNoteRepo{s},
		Till:            tillRepo{s},
		IntegrationLogs: logRepo{s},
	}
}

// Products repositorio de productos.
func (s *Store) Products() repository.ProductRepository { return productRepo{s} }

// Customers repositorio de compradores.
func (s *Store) Customers() repository.CustomerRepository { return customerRepo{s} }

// Branches repositorio de sucursales.
func (s *Store) Branches() repository.BranchRepository { return branchRepo{s} }

// Users repositorio de usuarios.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Stock repositorio del libro de existencias.
func (s *Store) Stock() repository.StockRepository { return stockRepo{s} }

// Movements repositorio del kardex.
func (s *Store) Movements() repository.MovementRepository { return movementRepo{s} }

// Ranges repositorio de rangos de numeración.
func (s *Store) Ranges() repository.NumberingRangeRepository { return rangeRepo{s} }

// Sales repositorio de ventas.
func (s *Store) Sales() repository.SaleRepository { return saleRepo{s} }

// CreditNotes repositorio de notas crédito.
func (s *Store) CreditNotes() repository.CreditNoteRepository { return creditNoteRepo{s} }

// Till repositorio de caja.
func (s *Store) Till() repository.TillRepository { return tillRepo{s} }

// FailOn hace que la operación op (ej: "sales.create") devuelva err hasta que se limpie con nil.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

func (s *Store) failure(op string) error {
	return s.fail[op]
}

// ── Datos de prueba ─────────────────────────────────────────────────────────

// PutProduct agrega o reemplaza un producto.
func (s *Store) PutProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

// PutCustomer agrega o reemplaza un comprador.
func (s *Store) PutCustomer(c entity.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.customers[c.ID] = c
}

// PutBranch agrega o reemplaza una sucursal.
func (s *Store) PutBranch(b entity.Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.branches[b.ID] = b
}

// PutUser agrega o reemplaza un usuario (indexado por email).
func (s *Store) PutUser(u entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.Email] = u
}

// PutRange agrega o reemplaza un rango de numeración.
func (s *Store) PutRange(r entity.NumberingRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.ranges[r.ID] = r
}

// PutSession agrega o reemplaza un turno de caja.
func (s *Store) PutSession(t entity.TillSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.sessions[t.ID] = t
}

// PutSale agrega o reemplaza una venta sin pasar por la liquidación.
func (s *Store) PutSale(v entity.Sale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.sales[v.ID] = v
}

// SetStock fija la existencia y el costo promedio de una fila sin generar movimiento.
func (s *Store) SetStock(productID, branchID string, qty, cost decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := stockKey{productID, branchID}
	e := s.st.stock[k]
	e.ProductID, e.BranchID = productID, branchID
	e.QuantityOnHand = qty
	e.MovingAverageCost = cost
	s.st.stock[k] = e
}

// SetReorderThreshold fija el punto de reorden de una fila existente o nueva.
func (s *Store) SetReorderThreshold(productID, branchID string, threshold decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := stockKey{productID, branchID}
	e := s.st.stock[k]
	e.ProductID, e.BranchID = productID, branchID
	e.ReorderThreshold = threshold
	s.st.stock[k] = e
}

// ── Consultas para aserciones ───────────────────────────────────────────────

// QuantityOnHand existencia actual (cero si la fila no existe).
func (s *Store) QuantityOnHand(productID, branchID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.stock[stockKey{productID, branchID}].QuantityOnHand
}

// Range estado actual de un rango.
func (s *Store) Range(id string) entity.NumberingRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ranges[id]
}

// AllMovements copia del kardex completo en orden de inserción.
func (s *Store) AllMovements() []entity.MovementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.movements)
}

// AllSales copia de todas las ventas.
func (s *Store) AllSales() []entity.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Sale, 0, len(s.st.sales))
	for _, v := range s.st.sales {
		out = append(out, v)
	}
	return out
}

// CashMovements copia de los movimientos de caja.
func (s *Store) CashMovements() []entity.CashMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.cash)
}

// IntegrationLogs copia de la bitácora de integración.
func (s *Store) IntegrationLogs() []entity.IntegrationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.logs)
}

// ── Catálogo ────────────────────────────────────────────────────────────────

type productRepo struct{ s *Store }

func (r productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

type customerRepo struct{ s *Store }

func (r customerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.st.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

type branchRepo struct{ s *Store }

func (r branchRepo) GetByID(_ context.Context, id string) (*entity.Branch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.st.branches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.users[u.Email]; ok {
		return fmt.Errorf("email %s: %w", u.Email, domain.ErrConflict)
	}
	r.s.st.users[u.Email] = *u
	return nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.st.users[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

// ── Existencias y kardex ────────────────────────────────────────────────────

type stockRepo struct{ s *Store }

func (r stockRepo) Get(_ context.Context, productID, branchID string) (*entity.StockLedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.st.stock[stockKey{productID, branchID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (r stockRepo) GetForUpdate(_ context.Context, productID, branchID string) (*entity.StockLedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("stock.get_for_update"); err != nil {
		return nil, err
	}
	k := stockKey{productID, branchID}
	e, ok := r.s.st.stock[k]
	if !ok {
		e = entity.StockLedgerEntry{ProductID: productID, BranchID: branchID}
		r.s.st.stock[k] = e
	}
	return &e, nil
}

func (r stockRepo) Update(_ context.Context, entry *entity.StockLedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("stock.update"); err != nil {
		return err
	}
	r.s.st.stock[stockKey{entry.ProductID, entry.BranchID}] = *entry
	return nil
}

func (r stockRepo) ListByBranch(_ context.Context, branchID string) ([]entity.StockLedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.StockLedgerEntry
	for k, e := range r.s.st.stock {
		if k.branch == branchID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

type movementRepo struct{ s *Store }

func (r movementRepo) Append(_ context.Context, rec *entity.MovementRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("movements.append"); err != nil {
		return err
	}
	r.s.st.seq++
	rec.Sequence = r.s.st.seq
	r.s.st.movements = append(r.s.st.movements, *rec)
	return nil
}

func (r movementRepo) ListByProductAndBranch(_ context.Context, productID, branchID string, until *time.Time) ([]entity.MovementRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.MovementRecord
	for _, m := range r.s.st.movements {
		if m.ProductID != productID {
			continue
		}
		if !matchesBranch(m.OriginBranchID, branchID) && !matchesBranch(m.DestinationBranchID, branchID) {
			continue
		}
		if until != nil && m.OccurredAt.After(*until) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

func matchesBranch(id *string, branchID string) bool { return id != nil && *id == branchID }

// ── Numeración ──────────────────────────────────────────────────────────────

type rangeRepo struct{ s *Store }

func (r rangeRepo) GetByID(_ context.Context, id string) (*entity.NumberingRange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	nr, ok := r.s.st.ranges[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &nr, nil
}

func (r rangeRepo) ListCandidatesForUpdate(_ context.Context, documentType string) ([]entity.NumberingRange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.NumberingRange
	for _, nr := range r.s.st.ranges {
		if nr.DocumentType == documentType && nr.Active && !nr.Expired {
			out = append(out, nr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r rangeRepo) SaveConsumption(_ context.Context, nr *entity.NumberingRange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.st.ranges[nr.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if nr.CurrentConsecutive < cur.CurrentConsecutive {
		return fmt.Errorf("%w: el consecutivo no puede retroceder", domain.ErrInvariantViolation)
	}
	cur.CurrentConsecutive = nr.CurrentConsecutive
	cur.Expired = nr.Expired
	cur.UpdatedAt = nr.UpdatedAt
	r.s.st.ranges[nr.ID] = cur
	return nil
}

// ── Ventas y notas crédito ──────────────────────────────────────────────────

type saleRepo struct{ s *Store }

func (r saleRepo) Create(_ context.Context, sale *entity.Sale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sales.create"); err != nil {
		return err
	}
	if _, ok := r.s.st.sales[sale.ID]; ok {
		return domain.ErrConflict
	}
	for _, v := range r.s.st.sales {
		if v.ReferenceCode == sale.ReferenceCode || (v.RangeID == sale.RangeID && v.Number == sale.Number) {
			return domain.ErrConflict
		}
	}
	r.s.st.sales[sale.ID] = *sale
	return nil
}

func (r saleRepo) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.st.sales[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

func (r saleRepo) List(_ context.Context, f repository.SaleFilter) ([]entity.Sale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Sale
	for _, v := range r.s.st.sales {
		switch {
		case f.BranchID != "" && v.BranchID != f.BranchID:
			continue
		case f.Status != "" && string(v.Status) != f.Status:
			continue
		case f.From != nil && v.OccurredAt.Before(*f.From):
			continue
		case f.To != nil && v.OccurredAt.After(*f.To):
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].Number > out[j].Number
	})
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r saleRepo) ApplyFiscalResult(_ context.Context, id string, result repository.FiscalResult, allowedFrom []entity.SaleStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sales.apply_fiscal_result"); err != nil {
		return err
	}
	v, ok := r.s.st.sales[id]
	if !ok || !slices.Contains(allowedFrom, v.Status) {
		return domain.ErrInvalidState
	}
	v.Status = entity.SaleStatus(result.Status)
	v.GatewayErrors = result.Errors
	v.GatewayAttempts++
	v.UpdatedAt = result.At
	if v.Status == entity.SaleStatusValidated {
		v.GatewayBillID = result.GatewayBillID
		v.GatewayNumber = result.GatewayNumber
		v.CUFE = result.CUFE
		v.QRURL = result.QRURL
		at := result.At
		v.ValidatedAt = &at
	}
	r.s.st.sales[id] = v
	return nil
}

func (r saleRepo) TransitionStatus(_ context.Context, id string, from, to entity.SaleStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.st.sales[id]
	if !ok {
		return domain.ErrNotFound
	}
	if v.Status != from {
		return domain.ErrInvalidState
	}
	v.Status = to
	v.UpdatedAt = at
	r.s.st.sales[id] = v
	return nil
}

type creditNoteRepo struct{ s *Store }

func (r creditNoteRepo) Create(_ context.Context, note *entity.CreditNote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("credit_notes.create"); err != nil {
		return err
	}
	r.s.st.notes[note.ID] = *note
	return nil
}

func (r creditNoteRepo) GetByID(_ context.Context, id string) (*entity.CreditNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.st.notes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &n, nil
}

func (r creditNoteRepo) ApplyFiscalResult(_ context.Context, id string, result repository.FiscalResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.st.notes[id]
	if !ok {
		return domain.ErrNotFound
	}
	if n.Status == entity.CreditNoteStatusValidated {
		return domain.ErrInvalidState
	}
	n.Status = entity.CreditNoteStatus(result.Status)
	n.GatewayNumber = result.GatewayNumber
	n.CUFE = result.CUFE
	n.QRURL = result.QRURL
	n.GatewayErrors = result.Errors
	n.GatewayAttempts++
	n.UpdatedAt = result.At
	r.s.st.notes[id] = n
	return nil
}

// ── Caja y bitácora ─────────────────────────────────────────────────────────

type tillRepo struct{ s *Store }

func (r tillRepo) GetSession(_ context.Context, id string) (*entity.TillSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.st.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (r tillRepo) AppendMovement(_ context.Context, m *entity.CashMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("till.append_movement"); err != nil {
		return err
	}
	r.s.st.cash = append(r.s.st.cash, *m)
	return nil
}

type logRepo struct{ s *Store }

func (r logRepo) Append(_ context.Context, l *entity.IntegrationLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("integration_logs.append"); err != nil {
		return err
	}
	r.s.st.logs = append(r.s.st.logs, *l)
	return nil
}

// ErrInjected error genérico para simular fallas de persistencia.
var ErrInjected = errors.New("falla simulada de persistencia")

var (
	_ repository.ProductRepository        = productRepo{}
	_ repository.CustomerRepository       = customerRepo{}
	_ repository.BranchRepository         = branchRepo{}
	_ repository.StockRepository          = stockRepo{}
	_ repository.MovementRepository       = movementRepo{}
	_ repository.NumberingRangeRepository = rangeRepo{}
	_ repository.SaleRepository           = saleRepo{}
	_ repository.CreditNoteRepository     = creditNoteRepo{}
	_ repository.TillRepository           = tillRepo{}
	_ repository.IntegrationLogRepository = logRepo{}
)
