package billing_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuisDaniel15/Software-Pos/internal/application/billing"
	"github.com/LuisDaniel15/Software-Pos/internal/application/dto"
	"github.com/LuisDaniel15/Software-Pos/internal/application/inventory"
	"github.com/LuisDaniel15/Software-Pos/internal/application/numbering"
	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/testutil/memstore"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

var (
	t0     = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	cajero = domain.Actor{UserID: "u-1", BranchID: "b-1"}
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func i64(v int64) *int64 { return &v }

// ── Proveedor de facturación simulado ──

type fakeGateway struct {
	mu      sync.Mutex
	docs    []billing.FiscalDocument
	respond func(doc *billing.FiscalDocument) (*billing.GatewayResponse, error)
}

func (g *fakeGateway) Submit(_ context.Context, doc *billing.FiscalDocument) (*billing.GatewayResponse, error) {
	g.mu.Lock()
	g.docs = append(g.docs, *doc)
	respond := g.respond
	g.mu.Unlock()
	return respond(doc)
}

func (g *fakeGateway) setRespond(fn func(doc *billing.FiscalDocument) (*billing.GatewayResponse, error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.respond = fn
}

func (g *fakeGateway) calls() []billing.FiscalDocument {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]billing.FiscalDocument(nil), g.docs...)
}

func accept(doc *billing.FiscalDocument) (*billing.GatewayResponse, error) {
	return &billing.GatewayResponse{
		Accepted:   true,
		BillID:     101,
		Number:     doc.Number,
		CUFE:       "cufe-" + doc.ReferenceCode,
		QRURL:      "https://catalogo-vpfe.dian.gov.co/document/searchqr?documentkey=x",
		HTTPStatus: 201,
		Request:    []byte(`{}`),
		Response:   []byte(`{"status":"Created"}`),
	}, nil
}

func reject(doc *billing.FiscalDocument) (*billing.GatewayResponse, error) {
	return &billing.GatewayResponse{
		Accepted:   false,
		Errors:     []string{"FAK24: el NIT del adquiriente no es válido"},
		HTTPStatus: 422,
	}, nil
}

func unreachable(doc *billing.FiscalDocument) (*billing.GatewayResponse, error) {
	return nil, errors.New("dial tcp: connection refused")
}

// ── Fixture ──

type fixture struct {
	store      *memstore.Store
	gateway    *fakeGateway
	ledger     *inventory.LedgerUseCase
	kardex     *inventory.KardexUseCase
	settlement *billing.SettlementUseCase
}

func newFixture(t *testing.T, initialStock string) *fixture {
	t.Helper()
	st := memstore.New()
	st.PutBranch(entity.Branch{ID: "b-1", Name: "Principal", Address: "Calle 10 # 5-20", MunicipalityID: 980, Active: true})
	st.PutBranch(entity.Branch{ID: "b-2", Name: "Norte", MunicipalityID: 980, Active: true})
	st.PutCustomer(entity.Customer{
		ID: "c-1", IdentificationDocumentID: 6, Identification: "900373115",
		Company: "Distribuciones Andinas SAS", LegalOrganizationID: 1, TributeID: 21,
		MunicipalityID: 980, Email: "compras@andinas.co", Active: true,
	})
	st.PutProduct(entity.Product{
		ID: "p-1", Code: "CAF-500", Name: "Café 500g", Price: d("11900"), TaxRate: d("19"),
		UnitMeasureID: 70, StandardCodeID: 1, TributeID: 1, Active: true,
	})
	st.PutRange(entity.NumberingRange{
		ID: "r-fv", DocumentType: entity.DocumentTypeSalesInvoice, Prefix: "SETP", GatewayRangeID: 8,
		RangeStart: i64(990000001), RangeEnd: i64(990001000), CurrentConsecutive: 990000000, Active: true,
	})
	st.PutRange(entity.NumberingRange{
		ID: "r-nc", DocumentType: entity.DocumentTypeCreditNote, Prefix: "NC", GatewayRangeID: 9,
		RangeStart: i64(1), RangeEnd: i64(100), Active: true,
	})
	st.PutSession(entity.TillSession{ID: "ts-1", TillID: "caja-1", BranchID: "b-1", UserID: "u-1", Status: entity.TillSessionOpen, OpenedAt: t0.Add(-2 * time.Hour)})

	log := logger.Nop()
	gw := &fakeGateway{respond: accept}
	ledger := inventory.NewLedgerUseCase(st, st.Products(), st.Branches())
	if initialStock != "0" {
		cost := d("7000")
		_, err := ledger.AdjustStock(context.Background(), cajero, t0.Add(-time.Hour), inventory.Adjustment{
			ProductID: "p-1", BranchID: "b-1", Delta: d(initialStock),
			Kind: entity.MovementInbound, UnitCost: &cost, Reason: "Compra inicial",
		})
		require.NoError(t, err)
	}
	repos := billing.Repos{
		Products:    st.Products(),
		Customers:   st.Customers(),
		Branches:    st.Branches(),
		Stock:       st.Stock(),
		Till:        st.Till(),
		Sales:       st.Sales(),
		CreditNotes: st.CreditNotes(),
	}
	fiscal := billing.NewFiscalOrchestrator(st, gw, repos, time.Second, log)
	allocator := numbering.NewAllocator(st.Ranges(), log)
	return &fixture{
		store:      st,
		gateway:    gw,
		ledger:     ledger,
		kardex:     inventory.NewKardexUseCase(st.Movements(), st.Stock(), log),
		settlement: billing.NewSettlementUseCase(st, ledger, allocator, fiscal, nil, repos, log),
	}
}

func saleRequest(qty string) dto.SettleSaleRequest {
	session := "ts-1"
	return dto.SettleSaleRequest{
		CustomerID:        "c-1",
		TillSessionID:     &session,
		PaymentForm:       entity.PaymentFormCash,
		PaymentMethodCode: "10",
		Items:             []dto.SaleItemRequest{{ProductID: "p-1", Quantity: d(qty)}},
	}
}

// ── Liquidación exitosa ──

func TestSettle_Aceptada_DescuentaStockYNumera(t *testing.T) {
	f := newFixture(t, "10")

	sale, err := f.settlement.Settle(context.Background(), cajero, t0, saleRequest("3"))
	require.NoError(t, err)

	assert.Equal(t, entity.SaleStatusValidated, sale.Status)
	assert.Equal(t, int64(990000001), sale.Number)
	assert.Equal(t, "SETP990000001", sale.FullNumber())
	assert.Equal(t, "r-fv", sale.RangeID)
	assert.True(t, sale.GrandTotal.Equal(d("35700")), "total: %s", sale.GrandTotal)
	assert.True(t, sale.Subtotal.Equal(d("30000")), "subtotal: %s", sale.Subtotal)
	assert.True(t, sale.TaxTotal.Equal(d("5700")), "iva: %s", sale.TaxTotal)
	assert.Equal(t, "cufe-"+sale.ReferenceCode, sale.CUFE)
	assert.Equal(t, 1, sale.GatewayAttempts)
	assert.Regexp(t, `^REF-20250301-093000-[0-9a-f]{8}$`, sale.ReferenceCode)

	assert.True(t, f.store.QuantityOnHand("p-1", "b-1").Equal(d("7")))
	assert.Equal(t, int64(990000001), f.store.Range("r-fv").CurrentConsecutive)

	stored, err := f.settlement.Get(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusValidated, stored.Status)
	assert.NotNil(t, stored.ValidatedAt)

	movs := f.store.AllMovements()
	require.Len(t, movs, 2)
	out := movs[1]
	assert.Equal(t, entity.MovementOutbound, out.Kind)
	assert.True(t, out.Quantity.Equal(d("3")))
	assert.Equal(t, sale.ReferenceCode, out.ExternalReference)
	assert.Equal(t, "Venta SETP990000001", out.Reason)
	require.NotNil(t, out.OriginBranchID)
	assert.Equal(t, "b-1", *out.OriginBranchID)

	cash := f.store.CashMovements()
	require.Len(t, cash, 1)
	assert.Equal(t, entity.CashMovementIncome, cash[0].Kind)
	assert.True(t, cash[0].Amount.Equal(d("35700")))

	logs := f.store.IntegrationLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, entity.IntegrationOpSubmitInvoice, logs[0].Operation)
	assert.True(t, logs[0].Success)

	docs := f.gateway.calls()
	require.Len(t, docs, 1)
	assert.Equal(t, billing.KindInvoice, docs[0].Kind)
	assert.Equal(t, int64(8), docs[0].GatewayRangeID)
	assert.Equal(t, "3", docs[0].Customer.DV)
}

func TestSettle_VentaACreditoSinVencimiento_EsInvalida(t *testing.T) {
	f := newFixture(t, "10")
	req := saleRequest("1")
	req.PaymentForm = entity.PaymentFormCredit

	_, err := f.settlement.Settle(context.Background(), cajero, t0, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.gateway.calls())
}

func TestSettle_ClienteInactivo_EsInvalido(t *testing.T) {
	f := newFixture(t, "10")
	f.store.PutCustomer(entity.Customer{ID: "c-2", Identification: "1020304050", IdentificationDocumentID: 3, Active: false})
	req := saleRequest("1")
	req.CustomerID = "c-2"

	_, err := f.settlement.Settle(context.Background(), cajero, t0, req)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "customer_id", verr.Field)
}

func TestSettle_TurnoCerrado_EsInvalido(t *testing.T) {
	f := newFixture(t, "10")
	f.store.PutSession(entity.TillSession{ID: "ts-1", BranchID: "b-1", Status: entity.TillSessionClosed})

	_, err := f.settlement.Settle(context.Background(), cajero, t0, saleRequest("1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.True(t, f.store.QuantityOnHand("p-1", "b-1").Equal(d("10")))
}

func TestSettle_SinItems_FallaValidacion(t *testing.T) {
	f := newFixture(t, "10")
	req := saleRequest("1")
	req.Items = nil

	_, err := f.settlement.Settle(context.Background(), cajero, t0, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ── Fallas antes del commit: nada queda registrado ──

func TestSettle_StockInsuficiente_NoConsumeNumero(t *testing.T) {
	f := newFixture(t, "2")

	_, err := f.settlement.Settle(context.Background(), cajero, t0, saleRequest("3"))
	require.Error(t, err)
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.True(t, stockErr.Available.Equal(d("2")))
	assert.True(t, stockErr.Requested.Equal(d("3")))

	assert.Equal(t, int64(990000000), f.store.Range("r-fv").CurrentConsecutive)
	assert.True(t, f.store.QuantityOnHand("p-1", "b-1").Equal(d("2")))
	assert.Empty(t, f.store.AllSales())
	assert.Len(t, f.store.AllMovements(), 1)
	assert.Empty(t, f.gateway.calls())
}

func TestSettle_LineasRepetidas_SeSumanEnLaVerificacion(t *testing.T) {
	f := newFixture(t, "4")
	req := saleRequest("3")
	req.Items = append(req.Items, dto.SaleItemRequest{ProductID: "p-1", Quantity: d("2")})

	_, err := f.settlement.Settle(context.Background(), cajero, t0, req)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, f.store.QuantityOnHand("p-1", "b-1").Equal(d("4")))
}

func TestSettle_SinRangoDeNumeracion_NoDescuentaStock(t *testing.T) {
	f := newFixture(t, "10")
	r := f.store.Range("r-fv")
	r.CurrentConsecutive = *r.RangeEnd
	f.store.PutRange(r)

	_, err := f.settlement.Settle(context.Background(), cajero, t0, saleRequest("1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoNumberingRange)
	assert.ErrorIs(t, err, domain.ErrRangeExhausted)

	assert.True(t, f.store.QuantityOnHand("p-1", "b-1").Equal(d("10")))
	assert.Empty(t, f.store.AllSales())
}

func TestSettle_RangoVencido_LaVentaFalla(t *testing.T) {
	f := newFixture(t, "10")
	r := f.store.Range("r-fv")
	validTo := t0.Add(-24 * time.Hour)
	r.ValidTo = &validTo
	f.store.PutRange(r)

	_, err := f.settlement.Settle(context.Background(), cajero, t0, saleRequest("1"))
	assert.ErrorIs(t, err, domain.ErrNoNumberingRange)
	assert.False(t, f.store.Range("r-fv").Expired)
	assert.Equal(t, int64(990000000), f.store.Range("r-fv").CurrentConsecutive)
}

func TestSettle_FallaAlGuardarVenta_RevierteTodo(t *testing.T) {
	f := newFixture(t, "10")
	f.store.FailOn("sales.create", memstore.ErrInjected)

	_, err := f.settlement.Settle(context.Background(), cajero, t0, saleRequest("3"))
	require.ErrorIs(t, err, memstore.ErrInjected)

	assert.True(t, f.store.QuantityOnHand("p-1", "b-1").Equal(d("10")))
	assert.Equal(t, int64(990000000), f.store.Range("r-fv").CurrentConsecutive)
	assert.Len(t, f.store.AllMovements(), 1)
	assert.Empty(t, f.store.CashMovements())
}

// ── Proveedor de facturación ──

func TestSettle_Rechazada_ConservaNumeroYStock(t *testing.T) {
	f := newFixture(t, "10")
	f.gateway.setRespond(reject)

	sale, err := f.settlement.Settle(context.Background(), cajero, t0, saleRequest("3"))
	require.NoError(t, err)

	assert.Equal(t, entity.SaleStatusRejected, sale.Status)
	assert.Equal(t, []string{"FAK24: el NIT del adquiriente no es válido"}, sale.GatewayErrors)
	assert.Equal(t, int64(990000001), f.store.Range("r-fv").CurrentConsecutive)
	assert.True(t, f.store.QuantityOnHand("p-1", "b-1").Equal(d("7")))

	logs := f.store.IntegrationLogs()
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Success)
	assert.Equal(t, 422, logs[0].HTTPStatus)
}

func TestSettle_ProveedorInalcanzable_QuedaRechazada(t *testing.T) {
	f := newFixture(t, "10")
	f.gateway.setRespond(unreachable)

	sale, err := f.settlement.Settle(context.Background(), cajero, t0, saleRequest("3"))
	require.NoError(t, err)

	assert.Equal(t, entity.SaleStatusRejected, sale.Status)
	require.Len(t, sale.GatewayErrors, 1)
	assert.Contains(t, sale.GatewayErrors[0], domain.ErrGatewayUnavailable.Error())
	assert.True(t, f.store.QuantityOnHand("p-1", "b-1").Equal(d("7")))
}

func TestSettle_FallaAlGuardarResultadoFiscal_DevuelveVentaPendiente(t *testing.T) {
	f := newFixture(t, "10")
	f.store.FailOn("sales.apply_fiscal_result", memstore.ErrInjected)

	sale, err := f.settlement.Settle(context.Background(), cajero, t0, saleRequest("3"))
	require.NoError(t, err, "después del commit la venta siempre se devuelve")
	require.NotNil(t, sale)
	assert.Equal(t, entity.SaleStatusPendingFiscalValidation, sale.Status)
	assert.True(t, sale.Status.Retryable())
	assert.Equal(t, int64(990000001), sale.Number)

	assert.True(t, f.store.QuantityOnHand("p-1", "b-1").Equal(d("7")))
	assert.Len(t, f.store.AllSales(), 1)
	assert.Empty(t, f.store.IntegrationLogs())

	f.store.FailOn("sales.apply_fiscal_result", nil)
	retried, err := f.settlement.RetryFiscalValidation(context.Background(), cajero, t0.Add(time.Minute), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusValidated, retried.Status)
	assert.Equal(t, sale.Number, retried.Number)
	assert.True(t, f.store.QuantityOnHand("p-1", "b-1").Equal(d("7")))
}

func TestSettle_CancelacionDelRequest_NoDetieneElEnvio(t *testing.T) {
	f := newFixture(t, "10")
	ctx, cancel := context.WithCancel(context.Background())
	f.gateway.setRespond(func(doc *billing.FiscalDocument) (*billing.GatewayResponse, error) {
		cancel()
		return accept(doc)
	})

	sale, err := f.settlement.Settle(ctx, cajero, t0, saleRequest("1"))
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusValidated, sale.Status)
}

// ── Reintento ──

func TestRetry_TrasFallaDeTransporte_ValidaSinDobleDescuento(t *testing.T) {
	f := newFixture(t, "10")
	f.gateway.setRespond(unreachable)
	sale, err := f.settlement.Settle(context.Background(), cajero, t0, saleRequest("3"))
	require.NoError(t, err)
	require.Equal(t, entity.SaleStatusRejected, sale.Status)

	f.gateway.setRespond(accept)
	retried, err := f.settlement.RetryFiscalValidation(context.Background(), cajero, t0.Add(10*time.Minute), sale.ID)
	require.NoError(t, err)

	assert.Equal(t, entity.SaleStatusValidated, retried.Status)
	assert.Equal(t, sale.Number, retried.Number)
	assert.Equal(t, sale.ReferenceCode, retried.ReferenceCode)
	assert.Equal(t, 2, retried.GatewayAttempts)
	assert.Empty(t, retried.GatewayErrors)

	assert.True(t, f.store.QuantityOnHand("p-1", "b-1").Equal(d("7")))
	assert.Equal(t, int64(990000001), f.store.Range("r-fv").CurrentConsecutive)
	assert.Len(t, f.store.AllMovements(), 2)
	assert.Len(t, f.store.CashMovements(), 1)

	docs := f.gateway.calls()
	require.Len(t, docs, 2)
	assert.Equal(t, docs[0].ReferenceCode, docs[1].ReferenceCode)
	assert.Equal(t, docs[0].Number, docs[1].Number)

	logs := f.store.IntegrationLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, entity.IntegrationOpRetryInvoice, logs[1].Operation)
}

func TestRetry_VentaValidada_NoSeReenvia(t *testing.T) {
	f := newFixture(t, "10")
	sale, err := f.settlement.Settle(context.Background(), cajero, t0, saleRequest("1"))
	require.NoError(t, err)

	_, err = f.settlement.RetryFiscalValidation(context.Background(), cajero, t0, sale.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Len(t, f.gateway.calls(), 1)
}

func TestRetry_VentaInexistente(t *testing.T) {
	f := newFixture(t, "10")
	_, err := f.settlement.RetryFiscalValidation(context.Background(), cajero, t0, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRetry_CandadoOcupado_DevuelveConflicto(t *testing.T) {
	f := newFixture(t, "10")
	f.gateway.setRespond(reject)
	sale, err := f.settlement.Settle(context.Background(), cajero, t0, saleRequest("1"))
	require.NoError(t, err)

	st := f.store
	repos := billing.Repos{
		Products: st.Products(), Customers: st.Customers(), Branches: st.Branches(),
		Stock: st.Stock(), Till: st.Till(), Sales: st.Sales(), CreditNotes: st.CreditNotes(),
	}
	log := logger.Nop()
	fiscal := billing.NewFiscalOrchestrator(st, f.gateway, repos, time.Second, log)
	uc := billing.NewSettlementUseCase(st, f.ledger, numbering.NewAllocator(st.Ranges(), log), fiscal, busyLocker{}, repos, log)

	_, err = uc.RetryFiscalValidation(context.Background(), cajero, t0, sale.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Len(t, f.gateway.calls(), 1)
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(), error) {
	return nil, domain.ErrConflict
}

// ── Concurrencia ──

func TestSettle_Concurrentes_NumerosUnicosYSinSobreventa(t *testing.T) {
	f := newFixture(t, "5")

	const workers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int64
		failed  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sale, err := f.settlement.Settle(context.Background(), cajero, t0.Add(time.Duration(i)*time.Second), saleRequest("1"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
				failed++
				return
			}
			numbers = append(numbers, sale.Number)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, failed)
	require.Len(t, numbers, 5)
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, n := range numbers {
		assert.Equal(t, int64(990000001+i), n, "consecutivo %d", i)
	}
	assert.True(t, f.store.QuantityOnHand("p-1", "b-1").IsZero())
	assert.Equal(t, int64(990000005), f.store.Range("r-fv").CurrentConsecutive)
}

// ── Kardex después de vender ──

func TestReconcile_TrasVentasYNotaCredito_Cuadra(t *testing.T) {
	f := newFixture(t, "10")
	ctx := context.Background()
	first, err := f.settlement.Settle(ctx, cajero, t0, saleRequest("3"))
	require.NoError(t, err)
	_, err = f.settlement.Settle(ctx, cajero, t0.Add(time.Minute), saleRequest("2"))
	require.NoError(t, err)
	_, err = f.settlement.IssueCreditNote(ctx, cajero, t0.Add(time.Hour), first.ID, dto.CreditNoteRequest{Reason: "Devolución"})
	require.NoError(t, err)

	res, err := f.kardex.Reconcile(ctx, "p-1", "b-1")
	require.NoError(t, err)
	assert.True(t, res.Ledger.Equal(d("8")), "libro: %s", res.Ledger)
	assert.True(t, res.Replayed.Equal(d("8")), "kardex: %s", res.Replayed)
}

func TestSettle_VariosProductos_UnMovimientoPorLinea(t *testing.T) {
	f := newFixture(t, "10")
	f.store.PutProduct(entity.Product{ID: "p-2", Code: "AZU-1K", Name: "Azúcar 1kg", Price: d("4500"), TaxRate: d("5"), Active: true})
	_, err := f.ledger.AdjustStock(context.Background(), cajero, t0.Add(-time.Hour), inventory.Adjustment{
		ProductID: "p-2", BranchID: "b-1", Delta: d("20"), Kind: entity.MovementInbound, Reason: "Compra",
	})
	require.NoError(t, err)

	req := saleRequest("1")
	req.Items = append(req.Items, dto.SaleItemRequest{ProductID: "p-2", Quantity: d("4"), DiscountRate: d("10")})
	sale, err := f.settlement.Settle(context.Background(), cajero, t0, req)
	require.NoError(t, err)

	require.Len(t, sale.Lines, 2)
	assert.True(t, sale.Lines[1].Total.Equal(d("16200")), "total línea: %s", sale.Lines[1].Total)
	assert.True(t, sale.GrandTotal.Equal(d("28100")), "total: %s", sale.GrandTotal)
	assert.True(t, f.store.QuantityOnHand("p-2", "b-1").Equal(d("16")))

	var outbound int
	for _, m := range f.store.AllMovements() {
		if m.Kind == entity.MovementOutbound {
			outbound++
			assert.Equal(t, sale.ReferenceCode, m.ExternalReference)
		}
	}
	assert.Equal(t, 2, outbound)
}

// ── Listado ──

func TestList_FiltraPorSucursalYEstado(t *testing.T) {
	f := newFixture(t, "10")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.settlement.Settle(ctx, cajero, t0.Add(time.Duration(i)*time.Minute), saleRequest("1"))
		require.NoError(t, err, fmt.Sprintf("venta %d", i))
	}
	f.gateway.setRespond(reject)
	_, err := f.settlement.Settle(ctx, cajero, t0.Add(time.Hour), saleRequest("1"))
	require.NoError(t, err)

	all, err := f.settlement.List(ctx, cajero, dto.SaleListRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, entity.SaleStatusRejected, all[0].Status)

	rejected, err := f.settlement.List(ctx, cajero, dto.SaleListRequest{Status: "REJECTED"})
	require.NoError(t, err)
	assert.Len(t, rejected, 1)

	other, err := f.settlement.List(ctx, domain.Actor{UserID: "u-2", BranchID: "b-2"}, dto.SaleListRequest{})
	require.NoError(t, err)
	assert.Empty(t, other)
}
