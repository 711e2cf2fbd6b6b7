package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/LuisDaniel15/Software-Pos/internal/application/auth"
	"github.com/LuisDaniel15/Software-Pos/internal/application/billing"
	"github.com/LuisDaniel15/Software-Pos/internal/application/dto"
	"github.com/LuisDaniel15/Software-Pos/internal/application/inventory"
	"github.com/LuisDaniel15/Software-Pos/internal/application/numbering"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/infrastructure/factus"
	apphttp "github.com/LuisDaniel15/Software-Pos/internal/interfaces/http"
	"github.com/LuisDaniel15/Software-Pos/internal/testutil/memstore"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
	pkgjwt "github.com/LuisDaniel15/Software-Pos/pkg/jwt"
)

var testTokens = mustSigner("secreto-api")

func mustSigner(secret string) *pkgjwt.Signer {
	s, err := pkgjwt.NewSigner(secret, "software-pos-test", time.Hour)
	if err != nil {
		panic(err)
	}
	return s
}

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func i64(v int64) *int64 { return &v }

// newAPI arma la API completa sobre el almacén en memoria y el proveedor simulado.
func newAPI(t *testing.T) (*fiber.App, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	st.PutBranch(entity.Branch{ID: "b-1", Name: "Principal", MunicipalityID: 980, Active: true})
	st.PutBranch(entity.Branch{ID: "b-2", Name: "Norte", MunicipalityID: 980, Active: true})
	st.PutCustomer(entity.Customer{
		ID: "c-1", IdentificationDocumentID: 3, Identification: "1020304050",
		Names: "Ana Gómez", LegalOrganizationID: 2, TributeID: 21, MunicipalityID: 980, Active: true,
	})
	st.PutProduct(entity.Product{
		ID: "p-1", Code: "CAF-500", Name: "Café 500g", Price: decimal.NewFromInt(11900), TaxRate: decimal.NewFromInt(19),
		UnitMeasureID: 70, StandardCodeID: 1, TributeID: 1, Active: true,
	})
	st.PutRange(entity.NumberingRange{
		ID: "r-fv", DocumentType: entity.DocumentTypeSalesInvoice, Prefix: "SETP", GatewayRangeID: 8,
		RangeStart: i64(990000001), RangeEnd: i64(990001000), CurrentConsecutive: 990000000, Active: true,
	})

	log := logger.Nop()
	now := func() time.Time { return fixedNow }
	ledger := inventory.NewLedgerUseCase(st, st.Products(), st.Branches())
	repos := billing.Repos{
		Products:    st.Products(),
		Customers:   st.Customers(),
		Branches:    st.Branches(),
		Stock:       st.Stock(),
		Till:        st.Till(),
		Sales:       st.Sales(),
		CreditNotes: st.CreditNotes(),
	}
	fiscal := billing.NewFiscalOrchestrator(st, factus.NewSimulatedGateway(log), repos, time.Second, log)
	allocator := numbering.NewAllocator(st.Ranges(), log)

	app := fiber.New()
	authUC := auth.NewAuthUseCase(st.Users(), st.Branches(), testTokens, log).
		WithHashCost(bcrypt.MinCost)
	apphttp.Router(app, apphttp.RouterDeps{
		Auth:       authUC,
		Settlement: billing.NewSettlementUseCase(st, ledger, allocator, fiscal, nil, repos, log),
		Ledger:     ledger,
		Kardex:     inventory.NewKardexUseCase(st.Movements(), st.Stock(), log),
		Reports:    inventory.NewReportsUseCase(st.Stock()),
		Allocator:  allocator,
		Tokens:     testTokens,
		Log:        log,
		Now:        now,
	})
	return app, st
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := testTokens.Sign(pkgjwt.Operator{UserID: "u-1", BranchID: "b-1", Role: role})
	require.NoError(t, err)
	return "Bearer " + tok
}

func call(t *testing.T, app *fiber.App, method, path, role, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, role))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSalesAPI_LiquidaYConsulta(t *testing.T) {
	app, st := newAPI(t)
	resp := call(t, app, http.MethodPost, "/api/inventory/adjust", "bodeguero",
		`{"product_id":"p-1","kind":"INBOUND","delta":"10","unit_cost":"7000","reason":"Compra"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	change := decode[dto.StockChangeResponse](t, resp)
	assert.True(t, change.NewQuantity.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "b-1", change.BranchID, "la sucursal por defecto sale del token")

	resp = call(t, app, http.MethodPost, "/api/sales", "cajero",
		`{"customer_id":"c-1","payment_form":1,"payment_method_code":"10","items":[{"product_id":"p-1","quantity":"2"}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sale := decode[dto.SaleResponse](t, resp)
	assert.Equal(t, string(entity.SaleStatusValidated), sale.Status)
	assert.True(t, sale.FiscallyConfirmed)
	assert.Equal(t, "SETP990000001", sale.Number)
	assert.NotEmpty(t, sale.CUFE)
	assert.True(t, st.QuantityOnHand("p-1", "b-1").Equal(decimal.NewFromInt(8)))

	resp = call(t, app, http.MethodGet, "/api/sales/"+sale.ID, "cajero", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[dto.SaleResponse](t, resp)
	assert.Equal(t, sale.ReferenceCode, got.ReferenceCode)
	require.Len(t, got.Lines, 1)

	resp = call(t, app, http.MethodGet, "/api/sales?status=VALIDATED", "admin", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[struct {
		Items []dto.SaleResponse `json:"items"`
	}](t, resp)
	assert.Len(t, list.Items, 1)
}

func TestSalesAPI_StockInsuficiente_Retorna409(t *testing.T) {
	app, st := newAPI(t)

	resp := call(t, app, http.MethodPost, "/api/sales", "cajero",
		`{"customer_id":"c-1","payment_form":1,"payment_method_code":"10","items":[{"product_id":"p-1","quantity":"1"}]}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "INSUFFICIENT_STOCK")
	assert.Empty(t, st.AllSales())
	assert.Equal(t, int64(990000000), st.Range("r-fv").CurrentConsecutive, "no se consume número")
}

func TestSalesAPI_CuerpoInvalido_Retorna400(t *testing.T) {
	app, _ := newAPI(t)

	resp := call(t, app, http.MethodPost, "/api/sales", "cajero", `{"customer_id":`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, app, http.MethodPost, "/api/sales", "cajero", `{"customer_id":"c-1","payment_form":3,"items":[]}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "VALIDATION")
}

func TestSalesAPI_ReintentoDeVentaValidada_Retorna409(t *testing.T) {
	app, st := newAPI(t)
	st.SetStock("p-1", "b-1", decimal.NewFromInt(5), decimal.NewFromInt(7000))
	resp := call(t, app, http.MethodPost, "/api/sales", "cajero",
		`{"customer_id":"c-1","payment_form":1,"payment_method_code":"10","items":[{"product_id":"p-1","quantity":"1"}]}`)
	sale := decode[dto.SaleResponse](t, resp)

	resp = call(t, app, http.MethodPost, "/api/sales/"+sale.ID+"/retry", "cajero", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "INVALID_STATE")
}

func TestSalesAPI_NotaCredito_SoloAdmin(t *testing.T) {
	app, _ := newAPI(t)

	resp := call(t, app, http.MethodPost, "/api/sales/x/credit-notes", "cajero", `{"reason":"Devolución"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInventoryAPI_BodegueroNoVende(t *testing.T) {
	app, _ := newAPI(t)

	resp := call(t, app, http.MethodPost, "/api/sales", "bodeguero", `{}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInventoryAPI_TrasladoKardexYConciliacion(t *testing.T) {
	app, st := newAPI(t)
	resp := call(t, app, http.MethodPost, "/api/inventory/adjust", "admin",
		`{"product_id":"p-1","kind":"INBOUND","delta":"10","unit_cost":"7000","reason":"Compra"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = call(t, app, http.MethodPost, "/api/inventory/transfer", "bodeguero",
		`{"product_id":"p-1","from_branch_id":"b-1","to_branch_id":"b-2","quantity":"4"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tr := decode[dto.TransferResponse](t, resp)
	assert.True(t, strings.HasPrefix(tr.Reference, "TRASLADO-"))
	assert.True(t, tr.Origin.NewQuantity.Equal(decimal.NewFromInt(6)))
	assert.True(t, tr.Dest.NewQuantity.Equal(decimal.NewFromInt(4)))

	resp = call(t, app, http.MethodGet, "/api/inventory/kardex?product_id=p-1", "cajero", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	k := decode[dto.KardexResponse](t, resp)
	require.Len(t, k.Rows, 2)
	assert.True(t, k.Closing.Equal(decimal.NewFromInt(6)))

	resp = call(t, app, http.MethodGet, "/api/inventory/reconcile?product_id=p-1", "admin", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[dto.ReconcileResponse](t, resp).Consistent)

	// Modificación directa sin movimiento: se reporta, no se corrige.
	st.SetStock("p-1", "b-1", decimal.NewFromInt(9), decimal.NewFromInt(7000))
	resp = call(t, app, http.MethodGet, "/api/inventory/reconcile?product_id=p-1", "admin", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decode[dto.ReconcileResponse](t, resp)
	assert.False(t, rec.Consistent)
	assert.True(t, rec.Replayed.Equal(decimal.NewFromInt(6)))
}

func TestInventoryAPI_KardexFechaInvalida_Retorna400(t *testing.T) {
	app, _ := newAPI(t)

	resp := call(t, app, http.MethodGet, "/api/inventory/kardex?product_id=p-1&from=01-03-2025", "admin", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInventoryAPI_ConteoYValorizacion(t *testing.T) {
	app, st := newAPI(t)
	st.SetStock("p-1", "b-1", decimal.NewFromInt(10), decimal.NewFromInt(7000))

	resp := call(t, app, http.MethodPost, "/api/inventory/count", "bodeguero", `{"product_id":"p-1","new_quantity":"7","reason":"Conteo mensual"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	change := decode[dto.StockChangeResponse](t, resp)
	assert.True(t, change.PreviousQuantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, change.NewQuantity.Equal(decimal.NewFromInt(7)))

	resp = call(t, app, http.MethodGet, "/api/inventory/valuation", "admin", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decode[dto.ValuationResponse](t, resp)
	assert.True(t, v.Total.Equal(decimal.NewFromInt(49000)), "valor: %s", v.Total)
}

func TestNumberingAPI_Reporte(t *testing.T) {
	app, _ := newAPI(t)

	resp := call(t, app, http.MethodGet, "/api/numbering-ranges/r-fv/report", "admin", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rep := decode[dto.NumberingReportResponse](t, resp)
	assert.Equal(t, int64(1000), rep.Available)
	assert.Equal(t, "SETP990000001", rep.NextFormatted)

	resp = call(t, app, http.MethodGet, "/api/numbering-ranges/nada/report", "admin", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSalesAPI_NoEncontrada_Retorna404(t *testing.T) {
	app, _ := newAPI(t)

	resp := call(t, app, http.MethodGet, "/api/sales/no-existe", "cajero", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthAPI_AdminRegistraYCajeroIniciaSesion(t *testing.T) {
	app, _ := newAPI(t)

	resp := call(t, app, http.MethodPost, "/api/users", "cajero",
		`{"branch_id":"b-1","email":"caja2@tienda.co","password":"secreta123","role":"cajero"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "solo admin registra usuarios")

	resp = call(t, app, http.MethodPost, "/api/users", "admin",
		`{"branch_id":"b-1","email":"caja2@tienda.co","password":"secreta123","role":"cajero"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := decode[dto.UserResponse](t, resp)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"caja2@tienda.co","password":"secreta123"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[dto.LoginResponse](t, resp)
	assert.Equal(t, user.ID, login.User.ID)

	// El token emitido sirve para las rutas de caja.
	req = httptest.NewRequest(http.MethodGet, "/api/sales", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"caja2@tienda.co","password":"equivocada"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
