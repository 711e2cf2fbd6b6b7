package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/LuisDaniel15/Software-Pos/internal/application/auth"
	"github.com/LuisDaniel15/Software-Pos/internal/application/billing"
	"github.com/LuisDaniel15/Software-Pos/internal/application/inventory"
	"github.com/LuisDaniel15/Software-Pos/internal/application/numbering"
	"github.com/LuisDaniel15/Software-Pos/pkg/jwt"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Auth       *auth.AuthUseCase
	Settlement *billing.SettlementUseCase
	Ledger     *inventory.LedgerUseCase
	Kardex     *inventory.KardexUseCase
	Reports    *inventory.ReportsUseCase
	Allocator  *numbering.Allocator
	Tokens     *jwt.Signer
	Log        *logger.Logger
	Now        func() time.Time
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.Auth, deps.Now, log)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token y sucursal)
	protected := api.Group("/", AuthMiddleware(deps.Tokens), RequireBranch())

	protected.Post("/users", RequireRole(RoleAdmin), authHandler.Register)

	// Ventas: liquidación, consulta, reintento y notas crédito
	sales := protected.Group("/sales", RequireRole(RoleAdmin, RoleCashier))
	saleHandler := NewSaleHandler(deps.Settlement, deps.Now, log)
	sales.Post("/", saleHandler.Settle)
	sales.Get("/", saleHandler.List)
	sales.Get("/:id", saleHandler.GetByID)
	sales.Post("/:id/retry", saleHandler.Retry)
	sales.Post("/:id/credit-notes", RequireRole(RoleAdmin), saleHandler.IssueCreditNote)

	// Inventario: consultas para todos los roles, mutaciones para admin y bodega
	invHandler := NewInventoryHandler(deps.Ledger, deps.Kardex, deps.Reports, deps.Now, log)
	inv := protected.Group("/inventory")
	inv.Get("/kardex", invHandler.Kardex)
	inv.Get("/reconcile", RequireRole(RoleAdmin), invHandler.Reconcile)
	inv.Get("/valuation", RequireRole(RoleAdmin, RoleWarehouse), invHandler.Valuation)
	inv.Get("/low-stock", invHandler.LowStock)
	inv.Post("/adjust", RequireRole(RoleAdmin, RoleWarehouse), invHandler.Adjust)
	inv.Post("/transfer", RequireRole(RoleAdmin, RoleWarehouse), invHandler.Transfer)
	inv.Post("/count", RequireRole(RoleAdmin, RoleWarehouse), invHandler.Count)

	// Numeración
	numHandler := NewNumberingHandler(deps.Allocator, deps.Now, log)
	protected.Get("/numbering-ranges/:id/report", RequireRole(RoleAdmin), numHandler.Report)
}
