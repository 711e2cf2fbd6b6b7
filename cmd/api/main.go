package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/LuisDaniel15/Software-Pos/internal/application/auth"
	"github.com/LuisDaniel15/Software-Pos/internal/application/billing"
	"github.com/LuisDaniel15/Software-Pos/internal/application/inventory"
	"github.com/LuisDaniel15/Software-Pos/internal/application/numbering"
	"github.com/LuisDaniel15/Software-Pos/internal/infrastructure/factus"
	"github.com/LuisDaniel15/Software-Pos/internal/infrastructure/postgres"
	infraredis "github.com/LuisDaniel15/Software-Pos/internal/infrastructure/redis"
	httpRouter "github.com/LuisDaniel15/Software-Pos/internal/interfaces/http"
	"github.com/LuisDaniel15/Software-Pos/pkg/config"
	"github.com/LuisDaniel15/Software-Pos/pkg/jwt"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:    cfg.App.Env,
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("factus", cfg.Factus.Environment).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	txRunner := postgres.NewTxRunner(pool)
	productRepo := postgres.NewProductRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	branchRepo := postgres.NewBranchRepository(pool)
	stockRepo := postgres.NewStockRepository(pool)
	movementRepo := postgres.NewMovementRepository(pool)
	rangeRepo := postgres.NewNumberingRangeRepository(pool)

	// Redis es opcional: sin él el token de Factus vive en memoria y el reintento
	// solo queda protegido por el update condicional de estado.
	var (
		tokens factus.TokenStore
		locker billing.RetryLocker
	)
	if cfg.Redis.Enabled() {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		tokens = infraredis.NewTokenStore(rdb)
		locker = infraredis.NewRetryLocker(rdb, cfg.Settlement.RetryLockTTL(), log)
	}

	var gateway billing.InvoicingGateway
	if cfg.Factus.Simulated() {
		log.Warn().Msg("FACTUS_ENVIRONMENT=dev: las facturas se validan con el proveedor simulado")
		gateway = factus.NewSimulatedGateway(log)
	} else {
		gateway = factus.NewClient(cfg.Factus, tokens, log)
	}

	repos := billing.Repos{
		Products:    productRepo,
		Customers:   customerRepo,
		Branches:    branchRepo,
		Stock:       stockRepo,
		Till:        postgres.NewTillRepository(pool),
		Sales:       postgres.NewSaleRepository(pool),
		CreditNotes: postgres.NewCreditNoteRepository(pool),
	}
	ledgerUC := inventory.NewLedgerUseCase(txRunner, productRepo, branchRepo)
	kardexUC := inventory.NewKardexUseCase(movementRepo, stockRepo, log)
	reportsUC := inventory.NewReportsUseCase(stockRepo)
	allocator := numbering.NewAllocator(rangeRepo, log)
	fiscal := billing.NewFiscalOrchestrator(txRunner, gateway, repos, cfg.Factus.Timeout(), log)
	settlementUC := billing.NewSettlementUseCase(txRunner, ledgerUC, allocator, fiscal, locker, repos, log)
	signer, err := jwt.NewSigner(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.Expiration)*time.Minute)
	if err != nil {
		log.Fatal().Err(err).Msg("configuración JWT")
	}
	authUC := auth.NewAuthUseCase(postgres.NewUserRepository(pool), branchRepo, signer, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.Factus.Timeout() + 10*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Auth:       authUC,
		Settlement: settlementUC,
		Ledger:     ledgerUC,
		Kardex:     kardexUC,
		Reports:    reportsUC,
		Allocator:  allocator,
		Tokens:     signer,
		Log:        log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
