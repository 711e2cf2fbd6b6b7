package postgres

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/LuisDaniel15/Software-Pos/pkg/config"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

const (
	defaultMaxConns     = 25
	defaultConnLifetime = time.Hour
)

// poolConfig traduce DBConfig a la configuración de pgxpool. Los valores no
// positivos caen en los de defecto.
func poolConfig(cfg config.DBConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	pc.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		pc.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 && int32(cfg.MinConns) <= pc.MaxConns {
		pc.MinConns = int32(cfg.MinConns)
	}
	pc.MaxConnLifetime = defaultConnLifetime
	if cfg.ConnLifetimeMinutes > 0 {
		pc.MaxConnLifetime = time.Duration(cfg.ConnLifetimeMinutes) * time.Minute
	}
	pc.MaxConnIdleTime = pc.MaxConnLifetime / 2
	pc.HealthCheckPeriod = time.Minute

	// NUMERIC <-> decimal.Decimal en cada conexión nueva; precios, cantidades y
	// costos del kardex viajan sin pasar por float.
	pc.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	return pc, nil
}

// NewPool abre el pool y verifica la conexión con un ping.
func NewPool(ctx context.Context, cfg config.DBConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	ctx, span := tracer.Start(ctx, "postgres.connect")
	defer span.End()

	pc, err := poolConfig(cfg)
	if err != nil {
		span.SetStatus(codes.Error, "config")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("db.host", pc.ConnConfig.Host),
		attribute.String("db.name", pc.ConnConfig.Database),
		attribute.Int("db.max_conns", int(pc.MaxConns)),
	)

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "ping")
		return nil, fmt.Errorf("ping DB: %w", err)
	}

	log.With("postgres").Info().
		Str("host", pc.ConnConfig.Host).
		Str("database", pc.ConnConfig.Database).
		Int32("max_conns", pc.MaxConns).
		Int32("min_conns", pc.MinConns).
		Dur("conn_lifetime", pc.MaxConnLifetime).
		Msg("pool de PostgreSQL listo")
	return pool, nil
}
