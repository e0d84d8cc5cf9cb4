package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/inventario-movimientos/pkg/config"
)

// SessionSettings parámetros de sesión que se fijan en cada conexión del pool.
type SessionSettings struct {
	ApplicationName string
	// LockTimeout valor por defecto de la sesión; TxRunner lo vuelve a fijar con SET LOCAL.
	LockTimeout time.Duration
	// StatementTimeout acota consultas colgadas fuera de los bloqueos del motor.
	StatementTimeout time.Duration
}

// NewPool crea el pool de conexiones del libro y verifica la conexión.
func NewPool(ctx context.Context, cfg config.DBConfig, session SessionSettings) (*pgxpool.Pool, error) {
	poolConfig, err := newPoolConfig(cfg, session)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	return pool, nil
}

func newPoolConfig(cfg config.DBConfig, session SessionSettings) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolConfig.MaxConns = 25
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	params := poolConfig.ConnConfig.RuntimeParams
	if session.ApplicationName != "" {
		params["application_name"] = session.ApplicationName
	}
	if session.LockTimeout > 0 {
		params["lock_timeout"] = milliseconds(session.LockTimeout)
	}
	if session.StatementTimeout > 0 {
		params["statement_timeout"] = milliseconds(session.StatementTimeout)
	}

	// NUMERIC <-> shopspring/decimal en todas las conexiones.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	return poolConfig, nil
}

func milliseconds(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}
