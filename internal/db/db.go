package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dev-event/internal/config"
)

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = cfg.DBConnectTimeout

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Handle expone el pool de forma perezosa. Implementa la interfaz de
// consultas que usan los repositorios, asi que ningun repositorio necesita
// una conexion abierta al construirse.
type Handle struct {
	lazy *Lazy[*pgxpool.Pool]
}

// NewHandle prepara el handle sin conectarse.
func NewHandle(cfg *config.Config) *Handle {
	return NewHandleWith(func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	}, cfg.DBConnectTimeout)
}

// NewHandleWith permite inyectar el constructor del pool.
func NewHandleWith(connect func(ctx context.Context) (*pgxpool.Pool, error), timeout time.Duration) *Handle {
	return &Handle{
		lazy: NewLazy(connect, func(p *pgxpool.Pool) { p.Close() }, timeout),
	}
}

// Pool devuelve el pool, conectando en el primer uso.
func (h *Handle) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	return h.lazy.Get(ctx)
}

func (h *Handle) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	pool, err := h.Pool(ctx)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return pool.Exec(ctx, sql, args...)
}

func (h *Handle) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	pool, err := h.Pool(ctx)
	if err != nil {
		return errRow{err: err}
	}
	return pool.QueryRow(ctx, sql, args...)
}

// Ping verifica conectividad con la base de datos.
func (h *Handle) Ping(ctx context.Context) error {
	pool, err := h.Pool(ctx)
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

// Close cierra el pool si llego a abrirse.
func (h *Handle) Close() {
	h.lazy.Close()
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}
