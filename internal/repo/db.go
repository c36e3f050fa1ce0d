package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"

	"github.com/shaiso/Wireflow/internal/config"
)

// NewPool создаёт пул соединений PostgreSQL и проверяет связь.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// OpenSQLite открывает файл базы SQLite.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite допускает одного писателя.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Open создаёт репозиторий по конфигурации и возвращает функцию закрытия.
func Open(ctx context.Context, cfg *config.Config) (FlowRepository, func(), error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := NewPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, nil, err
		}
		r := NewPostgresFlowRepo(pool)
		if err := r.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return r, pool.Close, nil

	case config.DriverSQLite:
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		r, err := NewSQLiteFlowRepo(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return r, func() { db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.DBDriver)
}
