package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/gold-inventory/internal/config"
	"github.com/rl1809/gold-inventory/internal/port"
)

// Migrator is implemented by stores that own a relational schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// StockSetter is implemented by stores that can overwrite a stock counter directly.
type StockSetter interface {
	SetStock(ctx context.Context, itemID int64, quantity int) error
}

var (
	_ port.Store = (*MySQLAdapter)(nil)
	_ port.Store = (*PostgresAdapter)(nil)
	_ port.Store = (*RedisAdapter)(nil)
	_ port.Store = (*MemoryAdapter)(nil)

	_ Migrator = (*MySQLAdapter)(nil)
	_ Migrator = (*PostgresAdapter)(nil)

	_ StockSetter = (*RedisAdapter)(nil)
	_ StockSetter = (*MemoryAdapter)(nil)
)

// Open connects the store selected by cfg.Driver and verifies it is reachable.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (port.Store, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		dsn, err := mysqlDSN(cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		logger.Info("connected to mysql")
		return NewMySQLAdapter(db), nil

	case config.DriverPostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
		}
		if cfg.MaxOpenConns > 0 {
			poolCfg.MaxConns = int32(cfg.MaxOpenConns)
		}
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("connected to postgres")
		return NewPostgresAdapter(pool), nil

	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: cfg.RedisPoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("connected to redis")
		return NewRedisAdapter(rdb), nil

	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return NewMemoryAdapter(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// mysqlDSN forces parseTime so DATETIME and DATE columns scan into time.Time.
func mysqlDSN(dsn string) (string, error) {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	c.ParseTime = true
	return c.FormatDSN(), nil
}
